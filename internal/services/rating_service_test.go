package services_test

import (
	"errors"
	"strings"
	"testing"

	"nexus/internal/apperr"
	"nexus/internal/models"
	"nexus/internal/repositories"
	"nexus/internal/services"

	"github.com/stretchr/testify/assert"
)

type ratingFixture struct {
	service   *services.RatingService
	orders    *repositories.MockOrderRepository
	travelers *repositories.MockTravelerRepository
	users     *repositories.MockUserRepository
	product   *models.Product
	traveler  *models.Traveler
	client    *models.User
}

// newRatingFixture builds a delivered order: client "client-user" ordered one
// product which traveler "traveler-user" delivered and the client confirmed.
func newRatingFixture(t *testing.T) *ratingFixture {
	t.Helper()
	orderRepo := repositories.NewMockOrderRepository()
	productRepo := repositories.NewMockProductRepository()
	travelerRepo := repositories.NewMockTravelerRepository()
	userRepo := repositories.NewMockUserRepository()

	client := &models.User{
		Username: "client-user",
		Email:    "client@example.com",
		Password: "hashed",
		Role:     models.RoleClient,
	}
	assert.NoError(t, userRepo.Create(client))

	traveler := &models.Traveler{UserID: "traveler-user"}
	assert.NoError(t, travelerRepo.Create(traveler))

	product := seedProduct(t, productRepo, client.ID, 100.00)

	order := &models.Order{
		OrderNumber: "ORD-RATING01",
		UserID:      client.ID,
		Items: []models.OrderItem{{
			ProductID:      product.ID,
			Quantity:       1,
			Price:          product.TotalPrice,
			DeliveryStatus: models.ItemClientConfirmed,
			TravelerID:     &traveler.ID,
		}},
		TotalAmount:    product.TotalPrice,
		PaymentStatus:  models.PaymentPaid,
		DeliveryStatus: models.DeliveryDelivered,
		TravelerID:     &traveler.ID,
	}
	assert.NoError(t, orderRepo.Create(order))

	return &ratingFixture{
		service:   services.NewRatingService(orderRepo, travelerRepo, userRepo),
		orders:    orderRepo,
		travelers: travelerRepo,
		users:     userRepo,
		product:   product,
		traveler:  traveler,
		client:    client,
	}
}

func TestRatingService_RateTraveler(t *testing.T) {
	f := newRatingFixture(t)

	err := f.service.RateTraveler(f.client.ID, f.product.ID, 5, "fast and careful")
	assert.NoError(t, err)

	traveler, err := f.travelers.GetByID(f.traveler.ID)
	assert.NoError(t, err)
	assert.Equal(t, 5.0, traveler.RatingAverage)
	assert.Equal(t, 1, traveler.RatingCount)

	order, err := f.orders.FindByItemProduct(f.product.ID)
	assert.NoError(t, err)
	assert.Equal(t, 5, *order.Items[0].ClientRating)
	assert.Equal(t, "fast and careful", order.Items[0].ClientComment)
}

func TestRatingService_RateTraveler_DuplicateRejected(t *testing.T) {
	f := newRatingFixture(t)

	assert.NoError(t, f.service.RateTraveler(f.client.ID, f.product.ID, 4, ""))

	err := f.service.RateTraveler(f.client.ID, f.product.ID, 1, "changed my mind")
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	// The aggregate keeps only the first rating.
	traveler, err := f.travelers.GetByID(f.traveler.ID)
	assert.NoError(t, err)
	assert.Equal(t, 4.0, traveler.RatingAverage)
	assert.Equal(t, 1, traveler.RatingCount)
}

func TestRatingService_RateTraveler_NotOwner(t *testing.T) {
	f := newRatingFixture(t)

	err := f.service.RateTraveler("someone-else", f.product.ID, 5, "")
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
}

func TestRatingService_RateTraveler_NotDelivered(t *testing.T) {
	f := newRatingFixture(t)

	// Put the item back in transit.
	order, err := f.orders.FindByItemProduct(f.product.ID)
	assert.NoError(t, err)
	order.Items[0].DeliveryStatus = models.DeliveryShipped
	assert.NoError(t, f.orders.UpdateItem(&order.Items[0]))

	err = f.service.RateTraveler(f.client.ID, f.product.ID, 5, "")
	assert.True(t, errors.Is(err, apperr.ErrInvalidState))
}

func TestRatingService_RateTraveler_InvalidRating(t *testing.T) {
	f := newRatingFixture(t)

	assert.True(t, errors.Is(f.service.RateTraveler(f.client.ID, f.product.ID, 0, ""), apperr.ErrValidation))
	assert.True(t, errors.Is(f.service.RateTraveler(f.client.ID, f.product.ID, 6, ""), apperr.ErrValidation))

	longComment := strings.Repeat("x", 501)
	assert.True(t, errors.Is(f.service.RateTraveler(f.client.ID, f.product.ID, 3, longComment), apperr.ErrValidation))
}

func TestRatingService_RateClient(t *testing.T) {
	f := newRatingFixture(t)

	err := f.service.RateClient("traveler-user", f.product.ID, 4, "clear instructions")
	assert.NoError(t, err)

	client, err := f.users.GetByID(f.client.ID)
	assert.NoError(t, err)
	assert.Equal(t, 4.0, client.RatingAverage)
	assert.Equal(t, 1, client.RatingCount)

	order, err := f.orders.FindByItemProduct(f.product.ID)
	assert.NoError(t, err)
	assert.Equal(t, 4, *order.Items[0].TravelerRating)
}

func TestRatingService_RateClient_WrongTraveler(t *testing.T) {
	f := newRatingFixture(t)

	other := &models.Traveler{UserID: "other-traveler"}
	assert.NoError(t, f.travelers.Create(other))

	err := f.service.RateClient("other-traveler", f.product.ID, 5, "")
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
}

func TestRatingService_RateClient_DuplicateRejected(t *testing.T) {
	f := newRatingFixture(t)

	assert.NoError(t, f.service.RateClient("traveler-user", f.product.ID, 3, ""))

	err := f.service.RateClient("traveler-user", f.product.ID, 5, "")
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}

func TestRatingService_IncrementalMeanMatchesBatchMean(t *testing.T) {
	f := newRatingFixture(t)

	// One fixture order can only absorb one rating, so exercise the
	// aggregate directly through repeated deliveries of fresh products.
	ratings := []int{5, 3, 4, 4, 2, 5, 1, 4}
	productRepo := repositories.NewMockProductRepository()
	for i, r := range ratings {
		product := seedProduct(t, productRepo, f.client.ID, 50.00)
		order := &models.Order{
			OrderNumber: "ORD-MEAN000" + string(rune('0'+i)),
			UserID:      f.client.ID,
			Items: []models.OrderItem{{
				ProductID:      product.ID,
				Quantity:       1,
				Price:          product.TotalPrice,
				DeliveryStatus: models.ItemClientConfirmed,
				TravelerID:     &f.traveler.ID,
			}},
			PaymentStatus:  models.PaymentPaid,
			DeliveryStatus: models.DeliveryDelivered,
			TravelerID:     &f.traveler.ID,
		}
		assert.NoError(t, f.orders.Create(order))
		assert.NoError(t, f.service.RateTraveler(f.client.ID, product.ID, r, ""))
	}

	var sum int
	for _, r := range ratings {
		sum += r
	}
	expected := float64(sum) / float64(len(ratings))

	traveler, err := f.travelers.GetByID(f.traveler.ID)
	assert.NoError(t, err)
	assert.Equal(t, len(ratings), traveler.RatingCount)
	assert.InDelta(t, expected, traveler.RatingAverage, 1e-9)
}
