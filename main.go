package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/redis/go-redis/v9"
	"github.com/streadway/amqp"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"nexus/internal/gateways"
	"nexus/internal/handlers"
	"nexus/internal/middleware"
	"nexus/internal/models"
	"nexus/internal/repositories"
	"nexus/internal/services"
	"nexus/pkg/rabbitmq"
	"nexus/pkg/ratelimit"

	"github.com/spf13/viper"
)

// loadConfig sets up Viper to read configuration from environment variables
// with sensible development defaults.
func loadConfig() {
	viper.SetDefault("APP_PORT", ":8080")
	viper.SetDefault("JWT_SECRET", "change-me-in-production")
	viper.SetDefault("DATABASE_DRIVER", "sqlite")
	viper.SetDefault("DATABASE_DSN", "nexus.db")
	viper.SetDefault("RABBITMQ_URL", "")
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("LOGIN_RATE_LIMIT", 5)
	viper.SetDefault("LOGIN_RATE_WINDOW", "1m")

	viper.SetDefault("MPESA_BASE_URL", "https://sandbox.safaricom.co.ke")
	viper.SetDefault("MPESA_CONSUMER_KEY", "")
	viper.SetDefault("MPESA_CONSUMER_SECRET", "")
	viper.SetDefault("MPESA_SHORT_CODE", "174379")
	viper.SetDefault("MPESA_PASSKEY", "")
	viper.SetDefault("MPESA_CALLBACK_URL", "")

	viper.SetDefault("AIRTEL_BASE_URL", "https://openapiuat.airtel.africa")
	viper.SetDefault("AIRTEL_CLIENT_ID", "")
	viper.SetDefault("AIRTEL_CLIENT_SECRET", "")
	viper.SetDefault("AIRTEL_COUNTRY", "KE")
	viper.SetDefault("AIRTEL_CURRENCY", "KES")

	viper.SetDefault("STRIPE_BASE_URL", "https://api.stripe.com")
	viper.SetDefault("STRIPE_SECRET_KEY", "")
	viper.SetDefault("STRIPE_CURRENCY", "usd")

	viper.SetDefault("PAYSTACK_BASE_URL", "https://api.paystack.co")
	viper.SetDefault("PAYSTACK_SECRET_KEY", "")
	viper.SetDefault("PAYSTACK_CURRENCY", "KES")

	viper.SetDefault("GATEWAY_TIMEOUT", "30s")

	viper.AutomaticEnv() // Load environment variables
}

// openDatabase opens the configured database and migrates the schema.
func openDatabase() (*gorm.DB, error) {
	driver := viper.GetString("DATABASE_DRIVER")
	dsn := viper.GetString("DATABASE_DSN")

	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	// TranslateError maps driver unique-constraint failures onto
	// gorm.ErrDuplicatedKey, which the repositories rely on to report
	// conflicts.
	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.Transaction{},
		&models.Dispute{},
		&models.PaymentLog{},
		&models.Traveler{},
		&models.TravelerHistoryEntry{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return db, nil
}

// buildRegistry wires one gateway adapter per configured payment provider.
func buildRegistry() *gateways.Registry {
	timeout := viper.GetDuration("GATEWAY_TIMEOUT")

	return gateways.NewRegistry(
		gateways.NewMpesa(gateways.MpesaConfig{
			ConsumerKey:    viper.GetString("MPESA_CONSUMER_KEY"),
			ConsumerSecret: viper.GetString("MPESA_CONSUMER_SECRET"),
			ShortCode:      viper.GetString("MPESA_SHORT_CODE"),
			Passkey:        viper.GetString("MPESA_PASSKEY"),
			BaseURL:        viper.GetString("MPESA_BASE_URL"),
			CallbackURL:    viper.GetString("MPESA_CALLBACK_URL"),
			Timeout:        timeout,
		}),
		gateways.NewAirtel(gateways.AirtelConfig{
			ClientID:     viper.GetString("AIRTEL_CLIENT_ID"),
			ClientSecret: viper.GetString("AIRTEL_CLIENT_SECRET"),
			BaseURL:      viper.GetString("AIRTEL_BASE_URL"),
			Country:      viper.GetString("AIRTEL_COUNTRY"),
			Currency:     viper.GetString("AIRTEL_CURRENCY"),
			Timeout:      timeout,
		}),
		gateways.NewStripe(gateways.StripeConfig{
			SecretKey: viper.GetString("STRIPE_SECRET_KEY"),
			BaseURL:   viper.GetString("STRIPE_BASE_URL"),
			Currency:  viper.GetString("STRIPE_CURRENCY"),
			Timeout:   timeout,
		}),
		gateways.NewPaystack(gateways.PaystackConfig{
			SecretKey: viper.GetString("PAYSTACK_SECRET_KEY"),
			BaseURL:   viper.GetString("PAYSTACK_BASE_URL"),
			Currency:  viper.GetString("PAYSTACK_CURRENCY"),
			Timeout:   timeout,
		}),
	)
}

// NewApp assembles the full application: database, optional broker and
// Redis, repositories, services, handlers, and routes. The returned client
// is nil when RabbitMQ is not configured.
func NewApp() (*fiber.App, *rabbitmq.Client, error) {
	loadConfig()

	db, err := openDatabase()
	if err != nil {
		return nil, nil, err
	}

	// --- Optional infrastructure ---
	// The broker and Redis are both optional so the API can run (and tests
	// can exercise it) without them. Services treat a nil publisher as a
	// no-op; a nil limiter disables login throttling.
	var mqClient *rabbitmq.Client
	var publisher rabbitmq.Publisher
	if url := viper.GetString("RABBITMQ_URL"); url != "" {
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: url})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize RabbitMQ client: %w", err)
		}
		publisher = mqClient
	}

	var loginLimiter *ratelimit.Limiter
	if addr := viper.GetString("REDIS_ADDR"); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		loginLimiter = ratelimit.New(rdb,
			viper.GetInt("LOGIN_RATE_LIMIT"),
			viper.GetDuration("LOGIN_RATE_WINDOW"))
	}

	// --- Initialize Repositories ---
	userRepo := repositories.NewGORMUserRepository(db)
	productRepo := repositories.NewGORMProductRepository(db)
	cartRepo := repositories.NewGORMCartRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)
	paymentRepo := repositories.NewGORMPaymentRepository(db)
	paymentLogRepo := repositories.NewGORMPaymentLogRepository(db)
	travelerRepo := repositories.NewGORMTravelerRepository(db)

	// --- Initialize Services ---
	authService := services.NewAuthService(userRepo, travelerRepo, viper.GetString("JWT_SECRET"))
	productService := services.NewProductService(productRepo)
	cartService := services.NewCartService(cartRepo, productRepo)
	orderService := services.NewOrderService(orderRepo, productRepo, cartRepo, travelerRepo, publisher)
	escrowService := services.NewEscrowService(paymentRepo, productRepo, travelerRepo, publisher)
	travelerService := services.NewTravelerService(productRepo, orderRepo, travelerRepo)
	ratingService := services.NewRatingService(orderRepo, travelerRepo, userRepo)
	checkoutService := services.NewCheckoutService(
		orderService, orderRepo, cartRepo, productRepo, paymentLogRepo, buildRegistry())

	// --- Initialize Handlers ---
	authHandler := handlers.NewAuthHandler(authService, loginLimiter)
	productHandler := handlers.NewProductHandler(productService)
	cartHandler := handlers.NewCartHandler(cartService)
	orderHandler := handlers.NewOrderHandler(orderService)
	paymentHandler := handlers.NewPaymentHandler(escrowService)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService)
	travelerHandler := handlers.NewTravelerHandler(travelerService)
	ratingHandler := handlers.NewRatingHandler(ratingService)

	// --- Initialize Fiber App ---
	app := fiber.New()

	// --- Middleware ---
	app.Use(logger.New()) // Request logger

	// --- API Routes ---
	apiV1 := app.Group("/api/v1")

	// Public routes: auth plus provider callbacks, which cannot carry our
	// bearer tokens.
	authHandler.RegisterRoutes(apiV1)
	checkoutHandler.RegisterWebhooks(apiV1)

	// Protected routes.
	protected := apiV1.Group("", middleware.AuthRequired(authService))
	productHandler.RegisterRoutes(protected)
	cartHandler.RegisterRoutes(protected)
	orderHandler.RegisterRoutes(protected)
	paymentHandler.RegisterRoutes(protected)
	checkoutHandler.RegisterRoutes(protected)
	travelerHandler.RegisterRoutes(protected)
	ratingHandler.RegisterRoutes(protected)

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return app, mqClient, nil
}

func main() {
	app, mqClient, err := NewApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	if mqClient != nil {
		defer mqClient.Close()

		// --- Start RabbitMQ Consumer in a Goroutine ---
		go func() {
			log.Println("Starting RabbitMQ consumer for marketplace events...")
			messageHandler := func(msg amqp.Delivery) error {
				log.Printf("Received event (Tag: %d): %s", msg.DeliveryTag, string(msg.Body))
				return nil // Return nil to acknowledge
			}
			if consumerErr := mqClient.ConsumeEvents(messageHandler); consumerErr != nil {
				log.Printf("Failed to start RabbitMQ consumer: %v", consumerErr)
			}
		}()
	}

	appPort := viper.GetString("APP_PORT")
	log.Printf("Starting server on port %s", appPort)

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(appPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}

	log.Println("Server gracefully stopped")
}
