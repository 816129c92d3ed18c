package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/streadway/amqp"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"aether/internal/cache"
	"aether/internal/config"
	"aether/internal/events"
	"aether/internal/mail"
	"aether/internal/payment"
	"aether/internal/pricing"
	"aether/internal/repositories"
	"aether/internal/server"
	"aether/internal/services"
	"aether/pkg/kafka"
	"aether/pkg/rabbitmq"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg, err := config.Load(nil)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := newApp(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer cleanup()

	go func() {
		log.Printf("Starting server on port %s", cfg.AppPort)
		if err := app.Listen(cfg.AppPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
}

// newApp wires storage, cache, events, mail and payments into the HTTP app. Background
// consumers run until ctx is done. cleanup releases every opened resource in reverse order.
func newApp(ctx context.Context, cfg *config.Config) (*fiber.App, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*fiber.App, func(), error) {
		cleanup()
		return nil, func() {}, err
	}
	checks := map[string]server.Check{}

	// --- Storage ---
	var repos *repositories.Set
	switch cfg.DBDriver {
	case "memory":
		repos = repositories.NewMemorySet()
	case "mongo":
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return fail(fmt.Errorf("failed to connect to MongoDB: %w", err))
		}
		closers = append(closers, func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Printf("Error disconnecting MongoDB: %v", err)
			}
		})
		if repos, err = repositories.OpenMongoSet(ctx, client, cfg.MongoDatabase); err != nil {
			return fail(err)
		}
		checks["database"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
	default:
		db, err := repositories.OpenGORM(cfg.DBDriver, cfg.DatabaseDSN, cfg.DBDebug)
		if err != nil {
			return fail(err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fail(fmt.Errorf("failed to get database handle: %w", err))
		}
		closers = append(closers, func() {
			if err := sqlDB.Close(); err != nil {
				log.Printf("Error closing database: %v", err)
			}
		})
		repos = repositories.NewGORMSet(db)
		checks["database"] = sqlDB.PingContext
	}
	log.Printf("Storage ready (driver=%s)", cfg.DBDriver)

	// --- Cache ---
	var productCache cache.ProductCache = cache.NewMemory(cfg.CacheTTL)
	if cfg.RedisAddr != "" {
		rdb := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		closers = append(closers, func() {
			if err := rdb.Close(); err != nil {
				log.Printf("Error closing Redis client: %v", err)
			}
		})
		redisCache := cache.NewRedis(rdb, cfg.CacheTTL)
		productCache = redisCache
		checks["cache"] = redisCache.Ping
	}

	// --- Mail ---
	var mailer mail.Mailer = &mail.LogMailer{InboxAddr: cfg.EmailUser}
	if cfg.EmailUser != "" && cfg.EmailPass != "" {
		mailer = mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.EmailUser,
			Password: cfg.EmailPass,
		})
	}

	// --- Events ---
	var publisher events.Publisher = events.Nop{}
	mailHandler := events.NewMailHandler(mailer)
	switch cfg.EventsDriver {
	case "rabbitmq":
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			return fail(err)
		}
		pub := events.NewRabbitMQPublisher(mq)
		closers = append(closers, func() {
			if err := pub.Close(); err != nil {
				log.Printf("Error closing RabbitMQ client: %v", err)
			}
		})
		publisher = pub

		go func() {
			log.Println("Starting RabbitMQ consumer for order events...")
			err := mq.Consume(ctx, cfg.ServiceName+"-mailer", func(msg amqp.Delivery) error {
				return mailHandler.HandleMessage(ctx, msg.Body)
			})
			if err != nil {
				log.Printf("RabbitMQ consumer stopped: %v", err)
			}
		}()
	case "kafka":
		producer := kafka.NewProducer(cfg.Brokers(), cfg.KafkaTopic, 256)
		producer.Start(ctx)
		pub := events.NewKafkaPublisher(producer)
		closers = append(closers, func() {
			if err := pub.Close(); err != nil {
				log.Printf("Error closing Kafka producer: %v", err)
			}
		})
		publisher = pub

		consumer := kafka.NewConsumer(cfg.Brokers(), cfg.KafkaTopic, cfg.ServiceName+"-mailer")
		closers = append(closers, func() {
			if err := consumer.Close(); err != nil {
				log.Printf("Error closing Kafka consumer: %v", err)
			}
		})
		go func() {
			log.Println("Starting Kafka consumer for order events...")
			if err := consumer.Run(ctx, mailHandler.HandleMessage); err != nil {
				log.Printf("Kafka consumer stopped: %v", err)
			}
		}()
	}
	log.Printf("Events ready (driver=%s)", cfg.EventsDriver)

	// --- Payments ---
	var (
		gateway payment.Gateway
		signer  *payment.Signer
	)
	if cfg.PaymentsConfigured() {
		rzp, err := payment.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
		if err != nil {
			return fail(err)
		}
		gateway = rzp
		signer = payment.NewSigner(cfg.RazorpayKeySecret)
	} else {
		log.Println("Razorpay keys not set; online payments disabled, COD available")
	}

	// --- Services ---
	rules := pricing.Rules{
		ShippingFee:           cfg.ShippingFee,
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		TaxRate:               cfg.TaxRate,
	}
	resetURL := ""
	if origins := cfg.ClientOrigins(); len(origins) > 0 {
		resetURL = origins[0]
	}
	products := services.NewProductService(repos.Products, productCache)

	app := server.New(server.Deps{
		Auth: services.NewAuthService(repos.Users, cfg.JWTSecret,
			services.WithTokenTTL(cfg.JWTTTL),
			services.WithPasswordReset(mailer, resetURL, cfg.ResetTokenTTL),
		),
		Products:  products,
		Carts:     services.NewCartService(repos.Carts, products, rules),
		Wishlists: services.NewWishlistService(repos.Wishlists, products),
		Checkout: services.NewCheckoutService(services.CheckoutConfig{
			Orders:    repos.Orders,
			Carts:     repos.Carts,
			Products:  products,
			Gateway:   gateway,
			Signer:    signer,
			Publisher: publisher,
			Rules:     rules,
			Currency:  cfg.Currency,
			Producer:  cfg.ServiceName,
		}),
		Contact:        services.NewContactService(mailer),
		AllowedOrigins: cfg.ClientOrigins(),
		Checks:         checks,
	})
	return app, cleanup, nil
}
