package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shoppingmall/internal/app"
	"shoppingmall/internal/cache"
	"shoppingmall/internal/config"
	"shoppingmall/internal/database"
	"shoppingmall/internal/services"
	"shoppingmall/pkg/rabbitmq"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	cartCache, closeCache, err := newCartCache(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize cart cache: %v", err)
	}
	defer closeCache()

	deps := app.Deps{Config: cfg, DB: db, CartCache: cartCache}

	// RabbitMQ is optional: without it order events are skipped.
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
		}
		defer mqClient.Close()
		deps.Events = mqClient

		if err := mqClient.ConsumeOrderEvents(rabbitmq.HandleOrderMessage); err != nil {
			log.Printf("Failed to start RabbitMQ consumer: %v", err)
		}
	} else {
		log.Println("RABBITMQ_URL not set, order events disabled")
	}

	fiberApp, svc := app.New(deps)

	ctx := context.Background()
	if cfg.AdminUsername != "" {
		if err := svc.Auth.EnsureEmployee(ctx, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatalf("Failed to seed employee account: %v", err)
		}
	}
	if cfg.SeedDemoData {
		if err := seedDemoProducts(ctx, svc.Products); err != nil {
			log.Printf("Error seeding demo products: %v", err)
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on port %s", cfg.AppPort)
		if err := fiberApp.Listen(cfg.AppPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")
	if err := fiberApp.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
}

// newCartCache connects to Redis when REDIS_ADDR is set and falls back to
// an always-miss cache otherwise.
func newCartCache(cfg *config.Config) (cache.CartCache, func(), error) {
	if cfg.RedisAddr == "" {
		log.Println("REDIS_ADDR not set, cart cache disabled")
		return cache.Noop{}, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, err
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			log.Printf("Error closing Redis client: %v", err)
		}
	}
	return cache.NewRedisCartCache(client, cfg.CartCacheTTL), closeFn, nil
}

// seedDemoProducts fills an empty catalog with a few products.
func seedDemoProducts(ctx context.Context, products *services.ProductService) error {
	existing, err := products.GetAllProducts(ctx, false)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	demo := []services.ProductInput{
		{Name: "Laptop", Description: "High performance laptop", Price: decimal.NewFromInt(1200), StockQuantity: 10},
		{Name: "Keyboard", Description: "Mechanical keyboard", Price: decimal.NewFromInt(75), StockQuantity: 25},
		{Name: "Mouse", Description: "Ergonomic wireless mouse", Price: decimal.RequireFromString("24.90"), StockQuantity: 50},
	}
	for _, in := range demo {
		p, err := products.CreateProduct(ctx, in)
		if err != nil {
			return err
		}
		log.Printf("Seeded product: %s (ID: %s)", p.Name, p.ID)
	}
	return nil
}
