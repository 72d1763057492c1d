package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"

	"no-lights-dtek/internal/cache"
	"no-lights-dtek/internal/config"
	"no-lights-dtek/internal/database"
	"no-lights-dtek/internal/dtek"
	"no-lights-dtek/internal/handlers"
	"no-lights-dtek/internal/registry"
)

func main() {
	// Load .env if present.
	_ = godotenv.Load()

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Scraper ---
	browser := dtek.NewChromeBrowser(dtek.ChromeOptions{
		Headless: cfg.Headless,
		ExecPath: cfg.ChromePath,
	})
	scraper, err := dtek.NewScraper(browser, cfg.DtekURL)
	if err != nil {
		log.Fatalf("DTEK_URL: %v", err)
	}
	guarded := dtek.NewGuarded(scraper, uint32(cfg.BreakerFailures), cfg.BreakerCooldown)

	h := &handlers.Handlers{
		Scraper:  guarded,
		Defaults: dtek.Address{City: cfg.City, Street: cfg.Street, House: cfg.House},
	}

	// --- Database (optional: history endpoint) ---
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Printf("database unavailable, history disabled: %v", err)
	} else {
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		h.History = db
		log.Println("database connected and migrated")
	}

	// --- Redis (optional: subscriber endpoint) ---
	redisCache, err := cache.New(cfg.RedisURL)
	if err != nil {
		log.Printf("redis unavailable, subscriber lookup disabled: %v", err)
	} else {
		defer redisCache.Close()
		h.Subscribers = registry.New(redisCache)
		log.Println("redis connected")
	}

	// --- Fiber HTTP Server ---
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", h.GetStatus)
	api.Get("/subscribers/:id", h.GetSubscriber)
	api.Get("/subscribers/:id/history", h.GetHistory)

	// --- Graceful shutdown ---
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	log.Printf("server starting on :%s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
