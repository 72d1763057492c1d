package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"no-lights-dtek/internal/cache"
	"no-lights-dtek/internal/checker"
	"no-lights-dtek/internal/config"
	"no-lights-dtek/internal/database"
	"no-lights-dtek/internal/dtek"
	"no-lights-dtek/internal/mq"
	"no-lights-dtek/internal/registry"
	"no-lights-dtek/internal/scheduler"
)

func main() {
	// Load .env if present.
	_ = godotenv.Load()

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Database ---
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("database connected and migrated")

	// --- Redis ---
	redisCache, err := cache.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisCache.Close()
	log.Println("redis connected")

	// --- RabbitMQ ---
	publisher, err := mq.NewPublisher(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("rabbitmq publisher: %v", err)
	}
	defer publisher.Close()
	log.Println("rabbitmq connected")

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

	// --- Checker ---
	chk := checker.New(guarded, registry.New(redisCache), mq.NewStatusNotifier(publisher), checker.Options{
		Events:           db,
		ViewerURL:        cfg.ViewerURL,
		CheckTimeout:     cfg.CheckTimeout,
		NotifyFirstCheck: cfg.NotifyFirstCheck,
	})

	sched := scheduler.New(chk, cfg.CheckInterval)
	if err := sched.Start(); err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	defer sched.Stop()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down worker...")
	cancel()
}
