package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"no-lights-dtek/internal/bot"
	"no-lights-dtek/internal/cache"
	"no-lights-dtek/internal/config"
	"no-lights-dtek/internal/mq"
	"no-lights-dtek/internal/registry"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	if cfg.BotToken == "" {
		log.Fatal("BOT_TOKEN is required. Get one from @BotFather on Telegram.")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Redis ---
	redisCache, err := cache.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisCache.Close()
	log.Println("redis connected")

	// --- RabbitMQ ---
	mqConsumer, err := mq.NewConsumer(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("rabbitmq consumer: %v", err)
	}
	defer mqConsumer.Close()
	log.Println("rabbitmq connected")

	// --- Telegram Bot ---
	tgBot, err := bot.New(cfg.BotToken, registry.New(redisCache), bot.NewAPIClient(cfg.APIURL), cfg.ViewerURL)
	if err != nil {
		log.Fatalf("bot: %v", err)
	}

	go tgBot.Start()
	defer tgBot.Stop()
	log.Println("telegram bot started")

	// --- Start RabbitMQ listener ---
	notifier := bot.NewNotifier(tgBot.TeleBot())
	go func() {
		if err := mqConsumer.Listen(ctx, mq.QueueStatusChange, notifier.HandleStatusChange); err != nil {
			log.Fatalf("[listener] %v", err)
		}
		log.Println("[listener] stopped")
	}()
	log.Println("rabbitmq listener started")

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down bot service...")
	cancel()
}
