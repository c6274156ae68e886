package main

import (
	"context"
	"log/slog"
	"os"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/pritamp-cmyk/New-Inventory-management-system/internal/api"
	"github.com/pritamp-cmyk/New-Inventory-management-system/internal/channel"
	"github.com/pritamp-cmyk/New-Inventory-management-system/internal/config"
	"github.com/pritamp-cmyk/New-Inventory-management-system/internal/directory"
	"github.com/pritamp-cmyk/New-Inventory-management-system/internal/engine"
	"github.com/pritamp-cmyk/New-Inventory-management-system/internal/inventory"
	"github.com/pritamp-cmyk/New-Inventory-management-system/internal/models"
	"github.com/pritamp-cmyk/New-Inventory-management-system/internal/store"
)

var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

func main() {
	cfg := config.Load(logger)

	// --- Database Connection ---
	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		panic("Failed to connect to database!")
	}
	db.AutoMigrate(&models.Subscription{}, &models.DeliveryLog{}, &models.Preference{})

	subs := store.NewSubscriptions(db)
	logs := store.NewDeliveryLogs(db)
	prefs := store.NewPreferences(db)

	// --- Channel Senders ---
	dir := directory.NewHTTP(cfg.UserServiceURL)
	senders := channel.NewRegistry(
		&channel.Email{
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			From:      cfg.SMTPFrom,
			Password:  cfg.SMTPPassword,
			Directory: dir,
		},
		channel.NewSMS(cfg.TwilioFrom, dir),
		channel.NewPush(cfg.PushGatewayURL, dir),
		channel.InApp{},
	)

	dispatcher := engine.New(subs, logs, prefs, senders, logger)

	// --- RabbitMQ Connection ---
	conn, err := amqp.Dial(cfg.AMQPURL)
	failOnError(err, "Failed to connect to RabbitMQ")
	defer conn.Close()

	consumer, err := inventory.NewConsumer(conn, dispatcher, logger)
	failOnError(err, "Failed to open stock event consumer")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := consumer.Run(ctx); err != nil {
			logger.Error("stock event consumer stopped", "error", err)
		}
	}()

	// --- Retry Sweeper ---
	if cfg.SweepSpec != "" {
		sweeper := engine.NewSweeper(dispatcher, logs, cfg.SweepBackoff, logger)
		failOnError(sweeper.Start(cfg.SweepSpec), "Failed to start retry sweeper")
		defer sweeper.Stop()
	}

	// --- Redis Connection ---
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	// --- Gin Router ---
	server := api.NewServer(subs, logs, prefs, dispatcher, logger)
	router := server.Router(api.RateLimiter(redisClient, logger))

	logger.Info("Notification Service running", "addr", cfg.ListenAddr)
	router.Run(cfg.ListenAddr)
}

// failOnError handles critical startup errors.
func failOnError(err error, msg string) {
	if err != nil {
		logger.Error(msg, "error", err)
		panic(err)
	}
}
