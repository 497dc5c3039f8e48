// cmd/worker/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/aurangzaib-ai/whatsapp-project/internal/config"
	"github.com/aurangzaib-ai/whatsapp-project/internal/db"
	"github.com/aurangzaib-ai/whatsapp-project/internal/provider"
	"github.com/aurangzaib-ai/whatsapp-project/internal/queue"
	"github.com/aurangzaib-ai/whatsapp-project/internal/repository"
	"github.com/aurangzaib-ai/whatsapp-project/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("component", "worker").Logger()

	conn, err := db.Open(cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer conn.Close()

	recipientRepo := &repository.RecipientRepository{DB: conn}
	campaignRepo := &repository.CampaignRepository{DB: conn}
	responseRepo := &repository.ResponseRepository{DB: conn}

	sender := provider.NewClient(provider.ClientConfig{
		AccessToken:   cfg.WhatsAppAccessToken,
		PhoneNumberID: cfg.WhatsAppPhoneNumberID,
		APIVersion:    cfg.WhatsAppAPIVersion,
		Timeout:       cfg.SendTimeout,
	})

	dispatcher := &service.Dispatcher{
		Recipients: recipientRepo,
		Ledger:     campaignRepo,
		Provider:   sender,
		Workers:    cfg.SendWorkers,
		RatePerSec: cfg.SendRatePerSec,
		Log:        log,
	}

	if cfg.AMQPURL == "" {
		log.Fatal().Msg("AMQP_URL is required for the worker")
	}
	amqpQueue, err := queue.DialAMQP(cfg.AMQPURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("amqp connection failed")
	}
	defer amqpQueue.Close()

	if err := queue.StartDispatchSubscriber(amqpQueue, cfg.DispatchQueue, dispatcher, log); err != nil {
		log.Fatal().Err(err).Msg("failed to start dispatch subscriber")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper := &service.RetentionSweeper{
		Responses: responseRepo,
		MaxAge:    cfg.ResponseMaxAge,
		MaxCount:  cfg.ResponseMaxCount,
		Log:       log,
	}
	go sweeper.Run(ctx, cfg.PurgeInterval)

	log.Info().Str("queue", cfg.DispatchQueue).Msg("worker running, waiting for dispatch jobs")
	<-ctx.Done()
	log.Info().Msg("worker shutting down")
}
