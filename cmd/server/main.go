// cmd/server/main.go
package main

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aurangzaib-ai/whatsapp-project/internal/config"
	"github.com/aurangzaib-ai/whatsapp-project/internal/controller"
	"github.com/aurangzaib-ai/whatsapp-project/internal/db"
	"github.com/aurangzaib-ai/whatsapp-project/internal/handler"
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
	log := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	conn, err := db.Open(cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer conn.Close()
	log.Info().Str("db", cfg.DBName).Msg("connected to database")

	recipientRepo := &repository.RecipientRepository{DB: conn}
	campaignRepo := &repository.CampaignRepository{DB: conn}
	responseRepo := &repository.ResponseRepository{DB: conn}
	optoutRepo := &repository.OptOutRepository{DB: conn}

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

	reconciler := &service.Reconciler{
		Recipients: recipientRepo,
		Ledger:     campaignRepo,
		Responses:  responseRepo,
		OptOuts:    optoutRepo,
		Log:        log,
	}

	// With a broker the worker binary consumes dispatch jobs; without one
	// they run in-process.
	var q queue.Queue
	if cfg.AMQPURL != "" {
		amqpQueue, err := queue.DialAMQP(cfg.AMQPURL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("amqp connection failed")
		}
		defer amqpQueue.Close()
		q = amqpQueue
		log.Info().Msg("dispatch jobs go through AMQP")
	} else {
		memQueue := queue.NewInMemoryQueue(log)
		if err := queue.StartDispatchSubscriber(memQueue, cfg.DispatchQueue, dispatcher, log); err != nil {
			log.Fatal().Err(err).Msg("failed to start dispatch subscriber")
		}
		q = memQueue
		log.Info().Msg("dispatch jobs run in-process")
	}

	campaignController := &controller.CampaignController{
		Dispatcher: dispatcher,
		Ledger:     campaignRepo,
		Responses:  responseRepo,
		Queue:      q,
		Topic:      cfg.DispatchQueue,
		Log:        log,
	}
	recipientController := &controller.RecipientController{
		Recipients: recipientRepo,
		OptOuts:    optoutRepo,
		Importer:   &service.Importer{Recipients: recipientRepo, Log: log},
		Log:        log,
	}
	webhookHandler := &handler.WebhookHandler{
		Reconciler:  reconciler,
		VerifyToken: cfg.VerifyToken,
		Log:         log,
	}

	r := chi.NewRouter()

	r.Get("/webhook", webhookHandler.Verify)
	r.Post("/webhook", webhookHandler.Receive)

	r.Post("/recipients", recipientController.CreateRecipient)
	r.Get("/recipients", recipientController.ListRecipients)
	r.Get("/recipients/{id}", recipientController.GetRecipient)
	r.Put("/recipients/{id}", recipientController.UpdateRecipient)
	r.Post("/recipients/import", recipientController.ImportRecipients)
	r.Get("/optouts", recipientController.ListOptOuts)

	r.Post("/campaigns", campaignController.CreateCampaign)
	r.Get("/campaigns", campaignController.ListCampaigns)
	r.Get("/campaigns/{id}", campaignController.GetCampaign)
	r.Post("/campaigns/{id}/dispatch", campaignController.DispatchCampaign)
	r.Get("/campaigns/{id}/responses", campaignController.ListResponses)

	r.Get("/templates", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"templates": []map[string]string{
				{"template_name": "hello_world", "language_code": "en_US"},
			},
		})
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("🚀 server running")
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
