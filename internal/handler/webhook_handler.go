// internal/handler/webhook_handler.go
package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aurangzaib-ai/whatsapp-project/internal/service"
	"github.com/aurangzaib-ai/whatsapp-project/internal/webhook"
)

// WebhookHandler terminates the provider callback endpoint: the one-time GET
// verification handshake and the POST event stream.
type WebhookHandler struct {
	Reconciler  *service.Reconciler
	VerifyToken string
	Log         zerolog.Logger
}

// Verify answers the provider's subscription challenge.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") != "subscribe" || q.Get("hub.verify_token") != h.VerifyToken {
		h.Log.Warn().Str("mode", q.Get("hub.mode")).Msg("webhook verification failed")
		http.Error(w, "verification failed", http.StatusForbidden)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(q.Get("hub.challenge")))
}

// Receive consumes a callback batch. Every event is handled independently:
// a malformed or unattributable event is logged and skipped so it can never
// block the rest of the batch, and the endpoint always acks with 200 so the
// provider stops retrying payloads we have already seen.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		h.ack(w)
		return
	}

	payload, err := webhook.ParsePayload(body)
	if err != nil {
		h.Log.Warn().Err(err).Msg("undecodable webhook payload dropped")
		h.ack(w)
		return
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, status := range change.Value.Statuses {
				if err := h.Reconciler.ApplyStatusEvent(r.Context(), status); err != nil {
					h.Log.Error().Err(err).Str("provider_message_id", status.ID).
						Msg("status event processing failed")
				}
			}
			for _, msg := range change.Value.Messages {
				if err := h.Reconciler.ApplyInboundMessage(r.Context(), msg); err != nil {
					h.Log.Error().Err(err).Str("from", msg.From).
						Msg("inbound message processing failed")
				}
			}
		}
	}

	h.ack(w)
}

func (h *WebhookHandler) ack(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
