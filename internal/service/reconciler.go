// internal/service/reconciler.go
package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/aurangzaib-ai/whatsapp-project/internal/model"
	"github.com/aurangzaib-ai/whatsapp-project/internal/repository"
	"github.com/aurangzaib-ai/whatsapp-project/internal/webhook"
)

// Reconciler consumes provider callbacks: delivery-status events advance the
// message state machine, inbound messages become opt-outs or correlated
// responses. Callbacks are at-least-once and may arrive in any order, so
// everything here is a conditional forward-only mutation; events that cannot
// be attributed or applied are dropped with a log line, never escalated.
type Reconciler struct {
	Recipients repository.RecipientRepositoryInterface
	Ledger     repository.CampaignRepositoryInterface
	Responses  repository.ResponseRepositoryInterface
	OptOuts    repository.OptOutRepositoryInterface
	Log        zerolog.Logger
}

// ApplyStatusEvent looks the message up via the provider-id index and
// applies the transition if it is a legal forward edge. Duplicates and
// out-of-order events are no-ops.
func (r *Reconciler) ApplyStatusEvent(ctx context.Context, ev webhook.StatusEvent) error {
	if !ev.Valid() {
		r.Log.Debug().Msg("malformed status event dropped")
		return nil
	}

	status, ok := model.ParseStatus(ev.Status)
	if !ok {
		r.Log.Debug().Str("status", ev.Status).Msg("unknown status value dropped")
		return nil
	}

	msg, err := r.Ledger.GetMessageByProviderID(ev.ID)
	if err != nil {
		return err
	}
	if msg == nil {
		r.Log.Debug().Str("provider_message_id", ev.ID).
			Msg("status event for unknown message dropped")
		return nil
	}

	applied, err := r.Ledger.AdvanceMessageStatus(msg.ID, msg.CampaignID, status, ev.ErrorDetail())
	if err != nil {
		return err
	}
	if !applied {
		r.Log.Debug().Int("message_id", msg.ID).Str("status", ev.Status).
			Msg("duplicate or out-of-order status event ignored")
		return nil
	}

	r.Log.Info().Int("message_id", msg.ID).Int("campaign_id", msg.CampaignID).
		Str("status", ev.Status).Msg("message status advanced")
	return nil
}

// ApplyInboundMessage handles a message sent by a recipient. Stop commands
// opt the recipient out; structured replies are attributed to the most
// recent outbound message; everything else is dropped.
func (r *Reconciler) ApplyInboundMessage(ctx context.Context, m webhook.InboundMessage) error {
	if m.From == "" {
		r.Log.Debug().Msg("inbound message without sender dropped")
		return nil
	}

	recipient, err := r.Recipients.GetByPhone(m.From)
	if err != nil {
		return err
	}
	if recipient == nil {
		r.Log.Debug().Str("from", m.From).Msg("inbound message from unknown sender dropped")
		return nil
	}

	if webhook.IsStopCommand(m.TextBody()) {
		return r.applyOptOut(recipient)
	}

	reply := webhook.ExtractReply(m)
	if reply == nil {
		r.Log.Debug().Str("from", m.From).Msg("inbound message with no reply payload dropped")
		return nil
	}

	if recipient.LastMessageID == nil {
		r.Log.Debug().Int("recipient_id", recipient.ID).
			Msg("reply with no prior outbound message dropped")
		return nil
	}

	msg, err := r.Ledger.GetMessageByID(*recipient.LastMessageID)
	if err != nil {
		return err
	}
	if msg == nil {
		r.Log.Debug().Int("message_id", *recipient.LastMessageID).
			Msg("reply correlation target missing, dropped")
		return nil
	}

	response := &model.Response{
		MessageID:   msg.ID,
		RecipientID: recipient.ID,
		CampaignID:  msg.CampaignID,
		Kind:        reply.Kind,
		ButtonID:    reply.ID,
		ButtonTitle: reply.Title,
	}
	if err := r.Responses.Create(response); err != nil {
		return err
	}

	r.Log.Info().Int("recipient_id", recipient.ID).Int("message_id", msg.ID).
		Str("kind", reply.Kind).Msg("reply recorded")
	return nil
}

// applyOptOut flips the flag (a no-op when already false) and always appends
// an audit row.
func (r *Reconciler) applyOptOut(recipient *model.Recipient) error {
	if recipient.OptedIn {
		if err := r.Recipients.SetOptedOut(recipient.ID); err != nil {
			return err
		}
	}
	optout := &model.OptOut{
		RecipientID: recipient.ID,
		Phone:       recipient.Phone,
		Reason:      "stop",
	}
	if err := r.OptOuts.Create(optout); err != nil {
		return err
	}
	r.Log.Info().Int("recipient_id", recipient.ID).Msg("recipient opted out")
	return nil
}
