// Package webhook parses provider callback payloads defensively: unknown
// fields are ignored and events with missing required fields are dropped by
// the caller, never treated as errors.
package webhook

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aurangzaib-ai/whatsapp-project/internal/model"
)

// Payload is the outer envelope the provider posts to the webhook endpoint.
type Payload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

type Value struct {
	Statuses []StatusEvent    `json:"statuses"`
	Messages []InboundMessage `json:"messages"`
}

// StatusEvent reports a delivery-state change for an outbound message.
type StatusEvent struct {
	ID          string       `json:"id"`
	Status      string       `json:"status"`
	Timestamp   string       `json:"timestamp"`
	RecipientID string       `json:"recipient_id"`
	Errors      []EventError `json:"errors"`
}

type EventError struct {
	Code    int    `json:"code"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Valid reports whether the event carries the fields required to be
// attributable at all.
func (s StatusEvent) Valid() bool {
	return s.ID != "" && s.Status != ""
}

// ErrorDetail renders the first reported error, if any.
func (s StatusEvent) ErrorDetail() string {
	if len(s.Errors) == 0 {
		return ""
	}
	e := s.Errors[0]
	detail := e.Title
	if detail == "" {
		detail = e.Message
	}
	return fmt.Sprintf("%s (code %d)", detail, e.Code)
}

// InboundMessage is a message sent by a recipient: free text, an interactive
// button/list reply, or a legacy button tap.
type InboundMessage struct {
	From        string       `json:"from"`
	ID          string       `json:"id"`
	Type        string       `json:"type"`
	Text        *Text        `json:"text"`
	Interactive *Interactive `json:"interactive"`
	Button      *Button      `json:"button"`
}

type Text struct {
	Body string `json:"body"`
}

type Interactive struct {
	Type        string `json:"type"`
	ButtonReply *Reply `json:"button_reply"`
	ListReply   *Reply `json:"list_reply"`
}

type Reply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type Button struct {
	Payload string `json:"payload"`
	Text    string `json:"text"`
}

// TextBody returns the free-text body, if any.
func (m InboundMessage) TextBody() string {
	if m.Text == nil {
		return ""
	}
	return m.Text.Body
}

// ReplyPayload is the normalized form of the three button-reply shapes.
type ReplyPayload struct {
	Kind  string
	ID    string
	Title string
}

// ExtractReply normalizes interactive.button_reply, interactive.list_reply
// and the legacy button shape. Returns nil when the message carries no
// structured reply.
func ExtractReply(m InboundMessage) *ReplyPayload {
	if m.Interactive != nil {
		switch m.Interactive.Type {
		case model.ReplyButton:
			if r := m.Interactive.ButtonReply; r != nil {
				return &ReplyPayload{Kind: model.ReplyButton, ID: r.ID, Title: r.Title}
			}
		case model.ReplyList:
			if r := m.Interactive.ListReply; r != nil {
				return &ReplyPayload{Kind: model.ReplyList, ID: r.ID, Title: r.Title}
			}
		}
	}
	if m.Button != nil {
		return &ReplyPayload{Kind: model.ReplyLegacyButton, ID: m.Button.Payload, Title: m.Button.Text}
	}
	return nil
}

// ParsePayload decodes a webhook body. A payload for a different object type
// parses successfully with no entries, mirroring how the provider expects
// receivers to acknowledge everything.
func ParsePayload(body []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, err
	}
	if p.Object != "whatsapp_business_account" {
		return &Payload{Object: p.Object}, nil
	}
	return &p, nil
}

// stopWords is the opt-out vocabulary: case-insensitive exact match after
// trimming.
var stopWords = map[string]bool{
	"stop":        true,
	"unsubscribe": true,
	"cancel":      true,
	"end":         true,
	"quit":        true,
}

// IsStopCommand reports whether the text is an opt-out request.
func IsStopCommand(text string) bool {
	return stopWords[strings.ToLower(strings.TrimSpace(text))]
}
