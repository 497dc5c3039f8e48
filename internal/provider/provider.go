// Package provider defines the outbound messaging capability the dispatcher
// is built against, plus the WhatsApp Cloud API implementation.
package provider

import (
	"context"
	"fmt"
)

// ErrorKind classifies a send failure. The engine never auto-retries; the
// kind is diagnostic only.
type ErrorKind string

const (
	// KindRejected is a 4xx from the provider: bad template, bad number,
	// permission problem. Retrying the same request will not help.
	KindRejected ErrorKind = "rejected"
	// KindProvider is a 5xx from the provider.
	KindProvider ErrorKind = "provider"
	// KindTransport is a network-level failure or timeout before a
	// response was read.
	KindTransport ErrorKind = "transport"
)

// SendError carries the failure classification and the raw detail that gets
// persisted on the failed message.
type SendError struct {
	Kind   ErrorKind
	Detail string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Sender is the injected send capability. A successful send returns the
// provider's message id, which becomes the correlation key for callbacks.
type Sender interface {
	Send(ctx context.Context, phone, templateName, languageCode string, params []string) (string, error)
}
