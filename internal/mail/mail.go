// Package mail abstracts outbound notification delivery.
package mail

import (
	"context"

	"rowhub.org/internal/obs"
)

// Message is a plain-text outbound mail.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers messages. Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes messages to the service log instead of delivering them.
// The default when no mail transport is configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, msg Message) error {
	obs.LogRequest(map[string]any{
		"event":   "mail_logged",
		"to":      msg.To,
		"subject": msg.Subject,
	})
	return nil
}
