// Package notify delivers notification messages to people.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Message is a notification addressed to a user ID or an email address.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Sender defines the interface for delivering a Message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes messages to the structured log instead of delivering them.
type LogSender struct {
	Logger *slog.Logger
}

// Make sure we conform to the interface
var _ Sender = (*LogSender)(nil)

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Body),
	)
	return nil
}

// Fanout delivers every message to all of its senders.
// One failing sender does not stop delivery to the others.
type Fanout []Sender

var _ Sender = (Fanout)(nil)

func (f Fanout) Send(ctx context.Context, msg Message) error {
	var errs []error
	for i, s := range f {
		if err := s.Send(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("sender %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
