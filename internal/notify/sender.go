// Package notify delivers SMS notifications to health workers.
package notify

import (
	"context"
	"log/slog"
)

// Sender delivers a text message to a phone number.
type Sender interface {
	SendSMS(ctx context.Context, to, text string) error
}

// LogSender writes messages to the log instead of delivering them. It is
// used when no SMS gateway is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) SendSMS(ctx context.Context, to, text string) error {
	s.logger.InfoContext(ctx, "sms not delivered: no gateway configured", "to", to, "length", len(text))
	return nil
}
