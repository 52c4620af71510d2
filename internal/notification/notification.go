package notification

import (
	"context"
	"log/slog"
)

const (
	// KindPasswordResetCode indicates a one-time password reset code.
	KindPasswordResetCode = "password_reset_code"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string
	Subject     string
	Body        string
	// Code is the raw secret carried by the message, if any. Gateways that
	// render their own template read it instead of Body.
	Code string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the logger. Development only: the
// body is logged verbatim.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "subject", message.Subject, "body", message.Body)
	return nil
}
