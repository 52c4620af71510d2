package otp

import (
	"context"
	"fmt"
	"time"

	"github.com/paysync/paysync/internal/notification"
)

// NotifierSender renders codes into notification messages.
type NotifierSender struct {
	notifier notification.Notifier
	ttl      time.Duration
}

// NewNotifierSender delivers codes through n. ttl is only used in the message text.
func NewNotifierSender(n notification.Notifier, ttl time.Duration) *NotifierSender {
	return &NotifierSender{notifier: n, ttl: ttl}
}

func (s *NotifierSender) Send(ctx context.Context, identity, code string) error {
	return s.notifier.Send(ctx, notification.Message{
		Kind:        notification.KindPasswordResetCode,
		Destination: identity,
		Subject:     "Your PaySync password reset code",
		Body: fmt.Sprintf("Your PaySync verification code is %s. It expires in %d minutes.\n\n"+
			"If you did not ask to reset your password you can ignore this message.", code, int(s.ttl.Minutes())),
		Code: code,
	})
}
