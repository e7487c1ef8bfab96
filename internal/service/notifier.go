package service

import (
	"context"
	"log/slog"
	"time"
)

type SigningLinkNotification struct {
	GuardianRut int64
	Email       string
	Token       string
	ExpiresAt   time.Time
	SigningURL  string
}

// SigningLinkNotifier delivers the raw token to the guardian. Delivery
// transport is an external concern; implementations decide how.
type SigningLinkNotifier interface {
	SendSigningLink(ctx context.Context, notification SigningLinkNotification) error
}

// DevSigningLinkNotifier logs the link instead of sending it. The raw token
// appears here on purpose: in development the log line is the delivery.
type DevSigningLinkNotifier struct {
	logger *slog.Logger
}

func NewDevSigningLinkNotifier(logger *slog.Logger) *DevSigningLinkNotifier {
	return &DevSigningLinkNotifier{logger: logger}
}

func (n *DevSigningLinkNotifier) SendSigningLink(ctx context.Context, notification SigningLinkNotification) error {
	n.logger.InfoContext(ctx, "signing link issued",
		"guardian_rut", notification.GuardianRut,
		"email", notification.Email,
		"expires_at", notification.ExpiresAt,
		"signing_url", notification.SigningURL,
	)
	return nil
}
