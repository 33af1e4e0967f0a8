package api

import (
	"context"
	"time"

	"insights-engine/domain"
)

// Insights serves the computed views handlers expose.
type Insights interface {
	Metrics(scope string) (domain.MetricsSnapshot, bool)
	Notifications(ctx context.Context, userEmail string) []domain.Notification
	Dismiss(ctx context.Context, userEmail, id string) error
	ClearAll(ctx context.Context, userEmail string) error
	LastRefreshed() (time.Time, bool)
}

// Identity is the acting user extracted from a request.
type Identity struct {
	UserID string
	Email  string
}

// Authenticator is implemented by types able to extract identities from
// Authorization headers.
type Authenticator interface {
	IdentityFromAuthHeader(header string) (Identity, error)
}
