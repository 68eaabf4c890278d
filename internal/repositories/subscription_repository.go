package repositories

import (
	"context"

	"github.com/vidtube/backend/internal/models"
)

// SubscriptionRepository defines data access for channel subscriptions.
type SubscriptionRepository interface {
	// Subscribe returns ErrConflict when the pair already exists.
	Subscribe(ctx context.Context, sub models.Subscription) error
	// Unsubscribe returns ErrNotFound when the pair does not exist.
	Unsubscribe(ctx context.Context, subscriberID, channelID string) error
}
