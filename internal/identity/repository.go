package identity

import (
	"context"

	"github.com/statuspulse/statuspulse/internal/domain"
)

// Repository defines the interface for identity data operations.
type Repository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetNotificationPreferences returns ErrPreferencesNotSet when the user
	// has never saved any; callers fall back to defaults.
	GetNotificationPreferences(ctx context.Context, userID string) (*domain.NotificationPreferences, error)
	UpsertNotificationPreferences(ctx context.Context, prefs *domain.NotificationPreferences) error
}
