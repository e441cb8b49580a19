// Package identity provides user accounts, authentication and per-user
// notification preferences.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/statuspulse/statuspulse/internal/domain"
	"github.com/statuspulse/statuspulse/internal/pkg/ctxlog"
)

// TokenIssuer mints access tokens for authenticated users.
type TokenIssuer interface {
	GenerateToken(ctx context.Context, user *domain.User) (token string, expiresAt time.Time, err error)
}

// Service implements identity business logic.
type Service struct {
	repo   Repository
	issuer TokenIssuer
}

// NewService creates a new identity service.
func NewService(repo Repository, issuer TokenIssuer) *Service {
	return &Service{repo: repo, issuer: issuer}
}

// RegisterInput holds data for registering a user.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// Register creates a new user account with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	if _, err := s.repo.GetUserByEmail(ctx, input.Email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("checking existing user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        input.Email,
		Name:         input.Name,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	ctxlog.FromContext(ctx).Info("user registered", slog.String("user_id", user.ID))
	return user, nil
}

// LoginInput holds credentials for logging in.
type LoginInput struct {
	Email    string
	Password string
}

// TokenPair is the issued credential. The API is bearer-token only; there
// is no refresh flow, clients re-authenticate on expiry.
type TokenPair struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Login verifies credentials and issues an access token. Lookup and bcrypt
// failures collapse into ErrInvalidCredentials so callers cannot probe for
// registered emails.
func (s *Service) Login(ctx context.Context, input LoginInput) (*domain.User, *TokenPair, error) {
	user, err := s.repo.GetUserByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("getting user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.issuer.GenerateToken(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("generating token: %w", err)
	}

	return user, &TokenPair{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
	}, nil
}

// GetUser returns a user by ID.
func (s *Service) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// GetUserByEmail returns a user by email. Used by the orgs module when
// adding members.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.repo.GetUserByEmail(ctx, email)
}

// NotificationPreferences returns the user's saved preferences, or the
// defaults when none were ever saved.
func (s *Service) NotificationPreferences(ctx context.Context, userID string) (*domain.NotificationPreferences, error) {
	prefs, err := s.repo.GetNotificationPreferences(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrPreferencesNotSet) {
			defaults := domain.DefaultNotificationPreferences(userID)
			return &defaults, nil
		}
		return nil, fmt.Errorf("getting notification preferences: %w", err)
	}
	return prefs, nil
}

// UpdateNotificationPreferences saves the user's preferences.
func (s *Service) UpdateNotificationPreferences(ctx context.Context, prefs *domain.NotificationPreferences) (*domain.NotificationPreferences, error) {
	if err := s.repo.UpsertNotificationPreferences(ctx, prefs); err != nil {
		return nil, fmt.Errorf("saving notification preferences: %w", err)
	}
	return prefs, nil
}
