package identity

import "errors"

// Identity module errors.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrPreferencesNotSet  = errors.New("notification preferences not set")
)
