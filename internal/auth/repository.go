package auth

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailTaken       = errors.New("email already registered")
	ErrPasscodeNotFound = errors.New("passcode not found")
)

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	// Create stores a new user, failing with ErrEmailTaken when the email
	// is already registered.
	Create(ctx context.Context, user User) error
	Update(ctx context.Context, user User) error
}

type PasscodeRepository interface {
	// Replace stores the passcode, superseding any earlier one for the email.
	Replace(ctx context.Context, passcode Passcode) error
	Find(ctx context.Context, email, code string) (Passcode, error)
	Delete(ctx context.Context, email string) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

type RevocationStore interface {
	// Add records the entry and drops every entry that expired before now.
	Add(ctx context.Context, entry RevokedToken, now time.Time) error
	Contains(ctx context.Context, token string) (bool, error)
	Prune(ctx context.Context, now time.Time) (int, error)
}

// CounterStore holds fixed-window attempt counters keyed by identifier.
type CounterStore interface {
	// Take records an attempt and reports whether it is within max for the
	// current window, along with the time the window resets.
	Take(ctx context.Context, key string, max int, window time.Duration, now time.Time) (bool, time.Time, error)
	Prune(ctx context.Context, now time.Time) (int, error)
}
