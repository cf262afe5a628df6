package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"notekeeper/internal/observability"
)

var ErrInvalidExternalToken = errors.New("invalid external token")

// ExternalIdentity is what an identity provider vouches for.
type ExternalIdentity struct {
	Subject   string
	Email     string
	Name      string
	AvatarURL string
}

type ExternalVerifier interface {
	Verify(ctx context.Context, token string) (ExternalIdentity, error)
}

// MockVerifier accepts any non-empty token and returns a fixed identity with
// a fresh subject. It stands in for a real OAuth token check.
type MockVerifier struct {
	Email     string
	Name      string
	AvatarURL string
}

func (m MockVerifier) Verify(_ context.Context, token string) (ExternalIdentity, error) {
	if strings.TrimSpace(token) == "" {
		return ExternalIdentity{}, ErrInvalidExternalToken
	}

	return ExternalIdentity{
		Subject:   "google_" + uuid.NewString(),
		Email:     m.Email,
		Name:      m.Name,
		AvatarURL: m.AvatarURL,
	}, nil
}

// PasscodeSender delivers a freshly issued passcode to its owner.
type PasscodeSender interface {
	SendPasscode(ctx context.Context, email, code string) error
}

// LogPasscodeSender writes passcodes to the log instead of mailing them.
type LogPasscodeSender struct {
	Logger *observability.Logger
}

func (s LogPasscodeSender) SendPasscode(_ context.Context, email, code string) error {
	s.Logger.Info("passcode_issued", map[string]any{"email": email, "code": code})
	return nil
}
