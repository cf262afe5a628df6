package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// ErrInvalidToken covers every verification failure: bad signature, wrong
// type, expiry and revocation are deliberately indistinguishable.
var ErrInvalidToken = errors.New("invalid or expired token")

type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	revocations   RevocationStore
	now           func() time.Time
}

func NewTokenService(accessSecret, refreshSecret string, revocations RevocationStore) *TokenService {
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     defaultAccessTTL,
		refreshTTL:    defaultRefreshTTL,
		revocations:   revocations,
		now:           time.Now,
	}
}

func (s *TokenService) WithTTL(accessTTL, refreshTTL time.Duration) *TokenService {
	if accessTTL > 0 {
		s.accessTTL = accessTTL
	}
	if refreshTTL > 0 {
		s.refreshTTL = refreshTTL
	}
	return s
}

func (s *TokenService) Issue(userID, email string) (Tokens, error) {
	now := s.now()

	access, err := sign(s.accessSecret, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
		UserID: userID,
		Email:  email,
		Type:   tokenTypeAccess,
	})
	if err != nil {
		return Tokens{}, fmt.Errorf("sign access token: %w", err)
	}

	jti, err := uuid.NewV7()
	if err != nil {
		return Tokens{}, fmt.Errorf("generate refresh token id: %w", err)
	}
	refresh, err := sign(s.refreshSecret, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshTTL)),
		},
		UserID:       userID,
		Email:        email,
		Type:         tokenTypeRefresh,
		TokenVersion: now.UnixNano(),
	})
	if err != nil {
		return Tokens{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return Tokens{AccessToken: access, RefreshToken: refresh}, nil
}

// VerifyAccess checks signature, expiry and type, then consults the
// revocation list. A revocation store failure is returned as-is so the
// caller can answer 500 instead of letting the token through.
func (s *TokenService) VerifyAccess(ctx context.Context, token string) (Claims, error) {
	claims, err := s.parse(token, s.accessSecret, tokenTypeAccess)
	if err != nil {
		return Claims{}, err
	}

	revoked, err := s.revocations.Contains(ctx, token)
	if err != nil {
		return Claims{}, fmt.Errorf("check revocation list: %w", err)
	}
	if revoked {
		return Claims{}, ErrInvalidToken
	}

	return claims, nil
}

// VerifyRefresh checks a refresh token against the refresh secret only.
// Refresh tokens are never looked up in the revocation list.
func (s *TokenService) VerifyRefresh(token string) (Claims, error) {
	return s.parse(token, s.refreshSecret, tokenTypeRefresh)
}

// Revoke blacklists token until its own expiry, pruning entries that have
// already expired. The signature is not checked.
func (s *TokenService) Revoke(ctx context.Context, token string) error {
	expiresAt, ok := s.ExpiresAt(token)
	if !ok {
		return ErrInvalidToken
	}

	if err := s.revocations.Add(ctx, RevokedToken{Token: token, ExpiresAt: expiresAt}, s.now().UTC()); err != nil {
		return fmt.Errorf("add revocation entry: %w", err)
	}
	return nil
}

// ExpiresAt decodes the exp claim without verifying the signature.
func (s *TokenService) ExpiresAt(token string) (time.Time, bool) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time.UTC(), true
}

// IsExpired is the decode-only probe: undecodable tokens and tokens without
// exp count as expired.
func (s *TokenService) IsExpired(token string) bool {
	expiresAt, ok := s.ExpiresAt(token)
	if !ok {
		return true
	}
	return expiresAt.Before(s.now())
}

func (s *TokenService) PruneRevocations(ctx context.Context) (int, error) {
	return s.revocations.Prune(ctx, s.now().UTC())
}

func (s *TokenService) parse(token string, secret []byte, wantType string) (Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if claims.Type != wantType || claims.UserID == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

func sign(secret []byte, claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
