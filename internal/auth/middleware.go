package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"notekeeper/internal/httpx"
)

type principalKey struct{}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-sensitively.
func BearerToken(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

// Authorize resolves the principal behind an Authorization header. The
// decode-only expiry probe runs before the signature check so expired
// tokens are rejected without verifying them.
func (s *TokenService) Authorize(ctx context.Context, header string) (Principal, error) {
	token, ok := BearerToken(header)
	if !ok {
		return Principal{}, httpx.Unauthenticated("Authorization token required")
	}

	if s.IsExpired(token) {
		return Principal{}, httpx.Unauthenticated("Token expired")
	}

	claims, err := s.VerifyAccess(ctx, token)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return Principal{}, httpx.Unauthenticated("Invalid or expired token")
		}
		return Principal{}, err
	}

	return Principal{UserID: claims.UserID, Email: claims.Email}, nil
}

// Middleware rejects requests that fail Authorize and stores the principal
// in the request context otherwise.
func Middleware(tokens *TokenService, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := tokens.Authorize(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
