package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"password,omitempty"`
	Verified     bool      `json:"verified"`
	CreatedAt    time.Time `json:"createdAt"`
	ExternalID   string    `json:"googleId,omitempty"`
	AvatarURL    string    `json:"avatar,omitempty"`
}

// Profile is the user as exposed over HTTP, never carrying the password hash.
type Profile struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Verified   bool      `json:"verified"`
	CreatedAt  time.Time `json:"createdAt"`
	ExternalID string    `json:"googleId,omitempty"`
	AvatarURL  string    `json:"avatar,omitempty"`
}

func (u User) Profile() Profile {
	return Profile{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		Verified:   u.Verified,
		CreatedAt:  u.CreatedAt,
		ExternalID: u.ExternalID,
		AvatarURL:  u.AvatarURL,
	}
}

type Passcode struct {
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type RevokedToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Claims is the payload of both token kinds. TokenVersion is only set on
// refresh tokens so consecutive rotations never produce identical strings.
type Claims struct {
	jwt.RegisteredClaims
	UserID       string `json:"userId"`
	Email        string `json:"email"`
	Type         string `json:"typ"`
	TokenVersion int64  `json:"tokenVersion,omitempty"`
}

// Principal is the identity attached to an authorized request.
type Principal struct {
	UserID string
	Email  string
}

type CleanupResult struct {
	DeletedPasscodes     int `json:"deleted_passcodes"`
	DeletedRevocations   int `json:"deleted_revocations"`
	DeletedRateLimitKeys int `json:"deleted_rate_limit_keys"`
}
