package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"notekeeper/internal/httpx"
	"notekeeper/internal/observability"
)

const (
	defaultPasscodeTTL = 10 * time.Minute
	defaultBcryptCost  = 12
)

type Service struct {
	users       UserRepository
	passcodes   PasscodeRepository
	tokens      *TokenService
	limiter     *RateLimiter
	verifier    ExternalVerifier
	sender      PasscodeSender
	logger      *observability.Logger
	passcodeTTL time.Duration
	bcryptCost  int
	now         func() time.Time
	newCode     func() (string, error)
}

type Dependencies struct {
	Users     UserRepository
	Passcodes PasscodeRepository
	Tokens    *TokenService
	Limiter   *RateLimiter
	Verifier  ExternalVerifier
	Sender    PasscodeSender
	Logger    *observability.Logger
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = observability.NewLogger()
	}
	sender := deps.Sender
	if sender == nil {
		sender = LogPasscodeSender{Logger: logger}
	}
	limiter := deps.Limiter
	if limiter == nil {
		limiter = NewRateLimiter(nil)
	}

	return &Service{
		users:       deps.Users,
		passcodes:   deps.Passcodes,
		tokens:      deps.Tokens,
		limiter:     limiter,
		verifier:    deps.Verifier,
		sender:      sender,
		logger:      logger,
		passcodeTTL: defaultPasscodeTTL,
		bcryptCost:  defaultBcryptCost,
		now:         time.Now,
		newCode:     generatePasscode,
	}
}

func (s *Service) WithSecurityConfig(passcodeTTL time.Duration, bcryptCost int) {
	if passcodeTTL > 0 {
		s.passcodeTTL = passcodeTTL
	}
	if bcryptCost >= bcrypt.MinCost && bcryptCost <= bcrypt.MaxCost {
		s.bcryptCost = bcryptCost
	}
}

type SignupInput struct {
	Email    string
	Password string
	Name     string
}

// Signup creates an unverified user and issues a passcode for it.
func (s *Service) Signup(ctx context.Context, in SignupInput) error {
	if in.Email == "" || in.Password == "" || in.Name == "" {
		return httpx.Validation("Email, password, and name are required")
	}

	email := normalizeEmail(in.Email)
	name := sanitize(in.Name)

	if !validEmail(email) {
		return httpx.Validation("Please enter a valid email address")
	}
	if reason, ok := checkPassword(in.Password); !ok {
		return httpx.Validation(reason)
	}
	if n := len([]rune(name)); n < minNameLength || n > maxNameLength {
		return httpx.Validation("Name must be between 2 and 50 characters")
	}

	hash, err := hashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate user id: %w", err)
	}

	code, err := s.newCode()
	if err != nil {
		return err
	}

	now := s.now().UTC()
	user := User{
		ID:           id.String(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Verified:     false,
		CreatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return httpx.Conflict("User with this email already exists")
		}
		return fmt.Errorf("create user: %w", err)
	}

	if err := s.passcodes.Replace(ctx, Passcode{Email: email, Code: code, ExpiresAt: now.Add(s.passcodeTTL)}); err != nil {
		return fmt.Errorf("store passcode: %w", err)
	}

	if err := s.sender.SendPasscode(ctx, email, code); err != nil {
		return fmt.Errorf("send passcode: %w", err)
	}

	s.logger.Info("user_signed_up", map[string]any{"user_id": user.ID})
	return nil
}

type Session struct {
	Tokens
	User Profile
}

// VerifyPasscode consumes a passcode, marks its user verified and logs the
// user in.
func (s *Service) VerifyPasscode(ctx context.Context, email, code string) (Session, error) {
	if email == "" || code == "" {
		return Session{}, httpx.Validation("Email and OTP are required")
	}
	email = normalizeEmail(email)

	passcode, err := s.passcodes.Find(ctx, email, code)
	if err != nil {
		if errors.Is(err, ErrPasscodeNotFound) {
			return Session{}, httpx.Validation("Invalid OTP")
		}
		return Session{}, fmt.Errorf("find passcode: %w", err)
	}
	if s.now().After(passcode.ExpiresAt) {
		return Session{}, httpx.Validation("OTP has expired")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Session{}, httpx.NotFound("User not found")
		}
		return Session{}, fmt.Errorf("get user: %w", err)
	}

	user.Verified = true
	if err := s.users.Update(ctx, user); err != nil {
		return Session{}, fmt.Errorf("mark user verified: %w", err)
	}
	if err := s.passcodes.Delete(ctx, email); err != nil {
		return Session{}, fmt.Errorf("delete passcode: %w", err)
	}

	return s.session(user)
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	if email == "" || password == "" {
		return Session{}, httpx.Validation("Email and password are required")
	}

	email = normalizeEmail(email)
	if !validEmail(email) {
		return Session{}, httpx.Validation("Please enter a valid email address")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Session{}, httpx.Unauthenticated("Invalid email or password")
		}
		return Session{}, fmt.Errorf("get user: %w", err)
	}

	if !user.Verified {
		return Session{}, httpx.Unauthenticated("Please verify your email first")
	}
	if user.PasswordHash == "" {
		if user.ExternalID != "" {
			return Session{}, httpx.Unauthenticated("This account uses Google login. Please sign in with Google.")
		}
		return Session{}, httpx.Unauthenticated("Invalid email or password")
	}
	if !passwordMatches(user.PasswordHash, password) {
		return Session{}, httpx.Unauthenticated("Invalid email or password")
	}

	return s.session(user)
}

// ExternalLogin signs in through the identity provider, creating a
// pre-verified user or linking an existing account on first use.
func (s *Service) ExternalLogin(ctx context.Context, externalToken string) (Session, error) {
	if externalToken == "" {
		return Session{}, httpx.Validation("Google token is required")
	}

	identity, err := s.verifier.Verify(ctx, externalToken)
	if err != nil {
		if errors.Is(err, ErrInvalidExternalToken) {
			return Session{}, httpx.Validation("Invalid Google token")
		}
		return Session{}, fmt.Errorf("verify external token: %w", err)
	}

	email := normalizeEmail(identity.Email)
	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrUserNotFound):
		if user, err = s.createExternalUser(ctx, email, identity); err != nil {
			return Session{}, err
		}
	case err != nil:
		return Session{}, fmt.Errorf("get user: %w", err)
	}

	if user.ExternalID == "" {
		user.ExternalID = identity.Subject
		user.AvatarURL = identity.AvatarURL
		user.Verified = true
		if err := s.users.Update(ctx, user); err != nil {
			return Session{}, fmt.Errorf("link external identity: %w", err)
		}
	}

	return s.session(user)
}

// createExternalUser stores a pre-verified user for identity. When a
// concurrent signup claimed the email first, the stored user is returned
// instead so the caller can link it.
func (s *Service) createExternalUser(ctx context.Context, email string, identity ExternalIdentity) (User, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return User{}, fmt.Errorf("generate user id: %w", err)
	}

	user := User{
		ID:         id.String(),
		Email:      email,
		Name:       sanitize(identity.Name),
		Verified:   true,
		CreatedAt:  s.now().UTC(),
		ExternalID: identity.Subject,
		AvatarURL:  identity.AvatarURL,
	}
	err = s.users.Create(ctx, user)
	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, ErrEmailTaken):
		existing, getErr := s.users.GetByEmail(ctx, email)
		if getErr != nil {
			return User{}, fmt.Errorf("get user: %w", getErr)
		}
		return existing, nil
	default:
		return User{}, fmt.Errorf("create external user: %w", err)
	}
}

// Refresh mints a new token pair from a valid refresh token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	if refreshToken == "" {
		return Tokens{}, httpx.Validation("Refresh token is required")
	}

	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return Tokens{}, httpx.Unauthenticated("Invalid or expired refresh token")
	}

	return s.tokens.Issue(claims.UserID, claims.Email)
}

// Logout revokes the presented access token. Undecodable or missing tokens
// are ignored so logout always succeeds from the client's point of view.
func (s *Service) Logout(ctx context.Context, authorization string) error {
	token, ok := BearerToken(authorization)
	if !ok {
		return nil
	}

	if err := s.tokens.Revoke(ctx, token); err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return nil
		}
		return err
	}
	return nil
}

func (s *Service) Me(ctx context.Context, p Principal) (Profile, error) {
	user, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Profile{}, httpx.NotFound("User not found")
		}
		return Profile{}, fmt.Errorf("get user: %w", err)
	}
	return user.Profile(), nil
}

// Cleanup prunes expired passcodes, expired revocation entries and stale
// rate-limit counters.
func (s *Service) Cleanup(ctx context.Context) (CleanupResult, error) {
	var result CleanupResult

	passcodes, err := s.passcodes.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return CleanupResult{}, fmt.Errorf("delete expired passcodes: %w", err)
	}
	result.DeletedPasscodes = passcodes

	revocations, err := s.tokens.PruneRevocations(ctx)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("prune revocations: %w", err)
	}
	result.DeletedRevocations = revocations

	counters, err := s.limiter.Prune(ctx)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("prune rate limit counters: %w", err)
	}
	result.DeletedRateLimitKeys = counters

	return result, nil
}

func (s *Service) session(user User) (Session, error) {
	tokens, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return Session{}, err
	}
	return Session{Tokens: tokens, User: user.Profile()}, nil
}
