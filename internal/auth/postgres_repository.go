package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

const selectUser = `
	SELECT id, email, name, password_hash, verified, created_at, external_id, avatar_url
	FROM users
`

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Verified, &u.CreatedAt, &u.ExternalID, &u.AvatarURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(r.db.QueryRowContext(ctx, selectUser+` WHERE email = $1`, email))
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (User, error) {
	return scanUser(r.db.QueryRowContext(ctx, selectUser+` WHERE id = $1`, id))
}

func (r *PostgresUserRepository) Create(ctx context.Context, u User) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, verified, created_at, external_id, avatar_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (email) DO NOTHING
	`, u.ID, u.Email, u.Name, u.PasswordHash, u.Verified, u.CreatedAt.UTC(), u.ExternalID, u.AvatarURL)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert user rows affected: %w", err)
	}
	if affected == 0 {
		return ErrEmailTaken
	}
	return nil
}

func (r *PostgresUserRepository) Update(ctx context.Context, u User) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET name = $2, password_hash = $3, verified = $4, external_id = $5, avatar_url = $6
		WHERE id = $1
	`, u.ID, u.Name, u.PasswordHash, u.Verified, u.ExternalID, u.AvatarURL)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user rows affected: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

type PostgresPasscodeRepository struct {
	db *sql.DB
}

func NewPostgresPasscodeRepository(db *sql.DB) *PostgresPasscodeRepository {
	return &PostgresPasscodeRepository{db: db}
}

func (r *PostgresPasscodeRepository) Replace(ctx context.Context, p Passcode) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO passcodes (email, code, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (email)
		DO UPDATE SET code = EXCLUDED.code, expires_at = EXCLUDED.expires_at
	`, p.Email, p.Code, p.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert passcode: %w", err)
	}
	return nil
}

func (r *PostgresPasscodeRepository) Find(ctx context.Context, email, code string) (Passcode, error) {
	var p Passcode
	err := r.db.QueryRowContext(ctx, `
		SELECT email, code, expires_at
		FROM passcodes
		WHERE email = $1 AND code = $2
	`, email, code).Scan(&p.Email, &p.Code, &p.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Passcode{}, ErrPasscodeNotFound
		}
		return Passcode{}, fmt.Errorf("query passcode: %w", err)
	}
	p.ExpiresAt = p.ExpiresAt.UTC()
	return p, nil
}

func (r *PostgresPasscodeRepository) Delete(ctx context.Context, email string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM passcodes WHERE email = $1`, email); err != nil {
		return fmt.Errorf("delete passcode: %w", err)
	}
	return nil
}

func (r *PostgresPasscodeRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	return execCount(ctx, r.db, `DELETE FROM passcodes WHERE expires_at < $1`, now.UTC())
}

type PostgresRevocationStore struct {
	db *sql.DB
}

func NewPostgresRevocationStore(db *sql.DB) *PostgresRevocationStore {
	return &PostgresRevocationStore{db: db}
}

func (s *PostgresRevocationStore) Add(ctx context.Context, entry RevokedToken, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin revocation tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at <= $1`, now.UTC()); err != nil {
		return fmt.Errorf("prune revoked tokens: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO revoked_tokens (token, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (token) DO NOTHING
	`, entry.Token, entry.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("insert revoked token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit revocation tx: %w", err)
	}
	return nil
}

func (s *PostgresRevocationStore) Contains(ctx context.Context, token string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE token = $1)`, token).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query revoked token: %w", err)
	}
	return exists, nil
}

func (s *PostgresRevocationStore) Prune(ctx context.Context, now time.Time) (int, error) {
	return execCount(ctx, s.db, `DELETE FROM revoked_tokens WHERE expires_at <= $1`, now.UTC())
}

// PostgresCounterStore shares rate-limit counters between instances.
type PostgresCounterStore struct {
	db *sql.DB
}

func NewPostgresCounterStore(db *sql.DB) *PostgresCounterStore {
	return &PostgresCounterStore{db: db}
}

func (s *PostgresCounterStore) Take(ctx context.Context, key string, max int, window time.Duration, now time.Time) (bool, time.Time, error) {
	now = now.UTC()

	var hits int
	var resetAt time.Time
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO rate_limit_counters (key, hits, reset_at, updated_at)
		VALUES ($1, 1, $3, $2)
		ON CONFLICT (key) DO UPDATE
		SET
			hits = CASE
				WHEN rate_limit_counters.reset_at < $2 THEN 1
				ELSE rate_limit_counters.hits + 1
			END,
			reset_at = CASE
				WHEN rate_limit_counters.reset_at < $2 THEN $3
				ELSE rate_limit_counters.reset_at
			END,
			updated_at = $2
		RETURNING hits, reset_at
	`, key, now, now.Add(window)).Scan(&hits, &resetAt)
	if err != nil {
		return false, time.Time{}, fmt.Errorf("upsert rate limit counter: %w", err)
	}

	return hits <= max, resetAt.UTC(), nil
}

func (s *PostgresCounterStore) Prune(ctx context.Context, now time.Time) (int, error) {
	return execCount(ctx, s.db, `DELETE FROM rate_limit_counters WHERE reset_at < $1`, now.UTC())
}

func execCount(ctx context.Context, db *sql.DB, query string, args ...any) (int, error) {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("exec cleanup: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleanup rows affected: %w", err)
	}
	return int(affected), nil
}
