package auth

import (
	"context"
	"fmt"
	"time"

	"notekeeper/internal/storage"
)

const (
	usersFile     = "users.json"
	passcodesFile = "otps.json"
	blacklistFile = "token-blacklist.json"
)

type JSONUserRepository struct {
	users *storage.Collection[User]
}

func NewJSONUserRepository(dir string) (*JSONUserRepository, error) {
	users, err := storage.NewCollection[User](dir, usersFile)
	if err != nil {
		return nil, fmt.Errorf("open users collection: %w", err)
	}
	return &JSONUserRepository{users: users}, nil
}

func (r *JSONUserRepository) GetByEmail(_ context.Context, email string) (User, error) {
	for _, u := range r.users.Load() {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (r *JSONUserRepository) GetByID(_ context.Context, id string) (User, error) {
	for _, u := range r.users.Load() {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (r *JSONUserRepository) Create(_ context.Context, user User) error {
	return r.users.Update(func(users []User) ([]User, error) {
		for _, u := range users {
			if u.Email == user.Email {
				return nil, ErrEmailTaken
			}
		}
		return append(users, user), nil
	})
}

func (r *JSONUserRepository) Update(_ context.Context, user User) error {
	return r.users.Update(func(users []User) ([]User, error) {
		for i := range users {
			if users[i].ID == user.ID {
				users[i] = user
				return users, nil
			}
		}
		return nil, ErrUserNotFound
	})
}

type JSONPasscodeRepository struct {
	passcodes *storage.Collection[Passcode]
}

func NewJSONPasscodeRepository(dir string) (*JSONPasscodeRepository, error) {
	passcodes, err := storage.NewCollection[Passcode](dir, passcodesFile)
	if err != nil {
		return nil, fmt.Errorf("open passcodes collection: %w", err)
	}
	return &JSONPasscodeRepository{passcodes: passcodes}, nil
}

func (r *JSONPasscodeRepository) Replace(_ context.Context, passcode Passcode) error {
	return r.passcodes.Update(func(items []Passcode) ([]Passcode, error) {
		kept := withoutEmail(items, passcode.Email)
		return append(kept, passcode), nil
	})
}

func (r *JSONPasscodeRepository) Find(_ context.Context, email, code string) (Passcode, error) {
	for _, p := range r.passcodes.Load() {
		if p.Email == email && p.Code == code {
			return p, nil
		}
	}
	return Passcode{}, ErrPasscodeNotFound
}

func (r *JSONPasscodeRepository) Delete(_ context.Context, email string) error {
	return r.passcodes.Update(func(items []Passcode) ([]Passcode, error) {
		return withoutEmail(items, email), nil
	})
}

func (r *JSONPasscodeRepository) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	deleted := 0
	err := r.passcodes.UpdateIfChanged(func(items []Passcode) ([]Passcode, error) {
		kept := make([]Passcode, 0, len(items))
		for _, p := range items {
			if now.After(p.ExpiresAt) {
				continue
			}
			kept = append(kept, p)
		}
		deleted = len(items) - len(kept)
		if deleted == 0 {
			return nil, storage.ErrStop
		}
		return kept, nil
	})
	return deleted, err
}

func withoutEmail(items []Passcode, email string) []Passcode {
	kept := make([]Passcode, 0, len(items))
	for _, p := range items {
		if p.Email != email {
			kept = append(kept, p)
		}
	}
	return kept
}

type JSONRevocationStore struct {
	entries *storage.Collection[RevokedToken]
}

func NewJSONRevocationStore(dir string) (*JSONRevocationStore, error) {
	entries, err := storage.NewCollection[RevokedToken](dir, blacklistFile)
	if err != nil {
		return nil, fmt.Errorf("open revocation collection: %w", err)
	}
	return &JSONRevocationStore{entries: entries}, nil
}

func (s *JSONRevocationStore) Add(_ context.Context, entry RevokedToken, now time.Time) error {
	return s.entries.Update(func(items []RevokedToken) ([]RevokedToken, error) {
		return append(liveEntries(items, now), entry), nil
	})
}

func (s *JSONRevocationStore) Contains(_ context.Context, token string) (bool, error) {
	for _, e := range s.entries.Load() {
		if e.Token == token {
			return true, nil
		}
	}
	return false, nil
}

func (s *JSONRevocationStore) Prune(_ context.Context, now time.Time) (int, error) {
	deleted := 0
	err := s.entries.UpdateIfChanged(func(items []RevokedToken) ([]RevokedToken, error) {
		kept := liveEntries(items, now)
		deleted = len(items) - len(kept)
		if deleted == 0 {
			return nil, storage.ErrStop
		}
		return kept, nil
	})
	return deleted, err
}

func liveEntries(items []RevokedToken, now time.Time) []RevokedToken {
	kept := make([]RevokedToken, 0, len(items)+1)
	for _, e := range items {
		if e.ExpiresAt.After(now) {
			kept = append(kept, e)
		}
	}
	return kept
}
