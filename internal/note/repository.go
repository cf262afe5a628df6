package note

import (
	"context"
	"errors"
	"fmt"

	"notekeeper/internal/storage"
)

var ErrNotFound = errors.New("note not found")

type Repository interface {
	// ListByOwner returns the owner's notes in insertion order.
	ListByOwner(ctx context.Context, ownerID string) ([]Note, error)
	Get(ctx context.Context, id string) (Note, error)
	Create(ctx context.Context, n Note) error
	Update(ctx context.Context, n Note) error
	Delete(ctx context.Context, id string) error
}

const notesFile = "notes.json"

type JSONRepository struct {
	notes *storage.Collection[Note]
}

func NewJSONRepository(dir string) (*JSONRepository, error) {
	notes, err := storage.NewCollection[Note](dir, notesFile)
	if err != nil {
		return nil, fmt.Errorf("open notes collection: %w", err)
	}
	return &JSONRepository{notes: notes}, nil
}

func (r *JSONRepository) ListByOwner(_ context.Context, ownerID string) ([]Note, error) {
	out := make([]Note, 0)
	for _, n := range r.notes.Load() {
		if n.OwnerID == ownerID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *JSONRepository) Get(_ context.Context, id string) (Note, error) {
	for _, n := range r.notes.Load() {
		if n.ID == id {
			return n, nil
		}
	}
	return Note{}, ErrNotFound
}

func (r *JSONRepository) Create(_ context.Context, n Note) error {
	return r.notes.Update(func(notes []Note) ([]Note, error) {
		return append(notes, n), nil
	})
}

func (r *JSONRepository) Update(_ context.Context, n Note) error {
	return r.notes.Update(func(notes []Note) ([]Note, error) {
		for i := range notes {
			if notes[i].ID == n.ID {
				notes[i] = n
				return notes, nil
			}
		}
		return nil, ErrNotFound
	})
}

func (r *JSONRepository) Delete(_ context.Context, id string) error {
	return r.notes.Update(func(notes []Note) ([]Note, error) {
		for i := range notes {
			if notes[i].ID == id {
				return append(notes[:i], notes[i+1:]...), nil
			}
		}
		return nil, ErrNotFound
	})
}
