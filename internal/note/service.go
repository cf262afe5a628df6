package note

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"notekeeper/internal/httpx"
)

// Service gates every note operation on ownership.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) List(ctx context.Context, ownerID string, q Query) ([]Note, error) {
	notes, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return Apply(notes, q), nil
}

func (s *Service) Create(ctx context.Context, ownerID string, in Input) (Note, error) {
	in, err := normalize(in)
	if err != nil {
		return Note{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Note{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	now := s.now().UTC()
	n := Note{
		ID:        id.String(),
		Title:     in.Title,
		Content:   in.Content,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
		Tags:      in.Tags,
		Category:  in.Category,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return Note{}, fmt.Errorf("create note: %w", err)
	}
	return n, nil
}

func (s *Service) Get(ctx context.Context, id, ownerID string) (Note, error) {
	return s.owned(ctx, id, ownerID, "Unauthorized to access this note")
}

func (s *Service) Update(ctx context.Context, id, ownerID string, in Input) (Note, error) {
	in, err := normalize(in)
	if err != nil {
		return Note{}, err
	}

	n, err := s.owned(ctx, id, ownerID, "Unauthorized to update this note")
	if err != nil {
		return Note{}, err
	}

	n.Title = in.Title
	n.Content = in.Content
	n.Tags = in.Tags
	n.Category = in.Category
	n.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, n); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Note{}, httpx.NotFound("Note not found")
		}
		return Note{}, fmt.Errorf("update note: %w", err)
	}
	return n, nil
}

func (s *Service) Delete(ctx context.Context, id, ownerID string) error {
	if _, err := s.owned(ctx, id, ownerID, "Unauthorized to delete this note"); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return httpx.NotFound("Note not found")
		}
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

func (s *Service) owned(ctx context.Context, id, ownerID, forbidden string) (Note, error) {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Note{}, httpx.NotFound("Note not found")
		}
		return Note{}, fmt.Errorf("get note: %w", err)
	}
	if n.OwnerID != ownerID {
		return Note{}, httpx.Forbidden(forbidden)
	}
	return n, nil
}

// normalize bounds title and content as submitted, then trims them.
func normalize(in Input) (Input, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Content) == "" {
		return Input{}, httpx.Validation("Title and content are required")
	}
	if !utf8.ValidString(in.Title) || utf8.RuneCountInString(in.Title) > MaxTitleLength {
		return Input{}, httpx.Validation("Title must be less than 200 characters")
	}
	if !utf8.ValidString(in.Content) || utf8.RuneCountInString(in.Content) > MaxContentLength {
		return Input{}, httpx.Validation("Content must be less than 10,000 characters")
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.Category = strings.TrimSpace(in.Category)

	tags := make([]string, 0, len(in.Tags))
	for _, tag := range in.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	in.Tags = tags

	return in, nil
}
