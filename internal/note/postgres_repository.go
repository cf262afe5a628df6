package note

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (Note, error) {
	var n Note
	var tags []byte
	if err := row.Scan(&n.ID, &n.OwnerID, &n.Title, &n.Content, &tags, &n.Category, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return Note{}, err
	}
	if err := json.Unmarshal(tags, &n.Tags); err != nil {
		return Note{}, fmt.Errorf("decode note tags: %w", err)
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
	n.CreatedAt = n.CreatedAt.UTC()
	n.UpdatedAt = n.UpdatedAt.UTC()
	return n, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]Note, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, title, content, tags, category, created_at, updated_at
		FROM notes
		WHERE owner_id = $1
		ORDER BY seq ASC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	notes := make([]Note, 0)
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}

	return notes, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (Note, error) {
	n, err := scanNote(r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, content, tags, category, created_at, updated_at
		FROM notes
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Note{}, ErrNotFound
		}
		return Note{}, fmt.Errorf("query note: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Create(ctx context.Context, n Note) error {
	tags, err := encodeTags(n.Tags)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO notes (id, owner_id, title, content, tags, category, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, n.ID, n.OwnerID, n.Title, n.Content, tags, n.Category, n.CreatedAt.UTC(), n.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, n Note) error {
	tags, err := encodeTags(n.Tags)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE notes
		SET title = $2, content = $3, tags = $4, category = $5, updated_at = $6
		WHERE id = $1
	`, n.ID, n.Title, n.Content, tags, n.Category, n.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	return requireAffected(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode note tags: %w", err)
	}
	return string(encoded), nil
}
