package note

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var noteColumns = []string{"id", "owner_id", "title", "content", "tags", "category", "created_at", "updated_at"}

func TestPostgresListByOwner(t *testing.T) {
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	mock.ExpectQuery("ORDER BY seq ASC").WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(noteColumns).
			AddRow("n1", "alice", "first", "c", []byte(`["x","y"]`), "work", base, base).
			AddRow("n2", "alice", "second", "c", []byte(`null`), "", base, base))

	notes, err := NewPostgresRepository(database).ListByOwner(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, []string{"x", "y"}, notes[0].Tags)
	assert.Equal(t, []string{}, notes[1].Tags)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateEncodesTags(t *testing.T) {
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	mock.ExpectExec("INSERT INTO notes").
		WithArgs("n1", "alice", "t", "c", `[]`, "", base, base).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = NewPostgresRepository(database).Create(context.Background(), Note{
		ID: "n1", OwnerID: "alice", Title: "t", Content: "c", CreatedAt: base, UpdatedAt: base,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMissingRows(t *testing.T) {
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()
	repo := NewPostgresRepository(database)

	mock.ExpectQuery("FROM notes").WithArgs("missing").WillReturnRows(sqlmock.NewRows(noteColumns))
	mock.ExpectExec("UPDATE notes").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM notes").WithArgs("missing").WillReturnResult(sqlmock.NewResult(0, 0))

	_, err = repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Update(context.Background(), Note{ID: "missing"}), ErrNotFound)
	assert.ErrorIs(t, repo.Delete(context.Background(), "missing"), ErrNotFound)
}
