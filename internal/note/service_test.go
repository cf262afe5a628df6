package note

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notekeeper/internal/httpx"
)

func newTestService(t *testing.T) (*Service, *JSONRepository) {
	t.Helper()
	repo, err := NewJSONRepository(t.TempDir())
	require.NoError(t, err)
	return NewService(repo), repo
}

func assertKind(t *testing.T, err error, kind httpx.Kind, message string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, httpx.IsKind(err, kind), "unexpected error: %v", err)
	assert.Equal(t, message, err.Error())
}

func TestCreateNormalizesInput(t *testing.T) {
	svc, repo := newTestService(t)
	svc.now = func() time.Time { return base }

	n, err := svc.Create(context.Background(), "owner", Input{
		Title:    "  Groceries ",
		Content:  " milk ",
		Tags:     []string{" home ", "", "  "},
		Category: " personal ",
	})
	require.NoError(t, err)

	assert.Equal(t, "Groceries", n.Title)
	assert.Equal(t, "milk", n.Content)
	assert.Equal(t, []string{"home"}, n.Tags)
	assert.Equal(t, "personal", n.Category)
	assert.Equal(t, "owner", n.OwnerID)
	assert.Equal(t, base, n.CreatedAt)
	assert.Equal(t, base, n.UpdatedAt)

	stored, err := repo.Get(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, n, stored)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "owner", Input{Title: "   ", Content: "x"})
	assertKind(t, err, httpx.KindValidation, "Title and content are required")

	_, err = svc.Create(ctx, "owner", Input{Title: strings.Repeat("t", 201), Content: "x"})
	assertKind(t, err, httpx.KindValidation, "Title must be less than 200 characters")

	_, err = svc.Create(ctx, "owner", Input{Title: "t", Content: strings.Repeat("c", 10001)})
	assertKind(t, err, httpx.KindValidation, "Content must be less than 10,000 characters")

	_, err = svc.Create(ctx, "owner", Input{Title: "t", Content: strings.Repeat("c", 10000) + " "})
	assertKind(t, err, httpx.KindValidation, "Content must be less than 10,000 characters")

	_, err = svc.Create(ctx, "owner", Input{Title: " " + strings.Repeat("t", 200), Content: "x"})
	assertKind(t, err, httpx.KindValidation, "Title must be less than 200 characters")

	n, err := svc.Create(ctx, "owner", Input{Title: strings.Repeat("é", 200), Content: strings.Repeat("c", 10000)})
	require.NoError(t, err)
	assert.Len(t, []rune(n.Title), 200)
	assert.Len(t, n.Content, 10000)

	_, err = svc.Update(ctx, n.ID, "owner", Input{Title: "t", Content: strings.Repeat("c", 10000) + "\n"})
	assertKind(t, err, httpx.KindValidation, "Content must be less than 10,000 characters")
}

func TestNotesAreScopedToOwner(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mine, err := svc.Create(ctx, "alice", Input{Title: "mine", Content: "x"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "bob", Input{Title: "theirs", Content: "y"})
	require.NoError(t, err)

	list, err := svc.List(ctx, "alice", ParseQuery("", "", "", ""))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)

	_, err = svc.Get(ctx, mine.ID, "bob")
	assertKind(t, err, httpx.KindAuthorization, "Unauthorized to access this note")

	_, err = svc.Update(ctx, mine.ID, "bob", Input{Title: "hijack", Content: "z"})
	assertKind(t, err, httpx.KindAuthorization, "Unauthorized to update this note")

	err = svc.Delete(ctx, mine.ID, "bob")
	assertKind(t, err, httpx.KindAuthorization, "Unauthorized to delete this note")

	_, err = svc.Get(ctx, "missing", "alice")
	assertKind(t, err, httpx.KindNotFound, "Note not found")
}

func TestUpdateReplacesFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	svc.now = func() time.Time { return base }

	n, err := svc.Create(ctx, "alice", Input{Title: "old", Content: "old", Tags: []string{"a"}, Category: "c"})
	require.NoError(t, err)

	svc.now = func() time.Time { return base.Add(time.Hour) }
	updated, err := svc.Update(ctx, n.ID, "alice", Input{Title: "new", Content: "new"})
	require.NoError(t, err)

	assert.Equal(t, "new", updated.Title)
	assert.Empty(t, updated.Tags)
	assert.Empty(t, updated.Category)
	assert.Equal(t, base, updated.CreatedAt)
	assert.Equal(t, base.Add(time.Hour), updated.UpdatedAt)

	got, err := svc.Get(ctx, n.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	n, err := svc.Create(ctx, "alice", Input{Title: "t", Content: "c"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, n.ID, "alice"))

	err = svc.Delete(ctx, n.ID, "alice")
	assertKind(t, err, httpx.KindNotFound, "Note not found")
}
