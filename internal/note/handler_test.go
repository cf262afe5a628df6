package note

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notekeeper/internal/auth"
)

// asUser stands in for auth.Middleware by attaching a fixed principal.
func asUser(userID string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next(w, r.WithContext(auth.WithPrincipal(r.Context(), auth.Principal{UserID: userID})))
	})
}

func newNoteMux(t *testing.T, userID string) *http.ServeMux {
	t.Helper()
	svc, _ := newTestService(t)
	h := NewHandler(svc)

	mux := http.NewServeMux()
	mux.Handle("GET /api/notes", asUser(userID, h.ListNotes))
	mux.Handle("POST /api/notes", asUser(userID, h.CreateNote))
	mux.Handle("GET /api/notes/{id}", asUser(userID, h.GetNote))
	mux.Handle("PUT /api/notes/{id}", asUser(userID, h.UpdateNote))
	mux.Handle("DELETE /api/notes/{id}", asUser(userID, h.DeleteNote))
	return mux
}

func serve(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestNoteHandlersLifecycle(t *testing.T) {
	mux := newNoteMux(t, "alice")

	rec := serve(mux, http.MethodPost, "/api/notes", `{"title":"Plan","content":"ship it","tags":["work"],"category":"job"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created Note
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "alice", created.OwnerID)
	assert.Contains(t, rec.Body.String(), `"userId":"alice"`)

	rec = serve(mux, http.MethodPost, "/api/notes", `{"title":"Another","content":"later"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(mux, http.MethodGet, "/api/notes?sortBy=title&sortOrder=asc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []Note
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, []string{"Another", "Plan"}, titles(list))

	rec = serve(mux, http.MethodGet, "/api/notes?category=job", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, []string{"Plan"}, titles(list))

	rec = serve(mux, http.MethodPut, "/api/notes/"+created.ID, `{"title":"Plan v2","content":"ship it now"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(mux, http.MethodGet, "/api/notes/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got Note
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Plan v2", got.Title)

	rec = serve(mux, http.MethodDelete, "/api/notes/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Note deleted successfully"}`, rec.Body.String())

	rec = serve(mux, http.MethodGet, "/api/notes/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Note not found"}`, rec.Body.String())
}

func TestNoteHandlersEmptyList(t *testing.T) {
	mux := newNoteMux(t, "alice")

	rec := serve(mux, http.MethodGet, "/api/notes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestNoteHandlersValidation(t *testing.T) {
	mux := newNoteMux(t, "alice")

	rec := serve(mux, http.MethodPost, "/api/notes", `{"title":"","content":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Title and content are required"}`, rec.Body.String())

	rec = serve(mux, http.MethodPost, "/api/notes", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNoteHandlersRequirePrincipal(t *testing.T) {
	svc, _ := newTestService(t)
	h := NewHandler(svc)

	rec := httptest.NewRecorder()
	h.ListNotes(rec, httptest.NewRequest(http.MethodGet, "/api/notes", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
