package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteErrorMapsKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		body   string
	}{
		{Validation("title is required"), http.StatusBadRequest, "title is required"},
		{Conflict("exists"), http.StatusBadRequest, "exists"},
		{Unauthenticated("token expired"), http.StatusUnauthorized, "token expired"},
		{Forbidden("not yours"), http.StatusForbidden, "not yours"},
		{NotFound("Note not found"), http.StatusNotFound, "Note not found"},
		{RateLimited("slow down"), http.StatusTooManyRequests, "slow down"},
		{fmt.Errorf("wrapped: %w", NotFound("gone")), http.StatusNotFound, "gone"},
		{errors.New("open /data/notes.json: permission denied"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		WriteError(rec, tc.err)

		assert.Equal(t, tc.status, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, tc.body, body["error"])
	}
}

func TestIsKind(t *testing.T) {
	err := fmt.Errorf("login: %w", Unauthenticated("invalid"))
	assert.True(t, IsKind(err, KindAuthentication))
	assert.False(t, IsKind(err, KindNotFound))
	assert.False(t, IsKind(errors.New("plain"), KindValidation))
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var dst struct {
		Title string `json:"title"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"a","extra":1}`))
	err := DecodeJSON(httptest.NewRecorder(), req, &dst)
	assert.True(t, IsKind(err, KindValidation))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"a"}`))
	require.NoError(t, DecodeJSON(httptest.NewRecorder(), req, &dst))
	assert.Equal(t, "a", dst.Title)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5000"
	assert.Equal(t, "10.0.0.1", ClientIP(req))

	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", ClientIP(req))

	req.RemoteAddr = "10.0.0.1"
	assert.Equal(t, "10.0.0.1", ClientIP(req))

	req.RemoteAddr = "10.0.0.1:5000"

	req.Header.Set("X-Forwarded-For", " 203.0.113.7 , 10.0.0.1")
	assert.Equal(t, "203.0.113.7", ClientIP(req))
}
