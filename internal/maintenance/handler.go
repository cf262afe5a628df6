package maintenance

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"notekeeper/internal/auth"
	"notekeeper/internal/httpx"
	"notekeeper/internal/observability"
)

type Cleaner interface {
	Cleanup(ctx context.Context) (auth.CleanupResult, error)
}

type CleanupHandler struct {
	cleaner    Cleaner
	logger     *observability.Logger
	cronSecret string
}

func NewCleanupHandler(cleaner Cleaner, logger *observability.Logger, cronSecret string) *CleanupHandler {
	return &CleanupHandler{
		cleaner:    cleaner,
		logger:     logger,
		cronSecret: strings.TrimSpace(cronSecret),
	}
}

func (h *CleanupHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.cronSecret == "" {
		httpx.WriteMessage(w, http.StatusNotFound, "not found")
		return
	}

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	token, ok := auth.BearerToken(strings.TrimSpace(r.Header.Get("Authorization")))
	if !ok || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(h.cronSecret)) != 1 {
		httpx.WriteMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	result, err := h.cleaner.Cleanup(r.Context())
	if err != nil {
		h.logger.Error("auth_cleanup_failed", map[string]any{"error": err.Error()})
		httpx.WriteMessage(w, http.StatusInternalServerError, "cleanup failed")
		return
	}

	h.logger.Info("auth_cleanup_completed", map[string]any{
		"deleted_passcodes":       result.DeletedPasscodes,
		"deleted_revocations":     result.DeletedRevocations,
		"deleted_rate_limit_keys": result.DeletedRateLimitKeys,
	})

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"result": result,
	})
}
