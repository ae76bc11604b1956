package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/gancio-sync/models"
	"github.com/upb/gancio-sync/services"
	"github.com/upb/gancio-sync/utils"
	"go.uber.org/zap"
)

// Sync log page bounds
const (
	defaultSyncLogLimit = 20
	maxSyncLogLimit     = 100
)

// SyncLogReader lists sync attempts of a post
type SyncLogReader interface {
	ListByPostID(ctx context.Context, postID int64, limit int) ([]*models.SyncLog, error)
}

// SyncLogHandler serves the sync audit trail
type SyncLogHandler struct {
	logs   SyncLogReader
	logger *zap.Logger
}

// NewSyncLogHandler creates a new SyncLogHandler
func NewSyncLogHandler(logs SyncLogReader, logger *zap.Logger) *SyncLogHandler {
	return &SyncLogHandler{logs: logs, logger: logger}
}

// HandleList handles GET /api/v1/posts/{post_id}/sync-log
func (h *SyncLogHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	postID, err := utils.ParsePositiveID(chi.URLParam(r, "post_id"), "post_id")
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	limit, err := utils.ParseBoundedInt(r.URL.Query().Get("limit"), "limit",
		defaultSyncLogLimit, 1, maxSyncLogLimit)
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	entries, err := h.logs.ListByPostID(r.Context(), postID, limit)
	if err != nil {
		HandleServiceError(w, services.WrapInternal("failed to list sync log", err), h.logger)
		return
	}
	if entries == nil {
		entries = []*models.SyncLog{}
	}

	_ = utils.WriteOK(w, entries)
}
