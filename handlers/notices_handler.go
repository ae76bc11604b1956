package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/gancio-sync/services/notices"
	"github.com/upb/gancio-sync/utils"
	"go.uber.org/zap"
)

// NoticeRenderer renders and clears pending notices
type NoticeRenderer interface {
	Render(postID int64) []notices.Notice
	RenderHTML(postID int64) string
}

// NoticesHandler serves the admin notices of a post
type NoticesHandler struct {
	renderer NoticeRenderer
	logger   *zap.Logger
}

// NewNoticesHandler creates a new NoticesHandler
func NewNoticesHandler(renderer NoticeRenderer, logger *zap.Logger) *NoticesHandler {
	return &NoticesHandler{renderer: renderer, logger: logger}
}

// HandleGet handles GET /api/v1/notices/{post_id}.
// ?format=html returns the markup fragment instead of JSON.
func (h *NoticesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	postID, err := utils.ParsePositiveID(chi.URLParam(r, "post_id"), "post_id")
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	if err := utils.ValidateOneOf(format, "format", []string{"json", "html"}); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	if format == "html" {
		if err := utils.WriteHTML(w, http.StatusOK, h.renderer.RenderHTML(postID)); err != nil {
			h.logger.Error("failed to write notices", zap.Error(err))
		}
		return
	}

	_ = utils.WriteOK(w, h.renderer.Render(postID))
}
