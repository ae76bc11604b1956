package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/gancio-sync/middleware"
	"github.com/upb/gancio-sync/services/dispatch"
	"github.com/upb/gancio-sync/utils"
	"go.uber.org/zap"
)

// maxHookBodyBytes bounds hook request bodies
const maxHookBodyBytes = 1 << 16

// HookRequest is the body sent by the host save and trash hooks
type HookRequest struct {
	PostID int64 `json:"post_id" validate:"required,gt=0"`
}

// LifecycleService reacts to host content lifecycle events
type LifecycleService interface {
	Save(ctx context.Context, sourceName string, postID int64) (*dispatch.Result, error)
	Trash(ctx context.Context, postID int64) (*dispatch.Result, error)
}

// HooksHandler handles the host's save and trash hooks
type HooksHandler struct {
	service LifecycleService
	logger  *zap.Logger
}

// NewHooksHandler creates a new HooksHandler
func NewHooksHandler(service LifecycleService, logger *zap.Logger) *HooksHandler {
	return &HooksHandler{
		service: service,
		logger:  logger,
	}
}

// HandleSave handles POST /api/v1/hooks/{source}/save.
// Sync failures are reported in the body with status 200.
func (h *HooksHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")

	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	result, err := h.service.Save(r.Context(), source, req.PostID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logResult(r, "save", req.PostID, result)
	_ = utils.WriteOK(w, result)
}

// HandleTrash handles POST /api/v1/hooks/trash
func (h *HooksHandler) HandleTrash(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	result, err := h.service.Trash(r.Context(), req.PostID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logResult(r, "trash", req.PostID, result)
	_ = utils.WriteOK(w, result)
}

func (h *HooksHandler) decode(w http.ResponseWriter, r *http.Request) (*HookRequest, bool) {
	var req HookRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxHookBodyBytes)).Decode(&req); err != nil {
		h.logger.Warn("invalid hook body",
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return nil, false
	}

	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return nil, false
	}
	return &req, true
}

func (h *HooksHandler) logResult(r *http.Request, hook string, postID int64, result *dispatch.Result) {
	h.logger.Info("hook processed",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.String("hook", hook),
		zap.Int64("post_id", postID),
		zap.String("action", result.Action),
		zap.String("status", string(result.Status)))
}
