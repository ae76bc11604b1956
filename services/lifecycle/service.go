package lifecycle

import (
	"context"
	"errors"

	"github.com/upb/gancio-sync/internal/observability"
	"github.com/upb/gancio-sync/models"
	"github.com/upb/gancio-sync/repositories"
	"github.com/upb/gancio-sync/services"
	"github.com/upb/gancio-sync/services/dispatch"
	"github.com/upb/gancio-sync/services/sources"
	"go.uber.org/zap"
)

// Hook names used in metrics
const (
	hookSave  = "save"
	hookTrash = "trash"
)

// Dispatcher pushes and removes remote events
type Dispatcher interface {
	Push(ctx context.Context, source string, postID int64, event *models.CanonicalEvent) (*dispatch.Result, error)
	Remove(ctx context.Context, source string, binding *models.SyncBinding) (*dispatch.Result, error)
	Reject(source string, postID int64, reason string) *dispatch.Result
}

// Service reacts to the host's save and trash notifications
type Service struct {
	registry   *sources.Registry
	posts      repositories.PostRepository
	bindings   repositories.BindingRepository
	dispatcher Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewService creates a new lifecycle service
func NewService(
	registry *sources.Registry,
	posts repositories.PostRepository,
	bindings repositories.BindingRepository,
	dispatcher Dispatcher,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		registry:   registry,
		posts:      posts,
		bindings:   bindings,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
	}
}

// Save handles a create or update notification from a source plugin
func (s *Service) Save(ctx context.Context, sourceName string, postID int64) (*dispatch.Result, error) {
	if postID <= 0 {
		return nil, services.ErrInvalidPostID
	}

	src, ok := s.registry.Get(sourceName)
	if !ok {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "unknown event source", nil).
			WithDetail("source", sourceName)
	}

	event, ok, err := src.Extract(ctx, postID)
	if err != nil {
		var domainErr *services.DomainError
		if errors.As(err, &domainErr) && domainErr.Type == services.ErrorTypeValidation {
			// The post exists but cannot be expressed as an event; the editor is told through a notice
			result := s.dispatcher.Reject(src.Name(), postID, domainErr.Message)
			s.metrics.RecordHook(hookSave, result.Action)
			return result, nil
		}
		s.metrics.RecordHook(hookSave, "error")
		return nil, err
	}
	if !ok {
		s.logger.Debug("save skipped",
			zap.String("source", src.Name()),
			zap.Int64("post_id", postID))
		s.metrics.RecordHook(hookSave, dispatch.ActionSkipped)
		return dispatch.Skipped("post is not a published " + src.Name() + " event"), nil
	}

	result, err := s.dispatcher.Push(ctx, src.Name(), postID, event)
	if err != nil {
		s.metrics.RecordHook(hookSave, "error")
		return nil, err
	}

	s.metrics.RecordHook(hookSave, result.Action)
	return result, nil
}

// Trash handles a trash notification for any post
func (s *Service) Trash(ctx context.Context, postID int64) (*dispatch.Result, error) {
	if postID <= 0 {
		return nil, services.ErrInvalidPostID
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrPostNotFound
		}
		return nil, services.WrapInternal("failed to load post", err)
	}

	src, ok := s.registry.ForPostType(post.Type)
	if !ok {
		s.metrics.RecordHook(hookTrash, dispatch.ActionSkipped)
		return dispatch.Skipped("post type is not managed"), nil
	}

	binding, err := s.bindings.GetByPostID(ctx, postID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			s.metrics.RecordHook(hookTrash, dispatch.ActionSkipped)
			return dispatch.Skipped("post is not synchronized"), nil
		}
		return nil, services.WrapInternal("failed to read sync binding", err)
	}

	result, err := s.dispatcher.Remove(ctx, src.Name(), binding)
	if err != nil {
		s.metrics.RecordHook(hookTrash, "error")
		return nil, err
	}

	s.metrics.RecordHook(hookTrash, result.Action)
	return result, nil
}

// SourceNames lists the enabled sources
func (s *Service) SourceNames() []string {
	return s.registry.Names()
}
