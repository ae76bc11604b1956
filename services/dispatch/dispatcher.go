package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/upb/gancio-sync/internal/observability"
	"github.com/upb/gancio-sync/models"
	"github.com/upb/gancio-sync/repositories"
	"github.com/upb/gancio-sync/services"
	"github.com/upb/gancio-sync/services/gancio"
	"go.uber.org/zap"
)

// Result actions
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionSkipped = "skipped"
	ActionFailed  = "failed"
)

// RemoteClient is the subset of the Gancio client used for syncing
type RemoteClient interface {
	Create(ctx context.Context, event *models.CanonicalEvent) (*gancio.Response, error)
	Update(ctx context.Context, event *models.CanonicalEvent) (*gancio.Response, error)
	Delete(ctx context.Context, remoteID int64) (*gancio.Response, error)
}

// OutcomeStore records messages shown once in the admin UI
type OutcomeStore interface {
	Set(key string, kind models.OutcomeKind, message string, ttl time.Duration)
}

// Result describes one sync attempt. Sync failures are reported here and
// never as errors.
type Result struct {
	Action     string               `json:"action"`
	Operation  models.SyncOperation `json:"operation,omitempty"`
	Status     models.SyncStatus    `json:"status,omitempty"`
	StatusCode int                  `json:"status_code,omitempty"`
	RemoteID   *int64               `json:"remote_id,omitempty"`
	EventURL   string               `json:"event_url,omitempty"`
	Message    string               `json:"message,omitempty"`

	// Response and TransportErr expose the raw remote result. Callers may ignore them.
	Response     *gancio.Response `json:"-"`
	TransportErr error            `json:"-"`
}

// Skipped returns the result of a post that was not synchronized
func Skipped(reason string) *Result {
	return &Result{Action: ActionSkipped, Message: reason}
}

// Config holds outcome lifetimes
type Config struct {
	ErrorTTL   time.Duration
	SuccessTTL time.Duration
}

// Dispatcher decides between create and update and records the outcome
type Dispatcher struct {
	bindings repositories.BindingRepository
	syncLogs repositories.SyncLogRepository
	tx       repositories.TransactionManager
	client   RemoteClient
	outcomes OutcomeStore
	metrics  *observability.Metrics
	cfg      Config
	logger   *zap.Logger
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(
	bindings repositories.BindingRepository,
	syncLogs repositories.SyncLogRepository,
	tx repositories.TransactionManager,
	client RemoteClient,
	outcomes OutcomeStore,
	metrics *observability.Metrics,
	cfg Config,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		bindings: bindings,
		syncLogs: syncLogs,
		tx:       tx,
		client:   client,
		outcomes: outcomes,
		metrics:  metrics,
		cfg:      cfg,
		logger:   logger,
	}
}

// Push creates or updates the remote copy of a post's event
func (d *Dispatcher) Push(ctx context.Context, source string, postID int64, event *models.CanonicalEvent) (*Result, error) {
	binding, err := d.bindings.GetByPostID(ctx, postID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, services.WrapInternal("failed to read sync binding", err)
	}

	var (
		op   models.SyncOperation
		resp *gancio.Response
	)
	if binding != nil {
		op = models.SyncOperationUpdate
		resp, err = d.client.Update(ctx, event.WithRemoteID(binding.RemoteID))
	} else {
		op = models.SyncOperationCreate
		resp, err = d.client.Create(ctx, event)
	}

	result := &Result{Operation: op, Response: resp}
	if err != nil {
		if !d.classifyClientError(err, result) {
			return nil, err
		}
		d.fail(ctx, source, postID, result)
		return result, nil
	}

	result.StatusCode = resp.StatusCode
	if !resp.OK() {
		result.Status = models.SyncStatusRejected
		result.Message = string(resp.Body)
		d.fail(ctx, source, postID, result)
		return result, nil
	}

	remoteID, slug, err := parseEventReply(resp.Body)
	if err != nil {
		result.Status = models.SyncStatusInvalidReply
		result.Message = "Invalid response from Gancio: " + html.EscapeString(err.Error())
		d.fail(ctx, source, postID, result)
		return result, nil
	}

	ref := slug
	if ref == "" {
		ref = strconv.FormatInt(remoteID, 10)
	}
	eventURL := resp.BaseURL + "/event/" + ref
	escapedURL := html.EscapeString(eventURL)

	result.Action = ActionCreated
	if op == models.SyncOperationUpdate {
		result.Action = ActionUpdated
	}
	result.Status = models.SyncStatusSuccess
	result.RemoteID = &remoteID
	result.EventURL = eventURL
	result.Message = fmt.Sprintf("Event updated. <a href='%s'>%s</a>", escapedURL, escapedURL)

	if err := d.bind(ctx, source, postID, result); err != nil {
		return nil, err
	}

	d.outcomes.Set(models.OutcomeKey(models.OutcomeSuccess, postID), models.OutcomeSuccess, result.Message, d.cfg.SuccessTTL)
	d.metrics.RecordOutcome(string(models.OutcomeSuccess))
	d.metrics.RecordSync(source, string(op), string(result.Status))

	d.logger.Info("event synchronized",
		zap.String("source", source),
		zap.Int64("post_id", postID),
		zap.String("operation", string(op)),
		zap.Int64("remote_id", remoteID))

	return result, nil
}

// Remove deletes the remote copy of a bound post. The remote reply is not
// interpreted; it is exposed on the result only.
func (d *Dispatcher) Remove(ctx context.Context, source string, binding *models.SyncBinding) (*Result, error) {
	remoteID := binding.RemoteID
	result := &Result{Operation: models.SyncOperationDelete, RemoteID: &remoteID}

	resp, err := d.client.Delete(ctx, remoteID)
	result.Response = resp
	switch {
	case err == nil:
		result.StatusCode = resp.StatusCode
		result.Status = models.SyncStatusSuccess
		if !resp.OK() {
			result.Status = models.SyncStatusRejected
		}
	case !d.classifyClientError(err, result):
		return nil, err
	}

	if result.Status == models.SyncStatusConfigMissing {
		d.logger.Warn("remote delete not issued", zap.Int64("post_id", binding.PostID))
	} else {
		result.Action = ActionDeleted
		if err := d.bindings.Delete(ctx, binding.PostID); err != nil {
			return nil, services.WrapInternal("failed to delete sync binding", err)
		}
	}

	d.writeLog(ctx, source, binding.PostID, result)
	d.metrics.RecordSync(source, string(result.Operation), string(result.Status))

	d.logger.Info("remote delete issued",
		zap.String("source", source),
		zap.Int64("post_id", binding.PostID),
		zap.Int64("remote_id", remoteID),
		zap.Int("status_code", result.StatusCode))

	return result, nil
}

// Reject records an error outcome for an event that could not be built from
// the local post. Nothing is sent to the remote and the binding is untouched.
func (d *Dispatcher) Reject(source string, postID int64, reason string) *Result {
	result := &Result{
		Action:  ActionFailed,
		Status:  models.SyncStatusInvalidEvent,
		Message: "Event not synchronized: " + html.EscapeString(reason),
	}

	d.outcomes.Set(models.OutcomeKey(models.OutcomeError, postID), models.OutcomeError, result.Message, d.cfg.ErrorTTL)
	d.metrics.RecordOutcome(string(models.OutcomeError))

	d.logger.Warn("event rejected before sync",
		zap.String("source", source),
		zap.Int64("post_id", postID),
		zap.String("reason", reason))

	return result
}

// classifyClientError fills result for sync failures. It returns false for
// errors that are not sync failures.
func (d *Dispatcher) classifyClientError(err error, result *Result) bool {
	result.Action = ActionFailed
	switch {
	case services.IsConfigMissingError(err):
		result.Status = models.SyncStatusConfigMissing
		result.Message = "Gancio instance URL or token not configured"
	case services.IsTransportError(err):
		result.Status = models.SyncStatusTransportError
		result.Message = html.EscapeString(transportDescription(err))
		result.TransportErr = err
	default:
		return false
	}
	return true
}

// fail records an error outcome. Bindings are never touched.
func (d *Dispatcher) fail(ctx context.Context, source string, postID int64, result *Result) {
	result.Action = ActionFailed
	d.outcomes.Set(models.OutcomeKey(models.OutcomeError, postID), models.OutcomeError, result.Message, d.cfg.ErrorTTL)
	d.metrics.RecordOutcome(string(models.OutcomeError))
	d.metrics.RecordSync(source, string(result.Operation), string(result.Status))
	d.writeLog(ctx, source, postID, result)

	d.logger.Warn("event sync failed",
		zap.String("source", source),
		zap.Int64("post_id", postID),
		zap.String("operation", string(result.Operation)),
		zap.String("status", string(result.Status)),
		zap.Int("status_code", result.StatusCode))
}

// bind stores the binding and the audit row together. When the audit row
// cannot be written the binding is stored on its own.
func (d *Dispatcher) bind(ctx context.Context, source string, postID int64, result *Result) error {
	binding := &models.SyncBinding{PostID: postID, RemoteID: *result.RemoteID}
	entry := newLogEntry(source, postID, result)

	err := d.tx.InTransaction(ctx, func(ctx context.Context, _ repositories.Transaction) error {
		if err := d.bindings.Upsert(ctx, binding); err != nil {
			return err
		}
		return d.syncLogs.Insert(ctx, entry)
	})
	if err == nil {
		return nil
	}

	d.logger.Error("failed to record sync, storing binding alone",
		zap.Int64("post_id", postID),
		zap.Error(err))
	if err := d.bindings.Upsert(ctx, binding); err != nil {
		return services.WrapInternal("failed to store sync binding", err)
	}
	return nil
}

func (d *Dispatcher) writeLog(ctx context.Context, source string, postID int64, result *Result) {
	if err := d.syncLogs.Insert(ctx, newLogEntry(source, postID, result)); err != nil {
		d.logger.Error("failed to write sync log",
			zap.Int64("post_id", postID),
			zap.Error(err))
	}
}

func newLogEntry(source string, postID int64, result *Result) *models.SyncLog {
	entry := models.NewSyncLog(postID, source, result.Operation, result.Status)
	if result.StatusCode > 0 {
		code := result.StatusCode
		entry.StatusCode = &code
	}
	entry.RemoteID = result.RemoteID
	if result.Status != models.SyncStatusSuccess {
		entry.Message = result.Message
	}
	return entry
}

// transportDescription returns the underlying network error text
func transportDescription(err error) string {
	var domainErr *services.DomainError
	if errors.As(err, &domainErr) && domainErr.Err != nil {
		return domainErr.Err.Error()
	}
	return err.Error()
}

// eventReply is the remote reply to a create or update
type eventReply struct {
	ID   json.RawMessage `json:"id"`
	Slug *string         `json:"slug"`
}

// parseEventReply extracts the remote id and optional slug. The id must be
// a positive JSON integer.
func parseEventReply(body []byte) (int64, string, error) {
	var reply eventReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return 0, "", fmt.Errorf("malformed JSON: %w", err)
	}
	if len(reply.ID) == 0 || string(reply.ID) == "null" {
		return 0, "", errors.New("missing id")
	}

	id, err := strconv.ParseInt(string(reply.ID), 10, 64)
	if err != nil || id <= 0 {
		return 0, "", fmt.Errorf("id %s is not a positive integer", reply.ID)
	}

	slug := ""
	if reply.Slug != nil {
		slug = strings.TrimSpace(*reply.Slug)
	}
	return id, slug, nil
}
