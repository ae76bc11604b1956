package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BindingMetaKey is the post meta key holding the remote event id
const BindingMetaKey = "wpgancio_gancio_id"

// SyncBinding associates a local post with its remote Gancio event
type SyncBinding struct {
	PostID   int64 `json:"post_id" db:"post_id"`
	RemoteID int64 `json:"remote_id" db:"meta_value"`
}

// SyncOperation is the remote operation attempted
type SyncOperation string

const (
	SyncOperationCreate SyncOperation = "create"
	SyncOperationUpdate SyncOperation = "update"
	SyncOperationDelete SyncOperation = "delete"
)

// SyncStatus is the result of a remote attempt
type SyncStatus string

const (
	SyncStatusSuccess        SyncStatus = "success"
	SyncStatusRejected       SyncStatus = "rejected"
	SyncStatusTransportError SyncStatus = "transport_error"
	SyncStatusConfigMissing  SyncStatus = "config_missing"
	SyncStatusInvalidReply   SyncStatus = "invalid_response"
	SyncStatusInvalidEvent   SyncStatus = "invalid_event"
)

// SyncLog is an audit entry for one remote attempt
type SyncLog struct {
	ID         uuid.UUID     `json:"id" db:"id"`
	PostID     int64         `json:"post_id" db:"post_id"`
	Source     string        `json:"source" db:"source"`
	Operation  SyncOperation `json:"operation" db:"operation"`
	Status     SyncStatus    `json:"status" db:"status"`
	StatusCode *int          `json:"status_code,omitempty" db:"status_code"`
	RemoteID   *int64        `json:"remote_id,omitempty" db:"remote_id"`
	Message    string        `json:"message" db:"message"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the SyncLog model
func (SyncLog) TableName() string {
	return "gancio_sync_log"
}

// NewSyncLog creates a new SyncLog entry
func NewSyncLog(postID int64, source string, op SyncOperation, status SyncStatus) *SyncLog {
	return &SyncLog{
		ID:        uuid.New(),
		PostID:    postID,
		Source:    source,
		Operation: op,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
}

// OutcomeKind distinguishes error and success outcomes
type OutcomeKind string

const (
	OutcomeError   OutcomeKind = "error"
	OutcomeSuccess OutcomeKind = "success"
)

// Outcome is a short-lived message shown once after a sync attempt
type Outcome struct {
	Kind      OutcomeKind `json:"kind"`
	Message   string      `json:"message"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// OutcomeKey returns the storage key for a post's outcome of the given kind
func OutcomeKey(kind OutcomeKind, postID int64) string {
	if kind == OutcomeSuccess {
		return fmt.Sprintf("wpgancio_message_%d", postID)
	}
	return fmt.Sprintf("wpgancio_error_%d", postID)
}
