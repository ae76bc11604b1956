package repositories

import (
	"context"
	"errors"

	"github.com/upb/gancio-sync/models"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// PostRepository reads host content records and their metadata
type PostRepository interface {
	// GetByID retrieves a post by ID. Returns ErrNotFound when absent.
	GetByID(ctx context.Context, id int64) (*models.Post, error)

	// GetMeta retrieves a single post meta value
	GetMeta(ctx context.Context, postID int64, key string) (string, bool, error)

	// GetThumbnailURL resolves the featured image URL, empty when unset
	GetThumbnailURL(ctx context.Context, postID int64) (string, error)
}

// TermRepository reads taxonomy terms attached to posts
type TermRepository interface {
	// GetPostTerms retrieves the terms of a taxonomy attached to a post, ordered by term order
	GetPostTerms(ctx context.Context, postID int64, taxonomy string) ([]models.Term, error)

	// GetTermMeta retrieves a single term meta value
	GetTermMeta(ctx context.Context, termID int64, key string) (string, bool, error)
}

// BindingRepository stores the local-to-remote event association
type BindingRepository interface {
	// GetByPostID retrieves the binding of a post. Returns ErrNotFound when absent.
	GetByPostID(ctx context.Context, postID int64) (*models.SyncBinding, error)

	// Upsert creates or replaces the binding of a post
	Upsert(ctx context.Context, binding *models.SyncBinding) error

	// Delete removes the binding of a post
	Delete(ctx context.Context, postID int64) error
}

// OptionRepository reads named configuration values
type OptionRepository interface {
	// Lookup returns the option value and whether it is set
	Lookup(ctx context.Context, name string) (string, bool, error)
}

// SyncLogRepository stores the audit trail of remote attempts
type SyncLogRepository interface {
	// Insert inserts a new sync log entry
	Insert(ctx context.Context, log *models.SyncLog) error

	// ListByPostID retrieves the latest entries of a post, newest first
	ListByPostID(ctx context.Context, postID int64, limit int) ([]*models.SyncLog, error)
}

// Repositories holds all repository instances
type Repositories struct {
	Posts       PostRepository
	Terms       TermRepository
	Bindings    BindingRepository
	Options     OptionRepository
	SiteOptions OptionRepository
	SyncLogs    SyncLogRepository
}
