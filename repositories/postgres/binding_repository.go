package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/upb/gancio-sync/models"
	"github.com/upb/gancio-sync/repositories"
	"go.uber.org/zap"
)

// BindingRepository stores sync bindings as post meta under models.BindingMetaKey
type BindingRepository struct {
	db     *DB
	tables Tables
	logger *zap.Logger
}

// NewBindingRepository creates a new binding repository
func NewBindingRepository(db *DB, tables Tables, logger *zap.Logger) repositories.BindingRepository {
	return &BindingRepository{
		db:     db,
		tables: tables,
		logger: logger,
	}
}

// GetByPostID retrieves the binding of a post. Missing, empty, zero or
// non-numeric stored values all read as unbound.
func (r *BindingRepository) GetByPostID(ctx context.Context, postID int64) (*models.SyncBinding, error) {
	query := fmt.Sprintf(`
		SELECT meta_value
		FROM %s
		WHERE post_id = $1 AND meta_key = $2
		ORDER BY meta_id
		LIMIT 1
	`, r.tables.PostMeta)

	var value sql.NullString
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, postID, models.BindingMetaKey).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get binding: %w", err)
	}

	remoteID, err := strconv.ParseInt(strings.TrimSpace(value.String), 10, 64)
	if err != nil || remoteID <= 0 {
		r.logger.Warn("ignoring unusable binding value",
			zap.Int64("post_id", postID),
			zap.String("value", value.String))
		return nil, repositories.ErrNotFound
	}

	return &models.SyncBinding{PostID: postID, RemoteID: remoteID}, nil
}

// Upsert replaces any existing binding rows of the post with a single one
func (r *BindingRepository) Upsert(ctx context.Context, binding *models.SyncBinding) error {
	executor := GetExecutor(ctx, r.db)
	value := strconv.FormatInt(binding.RemoteID, 10)

	update := fmt.Sprintf(`
		UPDATE %s SET meta_value = $3
		WHERE post_id = $1 AND meta_key = $2
	`, r.tables.PostMeta)

	result, err := executor.ExecContext(ctx, update, binding.PostID, models.BindingMetaKey, value)
	if err != nil {
		return fmt.Errorf("failed to update binding: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		insert := fmt.Sprintf(`
			INSERT INTO %s (post_id, meta_key, meta_value)
			VALUES ($1, $2, $3)
		`, r.tables.PostMeta)
		if _, err := executor.ExecContext(ctx, insert, binding.PostID, models.BindingMetaKey, value); err != nil {
			return fmt.Errorf("failed to insert binding: %w", err)
		}
	}

	r.logger.Debug("binding stored",
		zap.Int64("post_id", binding.PostID),
		zap.Int64("remote_id", binding.RemoteID))
	return nil
}

// Delete removes the binding of a post
func (r *BindingRepository) Delete(ctx context.Context, postID int64) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE post_id = $1 AND meta_key = $2
	`, r.tables.PostMeta)

	if _, err := GetExecutor(ctx, r.db).ExecContext(ctx, query, postID, models.BindingMetaKey); err != nil {
		return fmt.Errorf("failed to delete binding: %w", err)
	}

	r.logger.Debug("binding deleted", zap.Int64("post_id", postID))
	return nil
}
