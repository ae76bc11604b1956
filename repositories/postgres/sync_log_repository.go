package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/upb/gancio-sync/models"
	"github.com/upb/gancio-sync/repositories"
	"go.uber.org/zap"
)

// SyncLogRepository implements the repositories.SyncLogRepository interface
type SyncLogRepository struct {
	db     *DB
	tables Tables
	logger *zap.Logger
}

// NewSyncLogRepository creates a new sync log repository
func NewSyncLogRepository(db *DB, tables Tables, logger *zap.Logger) repositories.SyncLogRepository {
	return &SyncLogRepository{
		db:     db,
		tables: tables,
		logger: logger,
	}
}

// Insert inserts a new sync log entry
func (r *SyncLogRepository) Insert(ctx context.Context, log *models.SyncLog) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, post_id, source, operation, status, status_code, remote_id, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, r.tables.SyncLog)

	_, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		log.ID,
		log.PostID,
		log.Source,
		log.Operation,
		log.Status,
		log.StatusCode,
		log.RemoteID,
		log.Message,
		log.CreatedAt,
	)
	if err != nil {
		r.logger.Error("failed to insert sync log",
			zap.Error(err),
			zap.Int64("post_id", log.PostID))
		return fmt.Errorf("failed to insert sync log: %w", err)
	}

	return nil
}

// ListByPostID retrieves the latest entries of a post, newest first
func (r *SyncLogRepository) ListByPostID(ctx context.Context, postID int64, limit int) ([]*models.SyncLog, error) {
	if limit <= 0 {
		limit = 20
	}

	query := fmt.Sprintf(`
		SELECT id, post_id, source, operation, status, status_code, remote_id, message, created_at
		FROM %s
		WHERE post_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, r.tables.SyncLog)

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, postID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync logs: %w", err)
	}
	defer rows.Close()

	logs := make([]*models.SyncLog, 0)
	for rows.Next() {
		var (
			entry      models.SyncLog
			statusCode sql.NullInt64
			remoteID   sql.NullInt64
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.PostID,
			&entry.Source,
			&entry.Operation,
			&entry.Status,
			&statusCode,
			&remoteID,
			&entry.Message,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sync log: %w", err)
		}
		if statusCode.Valid {
			code := int(statusCode.Int64)
			entry.StatusCode = &code
		}
		if remoteID.Valid {
			id := remoteID.Int64
			entry.RemoteID = &id
		}
		logs = append(logs, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync logs: %w", err)
	}

	return logs, nil
}
