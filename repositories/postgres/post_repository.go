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

// PostRepository implements the repositories.PostRepository interface
type PostRepository struct {
	db     *DB
	tables Tables
	logger *zap.Logger
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *DB, tables Tables, logger *zap.Logger) repositories.PostRepository {
	return &PostRepository{
		db:     db,
		tables: tables,
		logger: logger,
	}
}

// GetByID retrieves a post by ID
func (r *PostRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := fmt.Sprintf(`
		SELECT "ID", post_type, post_status, post_title, post_content
		FROM %s
		WHERE "ID" = $1
	`, r.tables.Posts)

	post := &models.Post{}
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&post.ID,
		&post.Type,
		&post.Status,
		&post.Title,
		&post.Content,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("post %d: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	return post, nil
}

// GetMeta retrieves the first meta value stored under key
func (r *PostRepository) GetMeta(ctx context.Context, postID int64, key string) (string, bool, error) {
	query := fmt.Sprintf(`
		SELECT meta_value
		FROM %s
		WHERE post_id = $1 AND meta_key = $2
		ORDER BY meta_id
		LIMIT 1
	`, r.tables.PostMeta)

	var value sql.NullString
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, postID, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get post meta %s: %w", key, err)
	}

	return value.String, value.Valid, nil
}

// thumbnailMetaKey holds the attachment id of the featured image
const thumbnailMetaKey = "_thumbnail_id"

// GetThumbnailURL resolves _thumbnail_id to the attachment URL. A missing or
// non-numeric id reads as no image.
func (r *PostRepository) GetThumbnailURL(ctx context.Context, postID int64) (string, error) {
	raw, ok, err := r.GetMeta(ctx, postID, thumbnailMetaKey)
	if err != nil {
		return "", fmt.Errorf("failed to get thumbnail: %w", err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return "", nil
	}

	attachmentID, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || attachmentID <= 0 {
		r.logger.Debug("ignoring unusable thumbnail id",
			zap.Int64("post_id", postID),
			zap.String("value", raw))
		return "", nil
	}

	query := fmt.Sprintf(`
		SELECT guid
		FROM %s
		WHERE "ID" = $1 AND post_type = 'attachment'
	`, r.tables.Posts)

	var guid sql.NullString
	err = GetExecutor(ctx, r.db).QueryRowContext(ctx, query, attachmentID).Scan(&guid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get thumbnail: %w", err)
	}

	return guid.String, nil
}
