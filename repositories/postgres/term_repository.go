package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/upb/gancio-sync/models"
	"github.com/upb/gancio-sync/repositories"
	"go.uber.org/zap"
)

// TermRepository implements the repositories.TermRepository interface
type TermRepository struct {
	db     *DB
	tables Tables
	logger *zap.Logger
}

// NewTermRepository creates a new term repository
func NewTermRepository(db *DB, tables Tables, logger *zap.Logger) repositories.TermRepository {
	return &TermRepository{
		db:     db,
		tables: tables,
		logger: logger,
	}
}

// GetPostTerms retrieves the terms of a taxonomy attached to a post
func (r *TermRepository) GetPostTerms(ctx context.Context, postID int64, taxonomy string) ([]models.Term, error) {
	query := fmt.Sprintf(`
		SELECT t.term_id, t.name, t.slug
		FROM %[1]s t
		JOIN %[2]s tt ON tt.term_id = t.term_id
		JOIN %[3]s tr ON tr.term_taxonomy_id = tt.term_taxonomy_id
		WHERE tr.object_id = $1 AND tt.taxonomy = $2
		ORDER BY tr.term_order, t.name
	`, r.tables.Terms, r.tables.TermTaxonomy, r.tables.TermRelationships)

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, postID, taxonomy)
	if err != nil {
		return nil, fmt.Errorf("failed to query terms: %w", err)
	}
	defer rows.Close()

	terms := make([]models.Term, 0)
	for rows.Next() {
		var term models.Term
		if err := rows.Scan(&term.ID, &term.Name, &term.Slug); err != nil {
			return nil, fmt.Errorf("failed to scan term: %w", err)
		}
		terms = append(terms, term)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating terms: %w", err)
	}

	r.logger.Debug("terms loaded",
		zap.Int64("post_id", postID),
		zap.String("taxonomy", taxonomy),
		zap.Int("count", len(terms)))
	return terms, nil
}

// GetTermMeta retrieves the first meta value stored under key
func (r *TermRepository) GetTermMeta(ctx context.Context, termID int64, key string) (string, bool, error) {
	query := fmt.Sprintf(`
		SELECT meta_value
		FROM %s
		WHERE term_id = $1 AND meta_key = $2
		ORDER BY meta_id
		LIMIT 1
	`, r.tables.TermMeta)

	var value sql.NullString
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, termID, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get term meta %s: %w", key, err)
	}

	return value.String, value.Valid, nil
}
