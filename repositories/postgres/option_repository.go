package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/upb/gancio-sync/repositories"
	"go.uber.org/zap"
)

// OptionRepository reads instance level options from the options table
type OptionRepository struct {
	db     *DB
	tables Tables
	logger *zap.Logger
}

// NewOptionRepository creates a new option repository
func NewOptionRepository(db *DB, tables Tables, logger *zap.Logger) repositories.OptionRepository {
	return &OptionRepository{
		db:     db,
		tables: tables,
		logger: logger,
	}
}

// Lookup returns the option value and whether it is set
func (r *OptionRepository) Lookup(ctx context.Context, name string) (string, bool, error) {
	query := fmt.Sprintf(`
		SELECT option_value
		FROM %s
		WHERE option_name = $1
	`, r.tables.Options)

	return lookupValue(ctx, GetExecutor(ctx, r.db), query, name)
}

// SiteOptionRepository reads network level options from the sitemeta table
type SiteOptionRepository struct {
	db     *DB
	tables Tables
	siteID int
	logger *zap.Logger
}

// NewSiteOptionRepository creates a new site option repository for a network site
func NewSiteOptionRepository(db *DB, tables Tables, siteID int, logger *zap.Logger) repositories.OptionRepository {
	return &SiteOptionRepository{
		db:     db,
		tables: tables,
		siteID: siteID,
		logger: logger,
	}
}

// Lookup returns the network option value and whether it is set. Single
// site installations have no sitemeta table; that reads as unset.
func (r *SiteOptionRepository) Lookup(ctx context.Context, name string) (string, bool, error) {
	query := fmt.Sprintf(`
		SELECT meta_value
		FROM %s
		WHERE site_id = $1 AND meta_key = $2
		ORDER BY meta_id
		LIMIT 1
	`, r.tables.SiteMeta)

	value, ok, err := lookupValue(ctx, GetExecutor(ctx, r.db), query, r.siteID, name)
	if err != nil && isUndefinedTable(err) {
		r.logger.Debug("sitemeta table not present", zap.String("table", r.tables.SiteMeta))
		return "", false, nil
	}
	return value, ok, err
}

func lookupValue(ctx context.Context, executor Executor, query string, args ...interface{}) (string, bool, error) {
	var value sql.NullString
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read option: %w", err)
	}
	return value.String, value.Valid, nil
}
