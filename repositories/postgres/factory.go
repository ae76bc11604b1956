package postgres

import (
	"context"

	"github.com/upb/gancio-sync/config"
	"github.com/upb/gancio-sync/repositories"
	"go.uber.org/zap"
)

// RepositoryFactory creates and manages all repositories
type RepositoryFactory struct {
	db     *DB
	tables Tables
	siteID int
	logger *zap.Logger
}

// NewRepositoryFactory opens the host database and creates a new repository factory
func NewRepositoryFactory(cfg *config.Config, logger *zap.Logger) (*RepositoryFactory, error) {
	db, err := NewDB(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	return NewRepositoryFactoryFromDB(db, cfg.Host, logger), nil
}

// NewRepositoryFactoryFromDB creates a factory over an existing pool
func NewRepositoryFactoryFromDB(db *DB, host config.HostConfig, logger *zap.Logger) *RepositoryFactory {
	return &RepositoryFactory{
		db:     db,
		tables: NewTables(host.TablePrefix),
		siteID: host.SiteID,
		logger: logger,
	}
}

// InitSchema creates the sync log table
func (f *RepositoryFactory) InitSchema(ctx context.Context) error {
	return f.db.InitSchema(ctx, f.tables)
}

// NewRepositories creates all repository instances
func (f *RepositoryFactory) NewRepositories() *repositories.Repositories {
	return &repositories.Repositories{
		Posts:       NewPostRepository(f.db, f.tables, f.logger),
		Terms:       NewTermRepository(f.db, f.tables, f.logger),
		Bindings:    NewBindingRepository(f.db, f.tables, f.logger),
		Options:     NewOptionRepository(f.db, f.tables, f.logger),
		SiteOptions: NewSiteOptionRepository(f.db, f.tables, f.siteID, f.logger),
		SyncLogs:    NewSyncLogRepository(f.db, f.tables, f.logger),
	}
}

// GetTransactionManager returns a transaction manager
func (f *RepositoryFactory) GetTransactionManager() repositories.TransactionManager {
	return NewTransactionManager(f.db, f.logger)
}

// GetDB returns the database connection
func (f *RepositoryFactory) GetDB() *DB {
	return f.db
}

// Tables returns the resolved table names
func (f *RepositoryFactory) Tables() Tables {
	return f.tables
}

// Close closes the database connection
func (f *RepositoryFactory) Close() error {
	return f.db.Close()
}
