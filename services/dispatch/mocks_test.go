package dispatch

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
	"github.com/upb/gancio-sync/models"
	"github.com/upb/gancio-sync/repositories"
	"github.com/upb/gancio-sync/services/gancio"
)

// MockBindingRepository is a mock implementation of BindingRepository
type MockBindingRepository struct {
	mock.Mock
}

func (m *MockBindingRepository) GetByPostID(ctx context.Context, postID int64) (*models.SyncBinding, error) {
	args := m.Called(ctx, postID)
	if b := args.Get(0); b != nil {
		return b.(*models.SyncBinding), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBindingRepository) Upsert(ctx context.Context, binding *models.SyncBinding) error {
	args := m.Called(ctx, binding)
	return args.Error(0)
}

func (m *MockBindingRepository) Delete(ctx context.Context, postID int64) error {
	args := m.Called(ctx, postID)
	return args.Error(0)
}

// MockSyncLogRepository records inserted entries
type MockSyncLogRepository struct {
	mock.Mock
	mu      sync.Mutex
	entries []*models.SyncLog
}

func (m *MockSyncLogRepository) Insert(ctx context.Context, log *models.SyncLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	args := m.Called(ctx, log)
	m.entries = append(m.entries, log)
	return args.Error(0)
}

func (m *MockSyncLogRepository) ListByPostID(ctx context.Context, postID int64, limit int) ([]*models.SyncLog, error) {
	args := m.Called(ctx, postID, limit)
	if logs := args.Get(0); logs != nil {
		return logs.([]*models.SyncLog), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockTransactionManager runs the function without a database
type MockTransactionManager struct {
	mock.Mock
}

func (m *MockTransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	args := m.Called(ctx)
	if tx := args.Get(0); tx != nil {
		return tx.(repositories.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	m.Called(ctx)
	return fn(ctx, nil)
}

// MockRemoteClient is a mock implementation of RemoteClient
type MockRemoteClient struct {
	mock.Mock
}

func (m *MockRemoteClient) Create(ctx context.Context, event *models.CanonicalEvent) (*gancio.Response, error) {
	args := m.Called(ctx, event)
	if r := args.Get(0); r != nil {
		return r.(*gancio.Response), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRemoteClient) Update(ctx context.Context, event *models.CanonicalEvent) (*gancio.Response, error) {
	args := m.Called(ctx, event)
	if r := args.Get(0); r != nil {
		return r.(*gancio.Response), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRemoteClient) Delete(ctx context.Context, remoteID int64) (*gancio.Response, error) {
	args := m.Called(ctx, remoteID)
	if r := args.Get(0); r != nil {
		return r.(*gancio.Response), args.Error(1)
	}
	return nil, args.Error(1)
}
