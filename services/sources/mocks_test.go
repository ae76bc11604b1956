package sources

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/upb/gancio-sync/models"
)

// MockPostRepository is a mock implementation of PostRepository
type MockPostRepository struct {
	mock.Mock
}

func (m *MockPostRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	args := m.Called(ctx, id)
	if post := args.Get(0); post != nil {
		return post.(*models.Post), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPostRepository) GetMeta(ctx context.Context, postID int64, key string) (string, bool, error) {
	args := m.Called(ctx, postID, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockPostRepository) GetThumbnailURL(ctx context.Context, postID int64) (string, error) {
	args := m.Called(ctx, postID)
	return args.String(0), args.Error(1)
}

// MockTermRepository is a mock implementation of TermRepository
type MockTermRepository struct {
	mock.Mock
}

func (m *MockTermRepository) GetPostTerms(ctx context.Context, postID int64, taxonomy string) ([]models.Term, error) {
	args := m.Called(ctx, postID, taxonomy)
	if terms := args.Get(0); terms != nil {
		return terms.([]models.Term), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTermRepository) GetTermMeta(ctx context.Context, termID int64, key string) (string, bool, error) {
	args := m.Called(ctx, termID, key)
	return args.String(0), args.Bool(1), args.Error(2)
}
