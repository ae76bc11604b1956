package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOptionRepository_Lookup(t *testing.T) {
	tables := NewTables("wp_")

	t.Run("set", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewOptionRepository(db, tables, zap.NewNop())

		mock.ExpectQuery(regexp.QuoteMeta(`FROM wp_options`)).
			WithArgs("wpgancio_instance_url").
			WillReturnRows(sqlmock.NewRows([]string{"option_value"}).AddRow("https://gancio.example.org"))

		value, ok, err := repo.Lookup(context.Background(), "wpgancio_instance_url")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "https://gancio.example.org", value)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unset", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewOptionRepository(db, tables, zap.NewNop())

		mock.ExpectQuery(regexp.QuoteMeta(`FROM wp_options`)).
			WillReturnRows(sqlmock.NewRows([]string{"option_value"}))

		_, ok, err := repo.Lookup(context.Background(), "wpgancio_token")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestSiteOptionRepository_Lookup(t *testing.T) {
	tables := NewTables("wp_")

	t.Run("filters by site", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewSiteOptionRepository(db, tables, 3, zap.NewNop())

		mock.ExpectQuery(regexp.QuoteMeta(`FROM wp_sitemeta`)).
			WithArgs(3, "wpgancio_token").
			WillReturnRows(sqlmock.NewRows([]string{"meta_value"}).AddRow("secret"))

		value, ok, err := repo.Lookup(context.Background(), "wpgancio_token")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "secret", value)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing table reads as unset", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewSiteOptionRepository(db, tables, 1, zap.NewNop())

		mock.ExpectQuery(regexp.QuoteMeta(`FROM wp_sitemeta`)).
			WillReturnError(&pq.Error{Code: "42P01", Message: `relation "wp_sitemeta" does not exist`})

		_, ok, err := repo.Lookup(context.Background(), "wpgancio_token")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("other errors propagate", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewSiteOptionRepository(db, tables, 1, zap.NewNop())

		mock.ExpectQuery(regexp.QuoteMeta(`FROM wp_sitemeta`)).
			WillReturnError(errors.New("connection refused"))

		_, _, err := repo.Lookup(context.Background(), "wpgancio_token")
		assert.Error(t, err)
	})
}
