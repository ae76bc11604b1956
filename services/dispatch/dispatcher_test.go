package dispatch

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/gancio-sync/models"
	"github.com/upb/gancio-sync/repositories"
	"github.com/upb/gancio-sync/services"
	"github.com/upb/gancio-sync/services/gancio"
	"github.com/upb/gancio-sync/services/outcomes"
	"go.uber.org/zap"
)

const baseURL = "https://gancio.example.org"

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	bindings *MockBindingRepository
	logs     *MockSyncLogRepository
	tx       *MockTransactionManager
	client   *MockRemoteClient
	store    *outcomes.Store
	now      time.Time
	d        *Dispatcher
}

func newFixture() *fixture {
	f := &fixture{
		bindings: new(MockBindingRepository),
		logs:     new(MockSyncLogRepository),
		tx:       new(MockTransactionManager),
		client:   new(MockRemoteClient),
		now:      epoch,
	}
	f.store = outcomes.NewStore(100, outcomes.WithClock(func() time.Time { return f.now }))
	f.d = NewDispatcher(f.bindings, f.logs, f.tx, f.client, f.store, nil,
		Config{ErrorTTL: 45 * time.Second, SuccessTTL: time.Hour}, zap.NewNop())
	return f
}

func ok(body string) *gancio.Response {
	return &gancio.Response{BaseURL: baseURL, StatusCode: 200, Body: []byte(body)}
}

func TestDispatcher_Push_CreateWhenUnbound(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	event := models.NewCanonicalEvent("Concert", "", 1714593600)

	f.bindings.On("GetByPostID", ctx, int64(42)).Return(nil, repositories.ErrNotFound)
	f.client.On("Create", ctx, event).Return(ok(`{"id": 7}`), nil)
	f.tx.On("InTransaction", ctx).Return()
	f.bindings.On("Upsert", ctx, &models.SyncBinding{PostID: 42, RemoteID: 7}).Return(nil).Once()
	f.logs.On("Insert", ctx, mock.AnythingOfType("*models.SyncLog")).Return(nil)

	result, err := f.d.Push(ctx, "eventorganiser", 42, event)
	require.NoError(t, err)

	assert.Equal(t, ActionCreated, result.Action)
	assert.Equal(t, models.SyncStatusSuccess, result.Status)
	assert.Equal(t, int64(7), *result.RemoteID)
	assert.Equal(t, baseURL+"/event/7", result.EventURL)

	f.client.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	f.bindings.AssertExpectations(t)

	outcome, found := f.store.Get(models.OutcomeKey(models.OutcomeSuccess, 42))
	require.True(t, found)
	assert.Equal(t, "Event updated. <a href='"+baseURL+"/event/7'>"+baseURL+"/event/7</a>", outcome.Message)
	assert.Equal(t, epoch.Add(time.Hour), outcome.ExpiresAt)

	require.Len(t, f.logs.entries, 1)
	assert.Equal(t, models.SyncOperationCreate, f.logs.entries[0].Operation)
	assert.Equal(t, "eventorganiser", f.logs.entries[0].Source)
}

func TestDispatcher_Push_UpdateWhenBound(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	event := models.NewCanonicalEvent("Concert", "", 1714593600)

	f.bindings.On("GetByPostID", ctx, int64(42)).Return(&models.SyncBinding{PostID: 42, RemoteID: 7}, nil)
	f.client.On("Update", ctx, mock.MatchedBy(func(e *models.CanonicalEvent) bool {
		return e.ID != nil && *e.ID == 7 && e.Title == "Concert"
	})).Return(ok(`{"id": 7, "slug": "concert"}`), nil)
	f.tx.On("InTransaction", ctx).Return()
	f.bindings.On("Upsert", ctx, &models.SyncBinding{PostID: 42, RemoteID: 7}).Return(nil)
	f.logs.On("Insert", ctx, mock.Anything).Return(nil)

	result, err := f.d.Push(ctx, "eventscalendar", 42, event)
	require.NoError(t, err)

	assert.Equal(t, ActionUpdated, result.Action)
	assert.Equal(t, baseURL+"/event/concert", result.EventURL)
	assert.Nil(t, event.ID, "caller's event must not be mutated")
	f.client.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestDispatcher_Push_TwiceWhenBoundKeepsBinding(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	event := models.NewCanonicalEvent("Concert", "", 1714593600)

	f.bindings.On("GetByPostID", ctx, int64(42)).Return(&models.SyncBinding{PostID: 42, RemoteID: 7}, nil)
	f.client.On("Update", ctx, mock.Anything).Return(ok(`{"id": 7, "slug": "concert"}`), nil)
	f.tx.On("InTransaction", ctx).Return()
	f.bindings.On("Upsert", ctx, &models.SyncBinding{PostID: 42, RemoteID: 7}).Return(nil)
	f.logs.On("Insert", ctx, mock.Anything).Return(nil)

	for i := 0; i < 2; i++ {
		_, err := f.d.Push(ctx, "eventscalendar", 42, event)
		require.NoError(t, err)
	}

	f.client.AssertNumberOfCalls(t, "Update", 2)
	f.bindings.AssertNumberOfCalls(t, "Upsert", 2)
	f.bindings.AssertCalled(t, "Upsert", ctx, &models.SyncBinding{PostID: 42, RemoteID: 7})
}

func TestDispatcher_Push_BindsNumericIDNeverSlug(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.bindings.On("GetByPostID", ctx, int64(1)).Return(nil, repositories.ErrNotFound)
	f.client.On("Create", ctx, mock.Anything).Return(ok(`{"id": 42, "slug": "my-event"}`), nil)
	f.tx.On("InTransaction", ctx).Return()
	f.bindings.On("Upsert", ctx, &models.SyncBinding{PostID: 1, RemoteID: 42}).Return(nil)
	f.logs.On("Insert", ctx, mock.Anything).Return(nil)

	result, err := f.d.Push(ctx, "eventorganiser", 1, models.NewCanonicalEvent("x", "", 1))
	require.NoError(t, err)
	assert.Equal(t, baseURL+"/event/my-event", result.EventURL)
	f.bindings.AssertExpectations(t)
}

func TestDispatcher_Push_RejectedStoresBodyVerbatim(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.bindings.On("GetByPostID", ctx, int64(42)).Return(nil, repositories.ErrNotFound)
	f.client.On("Create", ctx, mock.Anything).Return(&gancio.Response{
		BaseURL: baseURL, StatusCode: 401, Body: []byte("Invalid token"),
	}, nil)
	f.logs.On("Insert", ctx, mock.Anything).Return(nil)

	result, err := f.d.Push(ctx, "eventorganiser", 42, models.NewCanonicalEvent("x", "", 1))
	require.NoError(t, err)

	assert.Equal(t, ActionFailed, result.Action)
	assert.Equal(t, models.SyncStatusRejected, result.Status)
	assert.Equal(t, 401, result.StatusCode)

	outcome, found := f.store.Get(models.OutcomeKey(models.OutcomeError, 42))
	require.True(t, found)
	assert.Equal(t, "Invalid token", outcome.Message)
	assert.Equal(t, epoch.Add(45*time.Second), outcome.ExpiresAt)

	f.bindings.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	f.tx.AssertNotCalled(t, "InTransaction", mock.Anything)
	require.Len(t, f.logs.entries, 1)
	assert.Equal(t, "Invalid token", f.logs.entries[0].Message)
}

func TestDispatcher_Push_TransportErrorIsScopedPerPost(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	netErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection <refused>")}
	f.bindings.On("GetByPostID", ctx, int64(42)).Return(nil, repositories.ErrNotFound)
	f.client.On("Create", ctx, mock.Anything).Return(nil, services.WrapTransport("POST /api/event failed", netErr))
	f.logs.On("Insert", ctx, mock.Anything).Return(nil)

	result, err := f.d.Push(ctx, "eventorganiser", 42, models.NewCanonicalEvent("x", "", 1))
	require.NoError(t, err)

	assert.Equal(t, models.SyncStatusTransportError, result.Status)
	assert.Error(t, result.TransportErr)

	outcome, found := f.store.Get(models.OutcomeKey(models.OutcomeError, 42))
	require.True(t, found)
	assert.Equal(t, "dial tcp: connection &lt;refused&gt;", outcome.Message)

	_, found = f.store.Get("wpgancio_error_")
	assert.False(t, found)
	f.bindings.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestDispatcher_Push_ConfigMissing(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.bindings.On("GetByPostID", ctx, int64(42)).Return(nil, repositories.ErrNotFound)
	f.client.On("Create", ctx, mock.Anything).Return(nil, services.ErrConfigMissing)
	f.logs.On("Insert", ctx, mock.Anything).Return(nil)

	result, err := f.d.Push(ctx, "eventorganiser", 42, models.NewCanonicalEvent("x", "", 1))
	require.NoError(t, err)

	assert.Equal(t, models.SyncStatusConfigMissing, result.Status)
	outcome, found := f.store.Get(models.OutcomeKey(models.OutcomeError, 42))
	require.True(t, found)
	assert.Equal(t, "Gancio instance URL or token not configured", outcome.Message)
	f.bindings.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestDispatcher_Push_InvalidReply(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"string id", `{"id": "42"}`},
		{"fractional id", `{"id": 4.2}`},
		{"missing id", `{"slug": "x"}`},
		{"null id", `{"id": null}`},
		{"zero id", `{"id": 0}`},
		{"not json", `<html>oops</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture()

			f.bindings.On("GetByPostID", ctx, int64(42)).Return(nil, repositories.ErrNotFound)
			f.client.On("Create", ctx, mock.Anything).Return(ok(tt.body), nil)
			f.logs.On("Insert", ctx, mock.Anything).Return(nil)

			result, err := f.d.Push(ctx, "eventorganiser", 42, models.NewCanonicalEvent("x", "", 1))
			require.NoError(t, err)

			assert.Equal(t, models.SyncStatusInvalidReply, result.Status)
			outcome, found := f.store.Get(models.OutcomeKey(models.OutcomeError, 42))
			require.True(t, found)
			assert.Contains(t, outcome.Message, "Invalid response from Gancio: ")
			f.bindings.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
		})
	}
}

func TestDispatcher_Push_BindingReadError(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.bindings.On("GetByPostID", ctx, int64(42)).Return(nil, errors.New("db down"))

	_, err := f.d.Push(ctx, "eventorganiser", 42, models.NewCanonicalEvent("x", "", 1))
	assert.True(t, services.IsInternalError(err))
	f.client.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestDispatcher_Push_LogFailureStillBinds(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.bindings.On("GetByPostID", ctx, int64(42)).Return(nil, repositories.ErrNotFound)
	f.client.On("Create", ctx, mock.Anything).Return(ok(`{"id": 7}`), nil)
	f.tx.On("InTransaction", ctx).Return()
	f.bindings.On("Upsert", ctx, &models.SyncBinding{PostID: 42, RemoteID: 7}).Return(nil)
	f.logs.On("Insert", ctx, mock.Anything).Return(errors.New("table missing"))

	result, err := f.d.Push(ctx, "eventorganiser", 42, models.NewCanonicalEvent("x", "", 1))
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusSuccess, result.Status)
	f.bindings.AssertNumberOfCalls(t, "Upsert", 2)
}

func TestDispatcher_Push_OutcomeExpires(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.bindings.On("GetByPostID", ctx, int64(42)).Return(nil, repositories.ErrNotFound)
	f.client.On("Create", ctx, mock.Anything).Return(&gancio.Response{StatusCode: 500, Body: []byte("boom")}, nil)
	f.logs.On("Insert", ctx, mock.Anything).Return(nil)

	_, err := f.d.Push(ctx, "eventorganiser", 42, models.NewCanonicalEvent("x", "", 1))
	require.NoError(t, err)

	f.now = epoch.Add(45 * time.Second)
	_, found := f.store.Get(models.OutcomeKey(models.OutcomeError, 42))
	assert.False(t, found)
}

func TestDispatcher_Remove(t *testing.T) {
	ctx := context.Background()
	binding := &models.SyncBinding{PostID: 42, RemoteID: 7}

	t.Run("deletes remote event and binding", func(t *testing.T) {
		f := newFixture()
		f.client.On("Delete", ctx, int64(7)).Return(&gancio.Response{StatusCode: 200}, nil).Once()
		f.bindings.On("Delete", ctx, int64(42)).Return(nil)
		f.logs.On("Insert", ctx, mock.Anything).Return(nil)

		result, err := f.d.Remove(ctx, "eventorganiser", binding)
		require.NoError(t, err)
		assert.Equal(t, ActionDeleted, result.Action)
		assert.Equal(t, 200, result.Response.StatusCode)
		f.client.AssertExpectations(t)
		f.bindings.AssertExpectations(t)
		require.Len(t, f.logs.entries, 1)
		assert.Equal(t, models.SyncOperationDelete, f.logs.entries[0].Operation)
	})

	t.Run("transport failure still drops binding", func(t *testing.T) {
		f := newFixture()
		f.client.On("Delete", ctx, int64(7)).Return(nil, services.WrapTransport("DELETE failed", errors.New("timeout")))
		f.bindings.On("Delete", ctx, int64(42)).Return(nil)
		f.logs.On("Insert", ctx, mock.Anything).Return(nil)

		result, err := f.d.Remove(ctx, "eventorganiser", binding)
		require.NoError(t, err)
		assert.Equal(t, models.SyncStatusTransportError, result.Status)
		assert.Error(t, result.TransportErr)
		f.bindings.AssertExpectations(t)
	})

	t.Run("config missing keeps binding", func(t *testing.T) {
		f := newFixture()
		f.client.On("Delete", ctx, int64(7)).Return(nil, services.ErrConfigMissing)
		f.logs.On("Insert", ctx, mock.Anything).Return(nil)

		result, err := f.d.Remove(ctx, "eventorganiser", binding)
		require.NoError(t, err)
		assert.Equal(t, ActionFailed, result.Action)
		f.bindings.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

func TestParseEventReply(t *testing.T) {
	id, slug, err := parseEventReply([]byte(`{"id": 42, "slug": " my-event "}`))
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "my-event", slug)

	id, slug, err = parseEventReply([]byte(`{"id":42,"slug":null,"title":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Empty(t, slug)
}

func TestDispatcher_Push_EventURLIsRawMessageIsEscaped(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	event := models.NewCanonicalEvent("Rock & Roll", "", 1714593600)

	f.bindings.On("GetByPostID", ctx, int64(42)).Return(nil, repositories.ErrNotFound)
	f.client.On("Create", ctx, event).Return(ok(`{"id": 9, "slug": "rock&roll"}`), nil)
	f.tx.On("InTransaction", ctx).Return()
	f.bindings.On("Upsert", ctx, &models.SyncBinding{PostID: 42, RemoteID: 9}).Return(nil)
	f.logs.On("Insert", ctx, mock.Anything).Return(nil)

	result, err := f.d.Push(ctx, "eventorganiser", 42, event)
	require.NoError(t, err)

	assert.Equal(t, baseURL+"/event/rock&roll", result.EventURL)
	assert.Equal(t, "Event updated. <a href='"+baseURL+"/event/rock&amp;roll'>"+baseURL+"/event/rock&amp;roll</a>", result.Message)
}

func TestDispatcher_Reject(t *testing.T) {
	f := newFixture()

	result := f.d.Reject("eventorganiser", 42, "event has no start date")

	assert.Equal(t, ActionFailed, result.Action)
	assert.Equal(t, models.SyncStatusInvalidEvent, result.Status)
	assert.Nil(t, result.RemoteID)

	outcome, found := f.store.Get(models.OutcomeKey(models.OutcomeError, 42))
	require.True(t, found)
	assert.Equal(t, "Event not synchronized: event has no start date", outcome.Message)
	assert.Equal(t, epoch.Add(45*time.Second), outcome.ExpiresAt)

	f.client.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.bindings.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	assert.Empty(t, f.logs.entries)
}
