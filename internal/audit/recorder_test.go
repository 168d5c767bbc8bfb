package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/auth"
	"storefront/internal/logger"
	"storefront/internal/metrics"
	"storefront/internal/models"
	"storefront/internal/repository"
	"storefront/internal/repository/memstore"
)

type mockLogRepo struct {
	mock.Mock
}

func (m *mockLogRepo) Insert(ctx context.Context, entry *models.AdminLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *mockLogRepo) List(ctx context.Context, filter repository.AdminLogFilter, page, limit int) ([]models.AdminLog, int64, error) {
	args := m.Called(ctx, filter, page, limit)
	return args.Get(0).([]models.AdminLog), args.Get(1).(int64), args.Error(2)
}

func actor() *auth.Session {
	return &auth.Session{UserID: primitive.NewObjectID(), Email: "master@shop.test", Role: models.RoleMasterAdmin}
}

func TestRecordWritesEntry(t *testing.T) {
	store := memstore.NewAdminLogs()
	rec := NewAsyncRecorder(store, logger.Nop(), nil, 4)

	target := &models.User{ID: primitive.NewObjectID(), Email: "t@shop.test"}
	ctx := WithClientIP(context.Background(), "10.0.0.1")
	rec.Record(ctx, NewEntry(actor(), models.ActionAdminDeleted, target, "deleted admin"))

	require.NoError(t, rec.Close(context.Background()))

	entries := store.All()
	require.Len(t, entries, 1)
	assert.Equal(t, models.ActionAdminDeleted, entries[0].Action)
	assert.Equal(t, "t@shop.test", entries[0].TargetEmail)
	assert.Equal(t, target.ID, *entries[0].TargetUserID)
	assert.Equal(t, "10.0.0.1", entries[0].IPAddress)
	assert.False(t, entries[0].CreatedAt.IsZero())
}

func TestRecordSwallowsWriteFailure(t *testing.T) {
	repo := &mockLogRepo{}
	repo.On("Insert", mock.Anything, mock.Anything).Return(errors.New("write concern timeout"))
	m := metrics.New("test", prometheus.NewRegistry())
	rec := NewAsyncRecorder(repo, logger.Nop(), m, 4)

	rec.Record(context.Background(), NewEntry(actor(), models.ActionPasswordChanged, nil, "reset"))
	require.NoError(t, rec.Close(context.Background()))

	repo.AssertNumberOfCalls(t, "Insert", 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditRecorded.WithLabelValues("failed")))
}

func TestRecordRejectsUnknownAction(t *testing.T) {
	store := memstore.NewAdminLogs()
	m := metrics.New("test", prometheus.NewRegistry())
	rec := NewAsyncRecorder(store, logger.Nop(), m, 4)

	rec.Record(context.Background(), NewEntry(actor(), models.AdminAction("coupon_created"), nil, ""))
	require.NoError(t, rec.Close(context.Background()))

	assert.Empty(t, store.All())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditRecorded.WithLabelValues("rejected")))
}

type blockingRepo struct {
	release chan struct{}
	store   *memstore.AdminLogs
}

func (b *blockingRepo) Insert(ctx context.Context, entry *models.AdminLog) error {
	<-b.release
	return b.store.Insert(ctx, entry)
}

func (b *blockingRepo) List(ctx context.Context, f repository.AdminLogFilter, page, limit int) ([]models.AdminLog, int64, error) {
	return b.store.List(ctx, f, page, limit)
}

func TestRecordDropsWhenQueueFull(t *testing.T) {
	repo := &blockingRepo{release: make(chan struct{}), store: memstore.NewAdminLogs()}
	m := metrics.New("test", prometheus.NewRegistry())
	rec := NewAsyncRecorder(repo, logger.Nop(), m, 1)

	// The worker holds the first entry, the queue holds the second.
	rec.Record(context.Background(), NewEntry(actor(), models.ActionUserUpdated, nil, "1"))
	assert.Eventually(t, func() bool { return len(rec.queue) == 0 }, time.Second, 5*time.Millisecond)
	rec.Record(context.Background(), NewEntry(actor(), models.ActionUserUpdated, nil, "2"))
	rec.Record(context.Background(), NewEntry(actor(), models.ActionUserUpdated, nil, "3"))

	close(repo.release)
	require.NoError(t, rec.Close(context.Background()))

	assert.Len(t, repo.store.All(), 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditRecorded.WithLabelValues("dropped")))
}

func TestRecordAfterCloseIsDropped(t *testing.T) {
	store := memstore.NewAdminLogs()
	rec := NewAsyncRecorder(store, logger.Nop(), nil, 4)
	require.NoError(t, rec.Close(context.Background()))
	require.NoError(t, rec.Close(context.Background()))

	assert.NotPanics(t, func() {
		rec.Record(context.Background(), NewEntry(actor(), models.ActionAdminCreated, nil, ""))
	})
	assert.Empty(t, store.All())
}
