package mirror

import (
	"context"
	"sort"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/labreport-backend/internal/platform/logger"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, "lr:", logger.Nop()), mr
}

func TestRedisStoreUpsertOverwrites(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, Snapshot{
		ReportID: "ext-1",
		Parameters: []Entry{
			{ParameterName: "Hemoglobin", Status: "pending"},
			{ParameterName: "Serum Sodium", Status: "approved"},
		},
	}))
	assert.True(t, mr.Exists("lr:mirror:report:ext-1"))

	require.NoError(t, store.Upsert(ctx, Snapshot{
		ReportID:   "ext-1",
		Parameters: []Entry{{ParameterName: "Hemoglobin", Status: "approved"}},
	}))

	got, err := store.Get(ctx, "ext-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []Entry{{ParameterName: "Hemoglobin", Status: "approved"}}, got.Parameters)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestRedisStoreGetMissing(t *testing.T) {
	store, _ := newRedisStore(t)
	got, err := store.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStoreEmptySnapshotEncodesEmptyList(t *testing.T) {
	store, mr := newRedisStore(t)
	require.NoError(t, store.Upsert(context.Background(), Snapshot{ReportID: "ext-2"}))
	raw, err := mr.Get("lr:mirror:report:ext-2")
	require.NoError(t, err)
	assert.Contains(t, raw, `"parameters":[]`)
}

func TestRedisStoreListByStatus(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, Snapshot{ReportID: "a", Parameters: []Entry{
		{ParameterName: "Hemoglobin", Status: "pending"},
		{ParameterName: "Glucose", Status: "approved"},
	}}))
	require.NoError(t, store.Upsert(ctx, Snapshot{ReportID: "b", Parameters: []Entry{
		{ParameterName: "Creatinine", Status: "pending"},
	}}))
	require.NoError(t, mr.Set("lr:mirror:report:broken", "{not json"))
	require.NoError(t, mr.Set("other:key", "ignored"))

	got, err := store.ListByStatus(ctx, "pending")
	require.NoError(t, err)
	sort.Slice(got, func(i, j int) bool { return got[i].ReportID < got[j].ReportID })
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ReportID)
	assert.Equal(t, "Hemoglobin", got[0].ParameterName)
	assert.Equal(t, "b", got[1].ReportID)
	assert.Equal(t, "Creatinine", got[1].ParameterName)
}

func TestRedisStoreRejectsMissingReportID(t *testing.T) {
	store, _ := newRedisStore(t)
	assert.Error(t, store.Upsert(context.Background(), Snapshot{}))
}

func TestIsLocal(t *testing.T) {
	store, _ := newRedisStore(t)
	assert.False(t, IsLocal(store))
	assert.True(t, IsLocal(NewMemoryStore()))
	assert.True(t, IsLocal(nil))
}
