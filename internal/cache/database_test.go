package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/issuerelay/internal/database/testutil"
	"github.com/charlesng35/issuerelay/internal/models"
)

func newTestStore(t *testing.T) *DatabaseStore {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store, err := NewDatabaseStore(db)
	require.NoError(t, err)
	return store
}

func TestDatabaseStoreUpsertAndGetLive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := fixtureIssue(42, "Bug")
	require.NoError(t, store.Upsert(ctx, "octo", "repo", 42, record, time.Now().Add(time.Minute)))

	got, found, err := store.GetLive(ctx, "octo", "repo", 42)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "Bug", got.Title)
	require.Equal(t, record.Labels, got.Labels)
	require.True(t, record.CreatedAt.Equal(got.CreatedAt))

	_, found, err = store.GetLive(ctx, "octo", "other", 42)
	require.NoError(t, err)
	require.False(t, found)
}

func TestDatabaseStoreUpsertReplacesWholeRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "octo", "repo", 1, fixtureIssue(1, "First"), time.Now().Add(time.Minute)))

	replacement := fixtureIssue(1, "Second")
	replacement.Body = nil
	replacement.Labels = nil
	require.NoError(t, store.Upsert(ctx, "octo", "repo", 1, replacement, time.Now().Add(time.Hour)))

	got, found, err := store.GetLive(ctx, "octo", "repo", 1)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "Second", got.Title)
	require.Nil(t, got.Body)
	require.Empty(t, got.Labels)

	count, err := store.CountLive(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestDatabaseStoreExpiredRowsAreAbsentButKept(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	store.now = func() time.Time { return now }
	require.NoError(t, store.Upsert(ctx, "octo", "repo", 5, fixtureIssue(5, "Soon stale"), now.Add(time.Second)))

	store.now = func() time.Time { return now.Add(time.Second) }

	_, found, err := store.GetLive(ctx, "octo", "repo", 5)
	require.NoError(t, err)
	require.False(t, found, "row is not live at its expiry instant")

	live, err := store.CountLive(ctx)
	require.NoError(t, err)
	require.Zero(t, live)

	var physical int64
	require.NoError(t, store.db.Model(&models.CachedIssue{}).Count(&physical).Error)
	require.Equal(t, int64(1), physical, "expired rows wait for purge")
}

func TestDatabaseStorePurgeExpiredIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	store.now = func() time.Time { return now }
	require.NoError(t, store.Upsert(ctx, "octo", "repo", 1, fixtureIssue(1, "old"), now.Add(-time.Minute)))
	require.NoError(t, store.Upsert(ctx, "octo", "repo", 2, fixtureIssue(2, "older"), now.Add(-time.Hour)))
	require.NoError(t, store.Upsert(ctx, "octo", "repo", 3, fixtureIssue(3, "fresh"), now.Add(time.Hour)))

	removed, err := store.PurgeExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), removed)

	removed, err = store.PurgeExpired(ctx)
	require.NoError(t, err)
	require.Zero(t, removed)

	_, found, err := store.GetLive(ctx, "octo", "repo", 3)
	require.NoError(t, err)
	require.True(t, found)
}

func TestDatabaseStoreDeleteAndDeleteAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	expires := time.Now().Add(time.Minute)

	require.NoError(t, store.Delete(ctx, "octo", "repo", 404), "absent rows are not an error")

	for n := 1; n <= 3; n++ {
		require.NoError(t, store.Upsert(ctx, "octo", "repo", n, fixtureIssue(n, "issue"), expires))
	}

	require.NoError(t, store.Delete(ctx, "octo", "repo", 1))
	count, err := store.CountLive(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	require.NoError(t, store.DeleteAll(ctx))
	count, err = store.CountLive(ctx)
	require.NoError(t, err)
	require.Zero(t, count)

	require.NoError(t, store.DeleteAll(ctx))
}

func TestDatabaseStoreRejectsInvalidRecord(t *testing.T) {
	store := newTestStore(t)

	bad := fixtureIssue(1, "bad")
	bad.State = "merged"
	require.Error(t, store.Upsert(context.Background(), "octo", "repo", 1, bad, time.Now().Add(time.Minute)))
	require.Error(t, store.Upsert(context.Background(), "octo", "repo", 1, nil, time.Now().Add(time.Minute)))
}

func TestDatabaseStoreRejectsCorruptRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "octo", "repo", 1, fixtureIssue(1, "ok"), time.Now().Add(time.Minute)))
	require.NoError(t, store.db.Model(&models.CachedIssue{}).
		Where("number = ?", 1).
		Update("state", "merged").Error)

	_, found, err := store.GetLive(ctx, "octo", "repo", 1)
	require.Error(t, err)
	require.False(t, found)
}

func TestDatabaseStoreNotInitialised(t *testing.T) {
	missing, err := NewDatabaseStore(nil)
	require.ErrorIs(t, err, errStoreNotInitialised)
	require.Nil(t, missing)

	var store *DatabaseStore
	ctx := context.Background()

	_, _, err = store.GetLive(ctx, "octo", "repo", 1)
	require.ErrorIs(t, err, errStoreNotInitialised)
	require.ErrorIs(t, store.Upsert(ctx, "octo", "repo", 1, fixtureIssue(1, "x"), time.Now()), errStoreNotInitialised)
	require.ErrorIs(t, store.Delete(ctx, "octo", "repo", 1), errStoreNotInitialised)
	require.ErrorIs(t, store.DeleteAll(ctx), errStoreNotInitialised)
	_, err = store.CountLive(ctx)
	require.ErrorIs(t, err, errStoreNotInitialised)
	_, err = store.PurgeExpired(ctx)
	require.ErrorIs(t, err, errStoreNotInitialised)
}
