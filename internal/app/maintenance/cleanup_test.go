package maintenance

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/issuerelay/internal/cache"
	testutil "github.com/charlesng35/issuerelay/internal/database/testutil"
	"github.com/charlesng35/issuerelay/internal/issue"
	"github.com/charlesng35/issuerelay/internal/monitoring"
)

type stubPurger struct {
	calls atomic.Int64
	err   error
}

func (s *stubPurger) PurgeExpired(context.Context) (int64, error) {
	s.calls.Add(1)
	return 2, s.err
}

func useMonitoring(t *testing.T) {
	t.Helper()
	module, err := monitoring.NewModule(monitoring.Options{})
	require.NoError(t, err)
	monitoring.SetModule(module)
}

func TestCleanerRunOnce(t *testing.T) {
	useMonitoring(t)
	purger := &stubPurger{}
	cleaner := NewCleaner(purger)

	require.NoError(t, cleaner.RunOnce(context.Background()))
	require.EqualValues(t, 1, purger.calls.Load())

	summary := monitoring.Snapshot()
	require.Len(t, summary.Maintenance.Jobs, 1)
	require.Equal(t, JobCachePurge, summary.Maintenance.Jobs[0].Job)
	require.EqualValues(t, 1, summary.Maintenance.Jobs[0].TotalRuns)
	require.Zero(t, summary.Maintenance.Jobs[0].ConsecutiveFailures)
}

func TestCleanerRunOnceAggregatesErrors(t *testing.T) {
	useMonitoring(t)
	purger := &stubPurger{err: errors.New("database is locked")}
	cleaner := NewCleaner(purger)

	err := cleaner.RunOnce(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), JobCachePurge)
	require.Contains(t, err.Error(), "database is locked")

	summary := monitoring.Snapshot()
	require.Len(t, summary.Maintenance.Jobs, 1)
	require.EqualValues(t, 1, summary.Maintenance.Jobs[0].ConsecutiveFailures)
}

func TestCleanerPurgesExpiredRows(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	store, err := cache.NewDatabaseStore(db)
	require.NoError(t, err)
	svc, err := cache.NewService(store)
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	ctx := context.Background()
	shortLived := &issue.Issue{Number: 1, Title: "Crash", State: issue.StateOpen, Author: issue.Author{Login: "octocat"}}
	longLived := &issue.Issue{Number: 2, Title: "Slow", State: issue.StateOpen, Author: issue.Author{Login: "octocat"}}
	require.NoError(t, svc.Set(ctx, cache.IssueKey("octo", "hello", 1), shortLived, 20*time.Millisecond))
	require.NoError(t, svc.Set(ctx, cache.IssueKey("octo", "hello", 2), longLived, time.Hour))

	time.Sleep(100 * time.Millisecond)

	require.NoError(t, NewCleaner(svc).RunOnce(ctx))

	var rows int64
	require.NoError(t, db.Table("cached_issues").Count(&rows).Error)
	require.EqualValues(t, 1, rows)
}

func TestCleanerStartSchedulesJobs(t *testing.T) {
	scheduler := cron.New(cron.WithLogger(cron.DiscardLogger))
	cleaner := NewCleaner(&stubPurger{}, WithCron(scheduler), WithPurgeSchedule("@every 1h"))

	require.NoError(t, cleaner.Start())
	t.Cleanup(func() { <-cleaner.Stop().Done() })

	require.Len(t, scheduler.Entries(), 1)
}

func TestCleanerStartRejectsBadSchedule(t *testing.T) {
	cleaner := NewCleaner(&stubPurger{}, WithPurgeSchedule("every now and then"))
	require.Error(t, cleaner.Start())
}

func TestCleanerWithoutPurgerIsNoop(t *testing.T) {
	scheduler := cron.New(cron.WithLogger(cron.DiscardLogger))
	cleaner := NewCleaner(nil, WithCron(scheduler))

	require.NoError(t, cleaner.Start())
	require.Empty(t, scheduler.Entries())
	require.NoError(t, cleaner.RunOnce(context.Background()))
}
