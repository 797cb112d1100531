package history

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/taskhub/domain"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func run(job string, started time.Time, status domain.JobStatus) domain.JobRun {
	return domain.JobRun{
		ID:         fmt.Sprintf("%s-%d", job, started.Unix()),
		Job:        job,
		Trigger:    "cron",
		Status:     status,
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
	}
}

func TestRecordAndRecent(t *testing.T) {
	store := openStore(t)
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(run("sync_team_tasks", base.Add(time.Duration(i)*time.Minute), domain.JobSuccess)))
	}
	require.NoError(t, store.Record(run("send_daily_summary", base, domain.JobFailure)))

	recent, err := store.Recent("sync_team_tasks", 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, base.Add(4*time.Minute), recent[0].StartedAt.UTC())
	assert.Equal(t, base.Add(2*time.Minute), recent[2].StartedAt.UTC())

	summary, err := store.Recent("send_daily_summary", 0)
	require.NoError(t, err)
	require.Len(t, summary, 1)
	assert.Equal(t, domain.JobFailure, summary[0].Status)

	none, err := store.Recent("unknown", 10)
	require.NoError(t, err)
	assert.Empty(t, none)

	size, err := store.Size()
	require.NoError(t, err)
	assert.Equal(t, 6, size)
}

func TestRecordRequiresJob(t *testing.T) {
	store := openStore(t)
	assert.Error(t, store.Record(domain.JobRun{ID: "x"}))
}

func TestCleanup(t *testing.T) {
	store := openStore(t)
	cutoff := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Record(run("a", cutoff.Add(-48*time.Hour), domain.JobSuccess)))
	require.NoError(t, store.Record(run("a", cutoff.Add(-time.Minute), domain.JobSuccess)))
	require.NoError(t, store.Record(run("a", cutoff.Add(time.Minute), domain.JobSuccess)))
	require.NoError(t, store.Record(run("b", cutoff.Add(-time.Hour), domain.JobFailure)))

	removed, err := store.Cleanup(cutoff)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	left, err := store.Recent("a", 10)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.True(t, left[0].StartedAt.After(cutoff))

	size, _ := store.Size()
	assert.Equal(t, 1, size)
}

func TestClosedStore(t *testing.T) {
	var store *Store
	assert.Error(t, store.Record(run("a", time.Now(), domain.JobSuccess)))
	_, err := store.Recent("a", 1)
	assert.Error(t, err)
	assert.NoError(t, store.Close())
}
