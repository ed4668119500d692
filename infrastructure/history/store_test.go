package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audioprep/domain/history"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "state", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_StartFinishRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	run := history.Run{ID: "run-1", SourceURL: "https://youtu.be/abc", StartedAt: started}
	require.NoError(t, store.Start(ctx, run))

	runs, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, history.StatusRunning, runs[0].Status)
	assert.True(t, runs[0].FinishedAt.IsZero())

	run.Title = "Sunday Service"
	run.CleanedPath = "downloads/Sunday_Service_clean.wav"
	run.Status = history.StatusSucceeded
	run.FinishedAt = started.Add(90 * time.Second)
	require.NoError(t, store.Finish(ctx, run))

	runs, err = store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	got := runs[0]
	assert.Equal(t, "Sunday Service", got.Title)
	assert.Equal(t, history.StatusSucceeded, got.Status)
	assert.Equal(t, "downloads/Sunday_Service_clean.wav", got.CleanedPath)
	assert.Equal(t, 90*time.Second, got.Duration())
	assert.True(t, got.StartedAt.Equal(started))
}

func TestStore_FinishWithoutStart(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run := history.Run{
		ID:          "run-x",
		SourceURL:   "https://example.invalid",
		Status:      history.StatusFailed,
		FailedStage: "fetch",
		Error:       "fetch stage: unsupported URL",
		StartedAt:   time.Now(),
		FinishedAt:  time.Now(),
	}
	require.NoError(t, store.Finish(ctx, run))

	runs, err := store.Recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "fetch", runs[0].FailedStage)
	assert.Equal(t, history.StatusFailed, runs[0].Status)
}

func TestStore_RecentOrderAndLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Start(ctx, history.Run{
			ID:        id,
			SourceURL: "u",
			StartedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	runs, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
}

func TestStore_DuplicateStartFails(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run := history.Run{ID: "dup", SourceURL: "u", StartedAt: time.Now()}
	require.NoError(t, store.Start(ctx, run))
	assert.Error(t, store.Start(ctx, run))
}

func TestStore_ReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Start(context.Background(), history.Run{ID: "r", SourceURL: "u", StartedAt: time.Now()}))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	runs, err := reopened.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
	assert.Equal(t, path, reopened.Path())
}

type busyErr struct{}

func (busyErr) Error() string { return "database is locked" }

func TestRetryOnBusy(t *testing.T) {
	calls := 0
	err := retryOnBusy(context.Background(), func() error {
		calls++
		if calls < 3 {
			return busyErr{}
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	plain := errors.New("syntax error")
	err = retryOnBusy(context.Background(), func() error {
		calls++
		return plain
	})
	assert.ErrorIs(t, err, plain)
	assert.Equal(t, 1, calls)
}

func TestNilStoreClose(t *testing.T) {
	var s *Store
	assert.NoError(t, s.Close())
}
