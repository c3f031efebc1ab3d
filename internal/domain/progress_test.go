package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampPercent(t *testing.T) {
	cases := map[int]int{-20: 0, 0: 0, 55: 55, 100: 100, 250: 100}
	for in, want := range cases {
		if got := ClampPercent(in); got != want {
			t.Errorf("ClampPercent(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestValidateProgressKey(t *testing.T) {
	if err := ValidateProgressKey(1, "v1"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := ValidateProgressKey(0, "v1"); err != ErrInvalidUserID {
		t.Errorf("Expected %v, got %v", ErrInvalidUserID, err)
	}
	if err := ValidateProgressKey(-3, "v1"); err != ErrInvalidUserID {
		t.Errorf("Expected %v, got %v", ErrInvalidUserID, err)
	}
	if err := ValidateProgressKey(1, "  "); err != ErrEmptyVideoID {
		t.Errorf("Expected %v, got %v", ErrEmptyVideoID, err)
	}
}

func TestNormalize(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reported := now.Add(-time.Hour)

	t.Run("progress event drops completion time", func(t *testing.T) {
		u := ProgressUpdate{Progress: 140, WatchedPercentage: -1, CompletedAt: &reported}.Normalize(now)
		assert.Equal(t, 100, u.Progress)
		assert.Equal(t, 0, u.WatchedPercentage)
		assert.Nil(t, u.CompletedAt)
	})

	t.Run("completion event keeps reported time", func(t *testing.T) {
		u := ProgressUpdate{Completed: true, CompletedAt: &reported}.Normalize(now)
		require.NotNil(t, u.CompletedAt)
		assert.Equal(t, reported, *u.CompletedAt)
	})

	t.Run("completion event without time uses now", func(t *testing.T) {
		u := ProgressUpdate{Completed: true}.Normalize(now)
		require.NotNil(t, u.CompletedAt)
		assert.Equal(t, now, *u.CompletedAt)
	})
}

func TestMergeProgress_FirstWrite(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := MergeProgress(nil, 7, "v1", ProgressUpdate{Progress: 30, WatchedPercentage: 25}, now)

	assert.Equal(t, int64(7), rec.UserID)
	assert.Equal(t, "v1", rec.VideoID)
	assert.Equal(t, 30, rec.Progress)
	assert.Equal(t, 25, rec.WatchedPercentage)
	assert.False(t, rec.Completed)
	assert.Nil(t, rec.CompletedAt)
	assert.Equal(t, now, rec.CreatedAt)
	assert.Equal(t, now, rec.UpdatedAt)
}

func TestMergeProgress_NeverDowngrades(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	completedAt := t0.Add(-time.Minute)

	rec := MergeProgress(nil, 7, "v1", ProgressUpdate{Progress: 80, WatchedPercentage: 90, Completed: true, CompletedAt: &completedAt}, t0)
	rec = MergeProgress(&rec, 7, "v1", ProgressUpdate{Progress: 10, WatchedPercentage: 5}, t0.Add(time.Minute))

	assert.Equal(t, 80, rec.Progress)
	assert.Equal(t, 90, rec.WatchedPercentage)
	assert.True(t, rec.Completed)
	require.NotNil(t, rec.CompletedAt)
	assert.Equal(t, completedAt, *rec.CompletedAt)
	assert.Equal(t, t0, rec.CreatedAt)
	assert.Equal(t, t0.Add(time.Minute), rec.UpdatedAt)
}

func TestMergeProgress_CompletedAtSetOnce(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first := t0
	second := t0.Add(time.Hour)

	rec := MergeProgress(nil, 7, "v1", ProgressUpdate{Completed: true, CompletedAt: &first}, t0)
	rec = MergeProgress(&rec, 7, "v1", ProgressUpdate{Completed: true, CompletedAt: &second}, second)

	require.NotNil(t, rec.CompletedAt)
	assert.Equal(t, first, *rec.CompletedAt)
}

// Two events for (7, "v1") racing in either order converge to the same state.
func TestMergeProgress_RacingEventsConverge(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	completedAt := now.Add(-30 * time.Second)

	tick := ProgressUpdate{Progress: 40, Completed: false}
	done := ProgressUpdate{Progress: 10, Completed: true, CompletedAt: &completedAt}

	a := MergeProgress(nil, 7, "v1", tick, now)
	a = MergeProgress(&a, 7, "v1", done, now)

	b := MergeProgress(nil, 7, "v1", done, now)
	b = MergeProgress(&b, 7, "v1", tick, now)

	for _, rec := range []ProgressRecord{a, b} {
		assert.Equal(t, 40, rec.Progress)
		assert.True(t, rec.Completed)
		require.NotNil(t, rec.CompletedAt)
		assert.Equal(t, completedAt, *rec.CompletedAt)
	}
}

// For every ordering of a set of events the monotonic fields end up equal to
// the OR / maximum of the inputs and never decrease between two calls.
func TestMergeProgress_OrderIndependent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	at := now.Add(-time.Hour)

	events := []ProgressUpdate{
		{Progress: 20, WatchedPercentage: 35},
		{Progress: 65, WatchedPercentage: 10},
		{Progress: 5, WatchedPercentage: 50, Completed: true, CompletedAt: &at},
		{Progress: 120, WatchedPercentage: -4},
	}

	wantProgress, wantWatched, wantCompleted := 0, 0, false
	for _, e := range events {
		n := e.Normalize(now)
		wantProgress = max(wantProgress, n.Progress)
		wantWatched = max(wantWatched, n.WatchedPercentage)
		wantCompleted = wantCompleted || n.Completed
	}

	for _, order := range permutations(len(events)) {
		var rec *ProgressRecord
		for _, idx := range order {
			next := MergeProgress(rec, 7, "v1", events[idx], now)
			if rec != nil {
				assert.GreaterOrEqual(t, next.Progress, rec.Progress)
				assert.GreaterOrEqual(t, next.WatchedPercentage, rec.WatchedPercentage)
				assert.False(t, rec.Completed && !next.Completed, "completed flag downgraded")
			}
			rec = &next
		}

		assert.Equal(t, wantProgress, rec.Progress, "order %v", order)
		assert.Equal(t, wantWatched, rec.WatchedPercentage, "order %v", order)
		assert.Equal(t, wantCompleted, rec.Completed, "order %v", order)
		require.NotNil(t, rec.CompletedAt)
		assert.Equal(t, at, *rec.CompletedAt)
	}
}

func TestMergeProgress_Idempotent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	u := ProgressUpdate{Progress: 55, WatchedPercentage: 60, Completed: true}

	once := MergeProgress(nil, 7, "v1", u, now)
	twice := MergeProgress(&once, 7, "v1", u, now)

	assert.Equal(t, once, twice)
}

func permutations(n int) [][]int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	var out [][]int
	var walk func(k int)
	walk = func(k int) {
		if k == n {
			out = append(out, append([]int(nil), idx...))
			return
		}
		for i := k; i < n; i++ {
			idx[k], idx[i] = idx[i], idx[k]
			walk(k + 1)
			idx[k], idx[i] = idx[i], idx[k]
		}
	}
	walk(0)
	return out
}
