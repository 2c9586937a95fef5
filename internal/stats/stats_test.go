package stats

import (
	"context"
	"testing"
	"time"

	"github.com/ProfiFlow/backend/internal/tracker"

	"github.com/stretchr/testify/require"
)

func stubNow(t *testing.T, fixed time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = prev })
}

func intPtr(v int) *int { return &v }

func status(key string) tracker.TaskStatus { return tracker.TaskStatus{Key: key} }

func timePtr(v time.Time) *time.Time { return &v }

func noLoggedTime(ctx context.Context, taskID string) (float64, error) {
	return 0, nil
}

func TestAggregate_EmptyTaskList(t *testing.T) {
	st, err := Aggregate(context.Background(), nil, noLoggedTime)
	require.NoError(t, err)
	require.Equal(t, SprintStats{}, st)
}

func TestAggregate_SumsStoryPointsAndCounts(t *testing.T) {
	stubNow(t, time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC))

	deadline := time.Date(2025, 5, 25, 0, 0, 0, 0, time.UTC)
	tasks := []tracker.Task{
		{ID: "1", Key: "PF-1", StoryPoints: intPtr(5), Status: status(tracker.StatusDone), ResolvedAt: timePtr(deadline.AddDate(0, 0, -1)), Deadline: &deadline},
		{ID: "2", Key: "PF-2", StoryPoints: intPtr(3), Status: status("in_progress")},
		{ID: "3", Key: "PF-3", Status: status("open")},
	}

	logged := map[string]float64{"1": 8.0}
	st, err := Aggregate(context.Background(), tasks, func(ctx context.Context, taskID string) (float64, error) {
		return logged[taskID], nil
	})
	require.NoError(t, err)
	require.Equal(t, 8, st.TotalStoryPoints)
	require.Equal(t, 3, st.TotalTasks)
	require.Equal(t, 0, st.DeadlinesMissed)
	// Logged hours of done tasks divided by ALL tasks.
	require.InDelta(t, 8.0/3.0, st.AverageCompletionTime, 1e-9)
}

func TestAggregate_DeadlineMissedWhenResolvedAfterDeadline(t *testing.T) {
	stubNow(t, time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC))

	deadline := time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC)
	tasks := []tracker.Task{
		{ID: "1", Status: status(tracker.StatusDone), Deadline: &deadline, ResolvedAt: timePtr(deadline.Add(time.Hour))},
	}

	st, err := Aggregate(context.Background(), tasks, noLoggedTime)
	require.NoError(t, err)
	require.Equal(t, 1, st.DeadlinesMissed)
}

func TestAggregate_ResolvedExactlyAtDeadlineIsNotMissed(t *testing.T) {
	stubNow(t, time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC))

	deadline := time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC)
	tasks := []tracker.Task{
		{ID: "1", Status: status(tracker.StatusDone), Deadline: &deadline, ResolvedAt: &deadline},
	}

	st, err := Aggregate(context.Background(), tasks, noLoggedTime)
	require.NoError(t, err)
	require.Equal(t, 0, st.DeadlinesMissed)
}

func TestAggregate_OpenTaskWithPastDeadlineIsMissed(t *testing.T) {
	stubNow(t, time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC))

	yesterday := time.Date(2025, 5, 19, 0, 0, 0, 0, time.UTC)
	tasks := []tracker.Task{
		{ID: "1", Status: status("in_progress"), Deadline: &yesterday},
	}

	st, err := Aggregate(context.Background(), tasks, noLoggedTime)
	require.NoError(t, err)
	require.Equal(t, 1, st.DeadlinesMissed)
}

func TestAggregate_NoDeadlineIsNeverMissed(t *testing.T) {
	stubNow(t, time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC))

	tasks := []tracker.Task{
		{ID: "1", Status: status("open")},
		{ID: "2", Status: status(tracker.StatusDone), ResolvedAt: timePtr(time.Date(2025, 5, 18, 0, 0, 0, 0, time.UTC))},
	}

	st, err := Aggregate(context.Background(), tasks, noLoggedTime)
	require.NoError(t, err)
	require.Equal(t, 0, st.DeadlinesMissed)
}

func TestAggregate_SprintScenario(t *testing.T) {
	stubNow(t, time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC))

	deadlineA := time.Date(2025, 5, 18, 0, 0, 0, 0, time.UTC)
	deadlineB := time.Date(2025, 5, 19, 0, 0, 0, 0, time.UTC)
	tasks := []tracker.Task{
		{ID: "a", StoryPoints: intPtr(5), Status: status(tracker.StatusDone), Deadline: &deadlineA, ResolvedAt: timePtr(deadlineA.AddDate(0, 0, -1))},
		{ID: "b", StoryPoints: intPtr(3), Status: status("in_progress"), Deadline: &deadlineB},
	}

	st, err := Aggregate(context.Background(), tasks, func(ctx context.Context, taskID string) (float64, error) {
		require.Equal(t, "a", taskID)
		return 6.0, nil
	})
	require.NoError(t, err)
	require.Equal(t, 8, st.TotalStoryPoints)
	require.Equal(t, 2, st.TotalTasks)
	require.Equal(t, 1, st.DeadlinesMissed)
	require.InDelta(t, 3.0, st.AverageCompletionTime, 1e-9)
}

func TestCompare_NoPreviousLeavesComparisonUnset(t *testing.T) {
	m := Compare(7, nil)
	require.Equal(t, 7.0, m.Current)
	require.Nil(t, m.Previous)
	require.Nil(t, m.ChangePercent)
}

func TestCompare_ZeroPrevious(t *testing.T) {
	zero := 0.0

	m := Compare(4, &zero)
	require.NotNil(t, m.ChangePercent)
	require.Equal(t, 100.0, *m.ChangePercent)

	m = Compare(0, &zero)
	require.NotNil(t, m.ChangePercent)
	require.Equal(t, 0.0, *m.ChangePercent)
}

func TestCompare_PercentChange(t *testing.T) {
	prev := 8.0
	m := Compare(10, &prev)
	require.Equal(t, 10.0, m.Current)
	require.Equal(t, 8.0, *m.Previous)
	require.InDelta(t, 25.0, *m.ChangePercent, 1e-9)

	m = Compare(4, &prev)
	require.InDelta(t, -50.0, *m.ChangePercent, 1e-9)
}
