// Package stats derives quantitative sprint statistics from task lists and
// builds sprint-over-sprint metric comparisons.
package stats

import (
	"context"
	"time"

	"github.com/ProfiFlow/backend/internal/models"
	"github.com/ProfiFlow/backend/internal/tracker"
)

// SprintStats are the quantitative metrics of one user's sprint.
type SprintStats struct {
	TotalStoryPoints int `json:"total_story_points"`
	TotalTasks       int `json:"total_tasks"`
	DeadlinesMissed  int `json:"deadlines_missed"`
	// AverageCompletionTime is logged hours over done tasks divided by the
	// total task count.
	AverageCompletionTime float64 `json:"average_completion_time"`
}

// LoggedTimeFunc fetches the logged hours for one task.
type LoggedTimeFunc func(ctx context.Context, taskID string) (float64, error)

// now is a small indirection to allow test stubbing.
var now = time.Now

// Aggregate computes sprint statistics from the task list. Logged time is
// fetched per done task through loggedTime.
func Aggregate(ctx context.Context, tasks []tracker.Task, loggedTime LoggedTimeFunc) (SprintStats, error) {
	var st SprintStats
	var totalHours float64
	today := now().UTC().Truncate(24 * time.Hour)

	for _, task := range tasks {
		if task.StoryPoints != nil {
			st.TotalStoryPoints += *task.StoryPoints
		}
		st.TotalTasks++

		if deadlineMissed(task, today) {
			st.DeadlinesMissed++
		}

		if task.Done() {
			hours, err := loggedTime(ctx, task.ID)
			if err != nil {
				return SprintStats{}, err
			}
			totalHours += hours
		}
	}

	if st.TotalTasks > 0 {
		st.AverageCompletionTime = totalHours / float64(st.TotalTasks)
	}
	return st, nil
}

// deadlineMissed reports whether the task blew its deadline. The two clauses
// are independently sufficient: a done task resolved strictly after the
// deadline, or any task whose deadline lies before today.
func deadlineMissed(task tracker.Task, today time.Time) bool {
	if task.Deadline == nil {
		return false
	}
	if task.Done() && task.ResolvedAt != nil && task.ResolvedAt.After(*task.Deadline) {
		return true
	}
	return task.Deadline.Before(today)
}

// Compare builds a metric value object from the current value and the
// previous sprint's value, if any. With no previous value the comparison
// fields stay unset; a zero previous maps to +100% when the current value is
// positive and 0% otherwise.
func Compare(current float64, previous *float64) models.MetricWithComparison {
	metric := models.MetricWithComparison{Current: current}
	if previous == nil {
		return metric
	}

	change := percentChange(current, *previous)
	metric.Previous = previous
	metric.ChangePercent = &change
	return metric
}

func percentChange(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100.0
		}
		return 0.0
	}
	return (current - previous) / previous * 100
}
