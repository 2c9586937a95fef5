package tracker

import (
	"fmt"
	"time"
)

// StatusDone is the status key that marks a task as completed.
const StatusDone = "done"

// TaskStatus is a tracker workflow status.
type TaskStatus struct {
	ID      string `json:"id"`
	Key     string `json:"key"`
	Display string `json:"display"`
}

// Task is an issue assigned to a user within a sprint.
type Task struct {
	ID          string     `json:"id"`
	Key         string     `json:"key"`
	Summary     string     `json:"summary"`
	StoryPoints *int       `json:"story_points,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	Status      TaskStatus `json:"status"`
}

// Done reports whether the task has reached the done status.
func (t Task) Done() bool {
	return t.Status.Key == StatusDone
}

// Sprint is a date-bounded work period tracked upstream.
type Sprint struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

const dateLayout = "2006-01-02"

// Raw API payloads. The tracker returns loose attribute bags; these decode
// only the fields the system uses and validate the required ones, so missing
// data fails here instead of surfacing as zero values downstream.

type sprintDTO struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

func (d sprintDTO) toDomain() (Sprint, error) {
	if d.ID == 0 || d.Name == "" || d.StartDate == "" || d.EndDate == "" {
		return Sprint{}, fmt.Errorf("sprint %d: missing required fields", d.ID)
	}
	start, err := time.Parse(dateLayout, d.StartDate)
	if err != nil {
		return Sprint{}, fmt.Errorf("sprint %d: bad start date %q: %w", d.ID, d.StartDate, err)
	}
	end, err := time.Parse(dateLayout, d.EndDate)
	if err != nil {
		return Sprint{}, fmt.Errorf("sprint %d: bad end date %q: %w", d.ID, d.EndDate, err)
	}
	if end.Before(start) {
		return Sprint{}, fmt.Errorf("sprint %d: end date %s before start date %s", d.ID, d.EndDate, d.StartDate)
	}
	return Sprint{ID: d.ID, Name: d.Name, StartDate: start, EndDate: end}, nil
}

type statusDTO struct {
	ID      string `json:"id"`
	Key     string `json:"key"`
	Display string `json:"display"`
}

type issueDTO struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	Summary     string    `json:"summary"`
	StoryPoints *float64  `json:"storyPoints"`
	Deadline    string    `json:"deadline"`
	ResolvedAt  string    `json:"resolvedAt"`
	Status      statusDTO `json:"status"`
}

func (d issueDTO) toDomain() (Task, error) {
	if d.ID == "" || d.Key == "" || d.Status.Key == "" {
		return Task{}, fmt.Errorf("issue %q: missing required fields", d.Key)
	}

	task := Task{
		ID:      d.ID,
		Key:     d.Key,
		Summary: d.Summary,
		Status:  TaskStatus(d.Status),
	}

	if d.StoryPoints != nil {
		sp := int(*d.StoryPoints)
		if sp < 0 {
			return Task{}, fmt.Errorf("issue %q: negative story points", d.Key)
		}
		task.StoryPoints = &sp
	}
	if d.Deadline != "" {
		deadline, err := time.Parse(dateLayout, d.Deadline)
		if err != nil {
			return Task{}, fmt.Errorf("issue %q: bad deadline %q: %w", d.Key, d.Deadline, err)
		}
		task.Deadline = &deadline
	}
	if d.ResolvedAt != "" {
		resolved, err := time.Parse(time.RFC3339, d.ResolvedAt)
		if err != nil {
			return Task{}, fmt.Errorf("issue %q: bad resolvedAt %q: %w", d.Key, d.ResolvedAt, err)
		}
		task.ResolvedAt = &resolved
	}
	return task, nil
}

type worklogDTO struct {
	Duration string `json:"duration"`
}
