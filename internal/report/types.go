package report

import (
	"context"
	"time"

	"github.com/ProfiFlow/backend/internal/analysis"
	"github.com/ProfiFlow/backend/internal/models"
	"github.com/ProfiFlow/backend/internal/stats"
	"github.com/ProfiFlow/backend/internal/tracker"
)

// TrackerGateway is the slice of the tracker client the orchestrator needs.
type TrackerGateway interface {
	GetSprint(ctx context.Context, sprintID, requesterID int64) (*tracker.Sprint, error)
	ListSprints(ctx context.Context, requesterID int64) ([]tracker.Sprint, error)
	GetSprintTasks(ctx context.Context, sprintID, requesterID int64, assigneeLogin string) ([]tracker.Task, error)
	GetLoggedTime(ctx context.Context, issueID string, requesterID int64) (float64, error)
}

// Analyzer is the qualitative analysis dependency.
type Analyzer interface {
	AnalyzeActivity(ctx context.Context, tasks []tracker.Task, st stats.SprintStats) (string, error)
	Recommend(ctx context.Context, st stats.SprintStats) ([]models.Recommendation, error)
	RateTeam(ctx context.Context, current, previous []analysis.EmployeeStats) ([]analysis.EmployeeRating, error)
}

// IndividualReport is the API shape of one employee's sprint report, with
// comparison metrics recomputed against the previous stored report.
type IndividualReport struct {
	UserID                    int64                       `json:"user_id"`
	EmployeeName              string                      `json:"employee_name"`
	SprintName                string                      `json:"sprint_name"`
	SprintStartDate           time.Time                   `json:"sprint_start_date"`
	SprintEndDate             time.Time                   `json:"sprint_end_date"`
	StoryPointsClosed         models.MetricWithComparison `json:"story_points_closed"`
	TasksCompleted            models.MetricWithComparison `json:"tasks_completed"`
	DeadlinesMissed           models.MetricWithComparison `json:"deadlines_missed"`
	AverageTaskCompletionTime models.MetricWithComparison `json:"average_task_completion_time"`
	ActivityAnalysis          *string                     `json:"activity_analysis"`
	Recommendations           []models.Recommendation     `json:"recommendations"`
}

// TeamReport is the API shape of a team sprint report.
type TeamReport struct {
	SprintID        int64                        `json:"sprint_id"`
	SprintStartDate time.Time                    `json:"sprint_start_date"`
	SprintEndDate   time.Time                    `json:"sprint_end_date"`
	EmployeeStats   []models.EmployeeSprintStats `json:"employee_stats"`
}
