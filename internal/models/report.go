package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// MetricWithComparison carries a metric value together with its previous
// sprint value and the percent change. Previous and ChangePercent are
// either both set or both unset.
type MetricWithComparison struct {
	Current       float64  `json:"current"`
	Previous      *float64 `json:"previous,omitempty"`
	ChangePercent *float64 `json:"change_percent,omitempty"`
}

// Recommendation is one ranked improvement suggestion from the analysis model.
type Recommendation struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// RecommendationList is stored as a JSON column.
type RecommendationList []Recommendation

func (l RecommendationList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *RecommendationList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported recommendations column type %T", value)
	}
}

// SprintReport is the persisted individual report, unique per
// (user, tracker, sprint). Only current metric values are stored;
// comparisons are recomputed on read against the previous report.
type SprintReport struct {
	ID        int64 `json:"-" gorm:"primaryKey;autoIncrement"`
	UserID    int64 `json:"user_id" gorm:"not null;uniqueIndex:ux_sprint_report_key;index:ix_sprint_report_prev,priority:1"`
	TrackerID int64 `json:"-" gorm:"not null;uniqueIndex:ux_sprint_report_key;index:ix_sprint_report_prev,priority:2"`
	SprintID  int64 `json:"sprint_id" gorm:"not null;uniqueIndex:ux_sprint_report_key"`

	SprintName      string    `json:"sprint_name" gorm:"not null"`
	SprintStartDate time.Time `json:"sprint_start_date" gorm:"not null;index:ix_sprint_report_prev,priority:3"`
	SprintEndDate   time.Time `json:"sprint_end_date" gorm:"not null"`

	StoryPointsClosed         float64 `json:"story_points_closed" gorm:"not null"`
	TasksCompleted            int     `json:"tasks_completed" gorm:"not null"`
	DeadlinesMissed           int     `json:"deadlines_missed" gorm:"not null"`
	AverageTaskCompletionTime float64 `json:"average_task_completion_time" gorm:"not null"`

	ActivityAnalysis *string            `json:"activity_analysis"`
	Recommendations  RecommendationList `json:"recommendations" gorm:"type:json"`
	gorm.Model
}

// TableName specifies the table name for SprintReport Model
func (SprintReport) TableName() string {
	return "sprint_reports"
}
