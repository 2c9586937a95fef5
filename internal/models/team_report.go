package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// EmployeeSprintStats is one team member's slice of a team report.
type EmployeeSprintStats struct {
	EmployeeID                int64                `json:"employee_id"`
	EmployeeName              string               `json:"employee_name"`
	StoryPointsClosed         MetricWithComparison `json:"story_points_closed"`
	TasksCompleted            MetricWithComparison `json:"tasks_completed"`
	DeadlinesMissed           MetricWithComparison `json:"deadlines_missed"`
	AverageTaskCompletionTime MetricWithComparison `json:"average_task_completion_time"`
	Rating                    int                  `json:"rating"`
	RatingExplanation         string               `json:"rating_explanation"`
}

// EmployeeStatsList is stored as a JSON column.
type EmployeeStatsList []EmployeeSprintStats

func (l EmployeeStatsList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal(EmployeeStatsList{})
	}
	return json.Marshal(l)
}

func (l *EmployeeStatsList) Scan(value any) error {
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
		return fmt.Errorf("unsupported employee stats column type %T", value)
	}
}

// TeamSprintReport is the persisted team report, unique per (tracker, sprint).
type TeamSprintReport struct {
	ID        int64 `json:"-" gorm:"primaryKey;autoIncrement"`
	TrackerID int64 `json:"-" gorm:"not null;uniqueIndex:ux_team_report_key"`
	SprintID  int64 `json:"sprint_id" gorm:"not null;uniqueIndex:ux_team_report_key"`

	SprintStartDate time.Time         `json:"sprint_start_date" gorm:"not null"`
	SprintEndDate   time.Time         `json:"sprint_end_date" gorm:"not null"`
	EmployeeStats   EmployeeStatsList `json:"employee_stats" gorm:"type:json;not null"`
	gorm.Model
}

// TableName specifies the table name for TeamSprintReport Model
func (TeamSprintReport) TableName() string {
	return "team_sprint_reports"
}
