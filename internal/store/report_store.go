package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ProfiFlow/backend/internal/models"

	"gorm.io/gorm"
)

// ReportStore owns sprint report persistence. Reports are looked up by
// their natural keys and written only through the upsert methods.
type ReportStore struct {
	db *gorm.DB
}

// NewReportStore creates a ReportStore backed by db.
func NewReportStore(db *gorm.DB) *ReportStore {
	return &ReportStore{db: db}
}

// GetIndividual returns the stored report for (user, tracker, sprint),
// or nil when none exists.
func (s *ReportStore) GetIndividual(ctx context.Context, userID, trackerID, sprintID int64) (*models.SprintReport, error) {
	var report models.SprintReport
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND tracker_id = ? AND sprint_id = ?", userID, trackerID, sprintID).
		First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sprint report: %w", err)
	}
	return &report, nil
}

// GetPreviousIndividual returns the most recent report for (user, tracker)
// whose sprint started strictly before the given date, or nil.
func (s *ReportStore) GetPreviousIndividual(ctx context.Context, userID, trackerID int64, before time.Time) (*models.SprintReport, error) {
	var report models.SprintReport
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND tracker_id = ? AND sprint_start_date < ?", userID, trackerID, before).
		Order("sprint_start_date desc").
		First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get previous sprint report: %w", err)
	}
	return &report, nil
}

// UpsertIndividual creates the report for its natural key or overwrites an
// existing row's mutable fields in place.
func (s *ReportStore) UpsertIndividual(ctx context.Context, report *models.SprintReport) (*models.SprintReport, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.SprintReport
		err := tx.Where("user_id = ? AND tracker_id = ? AND sprint_id = ?",
			report.UserID, report.TrackerID, report.SprintID).
			First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(report).Error
		}
		if err != nil {
			return err
		}

		existing.SprintName = report.SprintName
		existing.SprintStartDate = report.SprintStartDate
		existing.SprintEndDate = report.SprintEndDate
		existing.StoryPointsClosed = report.StoryPointsClosed
		existing.TasksCompleted = report.TasksCompleted
		existing.DeadlinesMissed = report.DeadlinesMissed
		existing.AverageTaskCompletionTime = report.AverageTaskCompletionTime
		existing.ActivityAnalysis = report.ActivityAnalysis
		existing.Recommendations = report.Recommendations
		if err := tx.Save(&existing).Error; err != nil {
			return err
		}
		*report = existing
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("upsert sprint report: %w", err)
	}
	return report, nil
}

// GetTeam returns the stored team report for (tracker, sprint), or nil.
func (s *ReportStore) GetTeam(ctx context.Context, trackerID, sprintID int64) (*models.TeamSprintReport, error) {
	var report models.TeamSprintReport
	err := s.db.WithContext(ctx).
		Where("tracker_id = ? AND sprint_id = ?", trackerID, sprintID).
		First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get team report: %w", err)
	}
	return &report, nil
}

// UpsertTeam creates the team report for its natural key or overwrites an
// existing row's mutable fields in place.
func (s *ReportStore) UpsertTeam(ctx context.Context, report *models.TeamSprintReport) (*models.TeamSprintReport, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.TeamSprintReport
		err := tx.Where("tracker_id = ? AND sprint_id = ?", report.TrackerID, report.SprintID).
			First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(report).Error
		}
		if err != nil {
			return err
		}

		existing.SprintStartDate = report.SprintStartDate
		existing.SprintEndDate = report.SprintEndDate
		existing.EmployeeStats = report.EmployeeStats
		if err := tx.Save(&existing).Error; err != nil {
			return err
		}
		*report = existing
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("upsert team report: %w", err)
	}
	return report, nil
}
