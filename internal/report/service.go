// Package report orchestrates sprint report generation: cache-or-compute over
// the report store, tracker fetches, stats aggregation, qualitative analysis
// and idempotent persistence.
package report

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ProfiFlow/backend/internal/analysis"
	"github.com/ProfiFlow/backend/internal/apperr"
	"github.com/ProfiFlow/backend/internal/models"
	"github.com/ProfiFlow/backend/internal/realtime"
	"github.com/ProfiFlow/backend/internal/stats"
	"github.com/ProfiFlow/backend/internal/store"
	"github.com/ProfiFlow/backend/internal/tracker"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// fallbackRatingExplanation is stored when the model's batch response does
// not cover an employee.
const fallbackRatingExplanation = "AI rating failed"

// fallbackRating is the neutral rating used with fallbackRatingExplanation.
const fallbackRating = 3

// Service coordinates report generation. Generation for one natural key runs
// at most once at a time: concurrent requests for the same key share a single
// computation (and therefore a single set of tracker and model calls).
type Service struct {
	tracker  TrackerGateway
	analyzer Analyzer
	reports  *store.ReportStore
	users    *store.UserStore
	hub      *realtime.Hub
	group    singleflight.Group
}

// NewService wires the orchestrator. hub may be nil in tests.
func NewService(tr TrackerGateway, an Analyzer, reports *store.ReportStore, users *store.UserStore, hub *realtime.Hub) *Service {
	return &Service{
		tracker:  tr,
		analyzer: an,
		reports:  reports,
		users:    users,
		hub:      hub,
	}
}

// GenerateIndividual returns the sprint report for the user, computing and
// persisting it on first request and serving the stored report afterwards.
func (s *Service) GenerateIndividual(ctx context.Context, userID, sprintID, requesterID int64) (*IndividualReport, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.NotFoundf("user %d", userID)
	}

	sprint, err := s.tracker.GetSprint(ctx, sprintID, requesterID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFoundf("sprint %d not found", sprintID)
		}
		return nil, err
	}

	trk, _, err := s.users.CurrentTracker(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if trk == nil {
		return nil, apperr.NotFoundf("user %d has no current tracker", user.ID)
	}

	row, err := s.generateShared(ctx, user, trk.ID, sprint, requesterID)
	if err != nil {
		return nil, err
	}
	return s.buildIndividual(ctx, user, trk.ID, row)
}

// generateShared runs generate behind the per-key singleflight group, so that
// concurrent requests for one (user, tracker, sprint) key, whether individual
// or part of a team fan-out, share a single computation.
func (s *Service) generateShared(ctx context.Context, user *models.User, trackerID int64, sprint *tracker.Sprint, requesterID int64) (*models.SprintReport, error) {
	key := fmt.Sprintf("individual/%d/%d/%d", user.ID, trackerID, sprint.ID)
	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.generate(ctx, user, trackerID, sprint, requesterID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.SprintReport), nil
}

// generate implements the cache-or-compute step for one (user, tracker,
// sprint) key and returns the stored row. A cache hit performs no tracker
// task fetches and no model calls; a miss persists all-or-nothing.
func (s *Service) generate(ctx context.Context, user *models.User, trackerID int64, sprint *tracker.Sprint, requesterID int64) (*models.SprintReport, error) {
	stored, err := s.reports.GetIndividual(ctx, user.ID, trackerID, sprint.ID)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		log.Debug().Int64("user_id", user.ID).Int64("sprint_id", sprint.ID).Msg("serving stored sprint report")
		return stored, nil
	}

	tasks, err := s.tracker.GetSprintTasks(ctx, sprint.ID, requesterID, user.Login)
	if err != nil {
		return nil, err
	}

	st, err := stats.Aggregate(ctx, tasks, func(ctx context.Context, taskID string) (float64, error) {
		return s.tracker.GetLoggedTime(ctx, taskID, requesterID)
	})
	if err != nil {
		return nil, err
	}

	activity, err := s.analyzer.AnalyzeActivity(ctx, tasks, st)
	if err != nil {
		return nil, wrapAnalysis(err)
	}
	recommendations, err := s.analyzer.Recommend(ctx, st)
	if err != nil {
		return nil, wrapAnalysis(err)
	}

	row := &models.SprintReport{
		UserID:                    user.ID,
		TrackerID:                 trackerID,
		SprintID:                  sprint.ID,
		SprintName:                sprint.Name,
		SprintStartDate:           sprint.StartDate,
		SprintEndDate:             sprint.EndDate,
		StoryPointsClosed:         float64(st.TotalStoryPoints),
		TasksCompleted:            st.TotalTasks,
		DeadlinesMissed:           st.DeadlinesMissed,
		AverageTaskCompletionTime: st.AverageCompletionTime,
		ActivityAnalysis:          &activity,
		Recommendations:           models.RecommendationList(recommendations),
	}
	if _, err := s.reports.UpsertIndividual(ctx, row); err != nil {
		return nil, err
	}

	log.Info().
		Int64("user_id", user.ID).
		Int64("tracker_id", trackerID).
		Int64("sprint_id", sprint.ID).
		Msg("generated sprint report")
	s.hub.Notify(requesterID, "report_generated", map[string]any{
		"user_id":   user.ID,
		"sprint_id": sprint.ID,
	})
	return row, nil
}

// buildIndividual converts a stored row into the API shape, recomputing the
// comparison metrics against the user's previous report.
func (s *Service) buildIndividual(ctx context.Context, user *models.User, trackerID int64, row *models.SprintReport) (*IndividualReport, error) {
	previous, err := s.reports.GetPreviousIndividual(ctx, user.ID, trackerID, row.SprintStartDate)
	if err != nil {
		return nil, err
	}

	metrics := compareMetrics(row, previous)
	return &IndividualReport{
		UserID:                    user.ID,
		EmployeeName:              user.DisplayName,
		SprintName:                row.SprintName,
		SprintStartDate:           row.SprintStartDate,
		SprintEndDate:             row.SprintEndDate,
		StoryPointsClosed:         metrics[0],
		TasksCompleted:            metrics[1],
		DeadlinesMissed:           metrics[2],
		AverageTaskCompletionTime: metrics[3],
		ActivityAnalysis:          row.ActivityAnalysis,
		Recommendations:           []models.Recommendation(row.Recommendations),
	}, nil
}

// GenerateTeam returns the team sprint report for the requester's current
// tracker. Only managers may request it. Generating a team report creates or
// reuses the individual report of every tracker member.
func (s *Service) GenerateTeam(ctx context.Context, requesterID, sprintID int64) (*TeamReport, error) {
	trk, role, err := s.users.CurrentTracker(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if trk == nil {
		return nil, apperr.NotFoundf("user %d has no current tracker", requesterID)
	}
	if role != models.RoleManager {
		return nil, apperr.PermissionDeniedf("team reports require the manager role")
	}

	key := fmt.Sprintf("team/%d/%d", trk.ID, sprintID)
	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.generateTeam(ctx, trk.ID, sprintID, requesterID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*TeamReport), nil
}

func (s *Service) generateTeam(ctx context.Context, trackerID, sprintID, requesterID int64) (*TeamReport, error) {
	stored, err := s.reports.GetTeam(ctx, trackerID, sprintID)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		log.Debug().Int64("tracker_id", trackerID).Int64("sprint_id", sprintID).Msg("serving stored team report")
		return teamFromRow(stored), nil
	}

	sprint, err := s.tracker.GetSprint(ctx, sprintID, requesterID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFoundf("sprint %d not found", sprintID)
		}
		return nil, err
	}

	members, err := s.users.UsersForTracker(ctx, trackerID)
	if err != nil {
		return nil, err
	}

	rowByUser := make(map[int64]*models.SprintReport, len(members))
	current := make([]analysis.EmployeeStats, 0, len(members))
	for i := range members {
		member := &members[i]
		row, err := s.generateShared(ctx, member, trackerID, sprint, requesterID)
		if err != nil {
			return nil, err
		}
		rowByUser[member.ID] = row
		current = append(current, analysis.EmployeeStats{
			EmployeeID:   member.ID,
			EmployeeName: member.DisplayName,
			Stats: stats.SprintStats{
				TotalStoryPoints:      int(row.StoryPointsClosed),
				TotalTasks:            row.TasksCompleted,
				DeadlinesMissed:       row.DeadlinesMissed,
				AverageCompletionTime: row.AverageTaskCompletionTime,
			},
		})
	}

	previousSprint, err := s.previousSprint(ctx, sprint, requesterID)
	if err != nil {
		return nil, err
	}

	// Employees without a stored previous report are simply absent from the
	// previous-stats bundle; the rating call receives partial history.
	prevByUser := make(map[int64]*models.SprintReport)
	previous := make([]analysis.EmployeeStats, 0, len(members))
	if previousSprint != nil {
		for i := range members {
			member := &members[i]
			prevRow, err := s.reports.GetIndividual(ctx, member.ID, trackerID, previousSprint.ID)
			if err != nil {
				return nil, err
			}
			if prevRow == nil {
				continue
			}
			prevByUser[member.ID] = prevRow
			previous = append(previous, analysis.EmployeeStats{
				EmployeeID:   member.ID,
				EmployeeName: member.DisplayName,
				Stats: stats.SprintStats{
					TotalStoryPoints:      int(prevRow.StoryPointsClosed),
					TotalTasks:            prevRow.TasksCompleted,
					DeadlinesMissed:       prevRow.DeadlinesMissed,
					AverageCompletionTime: prevRow.AverageTaskCompletionTime,
				},
			})
		}
	}

	ratings, err := s.analyzer.RateTeam(ctx, current, previous)
	if err != nil {
		return nil, wrapAnalysis(err)
	}
	ratingByID := make(map[int64]analysis.EmployeeRating, len(ratings))
	for _, r := range ratings {
		ratingByID[r.EmployeeID] = r
	}

	employeeStats := make([]models.EmployeeSprintStats, 0, len(members))
	for i := range members {
		member := &members[i]
		row := rowByUser[member.ID]
		metrics := compareMetrics(row, prevByUser[member.ID])

		rating, ok := ratingByID[member.ID]
		if !ok {
			log.Warn().Int64("user_id", member.ID).Msg("model rating response missed an employee, using fallback")
			rating = analysis.EmployeeRating{
				EmployeeID:        member.ID,
				Rating:            fallbackRating,
				RatingExplanation: fallbackRatingExplanation,
			}
		}

		employeeStats = append(employeeStats, models.EmployeeSprintStats{
			EmployeeID:                member.ID,
			EmployeeName:              member.DisplayName,
			StoryPointsClosed:         metrics[0],
			TasksCompleted:            metrics[1],
			DeadlinesMissed:           metrics[2],
			AverageTaskCompletionTime: metrics[3],
			Rating:                    rating.Rating,
			RatingExplanation:         rating.RatingExplanation,
		})
	}

	// Best to worst.
	sort.SliceStable(employeeStats, func(i, j int) bool {
		return employeeStats[i].Rating > employeeStats[j].Rating
	})

	row := &models.TeamSprintReport{
		TrackerID:       trackerID,
		SprintID:        sprint.ID,
		SprintStartDate: sprint.StartDate,
		SprintEndDate:   sprint.EndDate,
		EmployeeStats:   models.EmployeeStatsList(employeeStats),
	}
	if _, err := s.reports.UpsertTeam(ctx, row); err != nil {
		return nil, err
	}

	log.Info().
		Int64("tracker_id", trackerID).
		Int64("sprint_id", sprint.ID).
		Int("employees", len(employeeStats)).
		Msg("generated team sprint report")
	s.hub.Notify(requesterID, "team_report_generated", map[string]any{
		"sprint_id": sprint.ID,
	})
	return teamFromRow(row), nil
}

// previousSprint finds the immediate predecessor of the target sprint by
// start date, or nil when the target is the first sprint.
func (s *Service) previousSprint(ctx context.Context, target *tracker.Sprint, requesterID int64) (*tracker.Sprint, error) {
	sprints, err := s.tracker.ListSprints(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	sort.Slice(sprints, func(i, j int) bool {
		return sprints[i].StartDate.Before(sprints[j].StartDate)
	})

	var previous *tracker.Sprint
	for i := range sprints {
		if sprints[i].StartDate.Before(target.StartDate) {
			previous = &sprints[i]
		}
	}
	return previous, nil
}

// compareMetrics builds the four metric value objects of a report row
// against its previous sibling (which may be nil).
func compareMetrics(row, previous *models.SprintReport) [4]models.MetricWithComparison {
	var prevPoints, prevTasks, prevMissed, prevAvg *float64
	if previous != nil {
		prevPoints = f64(previous.StoryPointsClosed)
		prevTasks = f64(float64(previous.TasksCompleted))
		prevMissed = f64(float64(previous.DeadlinesMissed))
		prevAvg = f64(previous.AverageTaskCompletionTime)
	}
	return [4]models.MetricWithComparison{
		stats.Compare(row.StoryPointsClosed, prevPoints),
		stats.Compare(float64(row.TasksCompleted), prevTasks),
		stats.Compare(float64(row.DeadlinesMissed), prevMissed),
		stats.Compare(row.AverageTaskCompletionTime, prevAvg),
	}
}

func teamFromRow(row *models.TeamSprintReport) *TeamReport {
	return &TeamReport{
		SprintID:        row.SprintID,
		SprintStartDate: row.SprintStartDate,
		SprintEndDate:   row.SprintEndDate,
		EmployeeStats:   []models.EmployeeSprintStats(row.EmployeeStats),
	}
}

// wrapAnalysis maps analysis failures to the unavailable kind while letting
// already-typed failures through unchanged.
func wrapAnalysis(err error) error {
	if errors.Is(err, apperr.ErrUnavailable) ||
		errors.Is(err, apperr.ErrNotFound) ||
		errors.Is(err, apperr.ErrPermissionDenied) {
		return err
	}
	return apperr.Unavailablef("analysis failed: %v", err)
}

func f64(v float64) *float64 {
	return &v
}
