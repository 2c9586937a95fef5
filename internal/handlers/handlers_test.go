package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/ProfiFlow/backend/internal/analysis"
	"github.com/ProfiFlow/backend/internal/apperr"
	"github.com/ProfiFlow/backend/internal/auth"
	"github.com/ProfiFlow/backend/internal/middleware"
	"github.com/ProfiFlow/backend/internal/models"
	"github.com/ProfiFlow/backend/internal/report"
	"github.com/ProfiFlow/backend/internal/stats"
	"github.com/ProfiFlow/backend/internal/store"
	"github.com/ProfiFlow/backend/internal/testutil"
	"github.com/ProfiFlow/backend/internal/tracker"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeTracker serves canned sprint data for handler tests.
type fakeTracker struct {
	sprints     []tracker.Sprint
	tasksByUser map[string][]tracker.Task
}

func (f *fakeTracker) GetSprint(ctx context.Context, sprintID, requesterID int64) (*tracker.Sprint, error) {
	for i := range f.sprints {
		if f.sprints[i].ID == sprintID {
			s := f.sprints[i]
			return &s, nil
		}
	}
	return nil, apperr.NotFoundf("sprint %d", sprintID)
}

func (f *fakeTracker) ListSprints(ctx context.Context, requesterID int64) ([]tracker.Sprint, error) {
	return f.sprints, nil
}

func (f *fakeTracker) GetSprintTasks(ctx context.Context, sprintID, requesterID int64, assigneeLogin string) ([]tracker.Task, error) {
	return f.tasksByUser[assigneeLogin], nil
}

func (f *fakeTracker) GetLoggedTime(ctx context.Context, issueID string, requesterID int64) (float64, error) {
	return 2.0, nil
}

// fakeAnalyzer returns fixed qualitative output.
type fakeAnalyzer struct{}

func (fakeAnalyzer) AnalyzeActivity(ctx context.Context, tasks []tracker.Task, st stats.SprintStats) (string, error) {
	return "ok sprint", nil
}

func (fakeAnalyzer) Recommend(ctx context.Context, st stats.SprintStats) ([]models.Recommendation, error) {
	return []models.Recommendation{{Title: "Keep going", Text: "More of the same."}}, nil
}

func (fakeAnalyzer) RateTeam(ctx context.Context, current, previous []analysis.EmployeeStats) ([]analysis.EmployeeRating, error) {
	ratings := make([]analysis.EmployeeRating, 0, len(current))
	for _, e := range current {
		ratings = append(ratings, analysis.EmployeeRating{EmployeeID: e.EmployeeID, Rating: 4, RatingExplanation: "steady"})
	}
	return ratings, nil
}

type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
	trk    *models.Tracker
}

func newTestEnv(t *testing.T, ft *fakeTracker) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)

	users := store.NewUserStore(db)
	trackers := store.NewTrackerStore(db)
	reports := store.NewReportStore(db)
	svc := report.NewService(ft, fakeAnalyzer{}, reports, users, nil)

	trk := &models.Tracker{Name: "main", TrackerType: models.TrackerYandex, YandexOrgID: "org-1", IsActive: true}
	require.NoError(t, db.Create(trk).Error)

	r := gin.New()
	api := r.Group("/api")
	protected := api.Group("")
	protected.Use(middleware.JWTAuthMiddleware())

	reportHandler := NewReportHandler(svc, ft)
	userHandler := NewUserHandler(users)
	trackerHandler := NewTrackerHandler(users, trackers)
	protected.POST("/reports", reportHandler.CreateReport)
	protected.POST("/reports/team", reportHandler.CreateTeamReport)
	protected.GET("/reports/sprints", reportHandler.ListSprints)
	protected.GET("/me", userHandler.Me)
	protected.GET("/users", userHandler.GetAllUsers)
	protected.GET("/trackers", trackerHandler.ListTrackers)
	protected.PUT("/trackers/current", trackerHandler.SetCurrentTracker)

	return &testEnv{db: db, router: r, trk: trk}
}

func (e *testEnv) seedUser(t *testing.T, login string, role models.Role) (*models.User, string) {
	t.Helper()
	user := &models.User{
		Login:       login,
		DisplayName: login,
		IsActive:    true,
		YandexID:    time.Now().UnixNano(),
		YandexToken: "tok",
	}
	require.NoError(t, e.db.Create(user).Error)
	require.NoError(t, e.db.Create(&models.UserTrackerRole{
		UserID:    user.ID,
		TrackerID: e.trk.ID,
		Role:      role,
		IsCurrent: true,
	}).Error)

	token, err := auth.GenerateToken(user.ID, user.Login)
	require.NoError(t, err)
	return user, token
}

func sprintAt(id int64, start time.Time) tracker.Sprint {
	return tracker.Sprint{ID: id, Name: "Sprint", StartDate: start, EndDate: start.AddDate(0, 0, 14)}
}
