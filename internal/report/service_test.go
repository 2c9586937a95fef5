package report

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ProfiFlow/backend/internal/analysis"
	"github.com/ProfiFlow/backend/internal/apperr"
	"github.com/ProfiFlow/backend/internal/models"
	"github.com/ProfiFlow/backend/internal/stats"
	"github.com/ProfiFlow/backend/internal/store"
	"github.com/ProfiFlow/backend/internal/testutil"
	"github.com/ProfiFlow/backend/internal/tracker"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeTracker serves canned sprints, tasks and worklogs and counts calls.
type fakeTracker struct {
	sprints       []tracker.Sprint
	tasksByUser   map[string][]tracker.Task
	logged        map[string]float64
	taskFetches   int
	sprintFetches int
}

func (f *fakeTracker) GetSprint(ctx context.Context, sprintID, requesterID int64) (*tracker.Sprint, error) {
	f.sprintFetches++
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
	f.taskFetches++
	return f.tasksByUser[assigneeLogin], nil
}

func (f *fakeTracker) GetLoggedTime(ctx context.Context, issueID string, requesterID int64) (float64, error) {
	return f.logged[issueID], nil
}

// fakeAnalyzer returns canned qualitative output and counts calls.
type fakeAnalyzer struct {
	activityCalls  int
	recommendCalls int
	rateCalls      int
	failActivity   bool
	failRate       bool
	ratings        []analysis.EmployeeRating
}

func (f *fakeAnalyzer) AnalyzeActivity(ctx context.Context, tasks []tracker.Task, st stats.SprintStats) (string, error) {
	f.activityCalls++
	if f.failActivity {
		return "", apperr.Unavailablef("model overloaded")
	}
	return "steady sprint", nil
}

func (f *fakeAnalyzer) Recommend(ctx context.Context, st stats.SprintStats) ([]models.Recommendation, error) {
	f.recommendCalls++
	return []models.Recommendation{{Title: "Plan buffers", Text: "Leave slack for review."}}, nil
}

func (f *fakeAnalyzer) RateTeam(ctx context.Context, current, previous []analysis.EmployeeStats) ([]analysis.EmployeeRating, error) {
	f.rateCalls++
	if f.failRate {
		return nil, apperr.Unavailablef("model overloaded")
	}
	return f.ratings, nil
}

// gatedAnalyzer blocks AnalyzeActivity on the gated task key until released,
// so a test can hold one generation in flight while issuing more requests for
// the same key.
type gatedAnalyzer struct {
	gateKey    string
	entered    chan struct{}
	release    chan struct{}
	gatedCalls atomic.Int32
}

func (g *gatedAnalyzer) AnalyzeActivity(ctx context.Context, tasks []tracker.Task, st stats.SprintStats) (string, error) {
	for _, task := range tasks {
		if task.Key == g.gateKey {
			g.gatedCalls.Add(1)
			g.entered <- struct{}{}
			<-g.release
			break
		}
	}
	return "steady sprint", nil
}

func (g *gatedAnalyzer) Recommend(ctx context.Context, st stats.SprintStats) ([]models.Recommendation, error) {
	return nil, nil
}

func (g *gatedAnalyzer) RateTeam(ctx context.Context, current, previous []analysis.EmployeeStats) ([]analysis.EmployeeRating, error) {
	return nil, nil
}

func newGatedAnalyzer(gateKey string) *gatedAnalyzer {
	return &gatedAnalyzer{
		gateKey: gateKey,
		entered: make(chan struct{}, 4),
		release: make(chan struct{}),
	}
}

func seedUser(t *testing.T, db *gorm.DB, login string, trackerID int64, role models.Role, current bool) *models.User {
	t.Helper()
	user := &models.User{
		Login:       login,
		DisplayName: login,
		IsActive:    true,
		YandexID:    time.Now().UnixNano(),
	}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(&models.UserTrackerRole{
		UserID:    user.ID,
		TrackerID: trackerID,
		Role:      role,
		IsCurrent: current,
	}).Error)
	return user
}

func seedTracker(t *testing.T, db *gorm.DB) *models.Tracker {
	t.Helper()
	trk := &models.Tracker{Name: "main", TrackerType: models.TrackerYandex, YandexOrgID: "org-1", IsActive: true}
	require.NoError(t, db.Create(trk).Error)
	return trk
}

func intPtr(v int) *int { return &v }

func status(key string) tracker.TaskStatus { return tracker.TaskStatus{Key: key} }

func newTestService(t *testing.T, tr TrackerGateway, an Analyzer) (*Service, *gorm.DB) {
	t.Helper()
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	return NewService(tr, an, store.NewReportStore(db), store.NewUserStore(db), nil), db
}

func sprintFixture(id int64, start time.Time) tracker.Sprint {
	return tracker.Sprint{
		ID:        id,
		Name:      "Sprint",
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 14),
	}
}

func TestGenerateIndividual_ComputesAndStores(t *testing.T) {
	start := time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC)
	tr := &fakeTracker{
		sprints: []tracker.Sprint{sprintFixture(10, start)},
		tasksByUser: map[string][]tracker.Task{
			"alice": {
				{ID: "1", Key: "PF-1", StoryPoints: intPtr(5), Status: status(tracker.StatusDone)},
				{ID: "2", Key: "PF-2", StoryPoints: intPtr(3), Status: status("open")},
			},
		},
		logged: map[string]float64{"1": 4.0},
	}
	an := &fakeAnalyzer{}
	svc, db := newTestService(t, tr, an)
	trk := seedTracker(t, db)
	alice := seedUser(t, db, "alice", trk.ID, models.RoleEmployee, true)

	rep, err := svc.GenerateIndividual(context.Background(), alice.ID, 10, alice.ID)
	require.NoError(t, err)
	require.Equal(t, alice.ID, rep.UserID)
	require.Equal(t, 8.0, rep.StoryPointsClosed.Current)
	require.Equal(t, 2.0, rep.TasksCompleted.Current)
	require.Equal(t, 0.0, rep.DeadlinesMissed.Current)
	require.InDelta(t, 2.0, rep.AverageTaskCompletionTime.Current, 1e-9)
	require.Nil(t, rep.StoryPointsClosed.Previous)
	require.NotNil(t, rep.ActivityAnalysis)
	require.Equal(t, "steady sprint", *rep.ActivityAnalysis)
	require.Len(t, rep.Recommendations, 1)

	var stored models.SprintReport
	require.NoError(t, db.Where("user_id = ? AND sprint_id = ?", alice.ID, 10).First(&stored).Error)
	require.Equal(t, 8.0, stored.StoryPointsClosed)
}

func TestGenerateIndividual_SecondCallServesStoredReport(t *testing.T) {
	start := time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC)
	tr := &fakeTracker{
		sprints: []tracker.Sprint{sprintFixture(10, start)},
		tasksByUser: map[string][]tracker.Task{
			"alice": {{ID: "1", Key: "PF-1", StoryPoints: intPtr(2), Status: status(tracker.StatusDone)}},
		},
		logged: map[string]float64{"1": 1.0},
	}
	an := &fakeAnalyzer{}
	svc, db := newTestService(t, tr, an)
	trk := seedTracker(t, db)
	alice := seedUser(t, db, "alice", trk.ID, models.RoleEmployee, true)

	first, err := svc.GenerateIndividual(context.Background(), alice.ID, 10, alice.ID)
	require.NoError(t, err)
	second, err := svc.GenerateIndividual(context.Background(), alice.ID, 10, alice.ID)
	require.NoError(t, err)

	require.Equal(t, first.StoryPointsClosed, second.StoryPointsClosed)
	require.Equal(t, first.TasksCompleted, second.TasksCompleted)
	require.Equal(t, first.ActivityAnalysis, second.ActivityAnalysis)
	require.Equal(t, first.Recommendations, second.Recommendations)
	require.Equal(t, 1, an.activityCalls)
	require.Equal(t, 1, an.recommendCalls)
	require.Equal(t, 1, tr.taskFetches)
}

func TestGenerateIndividual_AnalysisFailureLeavesNothingStored(t *testing.T) {
	start := time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC)
	tr := &fakeTracker{
		sprints: []tracker.Sprint{sprintFixture(10, start)},
		tasksByUser: map[string][]tracker.Task{
			"alice": {{ID: "1", Key: "PF-1", Status: status(tracker.StatusDone)}},
		},
	}
	an := &fakeAnalyzer{failActivity: true}
	svc, db := newTestService(t, tr, an)
	trk := seedTracker(t, db)
	alice := seedUser(t, db, "alice", trk.ID, models.RoleEmployee, true)

	_, err := svc.GenerateIndividual(context.Background(), alice.ID, 10, alice.ID)
	require.ErrorIs(t, err, apperr.ErrUnavailable)

	var count int64
	require.NoError(t, db.Model(&models.SprintReport{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestGenerateIndividual_UnknownUser(t *testing.T) {
	svc, _ := newTestService(t, &fakeTracker{}, &fakeAnalyzer{})

	_, err := svc.GenerateIndividual(context.Background(), 999, 10, 999)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGenerateIndividual_UnknownSprint(t *testing.T) {
	svc, db := newTestService(t, &fakeTracker{}, &fakeAnalyzer{})
	trk := seedTracker(t, db)
	alice := seedUser(t, db, "alice", trk.ID, models.RoleEmployee, true)

	_, err := svc.GenerateIndividual(context.Background(), alice.ID, 42, alice.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGenerateIndividual_ComparesAgainstPreviousReport(t *testing.T) {
	start := time.Date(2025, 5, 19, 0, 0, 0, 0, time.UTC)
	tr := &fakeTracker{
		sprints: []tracker.Sprint{sprintFixture(11, start)},
		tasksByUser: map[string][]tracker.Task{
			"alice": {
				{ID: "1", Key: "PF-1", StoryPoints: intPtr(6), Status: status(tracker.StatusDone)},
			},
		},
		logged: map[string]float64{"1": 2.0},
	}
	svc, db := newTestService(t, tr, &fakeAnalyzer{})
	trk := seedTracker(t, db)
	alice := seedUser(t, db, "alice", trk.ID, models.RoleEmployee, true)

	previous := &models.SprintReport{
		UserID:            alice.ID,
		TrackerID:         trk.ID,
		SprintID:          10,
		SprintName:        "Sprint 10",
		SprintStartDate:   start.AddDate(0, 0, -14),
		SprintEndDate:     start,
		StoryPointsClosed: 4,
		TasksCompleted:    2,
	}
	require.NoError(t, db.Create(previous).Error)

	rep, err := svc.GenerateIndividual(context.Background(), alice.ID, 11, alice.ID)
	require.NoError(t, err)
	require.Equal(t, 6.0, rep.StoryPointsClosed.Current)
	require.NotNil(t, rep.StoryPointsClosed.Previous)
	require.Equal(t, 4.0, *rep.StoryPointsClosed.Previous)
	require.InDelta(t, 50.0, *rep.StoryPointsClosed.ChangePercent, 1e-9)
}

func TestGenerateIndividual_ConcurrentRequestsShareOneComputation(t *testing.T) {
	start := time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC)
	tr := &fakeTracker{
		sprints: []tracker.Sprint{sprintFixture(10, start)},
		tasksByUser: map[string][]tracker.Task{
			"alice": {{ID: "1", Key: "PF-1", StoryPoints: intPtr(2), Status: status(tracker.StatusDone)}},
		},
		logged: map[string]float64{"1": 1.0},
	}
	an := newGatedAnalyzer("PF-1")
	svc, db := newTestService(t, tr, an)
	trk := seedTracker(t, db)
	alice := seedUser(t, db, "alice", trk.ID, models.RoleEmployee, true)

	errs := make(chan error, 2)
	run := func() {
		_, err := svc.GenerateIndividual(context.Background(), alice.ID, 10, alice.ID)
		errs <- err
	}

	go run()
	<-an.entered
	go run()
	time.Sleep(50 * time.Millisecond)
	close(an.release)

	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
	require.Equal(t, int32(1), an.gatedCalls.Load())

	var count int64
	require.NoError(t, db.Model(&models.SprintReport{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestGenerateTeam_SharesInFlightIndividualComputation(t *testing.T) {
	start := time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC)
	tr := &fakeTracker{
		sprints: []tracker.Sprint{sprintFixture(10, start)},
		tasksByUser: map[string][]tracker.Task{
			"boss":  {{ID: "1", Key: "PF-1", StoryPoints: intPtr(1), Status: status(tracker.StatusDone)}},
			"alice": {{ID: "2", Key: "PF-2", StoryPoints: intPtr(5), Status: status(tracker.StatusDone)}},
		},
		logged: map[string]float64{"1": 1.0, "2": 2.0},
	}
	an := newGatedAnalyzer("PF-2")
	svc, db := newTestService(t, tr, an)
	trk := seedTracker(t, db)
	boss := seedUser(t, db, "boss", trk.ID, models.RoleManager, true)
	alice := seedUser(t, db, "alice", trk.ID, models.RoleEmployee, true)

	individualErr := make(chan error, 1)
	go func() {
		_, err := svc.GenerateIndividual(context.Background(), alice.ID, 10, alice.ID)
		individualErr <- err
	}()
	<-an.entered

	// The team fan-out reaches alice while her individual generation is still
	// in flight; it must join that computation, not start a second one.
	teamErr := make(chan error, 1)
	go func() {
		_, err := svc.GenerateTeam(context.Background(), boss.ID, 10)
		teamErr <- err
	}()
	time.Sleep(50 * time.Millisecond)
	close(an.release)

	require.NoError(t, <-individualErr)
	require.NoError(t, <-teamErr)
	require.Equal(t, int32(1), an.gatedCalls.Load())

	var count int64
	require.NoError(t, db.Model(&models.SprintReport{}).Count(&count).Error)
	require.Equal(t, int64(2), count)
}

func TestGenerateTeam_RequiresManagerRole(t *testing.T) {
	tr := &fakeTracker{}
	an := &fakeAnalyzer{}
	svc, db := newTestService(t, tr, an)
	trk := seedTracker(t, db)
	alice := seedUser(t, db, "alice", trk.ID, models.RoleEmployee, true)

	_, err := svc.GenerateTeam(context.Background(), alice.ID, 10)
	require.ErrorIs(t, err, apperr.ErrPermissionDenied)
	require.Zero(t, tr.sprintFetches)
	require.Zero(t, an.rateCalls)
}

func TestGenerateTeam_BuildsRatingsWithFallback(t *testing.T) {
	start := time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC)
	tr := &fakeTracker{
		sprints: []tracker.Sprint{sprintFixture(10, start)},
		tasksByUser: map[string][]tracker.Task{
			"boss":  {{ID: "1", Key: "PF-1", StoryPoints: intPtr(1), Status: status(tracker.StatusDone)}},
			"alice": {{ID: "2", Key: "PF-2", StoryPoints: intPtr(5), Status: status(tracker.StatusDone)}},
		},
		logged: map[string]float64{"1": 1.0, "2": 2.0},
	}
	an := &fakeAnalyzer{}
	svc, db := newTestService(t, tr, an)
	trk := seedTracker(t, db)
	boss := seedUser(t, db, "boss", trk.ID, models.RoleManager, true)
	alice := seedUser(t, db, "alice", trk.ID, models.RoleEmployee, true)

	// The model answers for alice only; boss gets the fallback rating.
	an.ratings = []analysis.EmployeeRating{
		{EmployeeID: alice.ID, Rating: 5, RatingExplanation: "strong sprint"},
	}

	rep, err := svc.GenerateTeam(context.Background(), boss.ID, 10)
	require.NoError(t, err)
	require.Equal(t, int64(10), rep.SprintID)
	require.Len(t, rep.EmployeeStats, 2)
	require.Equal(t, 1, an.rateCalls)

	// Sorted best to worst.
	require.Equal(t, alice.ID, rep.EmployeeStats[0].EmployeeID)
	require.Equal(t, 5, rep.EmployeeStats[0].Rating)
	require.Equal(t, boss.ID, rep.EmployeeStats[1].EmployeeID)
	require.Equal(t, 3, rep.EmployeeStats[1].Rating)
	require.Equal(t, "AI rating failed", rep.EmployeeStats[1].RatingExplanation)

	// Individual reports of every member were persisted along the way.
	var count int64
	require.NoError(t, db.Model(&models.SprintReport{}).Count(&count).Error)
	require.Equal(t, int64(2), count)
}

func TestGenerateTeam_SecondCallServesStoredReport(t *testing.T) {
	start := time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC)
	tr := &fakeTracker{
		sprints: []tracker.Sprint{sprintFixture(10, start)},
		tasksByUser: map[string][]tracker.Task{
			"boss": {{ID: "1", Key: "PF-1", Status: status(tracker.StatusDone)}},
		},
	}
	an := &fakeAnalyzer{}
	svc, db := newTestService(t, tr, an)
	trk := seedTracker(t, db)
	boss := seedUser(t, db, "boss", trk.ID, models.RoleManager, true)
	an.ratings = []analysis.EmployeeRating{{EmployeeID: boss.ID, Rating: 4, RatingExplanation: "solid"}}

	first, err := svc.GenerateTeam(context.Background(), boss.ID, 10)
	require.NoError(t, err)
	second, err := svc.GenerateTeam(context.Background(), boss.ID, 10)
	require.NoError(t, err)

	require.Equal(t, first.SprintID, second.SprintID)
	require.Equal(t, first.EmployeeStats, second.EmployeeStats)
	require.Equal(t, 1, an.rateCalls)
}

func TestGenerateTeam_RatingFailureLeavesNothingStored(t *testing.T) {
	start := time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC)
	tr := &fakeTracker{
		sprints: []tracker.Sprint{sprintFixture(10, start)},
		tasksByUser: map[string][]tracker.Task{
			"boss": {{ID: "1", Key: "PF-1", Status: status(tracker.StatusDone)}},
		},
	}
	an := &fakeAnalyzer{failRate: true}
	svc, db := newTestService(t, tr, an)
	trk := seedTracker(t, db)
	boss := seedUser(t, db, "boss", trk.ID, models.RoleManager, true)

	_, err := svc.GenerateTeam(context.Background(), boss.ID, 10)
	require.ErrorIs(t, err, apperr.ErrUnavailable)

	var count int64
	require.NoError(t, db.Model(&models.TeamSprintReport{}).Count(&count).Error)
	require.Zero(t, count)
}
