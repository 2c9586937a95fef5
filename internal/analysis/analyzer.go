// Package analysis turns sprint data into qualitative output through the
// structured-output LLM gateway: activity analysis, recommendations and
// team ratings.
package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/ProfiFlow/backend/internal/llm"
	"github.com/ProfiFlow/backend/internal/models"
	"github.com/ProfiFlow/backend/internal/stats"
	"github.com/ProfiFlow/backend/internal/tracker"
)

// maxRecommendations caps the recommendation list regardless of how many
// items the model returns.
const maxRecommendations = 3

// EmployeeStats pairs a team member's identity with sprint metrics for the
// batched team rating call.
type EmployeeStats struct {
	EmployeeID   int64
	EmployeeName string
	Stats        stats.SprintStats
}

// EmployeeRating is one employee's rating from the team rating call.
type EmployeeRating struct {
	EmployeeID        int64  `json:"employee_id"`
	Rating            int    `json:"rating"`
	RatingExplanation string `json:"rating_explanation"`
}

// Analyzer produces qualitative report content.
type Analyzer struct {
	gateway llm.Gateway
}

// NewAnalyzer creates an Analyzer over the given model gateway.
func NewAnalyzer(gateway llm.Gateway) *Analyzer {
	return &Analyzer{gateway: gateway}
}

// AnalyzeActivity returns free-text analysis of one employee's sprint.
func (a *Analyzer) AnalyzeActivity(ctx context.Context, tasks []tracker.Task, st stats.SprintStats) (string, error) {
	lines := make([]string, 0, len(tasks))
	for _, task := range tasks {
		lines = append(lines, fmt.Sprintf("- %s (status: %s)", task.Summary, task.Status.Key))
	}
	taskBlock := strings.Join(lines, "\n")
	if taskBlock == "" {
		taskBlock = "No tasks in this sprint."
	}

	userPrompt := fmt.Sprintf(activityUserPromptTemplate,
		taskBlock, st.TotalStoryPoints, st.TotalTasks, st.DeadlinesMissed, st.AverageCompletionTime)

	var resp struct {
		Text string `json:"text"`
	}
	if err := a.gateway.CompleteStructured(ctx, activitySystemPrompt, userPrompt, textSchemaJSON, &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Recommend returns up to three ranked recommendations for the next sprint,
// in the order the model produced them.
func (a *Analyzer) Recommend(ctx context.Context, st stats.SprintStats) ([]models.Recommendation, error) {
	userPrompt := fmt.Sprintf(recommendationsUserPromptTemplate,
		st.TotalStoryPoints, st.TotalTasks, st.DeadlinesMissed, st.AverageCompletionTime)

	var resp struct {
		Recommendations []models.Recommendation `json:"recommendations"`
	}
	if err := a.gateway.CompleteStructured(ctx, recommendationsSystemPrompt, userPrompt, recommendationsSchemaJSON, &resp); err != nil {
		return nil, err
	}

	if len(resp.Recommendations) > maxRecommendations {
		return resp.Recommendations[:maxRecommendations], nil
	}
	return resp.Recommendations, nil
}

// RateTeam rates every listed employee with a single model call. previous
// may cover only a subset of the team, or be empty.
func (a *Analyzer) RateTeam(ctx context.Context, current, previous []EmployeeStats) ([]EmployeeRating, error) {
	previousBlock := statsBlock(previous)
	if previousBlock == "" {
		previousBlock = "No data."
	}
	userPrompt := fmt.Sprintf(teamRatingUserPromptTemplate, statsBlock(current), previousBlock)

	var resp struct {
		Ratings []EmployeeRating `json:"ratings"`
	}
	if err := a.gateway.CompleteStructured(ctx, teamRatingSystemPrompt, userPrompt, teamRatingsSchemaJSON, &resp); err != nil {
		return nil, err
	}
	return resp.Ratings, nil
}

func statsBlock(employees []EmployeeStats) string {
	lines := make([]string, 0, len(employees))
	for _, e := range employees {
		lines = append(lines, fmt.Sprintf(
			"- %s (ID: %d): story points=%d, tasks=%d, missed deadlines=%d, avg completion=%.1fh",
			e.EmployeeName, e.EmployeeID,
			e.Stats.TotalStoryPoints, e.Stats.TotalTasks, e.Stats.DeadlinesMissed, e.Stats.AverageCompletionTime))
	}
	return strings.Join(lines, "\n")
}
