// Package tracker implements the Yandex Tracker API gateway: sprint and
// issue lookups scoped to the requesting user's stored OAuth token, with
// transparent token refresh.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/ProfiFlow/backend/internal/apperr"
	"github.com/ProfiFlow/backend/internal/auth"
	"github.com/ProfiFlow/backend/internal/cache"
	"github.com/ProfiFlow/backend/internal/store"

	"github.com/rs/zerolog/log"
	"github.com/sosodev/duration"
	"golang.org/x/oauth2"
)

// Client talks to the Yandex Tracker API on behalf of a stored user.
type Client struct {
	baseURL string
	http    *http.Client
	users   *store.UserStore
	oauth   *auth.YandexOAuth

	cacheTTL     time.Duration
	sprintCache  *cache.TTL[string, Sprint]
	sprintsCache *cache.TTL[string, []Sprint]
}

// NewClient builds a tracker client. cacheTTL bounds how long sprint
// metadata is served from memory before it is refetched.
func NewClient(baseURL string, cacheTTL time.Duration, users *store.UserStore, oauth *auth.YandexOAuth) *Client {
	return &Client{
		baseURL:      baseURL,
		http:         &http.Client{Timeout: 10 * time.Second},
		users:        users,
		oauth:        oauth,
		cacheTTL:     cacheTTL,
		sprintCache:  cache.New[string, Sprint](),
		sprintsCache: cache.New[string, []Sprint](),
	}
}

type credentials struct {
	token string
	orgID string
}

// resolve loads the requester, their current tracker and a valid API token,
// refreshing and persisting the token set when expired.
func (c *Client) resolve(ctx context.Context, requesterID int64) (*credentials, error) {
	user, err := c.users.GetByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.NotFoundf("user %d", requesterID)
	}
	if user.YandexToken == "" {
		return nil, apperr.NotFoundf("user %d has no tracker token bound", requesterID)
	}

	trk, _, err := c.users.CurrentTracker(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if trk == nil {
		return nil, apperr.NotFoundf("user %d has no current tracker", requesterID)
	}
	orgID := trk.OrgID()
	if orgID == "" {
		return nil, apperr.NotFoundf("tracker %d has no organization id", trk.ID)
	}

	token := user.YandexToken
	if user.YandexTokenExpires != nil && time.Now().After(*user.YandexTokenExpires) {
		if user.YandexRefreshToken == "" {
			return nil, apperr.Unavailablef("tracker token for user %d expired and no refresh token is stored", requesterID)
		}
		fresh, err := c.oauth.Refresh(ctx, &oauth2.Token{
			AccessToken:  user.YandexToken,
			RefreshToken: user.YandexRefreshToken,
			Expiry:       *user.YandexTokenExpires,
		})
		if err != nil {
			return nil, apperr.Unavailablef("refresh tracker token for user %d: %v", requesterID, err)
		}
		if err := c.users.UpdateTokens(ctx, requesterID, fresh.AccessToken, fresh.RefreshToken, fresh.Expiry); err != nil {
			return nil, err
		}
		log.Debug().Int64("user_id", requesterID).Msg("refreshed tracker token")
		token = fresh.AccessToken
	}

	return &credentials{token: token, orgID: orgID}, nil
}

// do performs one tracker API call and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, creds *credentials, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "OAuth "+creds.token)
	req.Header.Set("X-Org-ID", creds.orgID)
	req.Header.Set("X-Cloud-Org-ID", creds.orgID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Unavailablef("tracker request %s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperr.NotFoundf("tracker resource %s", path)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return apperr.Unavailablef("tracker responded %s to %s %s", resp.Status, method, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Unavailablef("decode tracker response for %s: %v", path, err)
	}
	return nil
}

// GetSprint fetches sprint metadata by id.
func (c *Client) GetSprint(ctx context.Context, sprintID, requesterID int64) (*Sprint, error) {
	creds, err := c.resolve(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("%s/%d", creds.orgID, sprintID)
	if sprint, ok := c.sprintCache.Get(cacheKey); ok {
		return &sprint, nil
	}

	var dto sprintDTO
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v3/sprints/%d", sprintID), creds, nil, &dto); err != nil {
		return nil, err
	}
	sprint, err := dto.toDomain()
	if err != nil {
		return nil, apperr.Unavailablef("parse sprint: %v", err)
	}

	c.sprintCache.Set(cacheKey, sprint, c.cacheTTL)
	return &sprint, nil
}

// ListSprints returns all sprints of the requester's tracker organization.
func (c *Client) ListSprints(ctx context.Context, requesterID int64) ([]Sprint, error) {
	creds, err := c.resolve(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	if sprints, ok := c.sprintsCache.Get(creds.orgID); ok {
		return sprints, nil
	}

	var dtos []sprintDTO
	if err := c.do(ctx, http.MethodGet, "/v2/sprints", creds, nil, &dtos); err != nil {
		return nil, err
	}

	sprints := make([]Sprint, 0, len(dtos))
	for _, dto := range dtos {
		sprint, err := dto.toDomain()
		if err != nil {
			return nil, apperr.Unavailablef("parse sprint list: %v", err)
		}
		sprints = append(sprints, sprint)
	}

	c.sprintsCache.Set(creds.orgID, sprints, c.cacheTTL)
	return sprints, nil
}

// GetSprintTasks returns the sprint's tasks assigned to the given login.
func (c *Client) GetSprintTasks(ctx context.Context, sprintID, requesterID int64, assigneeLogin string) ([]Task, error) {
	creds, err := c.resolve(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"filter": map[string]any{
			"sprint":   sprintID,
			"assignee": assigneeLogin,
			"type":     "task",
		},
	}
	var dtos []issueDTO
	if err := c.do(ctx, http.MethodPost, "/v3/issues/_search", creds, body, &dtos); err != nil {
		return nil, err
	}

	tasks := make([]Task, 0, len(dtos))
	for _, dto := range dtos {
		task, err := dto.toDomain()
		if err != nil {
			return nil, apperr.Unavailablef("parse sprint tasks: %v", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// GetLoggedTime sums the issue's worklog durations, in hours rounded to 0.1.
func (c *Client) GetLoggedTime(ctx context.Context, issueID string, requesterID int64) (float64, error) {
	creds, err := c.resolve(ctx, requesterID)
	if err != nil {
		return 0, err
	}

	var entries []worklogDTO
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v3/issues/%s/worklog", issueID), creds, nil, &entries); err != nil {
		return 0, err
	}

	var totalSeconds float64
	for _, entry := range entries {
		if entry.Duration == "" {
			continue
		}
		d, err := duration.Parse(entry.Duration)
		if err != nil {
			log.Warn().Str("issue", issueID).Str("duration", entry.Duration).Msg("skipping unparsable worklog duration")
			continue
		}
		totalSeconds += d.ToTimeDuration().Seconds()
	}

	return math.Round(totalSeconds/3600*10) / 10, nil
}
