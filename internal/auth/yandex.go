package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ProfiFlow/backend/internal/config"

	"golang.org/x/oauth2"
)

const yandexInfoURL = "https://login.yandex.ru/info"

// YandexOAuth wraps the Yandex OAuth application used both for login and
// for refreshing stored tracker API tokens.
type YandexOAuth struct {
	cfg     *oauth2.Config
	infoURL string
	http    *http.Client
}

// NewYandexOAuth builds the OAuth client from application config.
func NewYandexOAuth(cfg config.OAuthConfig) *YandexOAuth {
	return &YandexOAuth{
		cfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://oauth.yandex.ru/authorize",
				TokenURL: "https://oauth.yandex.ru/token",
			},
		},
		infoURL: yandexInfoURL,
		http:    http.DefaultClient,
	}
}

// AuthURL returns the provider consent page URL for the given state.
func (y *YandexOAuth) AuthURL(state string) string {
	return y.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token set.
func (y *YandexOAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := y.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange oauth code: %w", err)
	}
	return token, nil
}

// Refresh returns a valid token for the stored token set, refreshing it
// against the provider when expired.
func (y *YandexOAuth) Refresh(ctx context.Context, stored *oauth2.Token) (*oauth2.Token, error) {
	token, err := y.cfg.TokenSource(ctx, stored).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh oauth token: %w", err)
	}
	return token, nil
}

// UserInfo is the provider profile for a logged-in user.
type UserInfo struct {
	ID          string `json:"id"`
	Login       string `json:"login"`
	Email       string `json:"default_email"`
	DisplayName string `json:"display_name"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	AvatarID    string `json:"default_avatar_id"`
}

// YandexID returns the numeric provider id.
func (i UserInfo) YandexID() (int64, error) {
	id, err := strconv.ParseInt(i.ID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse yandex user id %q: %w", i.ID, err)
	}
	return id, nil
}

// FetchUserInfo loads the profile of the token's owner.
func (y *YandexOAuth) FetchUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.infoURL+"?format=json", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "OAuth "+accessToken)

	resp, err := y.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch user info: unexpected status %s", resp.Status)
	}

	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}
	return &info, nil
}
