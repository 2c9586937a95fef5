package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/ProfiFlow/backend/internal/auth"
	"github.com/ProfiFlow/backend/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const stateCookie = "oauth_state"

// AuthHandler serves the Yandex OAuth login flow and issues API tokens.
type AuthHandler struct {
	oauth *auth.YandexOAuth
	users *store.UserStore
}

func NewAuthHandler(oauth *auth.YandexOAuth, users *store.UserStore) *AuthHandler {
	return &AuthHandler{oauth: oauth, users: users}
}

// Login handles GET /api/auth/yandex/login.
// Redirects the browser to the provider's consent page with a random state
// bound to a short-lived cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate login state"})
		return
	}
	state := hex.EncodeToString(buf)

	c.SetCookie(stateCookie, state, int((10 * time.Minute).Seconds()), "/", "", false, true)
	c.Redirect(http.StatusTemporaryRedirect, h.oauth.AuthURL(state))
}

// Callback handles GET /api/auth/yandex/callback.
// Exchanges the authorization code, upserts the user and returns a JWT.
func (h *AuthHandler) Callback(c *gin.Context) {
	state := c.Query("state")
	expected, err := c.Cookie(stateCookie)
	if err != nil || state == "" || state != expected {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid OAuth state"})
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", false, true)

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Authorization code is required"})
		return
	}

	ctx := c.Request.Context()
	token, err := h.oauth.Exchange(ctx, code)
	if err != nil {
		log.Warn().Err(err).Msg("oauth code exchange failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to exchange authorization code"})
		return
	}

	info, err := h.oauth.FetchUserInfo(ctx, token.AccessToken)
	if err != nil {
		log.Warn().Err(err).Msg("oauth user info fetch failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch user profile"})
		return
	}

	yandexID, err := info.YandexID()
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Provider returned an invalid user id"})
		return
	}

	avatarURL := ""
	if info.AvatarID != "" {
		avatarURL = fmt.Sprintf("https://avatars.yandex.net/get-yapic/%s/islands-200", info.AvatarID)
	}
	displayName := info.DisplayName
	if displayName == "" {
		displayName = info.Login
	}

	user, err := h.users.CreateOrUpdateFromOAuth(ctx, store.OAuthProfile{
		YandexID:    yandexID,
		Login:       info.Login,
		Email:       info.Email,
		DisplayName: displayName,
		FirstName:   info.FirstName,
		LastName:    info.LastName,
		AvatarURL:   avatarURL,
	}, token.AccessToken, token.RefreshToken, token.Expiry)
	if err != nil {
		abortWithError(c, err)
		return
	}

	apiToken, err := auth.GenerateToken(user.ID, user.Login)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	log.Info().Int64("user_id", user.ID).Str("login", user.Login).Msg("user logged in")
	c.JSON(http.StatusOK, gin.H{
		"token": apiToken,
		"user":  user,
	})
}
