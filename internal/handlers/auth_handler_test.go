package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ProfiFlow/backend/internal/auth"
	"github.com/ProfiFlow/backend/internal/config"
	"github.com/ProfiFlow/backend/internal/store"
	"github.com/ProfiFlow/backend/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)

	h := NewAuthHandler(auth.NewYandexOAuth(config.OAuthConfig{
		ClientID:    "client-1",
		RedirectURL: "http://localhost:8008/api/auth/yandex/callback",
	}), store.NewUserStore(db))

	r := gin.New()
	r.GET("/api/auth/yandex/login", h.Login)
	r.GET("/api/auth/yandex/callback", h.Callback)
	return r
}

func TestLogin_RedirectsToProviderWithState(t *testing.T) {
	r := newAuthRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/yandex/login", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusTemporaryRedirect, w.Code)

	location := w.Header().Get("Location")
	require.Contains(t, location, "oauth.yandex.ru/authorize")
	require.Contains(t, location, "client_id=client-1")
	require.Contains(t, location, "state=")

	var state string
	for _, c := range w.Result().Cookies() {
		if c.Name == stateCookie {
			state = c.Value
		}
	}
	require.NotEmpty(t, state)
	require.Contains(t, location, "state="+state)
}

func TestCallback_RejectsMismatchedState(t *testing.T) {
	r := newAuthRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/yandex/callback?state=forged&code=abc", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "expected"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCallback_RequiresCode(t *testing.T) {
	r := newAuthRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/yandex/callback?state=s1", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "s1"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
