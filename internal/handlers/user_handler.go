package handlers

import (
	"net/http"

	"github.com/ProfiFlow/backend/internal/middleware"
	"github.com/ProfiFlow/backend/internal/models"
	"github.com/ProfiFlow/backend/internal/store"

	"github.com/gin-gonic/gin"
)

// UserResponse is the safe user payload exposed by the API.
type UserResponse struct {
	ID          int64  `json:"id"`
	Login       string `json:"login"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Login:       u.Login,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}

// UserHandler serves the profile and team member endpoints.
type UserHandler struct {
	users *store.UserStore
}

func NewUserHandler(users *store.UserStore) *UserHandler {
	return &UserHandler{users: users}
}

// Me handles GET /api/me.
// Returns the caller's profile together with the current tracker binding.
func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	trk, role, err := h.users.CurrentTracker(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := gin.H{"user": toUserResponse(user)}
	if trk != nil {
		resp["current_tracker"] = trk
		resp["role"] = role
	}
	c.JSON(http.StatusOK, resp)
}

// GetAllUsers handles GET /api/users.
// Returns the active members of the caller's current tracker.
func (h *UserHandler) GetAllUsers(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}

	trk, _, err := h.users.CurrentTracker(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if trk == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No current tracker selected"})
		return
	}

	members, err := h.users.UsersForTracker(c.Request.Context(), trk.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := make([]UserResponse, 0, len(members))
	for i := range members {
		resp = append(resp, toUserResponse(&members[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"users": resp,
		"count": len(resp),
	})
}
