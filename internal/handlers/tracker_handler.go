package handlers

import (
	"net/http"

	"github.com/ProfiFlow/backend/internal/middleware"
	"github.com/ProfiFlow/backend/internal/models"
	"github.com/ProfiFlow/backend/internal/store"

	"github.com/gin-gonic/gin"
)

// SetCurrentTrackerRequest represents the request payload for selecting the
// caller's current tracker.
type SetCurrentTrackerRequest struct {
	TrackerID int64       `json:"tracker_id" binding:"required"`
	Role      models.Role `json:"role"`
}

// TrackerHandler serves the tracker selection endpoints.
type TrackerHandler struct {
	users    *store.UserStore
	trackers *store.TrackerStore
}

func NewTrackerHandler(users *store.UserStore, trackers *store.TrackerStore) *TrackerHandler {
	return &TrackerHandler{users: users, trackers: trackers}
}

// ListTrackers handles GET /api/trackers.
func (h *TrackerHandler) ListTrackers(c *gin.Context) {
	trackers, err := h.trackers.ListActive(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"trackers": trackers,
		"count":    len(trackers),
	})
}

// SetCurrentTracker handles PUT /api/trackers/current.
// Binds the caller to the tracker and marks it as their current one. The
// role defaults to employee for a new binding.
func (h *TrackerHandler) SetCurrentTracker(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}

	var req SetCurrentTrackerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	role := req.Role
	switch role {
	case "":
		role = models.RoleEmployee
	case models.RoleManager, models.RoleEmployee:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
		return
	}

	trk, err := h.trackers.GetByID(c.Request.Context(), req.TrackerID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if trk == nil || !trk.IsActive {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tracker not found"})
		return
	}

	if err := h.users.SetCurrentTracker(c.Request.Context(), userID, trk.ID, role); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"current_tracker": trk,
		"role":            role,
	})
}
