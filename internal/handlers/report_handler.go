package handlers

import (
	"net/http"

	"github.com/ProfiFlow/backend/internal/middleware"
	"github.com/ProfiFlow/backend/internal/report"

	"github.com/gin-gonic/gin"
)

// CreateReportRequest represents the request payload for generating an
// individual sprint report. UserID is optional and defaults to the caller.
type CreateReportRequest struct {
	SprintID int64 `json:"sprint_id" binding:"required"`
	UserID   int64 `json:"user_id"`
}

// CreateTeamReportRequest represents the request payload for generating a
// team sprint report.
type CreateTeamReportRequest struct {
	SprintID int64 `json:"sprint_id" binding:"required"`
}

// ReportHandler serves the report generation endpoints.
type ReportHandler struct {
	service *report.Service
	tracker report.TrackerGateway
}

func NewReportHandler(service *report.Service, tracker report.TrackerGateway) *ReportHandler {
	return &ReportHandler{service: service, tracker: tracker}
}

// CreateReport handles POST /api/reports.
// Returns the stored report when one exists for the key, otherwise computes
// and persists it first.
func (h *ReportHandler) CreateReport(c *gin.Context) {
	requesterID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}

	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	userID := req.UserID
	if userID == 0 {
		userID = requesterID
	}

	rep, err := h.service.GenerateIndividual(c.Request.Context(), userID, req.SprintID, requesterID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// CreateTeamReport handles POST /api/reports/team (manager only).
func (h *ReportHandler) CreateTeamReport(c *gin.Context) {
	requesterID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}

	var req CreateTeamReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	rep, err := h.service.GenerateTeam(c.Request.Context(), requesterID, req.SprintID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// ListSprints handles GET /api/reports/sprints.
// Returns the sprints of the caller's current tracker, most recent first.
func (h *ReportHandler) ListSprints(c *gin.Context) {
	requesterID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}

	sprints, err := h.tracker.ListSprints(c.Request.Context(), requesterID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sprints": sprints,
		"count":   len(sprints),
	})
}
