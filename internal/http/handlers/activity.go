package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/progression-backend/internal/http/response"
	"github.com/yungbote/progression-backend/internal/services"
)

type ActivityHandler struct {
	activity services.ActivityService
}

func NewActivityHandler(activity services.ActivityService) *ActivityHandler {
	return &ActivityHandler{activity: activity}
}

// POST /api/sessions
func (h *ActivityHandler) RecordSession(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	var req services.RecordSessionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	out, err := h.activity.RecordSession(c.Request.Context(), userID, req)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

type completeGoalRequest struct {
	Title string `json:"title" binding:"required"`
}

// POST /api/daily-goals/complete
func (h *ActivityHandler) CompleteDailyGoal(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	var req completeGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	out, err := h.activity.CompleteDailyGoal(c.Request.Context(), userID, req.Title)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, out)
}

type grantAchievementRequest struct {
	Key string `json:"key" binding:"required"`
}

// POST /api/achievements
func (h *ActivityHandler) GrantAchievement(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	var req grantAchievementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	out, err := h.activity.GrantAchievement(c.Request.Context(), userID, req.Key)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, out)
}
