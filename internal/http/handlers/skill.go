package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/progression-backend/internal/http/response"
	"github.com/yungbote/progression-backend/internal/platform/logger"
	"github.com/yungbote/progression-backend/internal/services"
)

type SkillHandler struct {
	log     *logger.Logger
	unlocks services.UnlockService
}

func NewSkillHandler(log *logger.Logger, unlocks services.UnlockService) *SkillHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &SkillHandler{log: log.With("handler", "SkillHandler"), unlocks: unlocks}
}

type unlockRequest struct {
	Context map[string]any `json:"context"`
}

// POST /api/skills/:id/unlock
//
// Both a fresh unlock and CONDITIONS_NOT_MET answer 200; the body says which.
func (h *SkillHandler) Unlock(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	nodeID, ok := pathUUID(c, "id", "invalid_skill_id")
	if !ok {
		return
	}
	var req unlockRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}
	res, err := h.unlocks.AttemptUnlock(c.Request.Context(), userID, nodeID, req.Context)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, res)
}

// GET /api/skills/:id
func (h *SkillHandler) GetSkill(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	nodeID, ok := pathUUID(c, "id", "invalid_skill_id")
	if !ok {
		return
	}
	details, err := h.unlocks.GetNodeDetails(c.Request.Context(), nodeID, userID)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	if details == nil {
		response.RespondError(c, http.StatusNotFound, "skill_not_found", errors.New("skill not found"))
		return
	}
	response.RespondOK(c, details)
}

// GET /api/skills
func (h *SkillHandler) ListSkills(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	graph, err := h.unlocks.GetGraphWithProgress(c.Request.Context(), userID)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, graph)
}
