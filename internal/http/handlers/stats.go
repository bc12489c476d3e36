package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/progression-backend/internal/http/response"
	"github.com/yungbote/progression-backend/internal/services"
)

type StatsHandler struct {
	stats services.StatsService
}

func NewStatsHandler(stats services.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// GET /api/stats
//
// Always recomputes from the activity sources, so the response never lags the
// stored snapshot.
func (h *StatsHandler) GetStats(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	data, err := h.stats.Resync(c.Request.Context(), userID)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, data)
}
