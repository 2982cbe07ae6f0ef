package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/bbsforum/services"
	"github.com/cppla/bbsforum/utils"
)

// StatsController provides forum statistics.
type StatsController struct {
	stats *services.StatsService
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(stats *services.StatsService) *StatsController {
	return &StatsController{stats: stats}
}

// GetStats returns aggregate counts of live members, posts, comments and attachments.
func (s *StatsController) GetStats(ctx *gin.Context) {
	totals, err := s.stats.Totals(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, totals)
}
