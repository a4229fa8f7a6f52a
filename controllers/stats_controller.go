package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/madickblog/service"
	"github.com/cppla/madickblog/utils"
)

// StatsController provides blog-wide counters.
type StatsController struct {
	engine *service.Engine
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(engine *service.Engine) *StatsController {
	return &StatsController{engine: engine}
}

// GetStats returns post, comment, user and like totals.
func (s *StatsController) GetStats(ctx *gin.Context) {
	st, err := s.engine.Stats(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, st)
}
