package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/madickblog/service"
	"github.com/cppla/madickblog/utils"
)

// ConfigController serves configuration-driven data for clients.
type ConfigController struct {
	engine *service.Engine
}

func NewConfigController(engine *service.Engine) *ConfigController {
	return &ConfigController{engine: engine}
}

// GetCategories returns the configured categories with live post counts.
func (c *ConfigController) GetCategories(ctx *gin.Context) {
	cats, err := c.engine.Categories(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, cats)
}
