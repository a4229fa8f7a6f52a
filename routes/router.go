package routes

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cppla/madickblog/config"
	"github.com/cppla/madickblog/controllers"
	"github.com/cppla/madickblog/middleware"
	"github.com/cppla/madickblog/service"
	"github.com/cppla/madickblog/utils"
)

// Deps are the collaborators the router wires into controllers.
type Deps struct {
	Config config.AppConfig
	Engine *service.Engine
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(deps Deps) *gin.Engine {
	cfg := deps.Config
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	if cfg.GinPath != "" {
		gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg)
		if err == nil {
			r.Use(utils.Ginzap(gl, time.RFC3339, true))
			r.Use(utils.RecoveryWithZap(gl, false))
		} else {
			utils.Sugar.Warnf("gin log %s unavailable, using the application logger: %v", cfg.GinPath, err)
			r.Use(utils.Ginzap(utils.Logger, time.RFC3339, true))
			r.Use(utils.RecoveryWithZap(utils.Logger, true))
		}
	} else {
		r.Use(utils.Ginzap(utils.Logger, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(utils.Logger, true))
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", utils.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", utils.RequestIDHeader, controllers.DegradedHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()
		if err := deps.Engine.Health(pingCtx); err != nil {
			utils.ErrorWithData(ctx, http.StatusServiceUnavailable, 50300, "store unreachable",
				gin.H{"status": "degraded", "store": deps.Engine.Store().Name()})
			return
		}
		utils.Success(ctx, gin.H{"status": "ok", "store": deps.Engine.Store().Name()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authController := controllers.NewAuthController(deps.Engine.Store(), cfg.JWTSecret, time.Duration(cfg.TokenTTLHours)*time.Hour)
	postController := controllers.NewPostController(deps.Engine)
	statsController := controllers.NewStatsController(deps.Engine)
	configController := controllers.NewConfigController(deps.Engine)

	requireAuth := middleware.AuthRequired(cfg.JWTSecret)
	optionalAuth := middleware.OptionalAuth(cfg.JWTSecret)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", requireAuth, authController.Logout)
	authGroup.GET("/me", requireAuth, authController.Me)

	api.GET("/stats", statsController.GetStats)
	api.GET("/categories", configController.GetCategories)

	postsGroup := api.Group("/posts")
	postsGroup.GET("", postController.ListPosts)
	postsGroup.GET("/:id", postController.GetPost)
	postsGroup.GET("/:id/comments", postController.ListComments)
	postsGroup.POST("/:id/like", postController.LikePost)
	postsGroup.PATCH("/:id/like", postController.LikePost)

	// The engine decides what an anonymous caller may do.
	postsGroup.POST("", optionalAuth, postController.CreatePost)
	postsGroup.POST("/:id/comments", optionalAuth, postController.CreateComment)
	postsGroup.POST("/:id/comment", optionalAuth, postController.CreateComment)
	postsGroup.PUT("/:id", optionalAuth, postController.UpdatePost)
	postsGroup.DELETE("/:id", optionalAuth, postController.DeletePost)

	api.GET("/comments/:id", postController.GetComment)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		utils.Error(ctx, http.StatusNotFound, 40400, "not found")
	})

	return r
}
