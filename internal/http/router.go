package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/progression-backend/internal/http/handlers"
	httpMW "github.com/yungbote/progression-backend/internal/http/middleware"
	"github.com/yungbote/progression-backend/internal/observability"
	"github.com/yungbote/progression-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	AuthMiddleware *httpMW.AuthMiddleware

	SkillHandler    *httpH.SkillHandler
	StatsHandler    *httpH.StatsHandler
	ActivityHandler *httpH.ActivityHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}
	if cfg.Metrics != nil {
		r.Use(httpMW.Metrics(cfg.Metrics, "/metrics", "/healthcheck", "/readyz"))
	}
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	protected := r.Group("/api")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Skills
		if cfg.SkillHandler != nil {
			protected.GET("/skills", cfg.SkillHandler.ListSkills)
			protected.GET("/skills/:id", cfg.SkillHandler.GetSkill)
			protected.POST("/skills/:id/unlock", cfg.SkillHandler.Unlock)
		}

		// Stats
		if cfg.StatsHandler != nil {
			protected.GET("/stats", cfg.StatsHandler.GetStats)
		}

		// Activity
		if cfg.ActivityHandler != nil {
			protected.POST("/sessions", cfg.ActivityHandler.RecordSession)
			protected.POST("/daily-goals/complete", cfg.ActivityHandler.CompleteDailyGoal)
			protected.POST("/achievements", cfg.ActivityHandler.GrantAchievement)
		}
	}

	return r
}
