package app

import (
	"context"

	"github.com/yungbote/progression-backend/internal/data/db"
	"github.com/yungbote/progression-backend/internal/http"
	httpH "github.com/yungbote/progression-backend/internal/http/handlers"
	httpMW "github.com/yungbote/progression-backend/internal/http/middleware"
	"github.com/yungbote/progression-backend/internal/observability"
	"github.com/yungbote/progression-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health   *httpH.HealthHandler
	Skill    *httpH.SkillHandler
	Stats    *httpH.StatsHandler
	Activity *httpH.ActivityHandler
}

func wireHandlers(log *logger.Logger, store *db.Service, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(func(ctx context.Context) error { return store.Ping(ctx) }),
		Skill:    httpH.NewSkillHandler(log, services.Unlock),
		Stats:    httpH.NewStatsHandler(services.Stats),
		Activity: httpH.NewActivityHandler(services.Activity),
	}
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, cfg.JWTSecretKey, cfg.JWTIssuer),
	}
}

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *http.Server {
	return http.NewServer(http.RouterConfig{
		Log:             log,
		Metrics:         metrics,
		ServiceName:     cfg.ServiceName,
		CORSOrigins:     cfg.CORSOrigins,
		AuthMiddleware:  middleware.Auth,
		SkillHandler:    handlers.Skill,
		StatsHandler:    handlers.Stats,
		ActivityHandler: handlers.Activity,
		HealthHandler:   handlers.Health,
	})
}
