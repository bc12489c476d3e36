package app

import (
	"context"
	"fmt"

	"github.com/yungbote/progression-backend/internal/clients/redis"
	"github.com/yungbote/progression-backend/internal/data/db"
	"github.com/yungbote/progression-backend/internal/http"
	"github.com/yungbote/progression-backend/internal/observability"
	"github.com/yungbote/progression-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Store    *db.Service
	Cfg      Config
	Repos    Repos
	Clients  Clients
	Services Services
	Metrics  *observability.Metrics
	Server   *http.Server

	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	otelShutdown := observability.InitOTel(ctx, log, cfg.Tracing())
	metrics := observability.Init(log)

	store, err := db.NewService(cfg.DB, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if cfg.AutoMigrate {
		if err := store.AutoMigrateAll(); err != nil {
			_ = store.Close()
			log.Sync()
			return nil, fmt.Errorf("automigrate: %w", err)
		}
	}

	clients, err := wireClients(log, cfg)
	if err != nil {
		_ = store.Close()
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(store.DB(), log)
	serviceset := wireServices(store.DB(), log, cfg, reposet, clients, metrics)
	handlerset := wireHandlers(log, store, serviceset)
	middleware := wireMiddleware(log, cfg)
	server := wireServer(log, cfg, metrics, handlerset, middleware)

	return &App{
		Log:          log,
		Store:        store,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clients,
		Services:     serviceset,
		Metrics:      metrics,
		Server:       server,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches background work. Catalog changes published by a seed run in
// another process drop this process's cached skill graph.
func (a *App) Start(ctx context.Context) error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if a.Cfg.SLOEnabled {
		observability.NewSLOEvaluator(a.Metrics, a.Log, a.Cfg.SLO()).Start(ctx)
	}

	if a.Clients.Bus != nil {
		err := a.Clients.Bus.StartForwarder(ctx, func(ev redis.ProgressEvent) {
			if ev.Type == redis.EventCatalogChanged {
				a.Log.Info("catalog changed, dropping cached skill graph")
				a.Services.Graphs.Invalidate()
			}
		})
		if err != nil {
			return fmt.Errorf("start progress forwarder: %w", err)
		}
	}
	return nil
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("http server listening", "addr", a.Cfg.Addr())
	return a.Server.Run(a.Cfg.Addr())
}

func (a *App) Shutdown(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return nil
	}
	return a.Server.Shutdown(ctx)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.Clients.Close()
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.Store != nil {
		_ = a.Store.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
