package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/progression-backend/internal/clients/redis"
	"github.com/yungbote/progression-backend/internal/platform/logger"
	"github.com/yungbote/progression-backend/internal/platform/neo4jdb"
)

// Clients holds the optional external connections. Either may be nil.
type Clients struct {
	Bus   redis.ProgressBus
	Neo4j *neo4jdb.Client
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis
	var bus redis.ProgressBus
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		b, err := redis.NewProgressBus(redis.BusConfig{Addr: cfg.RedisAddr, Channel: cfg.RedisChannel}, log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis progress bus: %w", err)
		}
		bus = b
	}

	// Neo4j
	graph, err := neo4jdb.New(cfg.Neo4j, log)
	if err != nil {
		if bus != nil {
			_ = bus.Close()
		}
		return Clients{}, fmt.Errorf("init neo4j: %w", err)
	}

	return Clients{Bus: bus, Neo4j: graph}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
	if c.Neo4j != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.Neo4j.Close(ctx)
	}
}
