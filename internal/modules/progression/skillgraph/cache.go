package skillgraph

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yungbote/progression-backend/internal/data/repos"
	"github.com/yungbote/progression-backend/internal/observability"
	"github.com/yungbote/progression-backend/internal/platform/dbctx"
	"github.com/yungbote/progression-backend/internal/platform/logger"
)

// Loader reads the full catalog and builds a Graph.
type Loader func(ctx context.Context) (*Graph, error)

// RepoLoader builds graphs from the node and edge tables.
func RepoLoader(nodes repos.SkillNodeRepo, edges repos.SkillEdgeRepo) Loader {
	return func(ctx context.Context) (*Graph, error) {
		dbc := dbctx.Context{Ctx: ctx}
		ns, err := nodes.ListAll(dbc)
		if err != nil {
			return nil, fmt.Errorf("list skill nodes: %w", err)
		}
		es, err := edges.ListAll(dbc)
		if err != nil {
			return nil, fmt.Errorf("list skill edges: %w", err)
		}
		return Build(ns, es), nil
	}
}

type CacheConfig struct {
	// TTL forces a rebuild once the graph is older than this. Zero keeps the
	// graph until Invalidate.
	TTL     time.Duration
	Now     func() time.Time
	Metrics *observability.Metrics
}

// Cache is the only process-wide progression state. Invalidate bumps the
// generation; the next Get rebuilds. Concurrent rebuilds collapse into one
// load.
type Cache struct {
	load Loader
	log  *logger.Logger
	ttl  time.Duration
	now  func() time.Time
	mets *observability.Metrics

	gen atomic.Uint64
	sf  singleflight.Group

	mu       sync.RWMutex
	graph    *Graph
	builtGen uint64
	builtAt  time.Time
}

func NewCache(load Loader, baseLog *logger.Logger, cfg CacheConfig) *Cache {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Cache{
		load: load,
		log:  baseLog.With("component", "SkillGraphCache"),
		ttl:  cfg.TTL,
		now:  now,
		mets: cfg.Metrics,
	}
}

// Get returns the current graph, rebuilding it when stale.
func (c *Cache) Get(ctx context.Context) (*Graph, error) {
	if g := c.fresh(); g != nil {
		return g, nil
	}
	v, err, _ := c.sf.Do("graph", func() (interface{}, error) {
		if g := c.fresh(); g != nil {
			return g, nil
		}
		gen := c.gen.Load()
		g, err := c.load(ctx)
		if err != nil {
			c.mets.IncGraphRebuild("error")
			return nil, err
		}
		c.mu.Lock()
		c.graph = g
		c.builtGen = gen
		c.builtAt = c.now()
		c.mu.Unlock()
		c.mets.IncGraphRebuild("success")
		c.log.Debug("skill graph rebuilt", "generation", gen, "nodes", g.Len())
		return g, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Graph), nil
}

// Invalidate marks the cached graph stale. Safe to call from any goroutine.
func (c *Cache) Invalidate() {
	gen := c.gen.Add(1)
	c.log.Debug("skill graph invalidated", "generation", gen)
}

func (c *Cache) Generation() uint64 {
	return c.gen.Load()
}

func (c *Cache) fresh() *Graph {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.graph == nil || c.builtGen != c.gen.Load() {
		return nil
	}
	if c.ttl > 0 && c.now().Sub(c.builtAt) >= c.ttl {
		return nil
	}
	return c.graph
}
