package neo4jdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/yungbote/progression-backend/internal/platform/logger"
)

type Config struct {
	URI            string `env:"NEO4J_URI"`
	User           string `env:"NEO4J_USER" envDefault:"neo4j"`
	Password       string `env:"NEO4J_PASSWORD"`
	Database       string `env:"NEO4J_DATABASE"`
	TimeoutSeconds int    `env:"NEO4J_TIMEOUT_SECONDS" envDefault:"10"`
	MaxPoolSize    int    `env:"NEO4J_MAX_POOL_SIZE" envDefault:"50"`
}

type Client struct {
	Driver   neo4j.DriverWithContext
	Database string
	log      *logger.Logger
}

// NewFromEnv parses NEO4J_* and connects. Returns nil, nil when NEO4J_URI is
// unset so the mirror stays optional.
func NewFromEnv(log *logger.Logger) (*Client, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("neo4jdb: parse env: %w", err)
	}
	return New(cfg, log)
}

func New(cfg Config, log *logger.Logger) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("neo4jdb: logger required")
	}
	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, nil
	}
	user := strings.TrimSpace(cfg.User)
	if user == "" {
		user = "neo4j"
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxPool := cfg.MaxPoolSize
	if maxPool <= 0 {
		maxPool = 50
	}

	auth := neo4j.BasicAuth(user, strings.TrimSpace(cfg.Password), "")
	driver, err := neo4j.NewDriverWithContext(uri, auth, func(c *neo4j.Config) {
		c.MaxConnectionPoolSize = maxPool
		c.SocketConnectTimeout = timeout
	})
	if err != nil {
		return nil, fmt.Errorf("neo4jdb: init driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4jdb: verify connectivity: %w", err)
	}

	return &Client{
		Driver:   driver,
		Database: strings.TrimSpace(cfg.Database),
		log:      log.With("client", "Neo4jDB"),
	}, nil
}

func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.Driver == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := c.Driver.Close(ctx)
	c.Driver = nil
	return err
}
