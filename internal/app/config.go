package app

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/yungbote/progression-backend/internal/data/db"
	"github.com/yungbote/progression-backend/internal/observability"
	"github.com/yungbote/progression-backend/internal/platform/neo4jdb"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	LogMode     string `env:"LOG_MODE" envDefault:"development"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"progression"`
	Environment string `env:"APP_ENV" envDefault:"development"`
	Version     string `env:"APP_VERSION"`

	JWTSecretKey string   `env:"JWT_SECRET_KEY" envDefault:"defaultsecret"`
	JWTIssuer    string   `env:"JWT_ISSUER"`
	CORSOrigins  []string `env:"CORS_ORIGINS" envSeparator:","`

	RedisAddr    string `env:"REDIS_ADDR"`
	RedisChannel string `env:"REDIS_CHANNEL" envDefault:"progression"`

	// ReadTimeout bounds the read phase of an unlock or resync.
	ReadTimeout     time.Duration `env:"PROGRESS_READ_TIMEOUT" envDefault:"3s"`
	GraphCacheTTL   time.Duration `env:"GRAPH_CACHE_TTL" envDefault:"5m"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	AutoMigrate     bool          `env:"DB_AUTO_MIGRATE" envDefault:"true"`

	SLOEnabled      bool          `env:"SLO_ENABLED" envDefault:"false"`
	SLOInterval     time.Duration `env:"SLO_EVAL_INTERVAL" envDefault:"1m"`
	SLOWindow       time.Duration `env:"SLO_WINDOW" envDefault:"24h"`
	SLOUnlockTarget float64       `env:"SLO_UNLOCK_TARGET" envDefault:"0.995"`
	SLOResyncTarget float64       `env:"SLO_RESYNC_TARGET" envDefault:"0.99"`

	DB    db.Config
	Neo4j neo4jdb.Config
	Otel  observability.OtelConfig
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.ReadTimeout < 0 {
		return Config{}, fmt.Errorf("PROGRESS_READ_TIMEOUT must not be negative")
	}
	return cfg, nil
}

// Tracing returns the otel settings stamped with the service identity.
func (c Config) Tracing() observability.OtelConfig {
	out := c.Otel
	out.ServiceName = c.ServiceName
	out.Environment = c.Environment
	out.Version = c.Version
	return out
}

func (c Config) SLO() observability.SLOConfig {
	return observability.SLOConfig{
		Interval:     c.SLOInterval,
		Window:       c.SLOWindow,
		UnlockTarget: c.SLOUnlockTarget,
		ResyncTarget: c.SLOResyncTarget,
	}
}

func (c Config) Addr() string {
	return ":" + c.Port
}
