package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/progression-backend/internal/platform/logger"
)

const (
	EventSkillUnlocked  = "skill_unlocked"
	EventStatsUpdated   = "stats_updated"
	EventCatalogChanged = "catalog_changed"
)

// ProgressEvent is the envelope published on the progress channel.
// UserID is empty for catalog-wide events.
type ProgressEvent struct {
	Type    string          `json:"type"`
	UserID  *uuid.UUID      `json:"user_id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	At      time.Time       `json:"at"`
}

// NewProgressEvent marshals payload into an event stamped with the current time.
func NewProgressEvent(eventType string, userID uuid.UUID, payload any) (ProgressEvent, error) {
	ev := ProgressEvent{Type: eventType, At: time.Now().UTC()}
	if userID != uuid.Nil {
		id := userID
		ev.UserID = &id
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return ProgressEvent{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
		}
		ev.Payload = raw
	}
	return ev, nil
}

type ProgressBus interface {
	Publish(ctx context.Context, ev ProgressEvent) error
	StartForwarder(ctx context.Context, onMsg func(ev ProgressEvent)) error
	Close() error
}

type BusConfig struct {
	Addr    string
	Channel string
}

type progressBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewProgressBus(cfg BusConfig, log *logger.Logger) (ProgressBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ch := strings.TrimSpace(cfg.Channel)
	if ch == "" {
		ch = "progression"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &progressBus{
		log:     log.With("service", "RedisProgressBus"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (b *progressBus) Publish(ctx context.Context, ev ProgressEvent) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis progress bus not initialized")
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *progressBus) StartForwarder(ctx context.Context, onMsg func(ev ProgressEvent)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis progress bus not initialized")
	}
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				ev, err := DecodeProgressEvent([]byte(m.Payload))
				if err != nil {
					b.log.Warn("bad redis progress payload", "error", err)
					continue
				}
				onMsg(ev)
			}
		}
	}()

	return nil
}

func (b *progressBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}

func DecodeProgressEvent(raw []byte) (ProgressEvent, error) {
	var ev ProgressEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return ProgressEvent{}, err
	}
	if strings.TrimSpace(ev.Type) == "" {
		return ProgressEvent{}, fmt.Errorf("progress event missing type")
	}
	return ev, nil
}
