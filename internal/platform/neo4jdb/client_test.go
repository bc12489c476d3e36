package neo4jdb

import (
	"testing"

	"github.com/yungbote/progression-backend/internal/platform/logger"
)

func TestNewWithoutURIIsDisabled(t *testing.T) {
	c, err := New(Config{}, logger.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c != nil {
		t.Fatalf("expected nil client when NEO4J_URI is unset")
	}
}

func TestNewFromEnvWithoutURIIsDisabled(t *testing.T) {
	t.Setenv("NEO4J_URI", "")
	c, err := NewFromEnv(logger.Nop())
	if err != nil || c != nil {
		t.Fatalf("NewFromEnv: client=%v err=%v", c, err)
	}
}

func TestNilClientCloseIsNoop(t *testing.T) {
	var c *Client
	if err := c.Close(nil); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
