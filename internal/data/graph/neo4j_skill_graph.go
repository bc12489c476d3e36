package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	types "github.com/yungbote/progression-backend/internal/domain"
	"github.com/yungbote/progression-backend/internal/platform/logger"
	"github.com/yungbote/progression-backend/internal/platform/neo4jdb"
)

// SkillGraphMirror copies the skill catalog and user unlocks into Neo4j for
// exploration queries. Postgres stays the source of truth; a nil client turns
// every call into a no-op.
type SkillGraphMirror struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func NewSkillGraphMirror(client *neo4jdb.Client, baseLog *logger.Logger) *SkillGraphMirror {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &SkillGraphMirror{client: client, log: baseLog.With("graph", "SkillGraphMirror")}
}

func (m *SkillGraphMirror) Enabled() bool {
	return m != nil && m.client != nil && m.client.Driver != nil
}

// SyncCatalog upserts every node and REQUIRES edge, then drops edges the
// catalog no longer declares.
func (m *SkillGraphMirror) SyncCatalog(ctx context.Context, nodes []*types.SkillNode, edges []*types.SkillEdge) error {
	if !m.Enabled() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	nodeRows := make([]map[string]any, 0, len(nodes))
	for _, n := range nodes {
		if n == nil || n.ID == uuid.Nil {
			continue
		}
		nodeRows = append(nodeRows, map[string]any{
			"id":          n.ID.String(),
			"key":         n.Key,
			"name":        n.Name,
			"description": n.Description,
			"sort_index":  int64(n.SortIndex),
			"reward_xp":   int64(n.RewardXP),
			"metadata_json": func() string {
				if len(n.Metadata) == 0 {
					return ""
				}
				return string(n.Metadata)
			}(),
			"synced_at": now,
		})
	}

	edgeRows := make([]map[string]any, 0, len(edges))
	edgeIDs := make([]string, 0, len(edges))
	for _, e := range edges {
		if e == nil || e.SourceNodeID == uuid.Nil || e.TargetNodeID == uuid.Nil {
			continue
		}
		edgeRows = append(edgeRows, map[string]any{
			"id":        e.ID.String(),
			"from_id":   e.SourceNodeID.String(),
			"to_id":     e.TargetNodeID.String(),
			"synced_at": now,
		})
		edgeIDs = append(edgeIDs, e.ID.String())
	}

	session := m.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: m.client.Database,
	})
	defer session.Close(ctx)

	// Best-effort schema init; restricted users may not create constraints.
	if res, err := session.Run(ctx, `CREATE CONSTRAINT skill_id_unique IF NOT EXISTS FOR (s:Skill) REQUIRE s.id IS UNIQUE`, nil); err != nil {
		m.log.Warn("neo4j schema init failed (continuing)", "error", err)
	} else {
		_, _ = res.Consume(ctx)
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if len(nodeRows) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $nodes AS n
MERGE (s:Skill {id: n.id})
SET s += n
`, map[string]any{"nodes": nodeRows})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		if len(edgeRows) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $rels AS r
MATCH (a:Skill {id: r.from_id})
MATCH (b:Skill {id: r.to_id})
MERGE (a)-[e:REQUIRED_BY]->(b)
SET e.id = r.id,
    e.synced_at = r.synced_at
`, map[string]any{"rels": edgeRows})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		res, err := tx.Run(ctx, `
MATCH (:Skill)-[e:REQUIRED_BY]->(:Skill)
WHERE NOT e.id IN $ids
DELETE e
`, map[string]any{"ids": edgeIDs})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("neo4j skill graph sync: %w", err)
	}
	return nil
}

// RecordUnlock mirrors one UserUnlock as (User)-[:UNLOCKED]->(Skill).
func (m *SkillGraphMirror) RecordUnlock(ctx context.Context, row *types.UserUnlock) error {
	if !m.Enabled() || row == nil || row.UserID == uuid.Nil || row.NodeID == uuid.Nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	session := m.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: m.client.Database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MERGE (u:User {id: $user_id})
WITH u
MATCH (s:Skill {id: $node_id})
MERGE (u)-[r:UNLOCKED]->(s)
ON CREATE SET r.unlocked_at = $unlocked_at
`, map[string]any{
			"user_id":     row.UserID.String(),
			"node_id":     row.NodeID.String(),
			"unlocked_at": row.UnlockedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("neo4j record unlock: %w", err)
	}
	return nil
}
