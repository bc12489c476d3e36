package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	dataagg "github.com/yungbote/progression-backend/internal/data/aggregates"
	"github.com/yungbote/progression-backend/internal/data/repos"
	types "github.com/yungbote/progression-backend/internal/domain"
	"github.com/yungbote/progression-backend/internal/platform/dbctx"
	"github.com/yungbote/progression-backend/internal/platform/logger"
)

// GraphMirror receives the full catalog after every seed.
type GraphMirror interface {
	SyncCatalog(ctx context.Context, nodes []*types.SkillNode, edges []*types.SkillEdge) error
}

// ChangeNotifier tells running servers to drop their cached graph.
type ChangeNotifier interface {
	CatalogChanged(ctx context.Context) error
}

type SeederDeps struct {
	Tx         dataagg.TxRunner
	Nodes      repos.SkillNodeRepo
	Edges      repos.SkillEdgeRepo
	Conditions repos.UnlockConditionRepo

	// Optional.
	Mirror   GraphMirror
	Notifier ChangeNotifier
}

type SeedResult struct {
	Nodes      int `json:"nodes"`
	Edges      int `json:"edges"`
	Conditions int `json:"conditions"`
}

type Seeder struct {
	deps SeederDeps
	log  *logger.Logger
}

func NewSeeder(deps SeederDeps, baseLog *logger.Logger) *Seeder {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &Seeder{deps: deps, log: baseLog.With("component", "CatalogSeeder")}
}

// Seed upserts the catalog in one transaction. Nodes are matched by key so
// IDs, and therefore existing user unlocks, survive a re-seed. Requires and
// conditions of every seeded node are replaced wholesale. Nodes missing from
// the file are left alone.
func (s *Seeder) Seed(ctx context.Context, f *File) (SeedResult, error) {
	var res SeedResult
	if err := f.Validate(); err != nil {
		return res, err
	}
	for _, n := range f.Nodes {
		for _, c := range n.Conditions {
			if !types.ConditionType(c.Type).Known() {
				s.log.Warn("catalog uses a condition type this build cannot evaluate", "node_key", n.Key, "condition_type", c.Type)
			}
		}
	}

	err := s.deps.Tx.InTx(ctx, func(dbc dbctx.Context) error {
		ids := make(map[string]uuid.UUID, len(f.Nodes))
		for _, spec := range f.Nodes {
			row, err := nodeRow(spec)
			if err != nil {
				return err
			}
			if err := s.deps.Nodes.UpsertByKey(dbc, row); err != nil {
				return fmt.Errorf("upsert node %q: %w", spec.Key, err)
			}
			ids[spec.Key] = row.ID
			res.Nodes++
		}

		targets := make([]uuid.UUID, 0, len(ids))
		var edges []*types.SkillEdge
		for _, spec := range f.Nodes {
			targets = append(targets, ids[spec.Key])
			for _, req := range spec.Requires {
				edges = append(edges, &types.SkillEdge{SourceNodeID: ids[req], TargetNodeID: ids[spec.Key]})
			}
		}
		if err := s.deps.Edges.FullDeleteByTargetNodeIDs(dbc, targets); err != nil {
			return fmt.Errorf("clear edges: %w", err)
		}
		n, err := s.deps.Edges.CreateIgnoreDuplicates(dbc, edges)
		if err != nil {
			return fmt.Errorf("create edges: %w", err)
		}
		res.Edges = n

		for _, spec := range f.Nodes {
			rows := make([]*types.UnlockCondition, 0, len(spec.Conditions))
			for i, c := range spec.Conditions {
				rows = append(rows, &types.UnlockCondition{
					NodeID:      ids[spec.Key],
					Type:        types.ConditionType(c.Type),
					TargetValue: c.Target,
					Description: c.Description,
					SortIndex:   i,
				})
			}
			if err := s.deps.Conditions.ReplaceForNode(dbc, ids[spec.Key], rows); err != nil {
				return fmt.Errorf("replace conditions for %q: %w", spec.Key, err)
			}
			res.Conditions += len(rows)
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, dataagg.MapError("catalog.Seed", err)
	}
	s.log.Info("catalog seeded", "nodes", res.Nodes, "edges", res.Edges, "conditions", res.Conditions)

	s.afterSeed(ctx)
	return res, nil
}

// afterSeed runs the optional side effects. The database is already
// committed, so failures here only warn.
func (s *Seeder) afterSeed(ctx context.Context) {
	if s.deps.Mirror != nil {
		dbc := dbctx.Context{Ctx: ctx}
		nodes, err := s.deps.Nodes.ListAll(dbc)
		if err == nil {
			var edges []*types.SkillEdge
			edges, err = s.deps.Edges.ListAll(dbc)
			if err == nil {
				err = s.deps.Mirror.SyncCatalog(ctx, nodes, edges)
			}
		}
		if err != nil {
			s.log.Warn("skill graph mirror sync failed", "error", err)
		}
	}
	if s.deps.Notifier != nil {
		if err := s.deps.Notifier.CatalogChanged(ctx); err != nil {
			s.log.Warn("catalog change notification failed", "error", err)
		}
	}
}

func nodeRow(spec NodeSpec) (*types.SkillNode, error) {
	row := &types.SkillNode{
		Key:         spec.Key,
		Name:        spec.Name,
		Description: spec.Description,
		RewardXP:    spec.RewardXP,
	}
	if spec.SortIndex != nil {
		row.SortIndex = *spec.SortIndex
	}
	if len(spec.Metadata) > 0 {
		raw, err := json.Marshal(spec.Metadata)
		if err != nil {
			return nil, fmt.Errorf("node %q metadata: %w", spec.Key, err)
		}
		row.Metadata = datatypes.JSON(raw)
	}
	return row, nil
}
