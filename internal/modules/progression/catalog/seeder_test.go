package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yungbote/progression-backend/internal/data/repos/repotest"
	types "github.com/yungbote/progression-backend/internal/domain"
	domainagg "github.com/yungbote/progression-backend/internal/domain/aggregates"
	"github.com/yungbote/progression-backend/internal/platform/dbctx"
	"github.com/yungbote/progression-backend/internal/platform/logger"
)

type spyMirror struct {
	nodes, edges int
	err          error
}

func (s *spyMirror) SyncCatalog(_ context.Context, nodes []*types.SkillNode, edges []*types.SkillEdge) error {
	s.nodes, s.edges = len(nodes), len(edges)
	return s.err
}

type spyNotifier struct{ calls int }

func (s *spyNotifier) CatalogChanged(context.Context) error {
	s.calls++
	return nil
}

const sample = `
nodes:
  - {key: a, name: A, reward_xp: 10}
  - key: b
    name: B
    requires: [a]
    conditions:
      - {type: LEVEL, target: 2}
      - {type: COURSE, target: 3, description: "{current}/{target} sessions"}
  - {key: c, name: C, requires: [a, b]}
`

func newSeeder(mem *repotest.Memory, mirror GraphMirror, notifier ChangeNotifier) *Seeder {
	return NewSeeder(SeederDeps{
		Tx:         mem.TxRunner(),
		Nodes:      mem.SkillNodes(),
		Edges:      mem.SkillEdges(),
		Conditions: mem.Conditions(),
		Mirror:     mirror,
		Notifier:   notifier,
	}, logger.Nop())
}

func TestSeedIsIdempotentAndKeepsIDs(t *testing.T) {
	mem := repotest.NewMemory()
	mirror := &spyMirror{}
	notifier := &spyNotifier{}
	s := newSeeder(mem, mirror, notifier)
	ctx := context.Background()

	f := mustLoad(t, sample)
	res, err := s.Seed(ctx, f)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if res.Nodes != 3 || res.Edges != 3 || res.Conditions != 2 {
		t.Fatalf("first seed: %+v", res)
	}
	if mirror.nodes != 3 || mirror.edges != 3 || notifier.calls != 1 {
		t.Fatalf("side effects: mirror=%+v notifier=%d", mirror, notifier.calls)
	}

	before, _ := mem.SkillNodes().GetByKeys(readCtx(ctx), []string{"a", "b", "c"})

	res, err = s.Seed(ctx, mustLoad(t, sample))
	if err != nil {
		t.Fatalf("re-seed: %v", err)
	}
	if res.Edges != 3 {
		t.Fatalf("re-seed edges: %+v", res)
	}
	after, _ := mem.SkillNodes().GetByKeys(readCtx(ctx), []string{"a", "b", "c"})
	for i := range before {
		if before[i].ID != after[i].ID {
			t.Fatalf("node %s changed id across re-seed", before[i].Key)
		}
	}
	edges, _ := mem.SkillEdges().ListAll(readCtx(ctx))
	if len(edges) != 3 {
		t.Fatalf("edges after re-seed: %d", len(edges))
	}
	conds, _ := mem.Conditions().ListByNodeID(readCtx(ctx), after[1].ID)
	if len(conds) != 2 || conds[1].Description != "{current}/{target} sessions" {
		t.Fatalf("conditions after re-seed: %+v", conds)
	}
}

func TestSeedReplacesRequires(t *testing.T) {
	mem := repotest.NewMemory()
	s := newSeeder(mem, nil, nil)
	ctx := context.Background()

	if _, err := s.Seed(ctx, mustLoad(t, sample)); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	trimmed := strings.Replace(sample, "requires: [a, b]", "requires: [b]", 1)
	if _, err := s.Seed(ctx, mustLoad(t, trimmed)); err != nil {
		t.Fatalf("re-seed: %v", err)
	}
	edges, _ := mem.SkillEdges().ListAll(readCtx(ctx))
	if len(edges) != 2 {
		t.Fatalf("expected a->b and b->c only, got %d edges", len(edges))
	}
}

func TestSeedRejectsInvalidCatalogWithoutWrites(t *testing.T) {
	mem := repotest.NewMemory()
	s := newSeeder(mem, nil, nil)

	_, err := s.Seed(context.Background(), mustLoad(t, "nodes:\n  - {key: a, name: A, requires: [a]}\n"))
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("expected validation error, got=%v", err)
	}
	if mem.Calls("SkillNodeRepo.UpsertByKey") != 0 {
		t.Fatalf("invalid catalog should not write")
	}
}

func TestSeedMirrorFailureIsNotFatal(t *testing.T) {
	mem := repotest.NewMemory()
	notifier := &spyNotifier{}
	s := newSeeder(mem, &spyMirror{err: errors.New("neo4j down")}, notifier)

	if _, err := s.Seed(context.Background(), mustLoad(t, sample)); err != nil {
		t.Fatalf("mirror failure should not fail seed: %v", err)
	}
	if notifier.calls != 1 {
		t.Fatalf("notifier should still run, calls=%d", notifier.calls)
	}
}

func TestSeedStoreFailureIsMapped(t *testing.T) {
	mem := repotest.NewMemory()
	mem.Fail("SkillEdgeRepo.CreateIgnoreDuplicates", errors.New("connection refused"))
	notifier := &spyNotifier{}
	s := newSeeder(mem, nil, notifier)

	_, err := s.Seed(context.Background(), mustLoad(t, sample))
	if !domainagg.IsCode(err, domainagg.CodeDataUnavailable) {
		t.Fatalf("expected data_unavailable, got=%v", err)
	}
	if notifier.calls != 0 {
		t.Fatalf("failed seed must not notify")
	}
}

func readCtx(ctx context.Context) dbctx.Context { return dbctx.Context{Ctx: ctx} }
