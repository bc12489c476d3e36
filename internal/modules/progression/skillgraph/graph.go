// Package skillgraph holds the in-memory prerequisite graph of the skill
// catalog and the process-wide cache around it.
package skillgraph

import (
	"sort"

	"github.com/google/uuid"

	types "github.com/yungbote/progression-backend/internal/domain"
)

// UnlockedSet is the set of node IDs a user has unlocked.
type UnlockedSet map[uuid.UUID]struct{}

func NewUnlockedSet(ids ...uuid.UUID) UnlockedSet {
	s := make(UnlockedSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s UnlockedSet) Has(id uuid.UUID) bool {
	_, ok := s[id]
	return ok
}

func (s UnlockedSet) Add(id uuid.UUID) { s[id] = struct{}{} }

// Clone returns a copy so callers can extend it without touching the original.
func (s UnlockedSet) Clone() UnlockedSet {
	out := make(UnlockedSet, len(s)+1)
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

type Edge struct {
	Source uuid.UUID `json:"source"`
	Target uuid.UUID `json:"target"`
}

// Graph is immutable after Build. Neighbour lists follow catalog order
// (sort_index, key); IDs missing from the catalog sort last by string form.
type Graph struct {
	nodes    []*types.SkillNode
	byID     map[uuid.UUID]*types.SkillNode
	parents  map[uuid.UUID][]uuid.UUID
	children map[uuid.UUID][]uuid.UUID
	edges    []Edge
}

// Build indexes nodes and edges. Duplicate edges collapse; self-edges are
// dropped. Cycles are not rejected here since every query is one hop.
func Build(nodes []*types.SkillNode, edges []*types.SkillEdge) *Graph {
	g := &Graph{
		nodes:    make([]*types.SkillNode, 0, len(nodes)),
		byID:     make(map[uuid.UUID]*types.SkillNode, len(nodes)),
		parents:  map[uuid.UUID][]uuid.UUID{},
		children: map[uuid.UUID][]uuid.UUID{},
	}
	for _, n := range nodes {
		if n == nil || n.ID == uuid.Nil {
			continue
		}
		if _, dup := g.byID[n.ID]; dup {
			continue
		}
		g.byID[n.ID] = n
		g.nodes = append(g.nodes, n)
	}
	sort.SliceStable(g.nodes, func(i, j int) bool {
		a, b := g.nodes[i], g.nodes[j]
		if a.SortIndex != b.SortIndex {
			return a.SortIndex < b.SortIndex
		}
		return a.Key < b.Key
	})
	rank := make(map[uuid.UUID]int, len(g.nodes))
	for i, n := range g.nodes {
		rank[n.ID] = i
	}

	seen := map[Edge]bool{}
	for _, e := range edges {
		if e == nil || e.SourceNodeID == uuid.Nil || e.TargetNodeID == uuid.Nil {
			continue
		}
		if e.SourceNodeID == e.TargetNodeID {
			continue
		}
		k := Edge{Source: e.SourceNodeID, Target: e.TargetNodeID}
		if seen[k] {
			continue
		}
		seen[k] = true
		g.edges = append(g.edges, k)
		g.parents[k.Target] = append(g.parents[k.Target], k.Source)
		g.children[k.Source] = append(g.children[k.Source], k.Target)
	}

	before := func(a, b uuid.UUID) bool {
		ra, aok := rank[a]
		rb, bok := rank[b]
		switch {
		case aok && bok:
			return ra < rb
		case aok != bok:
			return aok
		default:
			return a.String() < b.String()
		}
	}
	for _, ids := range g.parents {
		sort.Slice(ids, func(i, j int) bool { return before(ids[i], ids[j]) })
	}
	for _, ids := range g.children {
		sort.Slice(ids, func(i, j int) bool { return before(ids[i], ids[j]) })
	}
	sort.Slice(g.edges, func(i, j int) bool {
		a, b := g.edges[i], g.edges[j]
		if a.Source != b.Source {
			return before(a.Source, b.Source)
		}
		return before(a.Target, b.Target)
	})
	return g
}

func (g *Graph) Node(id uuid.UUID) (*types.SkillNode, bool) {
	if g == nil {
		return nil, false
	}
	n, ok := g.byID[id]
	return n, ok
}

// Nodes returns every node in catalog order.
func (g *Graph) Nodes() []*types.SkillNode {
	if g == nil {
		return nil
	}
	return append([]*types.SkillNode(nil), g.nodes...)
}

func (g *Graph) Edges() []Edge {
	if g == nil {
		return nil
	}
	return append([]Edge(nil), g.edges...)
}

func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.nodes)
}

// PrerequisitesOf returns the direct parents of id.
func (g *Graph) PrerequisitesOf(id uuid.UUID) []uuid.UUID {
	if g == nil {
		return nil
	}
	return append([]uuid.UUID(nil), g.parents[id]...)
}

// DependentsOf returns the direct children of id.
func (g *Graph) DependentsOf(id uuid.UUID) []uuid.UUID {
	if g == nil {
		return nil
	}
	return append([]uuid.UUID(nil), g.children[id]...)
}

// AllPrerequisitesUnlocked reports whether every direct parent of id is in
// unlocked. Nodes without parents are always satisfied.
func (g *Graph) AllPrerequisitesUnlocked(id uuid.UUID, unlocked UnlockedSet) bool {
	if g == nil {
		return true
	}
	for _, p := range g.parents[id] {
		if !unlocked.Has(p) {
			return false
		}
	}
	return true
}

// UnmetPrerequisites returns the direct parents of id missing from unlocked,
// in the same order as PrerequisitesOf.
func (g *Graph) UnmetPrerequisites(id uuid.UUID, unlocked UnlockedSet) []uuid.UUID {
	if g == nil {
		return nil
	}
	var out []uuid.UUID
	for _, p := range g.parents[id] {
		if !unlocked.Has(p) {
			out = append(out, p)
		}
	}
	return out
}
