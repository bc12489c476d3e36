// Package catalog loads, validates and seeds the skill catalog.
package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	domainagg "github.com/yungbote/progression-backend/internal/domain/aggregates"
	"github.com/yungbote/progression-backend/internal/domain/progression"
)

type File struct {
	Nodes []NodeSpec `yaml:"nodes"`
}

type NodeSpec struct {
	Key         string          `yaml:"key"`
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	SortIndex   *int            `yaml:"sort_index"`
	RewardXP    int             `yaml:"reward_xp"`
	Metadata    map[string]any  `yaml:"metadata"`
	Requires    []string        `yaml:"requires"`
	Conditions  []ConditionSpec `yaml:"conditions"`
}

type ConditionSpec struct {
	Type        string `yaml:"type"`
	Target      int    `yaml:"target"`
	Description string `yaml:"description"`
}

func LoadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes and normalizes a catalog. Unknown YAML fields are rejected.
func Load(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var out File
	if err := dec.Decode(&out); err != nil {
		if errors.Is(err, io.EOF) {
			return &File{}, nil
		}
		return nil, domainagg.NewError(domainagg.CodeValidation, "catalog.Load", "decode yaml", err)
	}
	out.normalize()
	return &out, nil
}

func (f *File) normalize() {
	for i := range f.Nodes {
		n := &f.Nodes[i]
		n.Key = strings.TrimSpace(n.Key)
		n.Name = strings.TrimSpace(n.Name)
		n.Description = strings.TrimSpace(n.Description)
		if n.SortIndex == nil {
			idx := i
			n.SortIndex = &idx
		}
		reqs := make([]string, 0, len(n.Requires))
		seen := map[string]bool{}
		for _, r := range n.Requires {
			r = strings.TrimSpace(r)
			if r == "" || seen[r] {
				continue
			}
			seen[r] = true
			reqs = append(reqs, r)
		}
		n.Requires = reqs
		for j := range n.Conditions {
			c := &n.Conditions[j]
			c.Type = string(progression.NormalizeConditionType(c.Type))
			c.Description = strings.TrimSpace(c.Description)
		}
	}
}

// Validate reports every structural problem at once. Unknown condition types
// are allowed; the evaluator treats them as unmet.
func (f *File) Validate() error {
	if f == nil {
		return domainagg.NewError(domainagg.CodeValidation, "catalog.Validate", "nil catalog", nil)
	}
	var problems []string
	keys := map[string]bool{}
	for i, n := range f.Nodes {
		switch {
		case n.Key == "":
			problems = append(problems, fmt.Sprintf("nodes[%d]: missing key", i))
			continue
		case keys[n.Key]:
			problems = append(problems, fmt.Sprintf("node %q: duplicate key", n.Key))
		}
		keys[n.Key] = true
		if n.Name == "" {
			problems = append(problems, fmt.Sprintf("node %q: missing name", n.Key))
		}
		if n.RewardXP < 0 {
			problems = append(problems, fmt.Sprintf("node %q: negative reward_xp", n.Key))
		}
		condTypes := map[string]bool{}
		for _, c := range n.Conditions {
			if c.Type == "" {
				problems = append(problems, fmt.Sprintf("node %q: condition missing type", n.Key))
				continue
			}
			if condTypes[c.Type] {
				problems = append(problems, fmt.Sprintf("node %q: duplicate condition type %s", n.Key, c.Type))
			}
			condTypes[c.Type] = true
			if c.Target < 0 {
				problems = append(problems, fmt.Sprintf("node %q: condition %s has negative target", n.Key, c.Type))
			}
		}
	}
	for _, n := range f.Nodes {
		for _, r := range n.Requires {
			if r == n.Key {
				problems = append(problems, fmt.Sprintf("node %q: requires itself", n.Key))
				continue
			}
			if !keys[r] {
				problems = append(problems, fmt.Sprintf("node %q: requires unknown key %q", n.Key, r))
			}
		}
	}
	if len(problems) == 0 {
		if cyc := f.cycleMembers(); len(cyc) > 0 {
			problems = append(problems, fmt.Sprintf("prerequisite cycle involving %s", strings.Join(cyc, ", ")))
		}
	}
	if len(problems) > 0 {
		return domainagg.NewError(domainagg.CodeValidation, "catalog.Validate", strings.Join(problems, "; "), nil)
	}
	return nil
}

// cycleMembers runs Kahn's algorithm and returns the keys that could never be
// ordered, sorted. Empty means the requires graph is a DAG.
func (f *File) cycleMembers() []string {
	indeg := map[string]int{}
	children := map[string][]string{}
	for _, n := range f.Nodes {
		if _, ok := indeg[n.Key]; !ok {
			indeg[n.Key] = 0
		}
		for _, r := range n.Requires {
			children[r] = append(children[r], n.Key)
			indeg[n.Key]++
		}
	}
	queue := make([]string, 0, len(indeg))
	for k, d := range indeg {
		if d == 0 {
			queue = append(queue, k)
		}
	}
	visited := 0
	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]
		visited++
		for _, c := range children[k] {
			indeg[c]--
			if indeg[c] == 0 {
				queue = append(queue, c)
			}
		}
	}
	if visited == len(indeg) {
		return nil
	}
	var out []string
	for k, d := range indeg {
		if d > 0 {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
