// Package rules holds the data-driven tile rule table: which rule turns a
// terrain id into a final tile or decoration.
package rules

import (
	"slices"
)

// Rule is one of Identity, AutoTile4, AutoTile8, UniformDistribution or
// Pipeline. Consumers switch on the concrete type.
type Rule interface {
	inputID() uint32
}

// Identity leaves the cell unchanged.
type Identity struct{}

// AutoTile4 picks Output[mask] where mask has one bit per orthogonal
// neighbor equal to Neighbor. A non-zero FrontFace is also written to the
// cell's front face; a zero Output entry then leaves the terrain alone.
type AutoTile4 struct {
	Input     uint32
	Neighbor  uint32
	Label     string
	Output    [16]uint32
	FrontFace uint32
}

// AutoTile8 picks from 47 variants indexed by the canonical 8-neighbor mask
// built against Source. A cell with no Neighbor around it uses the
// isolated mask.
type AutoTile8 struct {
	Input    uint32
	Neighbor uint32
	Source   uint32
	Label    string
	Output   [CanonicalCount]uint32
}

// Placement says which field a chosen candidate is written to.
type Placement uint8

const (
	PlaceTerrain Placement = iota
	PlaceDecoration
)

func (p Placement) String() string {
	if p == PlaceDecoration {
		return "decoration"
	}
	return "terrain"
}

// Candidate is one weighted choice of a UniformDistribution.
type Candidate struct {
	Value       uint32
	Probability float64
	Placement   Placement
}

// UniformDistribution picks the first candidate whose cumulative
// probability exceeds a uniform draw. Probabilities may sum to less than
// one, in which case the draw can select nothing.
type UniformDistribution struct {
	Input      uint32
	Label      string
	Candidates []Candidate
}

// Pipeline applies its stages in order, each seeing the previous output.
type Pipeline struct {
	Input  uint32
	Stages []Rule
}

func (Identity) inputID() uint32              { return 0 }
func (r AutoTile4) inputID() uint32           { return r.Input }
func (r AutoTile8) inputID() uint32           { return r.Input }
func (r UniformDistribution) inputID() uint32 { return r.Input }
func (r Pipeline) inputID() uint32            { return r.Input }

// Table maps terrain ids to rules in two namespaces. Root rules see the
// raw generated id of a cell; terrain rules see every id after that. It is
// built once and then only read, so one table can be shared by any number
// of generators.
type Table struct {
	root    map[uint32]Rule
	terrain map[uint32]Rule
}

// NewTable builds a table whose rules all go to the terrain namespace.
// Rules sharing an input are composed into a Pipeline in argument order;
// Identity values are ignored.
func NewTable(rs ...Rule) *Table {
	t := &Table{root: make(map[uint32]Rule), terrain: make(map[uint32]Rule)}
	for _, r := range rs {
		add(t.terrain, r)
	}
	return t
}

// WithRoot adds rs to the root namespace and returns t. It is meant for
// construction only, before the table is shared.
func (t *Table) WithRoot(rs ...Rule) *Table {
	for _, r := range rs {
		add(t.root, r)
	}
	return t
}

func add(m map[uint32]Rule, r Rule) {
	if _, ok := r.(Identity); ok || r == nil {
		return
	}
	in := r.inputID()
	prev, ok := m[in]
	if !ok {
		m[in] = r
		return
	}
	if p, ok := prev.(Pipeline); ok {
		p.Stages = append(p.Stages, r)
		m[in] = p
		return
	}
	m[in] = Pipeline{Input: in, Stages: []Rule{prev, r}}
}

// Get returns the terrain rule for an id, or Identity when none is registered.
func (t *Table) Get(id uint32) Rule {
	if t == nil {
		return Identity{}
	}
	if r, ok := t.terrain[id]; ok {
		return r
	}
	return Identity{}
}

// Root returns the root rule for a raw generated id. Ids without a root
// rule fall back to Get, so tables with no root entries behave as before.
func (t *Table) Root(id uint32) Rule {
	if t == nil {
		return Identity{}
	}
	if r, ok := t.root[id]; ok {
		return r
	}
	return t.Get(id)
}

// Len returns the number of ids with a rule, counting both namespaces.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.root) + len(t.terrain)
}

// Inputs returns the terrain namespace ids in ascending order.
func (t *Table) Inputs() []uint32 {
	if t == nil {
		return nil
	}
	return sortedKeys(t.terrain)
}

// RootInputs returns the root namespace ids in ascending order.
func (t *Table) RootInputs() []uint32 {
	if t == nil {
		return nil
	}
	return sortedKeys(t.root)
}

func sortedKeys(m map[uint32]Rule) []uint32 {
	ids := make([]uint32, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
