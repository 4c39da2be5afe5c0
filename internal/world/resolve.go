package world

import (
	"tilestream/internal/rules"
)

// TileValues is what rules write: the top face tile, an optional
// decoration and an optional front face tile.
type TileValues struct {
	Terrain    uint32
	Decoration uint32
	FrontFace  uint32
}

// resolve applies rules to a cell until the top face stops changing, a
// rule declines to apply, or the iteration cap is reached. The raw id is
// looked up among root rules; every later id among terrain rules.
func (g *Generator) resolve(x, y, z int, raw uint32) TileValues {
	cur := TileValues{Terrain: raw}
	rule := g.rules.Root(raw)
	for iter := 0; ; iter++ {
		if iter == g.cfg.MaxResolveIterations {
			if g.stats.CapHits == 0 {
				g.log.Warn("rule chain did not settle",
					"raw", raw, "last", cur.Terrain, "cell", Vec3i{X: x, Y: y, Z: z})
			}
			g.stats.CapHits++
			return cur
		}

		next, applied := g.apply(rule, cur, x, y, z)
		if !applied || next == cur {
			return cur
		}
		terrainChanged := next.Terrain != cur.Terrain
		cur = next
		if !terrainChanged || cur.Terrain == 0 {
			return cur
		}
		rule = g.rules.Get(cur.Terrain)
	}
}

// apply runs one rule. The bool is false when the rule left the cell as is.
func (g *Generator) apply(rule rules.Rule, cur TileValues, x, y, z int) (TileValues, bool) {
	switch r := rule.(type) {
	case rules.Identity:
		return cur, false

	case rules.AutoTile4:
		g.stats.RuleApplications++
		mask := rules.Mask4(g.neighborhood(x, y, z), r.Neighbor)
		v := r.Output[mask]
		if r.FrontFace != 0 {
			cur.FrontFace = r.FrontFace
		}
		if v == 0 {
			// no tile authored for this mask
			return cur, r.FrontFace != 0
		}
		cur.Terrain = v
		return cur, true

	case rules.AutoTile8:
		g.stats.RuleApplications++
		mask := rules.Mask8(g.neighborhood(x, y, z), r.Neighbor, r.Source)
		idx, ok := rules.CanonicalIndex(mask)
		if !ok {
			g.gap(r, mask, x, y, z)
			cur.Terrain = 0
			return cur, true
		}
		v := r.Output[idx]
		if v == 0 {
			g.gap(r, mask, x, y, z)
		}
		cur.Terrain = v
		return cur, true

	case rules.UniformDistribution:
		g.stats.RuleApplications++
		draw := g.rng.Float64()
		acc := 0.0
		for _, c := range r.Candidates {
			acc += c.Probability
			if draw < acc {
				if c.Placement == rules.PlaceDecoration {
					cur.Decoration = c.Value
				} else {
					cur.Terrain = c.Value
				}
				return cur, true
			}
		}
		return cur, false

	case rules.Pipeline:
		applied := false
		for _, stage := range r.Stages {
			if next, ok := g.apply(stage, cur, x, y, z); ok {
				cur = next
				applied = true
			}
		}
		return cur, applied
	}

	g.log.Warn("unhandled rule type", "rule", rule)
	return cur, false
}

func (g *Generator) gap(r rules.AutoTile8, mask uint8, x, y, z int) {
	if g.stats.Gaps == 0 {
		g.log.Warn("no 8-sided tile for mask",
			"input", r.Input, "label", r.Label, "mask", mask, "cell", Vec3i{X: x, Y: y, Z: z})
	}
	g.stats.Gaps++
}

// neighborhood reads the 8 raw neighbors of chunk cell (x, y, z) from the
// padded buffer.
func (g *Generator) neighborhood(x, y, z int) rules.Neighborhood {
	var n rules.Neighborhood
	for i, d := range rules.NeighborOffsets {
		n[i] = g.rawAt(x+padding+d[0], y+padding+d[1], z)
	}
	return n
}
