package world

import (
	"log/slog"
	"math/rand/v2"

	"tilestream/internal/config"
	"tilestream/internal/profiling"
	"tilestream/internal/rules"
)

// TerrainGenerator produces a fully resolved chunk for a seed and chunk origin.
type TerrainGenerator interface {
	Generate(seed int64, offset Vec3i) *Chunk
}

// padding is the ring of neighbor columns sampled around every chunk so
// that autotiling can see past the chunk edge.
const padding = 1

// GeneratorStats counts what the last Generate call did.
type GeneratorStats struct {
	Resolved         int // visible cells run through the rule table
	Culled           int // hidden cells given the fallback id
	RuleApplications int
	CapHits          int // cells whose resolution hit the iteration cap
	Gaps             int // cells left with tile 0 by an 8-sided rule
	Decorated        int
}

type randSource interface {
	Float64() float64
}

// Generator synthesizes chunks from world metadata, noise and a rule
// table. Output depends only on the seed, the offset, the metadata and the
// configuration. A Generator keeps scratch buffers and must not be used by
// more than one goroutine at a time; the rule table and metadata may be
// shared.
type Generator struct {
	meta    *Metadata
	rules   *rules.Table
	cfg     config.Generation
	size    Vec3i
	sampler *Sampler
	log     *slog.Logger

	rng   randSource
	stats GeneratorStats

	// padded raw terrain, (size.X+2) x (size.Y+2) x size.Z
	raw        []uint32
	modifier   []float64
	vegType    []float64
	vegDensity []float64
}

// NewGenerator creates a generator for chunks of cfg.ChunkSize.
func NewGenerator(meta *Metadata, table *rules.Table, cfg config.Generation, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	size := Vec3i{X: max(cfg.ChunkSize[0], 1), Y: max(cfg.ChunkSize[1], 1), Z: max(cfg.ChunkSize[2], 1)}
	policy, err := ParseSamplerPolicy(cfg.Sampler)
	if err != nil {
		logger.Warn("falling back to nearest sampling", "err", err)
	}
	cfg.MaxResolveIterations = max(cfg.MaxResolveIterations, 1)

	pw, ph := size.X+2*padding, size.Y+2*padding
	return &Generator{
		meta:       meta,
		rules:      table,
		cfg:        cfg,
		size:       size,
		sampler:    NewSampler(meta, policy, cfg.MapToTiles, size.Z),
		log:        logger,
		raw:        make([]uint32, pw*ph*size.Z),
		modifier:   make([]float64, pw*ph),
		vegType:    make([]float64, size.X*size.Y),
		vegDensity: make([]float64, size.X*size.Y),
	}
}

// Size returns the chunk size this generator produces.
func (g *Generator) Size() Vec3i {
	return g.size
}

// Stats returns the counters of the last Generate call.
func (g *Generator) Stats() GeneratorStats {
	return g.stats
}

// Generate builds the chunk whose origin is offset.
func (g *Generator) Generate(seed int64, offset Vec3i) *Chunk {
	defer profiling.Track("world.Generate")()

	g.stats = GeneratorStats{}
	g.rng = rand.New(rand.NewPCG(mixSeed(seed, offset), uint64(seed)))

	chunk := NewChunk(offset, g.size)
	g.sampleNoise(seed, offset)
	g.buildTerrain(chunk)
	chunk.ComputeVisibility()
	g.resolveCells(chunk)

	if g.stats.CapHits > 0 {
		g.log.Warn("rule resolution hit the iteration cap",
			"chunk", offset, "cells", g.stats.CapHits, "cap", g.cfg.MaxResolveIterations)
	}
	if g.stats.Gaps > 0 {
		g.log.Warn("chunk has untiled cells", "chunk", offset, "cells", g.stats.Gaps)
	}
	return chunk
}

func (g *Generator) sampleNoise(seed int64, offset Vec3i) {
	n := g.cfg.Noise
	pw, ph := g.size.X+2*padding, g.size.Y+2*padding
	g.fill(g.modifier, offset.X-padding, offset.Y-padding, pw, ph, seed, n.HeightModifier)
	g.fill(g.vegType, offset.X, offset.Y, g.size.X, g.size.Y, seed, n.VegetationType)
	g.fill(g.vegDensity, offset.X, offset.Y, g.size.X, g.size.Y, seed, n.VegetationDensity)
}

func (g *Generator) fill(buf []float64, x, y, w, h int, seed int64, layer config.NoiseLayer) {
	if err := FillNoise(buf, x, y, w, h, layer.Frequency, seed, layer); err != nil {
		g.log.Error("noise fill failed", "err", err)
	}
}

func (g *Generator) rawIndex(i, j, z int) int {
	pw, ph := g.size.X+2*padding, g.size.Y+2*padding
	return i + j*pw + z*pw*ph
}

// rawAt reads the padded terrain buffer; (i, j) are padded column
// coordinates. Outside the buffer reads as empty.
func (g *Generator) rawAt(i, j, z int) uint32 {
	pw, ph := g.size.X+2*padding, g.size.Y+2*padding
	if i < 0 || i >= pw || j < 0 || j >= ph || z < 0 || z >= g.size.Z {
		return TerrainEmpty
	}
	return g.raw[g.rawIndex(i, j, z)]
}

// buildTerrain fills the padded raw terrain and copies the inner columns
// into the chunk.
func (g *Generator) buildTerrain(chunk *Chunk) {
	clear(g.raw)
	offset := chunk.Position
	pw, ph := g.size.X+2*padding, g.size.Y+2*padding
	top := g.size.Z - 1

	for j := 0; j < ph; j++ {
		for i := 0; i < pw; i++ {
			wp := Vec3i{X: offset.X + i - padding, Y: offset.Y + j - padding, Z: offset.Z}
			biome := g.sampler.SampleBiome(wp)
			h := g.sampler.SampleHeight(wp)
			if g.modifier[i+j*pw] > g.cfg.HeightModifierThreshold {
				h++
			}
			h = min(max(h, 0), top)

			// the surface layer itself is solid; HeightMap points at it
			terrain, surface := surfaceForBiome(biome, h, g.cfg.SeaLevel)
			surface = min(surface, top)
			for z := 0; z <= surface; z++ {
				g.raw[g.rawIndex(i, j, z)] = terrain
			}

			x, y := i-padding, j-padding
			if x < 0 || x >= g.size.X || y < 0 || y >= g.size.Y {
				continue
			}
			for z := 0; z <= surface; z++ {
				chunk.SetCell(x, y, z, Cell{Terrain: terrain})
			}
			chunk.SetHeight(x, y, surface)
		}
	}
}

// resolveCells runs every visible cell through the rule table in z, y, x
// order. Hidden cells get the fallback id without touching the rules.
func (g *Generator) resolveCells(chunk *Chunk) {
	defer profiling.Track("world.resolveCells")()
	deco := g.cfg.Decoration

	for z := 0; z < g.size.Z; z++ {
		for y := 0; y < g.size.Y; y++ {
			for x := 0; x < g.size.X; x++ {
				cell := chunk.Cell(x, y, z)
				if cell.Terrain == TerrainEmpty {
					continue
				}
				if !cell.Visible() {
					cell.Terrain = g.cfg.HiddenTerrainID
					chunk.SetCell(x, y, z, cell)
					g.stats.Culled++
					continue
				}

				raw := cell.Terrain
				v := g.resolve(x, y, z, raw)
				if v.Decoration == 0 && raw == deco.Terrain && cell.Flags&TopFaceVisible != 0 {
					v.Decoration = g.pickDecoration(x, y)
				}
				if v.Decoration != 0 {
					g.stats.Decorated++
				}
				cell.Terrain, cell.Decoration = v.Terrain, v.Decoration
				if cell.Flags&FrontFaceVisible != 0 {
					cell.FrontFace = v.FrontFace
				}
				chunk.SetCell(x, y, z, cell)
				g.stats.Resolved++
			}
		}
	}
}

// pickDecoration chooses a noise-driven decoration for column (x, y).
func (g *Generator) pickDecoration(x, y int) uint32 {
	d := g.cfg.Decoration
	i := x + y*g.size.X
	density := g.vegDensity[i]
	if density < d.Sparsity {
		return 0
	}
	if g.rng.Float64() < d.Gate {
		return 0
	}
	pair := d.HighType
	if g.vegType[i] < 0 {
		pair = d.LowType
	}
	if density < d.BigThreshold {
		return pair.Small
	}
	return pair.Big
}
