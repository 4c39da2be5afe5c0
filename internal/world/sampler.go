package world

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// SamplerPolicy selects how map heights are interpolated.
type SamplerPolicy uint8

const (
	SampleNearest SamplerPolicy = iota
	SampleBilinear
	SampleBicubic
)

func (p SamplerPolicy) String() string {
	switch p {
	case SampleNearest:
		return "nearest"
	case SampleBilinear:
		return "bilinear"
	case SampleBicubic:
		return "bicubic"
	}
	return "unknown"
}

// ParseSamplerPolicy maps a config string to a policy.
func ParseSamplerPolicy(s string) (SamplerPolicy, error) {
	switch s {
	case "nearest":
		return SampleNearest, nil
	case "bilinear":
		return SampleBilinear, nil
	case "bicubic":
		return SampleBicubic, nil
	}
	return SampleNearest, fmt.Errorf("unknown sampler policy %q", s)
}

// Sampler reads the coarse world maps at tile positions. World positions
// are divided by mapToTiles to get map coordinates; anything outside the
// map reads as height 0 and BiomeSea.
type Sampler struct {
	meta       *Metadata
	policy     SamplerPolicy
	mapToTiles float64
	extent     int // vertical cells in a chunk
}

// NewSampler returns a sampler over meta producing heights in [0, extent-1].
func NewSampler(meta *Metadata, policy SamplerPolicy, mapToTiles float64, extent int) *Sampler {
	if mapToTiles <= 0 {
		mapToTiles = 1
	}
	return &Sampler{meta: meta, policy: policy, mapToTiles: mapToTiles, extent: max(extent, 1)}
}

// Policy returns the interpolation policy.
func (s *Sampler) Policy() SamplerPolicy {
	return s.policy
}

func (s *Sampler) toMap(p Vec3i) mgl64.Vec2 {
	return mgl64.Vec2{float64(p.X) / s.mapToTiles, float64(p.Y) / s.mapToTiles}
}

func (s *Sampler) inMap(m mgl64.Vec2) bool {
	return m.X() >= 0 && m.Y() >= 0 && m.X() < float64(s.meta.Size.X) && m.Y() < float64(s.meta.Size.Y)
}

// SampleBiome returns the biome under p by nearest lookup.
func (s *Sampler) SampleBiome(p Vec3i) BiomeType {
	m := s.toMap(p)
	if !s.inMap(m) {
		return BiomeSea
	}
	return s.meta.BiomeAt(int(m.X()), int(m.Y()))
}

// SampleHeight returns the surface height in cells under p.
func (s *Sampler) SampleHeight(p Vec3i) int {
	m := s.toMap(p)
	if !s.inMap(m) {
		return 0
	}

	var v float64
	switch s.policy {
	case SampleBilinear:
		v = s.bilinear(m)
	case SampleBicubic:
		v = s.bicubic(m)
	default:
		v = s.meta.HeightAt(int(m.X()), int(m.Y()))
	}

	top := s.extent - 1
	return min(max(int(v*float64(top)), 0), top)
}

// edgeHeight reads the map with indices clamped to its edges.
func (s *Sampler) edgeHeight(x, y int) float64 {
	x = min(max(x, 0), s.meta.Size.X-1)
	y = min(max(y, 0), s.meta.Size.Y-1)
	return s.meta.HeightAt(x, y)
}

func (s *Sampler) bilinear(m mgl64.Vec2) float64 {
	c := m.Sub(mgl64.Vec2{0.5, 0.5})
	x0, y0 := math.Floor(c.X()), math.Floor(c.Y())
	tx, ty := c.X()-x0, c.Y()-y0
	ix, iy := int(x0), int(y0)

	top := lerp(s.edgeHeight(ix, iy), s.edgeHeight(ix+1, iy), tx)
	bottom := lerp(s.edgeHeight(ix, iy+1), s.edgeHeight(ix+1, iy+1), tx)
	return lerp(top, bottom, ty)
}

func (s *Sampler) bicubic(m mgl64.Vec2) float64 {
	x0, y0 := math.Floor(m.X()), math.Floor(m.Y())
	wx := catmullRom(m.X() - x0)
	wy := catmullRom(m.Y() - y0)
	ix, iy := int(x0)-1, int(y0)-1

	v := 0.0
	for j := 0; j < 4; j++ {
		row := 0.0
		for i := 0; i < 4; i++ {
			// HeightAt reads 0 outside the map
			row += wx[i] * s.meta.HeightAt(ix+i, iy+j)
		}
		v += wy[j] * row
	}
	return mgl64.Clamp(v, 0, 1)
}

// catmullRom returns the four tap weights for fractional offset t.
func catmullRom(t float64) [4]float64 {
	t2 := t * t
	t3 := t2 * t
	return [4]float64{
		0.5 * (-t3 + 2*t2 - t),
		0.5 * (3*t3 - 5*t2 + 2),
		0.5 * (-3*t3 + 4*t2 + t),
		0.5 * (t3 - t2),
	}
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}
