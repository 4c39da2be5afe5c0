package world

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"tilestream/internal/config"
)

// GenerateMetadata builds a coarse island map: a silhouette noise layer
// pushed down toward the map edge so the border is sea, and a mountain
// layer that marks rocky highlands. A size with a non-positive axis falls
// back to cfg.Map.Size.
func GenerateMetadata(name string, seed int64, size Vec3i, cfg config.Generation) (*Metadata, error) {
	if size.X <= 0 || size.Y <= 0 {
		size = Vec3i{X: cfg.Map.Size[0], Y: cfg.Map.Size[1]}
	}
	w, h := size.X, size.Y
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("world map: invalid size %v", size)
	}
	m := NewMetadata(name, seed, size)

	height := make([]float64, w*h)
	if err := FillNoise(height, 0, 0, w, h, cfg.Noise.Silhouette.Frequency, seed, cfg.Noise.Silhouette); err != nil {
		return nil, fmt.Errorf("world map silhouette: %w", err)
	}
	floats.Mul(height, radialFalloff(w, h, cfg.Map.Falloff))
	normalize(height)

	mountain := make([]float64, w*h)
	if err := FillNoise(mountain, 0, 0, w, h, cfg.Noise.Mountain.Frequency, seed, cfg.Noise.Mountain); err != nil {
		return nil, fmt.Errorf("world map mountains: %w", err)
	}

	p := cfg.Map
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := x + y*w
			v := height[i]
			switch {
			case v < p.Sea:
				m.Set(x, y, 0, BiomeSea)
			case v < p.Beach:
				m.Set(x, y, v, BiomeBeach)
			case mountain[i] > p.Rock:
				m.Set(x, y, math.Max(v, mountain[i]), BiomeRockMountains)
			default:
				m.Set(x, y, v, BiomePlains)
			}
		}
	}
	return m, nil
}

// radialFalloff returns a w*h mask that is 1 at the centre and 0 at the
// corners, shaped by exponent.
func radialFalloff(w, h int, exponent float64) []float64 {
	if exponent <= 0 {
		exponent = 1
	}
	mask := make([]float64, w*h)
	cx, cy := float64(w-1)/2, float64(h-1)/2
	reach := math.Hypot(math.Max(cx, 0.5), math.Max(cy, 0.5))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := math.Hypot(float64(x)-cx, float64(y)-cy) / reach
			mask[x+y*w] = math.Max(0, 1-math.Pow(d, exponent))
		}
	}
	return mask
}

// normalize rescales v in place to span [0,1]. A flat slice becomes zero.
func normalize(v []float64) {
	lo, hi := floats.Min(v), floats.Max(v)
	floats.AddConst(-lo, v)
	if hi-lo > 0 {
		floats.Scale(1/(hi-lo), v)
	}
}
