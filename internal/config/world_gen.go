package config

// Generation holds chunk synthesis settings
type Generation struct {
	ChunkSize               [3]int      `yaml:"chunk_size"`
	MapToTiles              float64     `yaml:"map_to_tiles"`
	Sampler                 string      `yaml:"sampler"`
	SeaLevel                int         `yaml:"sea_level"`
	HeightModifierThreshold float64     `yaml:"height_modifier_threshold"`
	HiddenTerrainID         uint32      `yaml:"hidden_terrain_id"`
	MaxResolveIterations    int         `yaml:"max_resolve_iterations"`
	Decoration              Decoration  `yaml:"decoration"`
	Noise                   NoiseLayers `yaml:"noise"`
	Map                     MapParams   `yaml:"map"`
}

// NoiseLayer describes one fractal noise layer.
type NoiseLayer struct {
	Frequency  float64 `yaml:"frequency"`
	Octaves    int     `yaml:"octaves"`
	Lacunarity float64 `yaml:"lacunarity"`
	Gain       float64 `yaml:"gain"`
	SeedOffset int64   `yaml:"seed_offset"`
	Normalize  bool    `yaml:"normalize"` // remap [-1,1] to [0,1]
}

// NoiseLayers groups every layer the generator and the map provider read.
type NoiseLayers struct {
	Silhouette        NoiseLayer `yaml:"silhouette"`
	Mountain          NoiseLayer `yaml:"mountain"`
	VegetationType    NoiseLayer `yaml:"vegetation_type"`
	VegetationDensity NoiseLayer `yaml:"vegetation_density"`
	HeightModifier    NoiseLayer `yaml:"height_modifier"`
}

// DecorationPair is the small/big decoration id for one vegetation type.
type DecorationPair struct {
	Small uint32 `yaml:"small"`
	Big   uint32 `yaml:"big"`
}

// Decoration controls noise-driven decoration placement.
type Decoration struct {
	Terrain      uint32         `yaml:"terrain"`
	Sparsity     float64        `yaml:"sparsity"`
	Gate         float64        `yaml:"gate"`
	BigThreshold float64        `yaml:"big_threshold"`
	LowType      DecorationPair `yaml:"low_type"`
	HighType     DecorationPair `yaml:"high_type"`
}

// MapParams shapes the coarse world map.
type MapParams struct {
	Size    [2]int  `yaml:"size"`
	Falloff float64 `yaml:"falloff"`
	Sea     float64 `yaml:"sea"`
	Beach   float64 `yaml:"beach"`
	Rock    float64 `yaml:"rock"`
}

// DefaultGeneration returns the embedded generation defaults.
func DefaultGeneration() Generation {
	return Default().Generation
}

func (g *Generation) normalize() {
	for i := range g.ChunkSize {
		if g.ChunkSize[i] < 1 {
			g.ChunkSize[i] = 1
		}
	}
	if g.MapToTiles <= 0 {
		g.MapToTiles = 1
	}
	switch g.Sampler {
	case "nearest", "bilinear", "bicubic":
	default:
		g.Sampler = "bicubic"
	}
	if g.MaxResolveIterations < 1 {
		g.MaxResolveIterations = 1
	}
	for i := range g.Map.Size {
		if g.Map.Size[i] < 1 {
			g.Map.Size[i] = 1
		}
	}
	for _, l := range []*NoiseLayer{
		&g.Noise.Silhouette, &g.Noise.Mountain, &g.Noise.VegetationType,
		&g.Noise.VegetationDensity, &g.Noise.HeightModifier,
	} {
		if l.Octaves < 1 {
			l.Octaves = 1
		}
	}
}
