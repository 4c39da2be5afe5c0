package world

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrMetadataSize = errors.New("world metadata: map size mismatch")

// Metadata describes a world: its seed and the coarse height and biome
// maps chunk synthesis samples from. It is read-only once streaming starts.
type Metadata struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Seed      int64       `json:"seed"`
	Size      Vec3i       `json:"size"` // map units; X and Y are used
	HeightMap []float64   `json:"height_map"`
	BiomeMap  []BiomeType `json:"biome_map"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// NewMetadata allocates flat maps of the given size under a fresh id.
func NewMetadata(name string, seed int64, size Vec3i) *Metadata {
	now := time.Now().UTC()
	n := max(size.X, 0) * max(size.Y, 0)
	return &Metadata{
		ID:        uuid.NewString(),
		Name:      name,
		Seed:      seed,
		Size:      size,
		HeightMap: make([]float64, n),
		BiomeMap:  make([]BiomeType, n),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks that both maps cover Size exactly.
func (m *Metadata) Validate() error {
	n := m.Size.X * m.Size.Y
	if len(m.HeightMap) != n {
		return fmt.Errorf("%w: height map has %d entries, want %d", ErrMetadataSize, len(m.HeightMap), n)
	}
	if len(m.BiomeMap) != n {
		return fmt.Errorf("%w: biome map has %d entries, want %d", ErrMetadataSize, len(m.BiomeMap), n)
	}
	return nil
}

// InBounds reports whether map coordinate (x, y) indexes the maps.
func (m *Metadata) InBounds(x, y int) bool {
	return x >= 0 && x < m.Size.X && y >= 0 && y < m.Size.Y
}

// HeightAt returns the map height at (x, y), or 0 outside the map.
func (m *Metadata) HeightAt(x, y int) float64 {
	if !m.InBounds(x, y) {
		return 0
	}
	return m.HeightMap[x+y*m.Size.X]
}

// BiomeAt returns the biome at (x, y), or BiomeSea outside the map.
func (m *Metadata) BiomeAt(x, y int) BiomeType {
	if !m.InBounds(x, y) {
		return BiomeSea
	}
	return m.BiomeMap[x+y*m.Size.X]
}

// Set writes one map cell; out of range writes are ignored.
func (m *Metadata) Set(x, y int, height float64, biome BiomeType) {
	if !m.InBounds(x, y) {
		return
	}
	m.HeightMap[x+y*m.Size.X] = height
	m.BiomeMap[x+y*m.Size.X] = biome
}
