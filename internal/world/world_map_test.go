package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tilestream/internal/config"
)

func TestGenerateMetadata(t *testing.T) {
	cfg := config.DefaultGeneration()
	m, err := GenerateMetadata("island", 7, Vec3i{X: 64, Y: 48}, cfg)
	require.NoError(t, err)
	require.NoError(t, m.Validate())
	assert.Equal(t, "island", m.Name)
	assert.EqualValues(t, 7, m.Seed)
	assert.NotEmpty(t, m.ID)

	// the corners fall off to sea
	for _, p := range [][2]int{{0, 0}, {63, 0}, {0, 47}, {63, 47}} {
		assert.Equal(t, BiomeSea, m.BiomeAt(p[0], p[1]), "corner %v", p)
	}

	seen := map[BiomeType]bool{}
	for i, b := range m.BiomeMap {
		seen[b] = true
		h := m.HeightMap[i]
		assert.GreaterOrEqual(t, h, 0.0)
		assert.LessOrEqual(t, h, 1.0)
		if b == BiomeSea {
			assert.Zero(t, h)
		} else {
			assert.GreaterOrEqual(t, h, cfg.Map.Sea)
		}
	}
	assert.True(t, seen[BiomeSea])
	assert.Greater(t, len(seen), 1, "map has land")
}

func TestGenerateMetadataDeterministic(t *testing.T) {
	cfg := config.DefaultGeneration()
	a, err := GenerateMetadata("a", 3, Vec3i{X: 32, Y: 32}, cfg)
	require.NoError(t, err)
	b, err := GenerateMetadata("b", 3, Vec3i{X: 32, Y: 32}, cfg)
	require.NoError(t, err)
	assert.Equal(t, a.HeightMap, b.HeightMap)
	assert.Equal(t, a.BiomeMap, b.BiomeMap)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestGenerateMetadataDefaultSize(t *testing.T) {
	cfg := config.DefaultGeneration()
	cfg.Map.Size = [2]int{16, 8}
	m, err := GenerateMetadata("small", 1, Vec3i{}, cfg)
	require.NoError(t, err)
	assert.Equal(t, Vec3i{X: 16, Y: 8}, m.Size)
}

func TestRadialFalloff(t *testing.T) {
	mask := radialFalloff(5, 5, 2)
	assert.InDelta(t, 1.0, mask[2+2*5], 1e-9)
	assert.InDelta(t, 0.0, mask[0], 1e-9)
	assert.Greater(t, mask[1+2*5], mask[0+2*5])
}
