package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, [2]int{80, 48}, cfg.Stream.Frustum)
	assert.Equal(t, 1, cfg.Stream.Padding)
	assert.Equal(t, 2, cfg.Stream.RetentionMargin)
	assert.GreaterOrEqual(t, cfg.Stream.Workers, 1)
	assert.Equal(t, 20.0, cfg.Generation.MapToTiles)
	assert.Equal(t, "bicubic", cfg.Generation.Sampler)
	assert.Equal(t, uint32(1), cfg.Generation.HiddenTerrainID)
	assert.Equal(t, int64(94), cfg.Generation.Noise.HeightModifier.SeedOffset)
	assert.Equal(t, DecorationPair{Small: 54, Big: 53}, cfg.Generation.Decoration.LowType)
	assert.Equal(t, "file", cfg.Storage.Backend)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tilestream.yaml")
	data := []byte("stream:\n  frustum: [40, 20]\ngeneration:\n  sampler: nearest\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, [2]int{40, 20}, cfg.Stream.Frustum)
	assert.Equal(t, "nearest", cfg.Generation.Sampler)
	// untouched keys keep their defaults
	assert.Equal(t, 256, cfg.Stream.QueueSize)
	assert.Equal(t, [3]int{32, 32, 16}, cfg.Generation.ChunkSize)
}

func TestNormalizeClamps(t *testing.T) {
	cfg, err := Parse([]byte(`
stream:
  frustum: [0, -3]
  workers: -1
  queue_size: 0
generation:
  sampler: cubic-ish
  max_resolve_iterations: 0
storage:
  backend: tape
`))
	require.NoError(t, err)

	assert.Equal(t, [2]int{1, 1}, cfg.Stream.Frustum)
	assert.GreaterOrEqual(t, cfg.Stream.Workers, 1)
	assert.Equal(t, 1, cfg.Stream.QueueSize)
	assert.Equal(t, "bicubic", cfg.Generation.Sampler)
	assert.Equal(t, 1, cfg.Generation.MaxResolveIterations)
	assert.Equal(t, "file", cfg.Storage.Backend)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
