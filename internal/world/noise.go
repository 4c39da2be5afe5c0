package world

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/ojrac/opensimplex-go"
	"gonum.org/v1/gonum/floats"

	"tilestream/internal/config"
)

// FillNoise writes width*height samples of fractal opensimplex noise into
// buf, row-major, sampling world point (x+i, y+j) scaled by frequency.
// Octave k uses seed+layer.SeedOffset+k. Values are in [-1,1], or [0,1]
// when the layer is normalized. The output depends only on the arguments.
func FillNoise(buf []float64, x, y, width, height int, frequency float64, seed int64, layer config.NoiseLayer) error {
	if width < 0 || height < 0 {
		return fmt.Errorf("noise: negative extent %dx%d", width, height)
	}
	n := width * height
	if len(buf) < n {
		return fmt.Errorf("noise: buffer holds %d values, need %d", len(buf), n)
	}
	out := buf[:n]
	clear(out)
	if n == 0 {
		return nil
	}

	amp, freq, total := 1.0, frequency, 0.0
	for k := 0; k < max(layer.Octaves, 1); k++ {
		gen := opensimplex.New(seed + layer.SeedOffset + int64(k))
		for j := 0; j < height; j++ {
			row := out[j*width : (j+1)*width]
			for i := range row {
				row[i] += gen.Eval2(float64(x+i)*freq, float64(y+j)*freq) * amp
			}
		}
		total += amp
		amp *= layer.Gain
		freq *= layer.Lacunarity
	}
	floats.Scale(1/total, out)

	lo := -1.0
	if layer.Normalize {
		floats.AddConst(1, out)
		floats.Scale(0.5, out)
		lo = 0
	}
	for i, v := range out {
		out[i] = mgl64.Clamp(v, lo, 1)
	}
	return nil
}

// mixSeed derives a stable 64-bit stream seed from a world seed and a
// chunk origin (SplitMix64 finalizer).
func mixSeed(seed int64, p Vec3i) uint64 {
	v := uint64(seed)*0x9E3779B97F4A7C15 ^ uint64(int64(p.X))*0xBF58476D1CE4E5B9 ^
		uint64(int64(p.Y))*0x94D049BB133111EB ^ uint64(int64(p.Z))*0xD6E8FEB86659FD93
	v += 0x9E3779B97F4A7C15
	v = (v ^ (v >> 30)) * 0xBF58476D1CE4E5B9
	v = (v ^ (v >> 27)) * 0x94D049BB133111EB
	return v ^ (v >> 31)
}
