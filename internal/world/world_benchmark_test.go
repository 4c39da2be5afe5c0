package world

import (
	"sync/atomic"
	"testing"
)

// Benchmark streaming around a moving point with synchronous generation
func BenchmarkStreamAround(b *testing.B) {
	s := NewChunkStore(storeOptions(false, nil, stubGenerator{calls: &atomic.Int32{}}))
	defer s.Close()

	// Warm-up populate once
	s.Update(Vec3i{})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// Simulate slight movement to exercise load/unload
		s.Update(Vec3i{X: (i % 3) * 4, Y: ((i / 3) % 3) * 4})
	}
}

func BenchmarkGenerate(b *testing.B) {
	cfg := testGenConfig()
	g := NewGenerator(hillMeta(), sampleRules(), cfg, quietLogger())

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g.Generate(42, Vec3i{X: (i % 4) * 8})
	}
}
