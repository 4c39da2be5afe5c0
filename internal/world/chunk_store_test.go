package world

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tilestream/internal/config"
)

var storeChunkSize = Vec3i{X: 4, Y: 4, Z: 2}

// stubGenerator fills every cell with terrain, grass when unset.
type stubGenerator struct {
	calls   *atomic.Int32
	gate    chan struct{}
	terrain uint32
}

func (g stubGenerator) Generate(_ int64, offset Vec3i) *Chunk {
	if g.gate != nil {
		<-g.gate
	}
	g.calls.Add(1)
	c := NewChunk(offset, storeChunkSize)
	terrain := g.terrain
	if terrain == 0 {
		terrain = TerrainGrass
	}
	for i := range c.Cells {
		c.Cells[i].Terrain = terrain
	}
	return c
}

// memPersistence keeps chunk copies in a map.
type memPersistence struct {
	mu      sync.Mutex
	chunks  map[Vec3i]*Chunk
	corrupt map[Vec3i]bool
	loads   int
}

func newMemPersistence() *memPersistence {
	return &memPersistence{chunks: map[Vec3i]*Chunk{}, corrupt: map[Vec3i]bool{}}
}

func (m *memPersistence) ChunkExists(pos Vec3i, _ string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.chunks[pos]
	return ok
}

func (m *memPersistence) LoadChunk(c *Chunk, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.corrupt[c.Position] {
		return ErrHeightMapMismatch
	}
	src, ok := m.chunks[c.Position]
	if !ok {
		return ErrChunkNotFound
	}
	copy(c.Cells, src.Cells)
	copy(c.HeightMap, src.HeightMap)
	return nil
}

func (m *memPersistence) SaveChunk(c *Chunk, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := NewChunk(c.Position, c.Size)
	copy(cp.Cells, c.Cells)
	copy(cp.HeightMap, c.HeightMap)
	m.chunks[c.Position] = cp
	return nil
}

func storeOptions(async bool, p Persistence, gen stubGenerator) StoreOptions {
	return StoreOptions{
		Stream: config.Stream{
			Frustum:         [2]int{8, 8},
			Padding:         1,
			RetentionMargin: 2,
			ActivateRadius:  1,
			Async:           async,
			Workers:         2,
			QueueSize:       64,
		},
		ChunkSize:    storeChunkSize,
		WorldID:      "test",
		Seed:         42,
		Persistence:  p,
		NewGenerator: func() TerrainGenerator { return gen },
		Logger:       quietLogger(),
	}
}

// settle runs Update until nothing is pending.
func settle(t *testing.T, s *ChunkStore, target Vec3i) UpdateStats {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		st := s.Update(target)
		if st.Pending == 0 {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("chunks still pending after deadline: %+v", st)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestChunkStoreSyncUpdateCoversFrustum(t *testing.T) {
	calls := &atomic.Int32{}
	s := NewChunkStore(storeOptions(false, nil, stubGenerator{calls: calls}))
	defer s.Close()

	st := s.Update(Vec3i{X: 2, Y: 2})
	// x and y span [-8, 10]: chunk origins -8 .. 8 step 4
	assert.Equal(t, 25, st.Requested)
	assert.Equal(t, 25, st.Resident)
	assert.Zero(t, st.Pending)
	assert.EqualValues(t, 25, calls.Load())

	for _, p := range []Vec3i{{X: -8, Y: -8}, {X: 8, Y: 8}, {X: 0, Y: 0}} {
		assert.False(t, IsNull(s.At(p)), "chunk %v", p)
	}

	again := s.Update(Vec3i{X: 2, Y: 2})
	assert.Zero(t, again.Requested)
	assert.EqualValues(t, 25, calls.Load(), "resident chunks are not regenerated")
}

func TestChunkStoreAsyncDeduplicates(t *testing.T) {
	calls := &atomic.Int32{}
	gate := make(chan struct{})
	s := NewChunkStore(storeOptions(true, nil, stubGenerator{calls: calls, gate: gate}))
	defer s.Close()

	pos := Vec3i{X: 4, Y: 4}
	require.True(t, s.GenerateAsync(pos))
	assert.True(t, s.IsLoaded(pos))
	assert.False(t, s.GenerateAsync(pos), "pending chunk queued twice")
	assert.True(t, s.LoadOrGenerate(Vec3i{X: 5, Y: 6}), "same chunk via world position")
	assert.Equal(t, 1, s.PendingCount())
	assert.True(t, IsNull(s.At(pos)))

	close(gate)
	deadline := time.Now().Add(5 * time.Second)
	for s.ResidentCount() == 0 {
		s.drainResults()
		if time.Now().After(deadline) {
			t.Fatal("generated chunk never merged")
		}
		time.Sleep(time.Millisecond)
	}
	assert.Zero(t, s.PendingCount())
	assert.EqualValues(t, 1, calls.Load())
	assert.False(t, IsNull(s.At(pos)))
}

func TestChunkStoreQueueFullRollsBack(t *testing.T) {
	calls := &atomic.Int32{}
	gate := make(chan struct{})
	opts := storeOptions(true, nil, stubGenerator{calls: calls, gate: gate})
	opts.Stream.Workers = 1
	opts.Stream.QueueSize = 1
	s := NewChunkStore(opts)
	defer func() {
		close(gate)
		s.Close()
	}()

	// one job blocks in the worker, one fills the queue
	require.True(t, s.GenerateAsync(Vec3i{X: 0}))
	deadline := time.Now().Add(5 * time.Second)
	for !s.GenerateAsync(Vec3i{X: 4}) {
		if time.Now().After(deadline) {
			t.Fatal("second job never queued")
		}
		time.Sleep(time.Millisecond)
	}

	assert.False(t, s.GenerateAsync(Vec3i{X: 8}))
	assert.False(t, s.IsLoaded(Vec3i{X: 8}), "rejected job left pending")
	assert.Equal(t, 2, s.PendingCount())
}

func TestChunkStoreEvictsOutsideRetention(t *testing.T) {
	calls := &atomic.Int32{}
	s := NewChunkStore(storeOptions(false, nil, stubGenerator{calls: calls}))
	defer s.Close()

	s.Update(Vec3i{})
	require.False(t, IsNull(s.At(Vec3i{X: -8, Y: 0})))

	st := s.Update(Vec3i{X: 400, Y: 0})
	assert.Equal(t, 25, st.Evicted)
	assert.True(t, IsNull(s.At(Vec3i{X: -8, Y: 0})))
	assert.Equal(t, 25, s.ResidentCount())

	// a small move stays inside the retention margin
	st = s.Update(Vec3i{X: 404, Y: 0})
	assert.Zero(t, st.Evicted)
}

func TestChunkStoreReloadsEvictedChunks(t *testing.T) {
	calls := &atomic.Int32{}
	mem := newMemPersistence()
	s := NewChunkStore(storeOptions(true, mem, stubGenerator{calls: calls}))
	defer s.Close()

	settle(t, s, Vec3i{})
	generated := calls.Load()
	require.EqualValues(t, 25, generated)

	s.Update(Vec3i{X: 400})
	settle(t, s, Vec3i{X: 400})
	before := calls.Load()

	st := s.Update(Vec3i{})
	assert.Equal(t, 25, st.Requested)
	assert.Equal(t, before, calls.Load(), "evicted chunks come back from persistence")
	c := s.At(Vec3i{X: 4, Y: 4})
	require.False(t, IsNull(c))
	assert.Equal(t, TerrainGrass, c.TerrainAt(1, 1, 0))
}

func TestChunkStoreCorruptLoadRetries(t *testing.T) {
	calls := &atomic.Int32{}
	mem := newMemPersistence()
	pos := Vec3i{X: 4, Y: 4}
	require.NoError(t, mem.SaveChunk(NewChunk(pos, storeChunkSize), "test"))
	mem.corrupt[pos] = true

	s := NewChunkStore(storeOptions(false, mem, stubGenerator{calls: calls}))
	defer s.Close()

	err := s.LoadSync(pos)
	assert.True(t, errors.Is(err, ErrHeightMapMismatch))
	assert.False(t, s.IsLoaded(pos))

	s.Update(Vec3i{})
	assert.True(t, IsNull(s.At(pos)))
	loads := mem.loads

	mem.mu.Lock()
	delete(mem.corrupt, pos)
	mem.mu.Unlock()
	s.Update(Vec3i{})
	assert.Greater(t, mem.loads, loads)
	assert.False(t, IsNull(s.At(pos)))
}

func TestChunkStoreLookups(t *testing.T) {
	calls := &atomic.Int32{}
	s := NewChunkStore(storeOptions(false, nil, stubGenerator{calls: calls}))
	defer s.Close()

	assert.Same(t, NullChunk, s.At(Vec3i{}))
	assert.Same(t, NullChunk, s.In(-1, -1, 0))
	assert.Equal(t, Cell{}, s.CellAt(Vec3i{X: -1, Y: -1}))

	c := s.GenerateSync(Vec3i{X: -3, Y: -2})
	assert.Equal(t, Vec3i{X: -4, Y: -4}, c.Position)
	assert.Same(t, c, s.In(-1, -1, 1))
	assert.Same(t, c, s.At(Vec3i{X: -4, Y: -4}))
	assert.Same(t, NullChunk, s.At(Vec3i{X: -3, Y: -2}), "At takes an origin")
	assert.Equal(t, TerrainGrass, s.CellAt(Vec3i{X: -1, Y: -1, Z: 1}).Terrain)
	assert.Len(t, s.Chunks(), 1)
}

func TestChunkStoreActivation(t *testing.T) {
	calls := &atomic.Int32{}
	s := NewChunkStore(storeOptions(false, nil, stubGenerator{calls: calls}))
	defer s.Close()

	s.Update(Vec3i{X: 1, Y: 1})
	assert.True(t, s.At(Vec3i{}).Active)
	assert.True(t, s.At(Vec3i{X: 4, Y: -4}).Active)
	assert.False(t, s.At(Vec3i{X: 8, Y: 0}).Active)
	assert.False(t, s.At(Vec3i{X: -8, Y: -8}).Active)

	s.ActivateIf(func(*Chunk) bool { return false })
	for _, c := range s.Chunks() {
		assert.False(t, c.Active)
	}

	assert.True(t, s.WithinChunkRadius(Vec3i{X: 8}, Vec3i{X: 1}, 2))
	assert.False(t, s.WithinChunkRadius(Vec3i{X: 8}, Vec3i{X: 1}, 1))
}

func TestChunkStoreFrustum(t *testing.T) {
	s := NewChunkStore(storeOptions(false, nil, stubGenerator{calls: &atomic.Int32{}}))
	defer s.Close()

	assert.Equal(t, Vec3i{X: 8, Y: 8}, s.Frustum())
	s.SetFrustum(Vec3i{X: 0, Y: 4})
	assert.Equal(t, Vec3i{X: 1, Y: 4}, s.Frustum())
}

func TestChunkStoreCloseIsIdempotent(t *testing.T) {
	calls := &atomic.Int32{}
	s := NewChunkStore(storeOptions(true, nil, stubGenerator{calls: calls}))

	s.Update(Vec3i{})
	s.Close()
	s.Close()
	assert.Zero(t, s.PendingCount())
	assert.False(t, s.GenerateAsync(Vec3i{X: 100}))
}

func TestChunkStoreLoadAsync(t *testing.T) {
	calls := &atomic.Int32{}
	mem := newMemPersistence()
	good, bad := Vec3i{X: 4}, Vec3i{X: 8}
	require.NoError(t, mem.SaveChunk(NewChunk(good, storeChunkSize), "test"))
	require.NoError(t, mem.SaveChunk(NewChunk(bad, storeChunkSize), "test"))
	mem.corrupt[bad] = true

	s := NewChunkStore(storeOptions(true, mem, stubGenerator{calls: calls}))
	defer s.Close()

	require.True(t, s.LoadAsync(good))
	require.True(t, s.LoadAsync(bad))
	assert.False(t, s.LoadAsync(good), "already pending")

	deadline := time.Now().Add(5 * time.Second)
	for s.PendingCount() > 0 {
		s.drainResults()
		if time.Now().After(deadline) {
			t.Fatal("load jobs never merged")
		}
		time.Sleep(time.Millisecond)
	}
	assert.False(t, IsNull(s.At(good)))
	assert.True(t, IsNull(s.At(bad)), "failed load stays absent")
	assert.False(t, s.IsLoaded(bad))
	assert.Zero(t, calls.Load())
}

func TestChunkStoreRegenerateSkipsPersisted(t *testing.T) {
	calls := &atomic.Int32{}
	mem := newMemPersistence()
	s := NewChunkStore(storeOptions(false, mem, stubGenerator{calls: calls}))
	defer s.Close()

	s.Update(Vec3i{})
	require.Equal(t, 25, s.ResidentCount())

	rockCalls := &atomic.Int32{}
	rock := stubGenerator{calls: rockCalls, terrain: TerrainRock}
	assert.Equal(t, 25, s.Regenerate(func() TerrainGenerator { return rock }))
	assert.Zero(t, s.ResidentCount())
	assert.True(t, IsNull(s.At(Vec3i{X: 4, Y: 4})))

	st := s.Update(Vec3i{})
	assert.Equal(t, 25, st.Requested)
	assert.EqualValues(t, 25, rockCalls.Load())
	assert.Zero(t, mem.loads, "stale chunks are not loaded")
	assert.Equal(t, TerrainRock, s.At(Vec3i{X: 4, Y: 4}).TerrainAt(1, 1, 0))

	saved := NewChunk(Vec3i{X: 4, Y: 4}, storeChunkSize)
	require.NoError(t, mem.LoadChunk(saved, "test"))
	assert.Equal(t, TerrainRock, saved.TerrainAt(1, 1, 0), "regenerated chunks overwrite saves")
}

func TestChunkStoreRegenerateKeepsFactory(t *testing.T) {
	calls := &atomic.Int32{}
	s := NewChunkStore(storeOptions(false, nil, stubGenerator{calls: calls}))
	defer s.Close()

	s.Update(Vec3i{})
	s.Regenerate(nil)
	s.Update(Vec3i{})
	assert.EqualValues(t, 50, calls.Load())
	assert.Equal(t, TerrainGrass, s.At(Vec3i{}).TerrainAt(0, 0, 0))
}

func TestChunkStoreRegenerateDropsStaleResults(t *testing.T) {
	calls := &atomic.Int32{}
	gate := make(chan struct{})
	s := NewChunkStore(storeOptions(true, nil, stubGenerator{calls: calls, gate: gate}))
	defer s.Close()

	pos := Vec3i{X: 4, Y: 4}
	require.True(t, s.GenerateAsync(pos))
	rock := stubGenerator{calls: &atomic.Int32{}, terrain: TerrainRock}
	assert.Equal(t, 1, s.Regenerate(func() TerrainGenerator { return rock }))
	assert.Zero(t, s.PendingCount())
	assert.False(t, s.IsLoaded(pos))

	// the old job finishes after the switch; its chunk must not merge
	close(gate)
	deadline := time.Now().Add(5 * time.Second)
	for s.drainResults() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("stale result never arrived")
		}
		time.Sleep(time.Millisecond)
	}
	assert.EqualValues(t, 1, calls.Load())
	assert.Zero(t, s.ResidentCount())

	require.True(t, s.GenerateAsync(pos))
	for s.ResidentCount() == 0 {
		s.drainResults()
		if time.Now().After(deadline) {
			t.Fatal("regenerated chunk never merged")
		}
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, TerrainRock, s.At(pos).TerrainAt(1, 1, 0))
	assert.Zero(t, s.PendingCount())
}
