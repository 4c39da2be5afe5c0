package world

import (
	"errors"
	"log/slog"

	"tilestream/internal/config"
	"tilestream/internal/profiling"
)

var (
	ErrHeightMapMismatch = errors.New("chunk height map size mismatch")
	ErrCellCountMismatch = errors.New("chunk cell count mismatch")
	ErrChunkNotFound     = errors.New("chunk not found")
)

// Persistence stores chunks between evictions.
type Persistence interface {
	ChunkExists(pos Vec3i, worldID string) bool
	// LoadChunk fills c.Cells and c.HeightMap for c.Position.
	LoadChunk(c *Chunk, worldID string) error
	SaveChunk(c *Chunk, worldID string) error
}

// StoreOptions configures a ChunkStore.
type StoreOptions struct {
	Stream    config.Stream
	ChunkSize Vec3i
	WorldID   string
	Seed      int64
	// Persistence may be nil, in which case nothing is loaded or saved.
	Persistence Persistence
	// NewGenerator is called once per generation so every job owns its
	// generator.
	NewGenerator func() TerrainGenerator
	Logger       *slog.Logger
}

// UpdateStats summarises one Update call.
type UpdateStats struct {
	Requested int
	Evicted   int
	Merged    int
	Pending   int
	Resident  int
}

// ChunkStore owns the resident chunks around a moving target. It decides
// between loading and generating, runs generation on a worker pool and
// merges the results once per Update.
//
// A ChunkStore is not safe for concurrent use: the resident and pending
// sets belong to the goroutine that calls Update.
type ChunkStore struct {
	opts       StoreOptions
	size       Vec3i
	frustum    Vec3i
	chunks     map[Vec3i]*Chunk
	pending    map[Vec3i]struct{}
	maxPending int
	streamer   *chunkStreamer
	newGen     func() TerrainGenerator
	// epoch tags queued jobs; results from an older epoch are dropped
	epoch uint64
	// set by Regenerate: persisted chunks are stale and get regenerated
	regenerated bool
	log         *slog.Logger
}

// NewChunkStore creates a store and starts its workers when streaming is async.
func NewChunkStore(opts StoreOptions) *ChunkStore {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	opts.Stream.Padding = max(opts.Stream.Padding, 0)
	// retention must cover the load region or chunks would thrash
	opts.Stream.RetentionMargin = max(opts.Stream.RetentionMargin, opts.Stream.Padding)

	s := &ChunkStore{
		opts:    opts,
		size:    opts.ChunkSize,
		frustum: Vec3i{X: opts.Stream.Frustum[0], Y: opts.Stream.Frustum[1]},
		chunks:  make(map[Vec3i]*Chunk),
		pending: make(map[Vec3i]struct{}),
		newGen:  opts.NewGenerator,
		log:     log,
	}
	if opts.Stream.Async {
		workers := max(opts.Stream.Workers, 1)
		queue := max(opts.Stream.QueueSize, 1)
		s.maxPending = queue + workers
		s.streamer = newChunkStreamer(workers, queue, opts, log)
	}
	return s
}

// SetFrustum sets the visible area in tiles around the target.
func (s *ChunkStore) SetFrustum(size Vec3i) {
	s.frustum = Vec3i{X: max(size.X, 1), Y: max(size.Y, 1), Z: max(size.Z, 0)}
}

// Frustum returns the visible area in tiles.
func (s *ChunkStore) Frustum() Vec3i {
	return s.frustum
}

// ChunkSize returns the chunk dimensions.
func (s *ChunkStore) ChunkSize() Vec3i {
	return s.size
}

// Update loads everything the frustum around target needs, evicts chunks
// outside the retention region, merges finished jobs and refreshes the
// active flags. Jobs queued by this call are merged at the earliest by the
// next call.
func (s *ChunkStore) Update(target Vec3i) UpdateStats {
	defer profiling.Track("world.Update")()
	var st UpdateStats

	lo, hi := s.region(target, s.opts.Stream.Padding)
	z := WorldToChunk(target, s.size).Z
	for y := lo.Y; y <= hi.Y; y += s.size.Y {
		for x := lo.X; x <= hi.X; x += s.size.X {
			pos := Vec3i{X: x, Y: y, Z: z}
			if s.IsLoaded(pos) {
				continue
			}
			if s.LoadOrGenerate(pos) {
				st.Requested++
			}
		}
	}

	st.Evicted = s.evictOutside(target)
	st.Merged = s.drainResults()
	s.ActivateIf(func(c *Chunk) bool {
		return s.WithinChunkRadius(c.Position, target, s.opts.Stream.ActivateRadius)
	})

	st.Pending = len(s.pending)
	st.Resident = len(s.chunks)
	return st
}

// region returns the lowest and highest chunk origins covering the
// frustum around target grown by margin chunks on x and y.
func (s *ChunkStore) region(target Vec3i, margin int) (lo, hi Vec3i) {
	half := Vec3i{X: s.frustum.X / 2, Y: s.frustum.Y / 2}
	lo = WorldToChunk(Vec3i{
		X: target.X - half.X - margin*s.size.X,
		Y: target.Y - half.Y - margin*s.size.Y,
		Z: target.Z,
	}, s.size)
	hi = WorldToChunk(Vec3i{
		X: target.X + half.X + margin*s.size.X,
		Y: target.Y + half.Y + margin*s.size.Y,
		Z: target.Z,
	}, s.size)
	return lo, hi
}

func (s *ChunkStore) evictOutside(target Vec3i) int {
	defer profiling.Track("world.evictOutside")()
	margin := s.opts.Stream.RetentionMargin
	lo, hi := s.region(target, margin)
	tz := WorldToChunk(target, s.size).Z
	removed := 0
	for pos := range s.chunks {
		dz := pos.Z - tz
		if pos.X < lo.X || pos.X > hi.X || pos.Y < lo.Y || pos.Y > hi.Y ||
			dz > margin*s.size.Z || -dz > margin*s.size.Z {
			delete(s.chunks, pos)
			removed++
		}
	}
	return removed
}

func (s *ChunkStore) drainResults() int {
	if s.streamer == nil {
		return 0
	}
	defer profiling.Track("world.drainResults")()
	return s.streamer.drain(func(r streamResult) {
		if r.job.epoch != s.epoch {
			return
		}
		delete(s.pending, r.job.pos)
		if r.err != nil {
			s.log.Error("chunk load failed", "chunk", r.job.pos, "err", r.err)
			return
		}
		if _, ok := s.chunks[r.job.pos]; ok {
			return
		}
		s.chunks[r.job.pos] = r.chunk
	})
}

// IsLoaded reports whether pos is resident or pending.
func (s *ChunkStore) IsLoaded(pos Vec3i) bool {
	if _, ok := s.chunks[pos]; ok {
		return true
	}
	_, ok := s.pending[pos]
	return ok
}

// LoadOrGenerate makes the chunk containing pos resident or pending. A
// persisted chunk is loaded synchronously unless the store was
// regenerated; otherwise the chunk is generated (in the background when
// streaming is async) and saved. The result reports whether the chunk is
// now resident or pending.
func (s *ChunkStore) LoadOrGenerate(pos Vec3i) bool {
	pos = WorldToChunk(pos, s.size)
	if s.IsLoaded(pos) {
		return true
	}
	if p := s.opts.Persistence; p != nil && !s.regenerated && p.ChunkExists(pos, s.opts.WorldID) {
		return s.LoadSync(pos) == nil
	}
	if s.streamer != nil {
		return s.GenerateAsync(pos)
	}
	s.GenerateSync(pos)
	return true
}

// LoadSync reads a persisted chunk into the resident set. On failure the
// chunk stays absent and the error is logged; a later Update tries again.
func (s *ChunkStore) LoadSync(pos Vec3i) error {
	defer profiling.Track("world.loadChunk")()
	pos = WorldToChunk(pos, s.size)
	if s.opts.Persistence == nil {
		return ErrChunkNotFound
	}
	c := NewChunk(pos, s.size)
	if err := s.opts.Persistence.LoadChunk(c, s.opts.WorldID); err != nil {
		s.log.Error("chunk load failed", "chunk", pos, "err", err)
		return err
	}
	s.chunks[pos] = c
	return nil
}

// LoadAsync queues a persisted chunk for loading on the worker pool.
func (s *ChunkStore) LoadAsync(pos Vec3i) bool {
	if s.opts.Persistence == nil {
		return false
	}
	return s.enqueue(streamJob{kind: jobLoad, pos: WorldToChunk(pos, s.size), epoch: s.epoch})
}

// GenerateSync generates, saves and stores a chunk on the calling goroutine.
func (s *ChunkStore) GenerateSync(pos Vec3i) *Chunk {
	pos = WorldToChunk(pos, s.size)
	c := s.newGen().Generate(s.opts.Seed, pos)
	if p := s.opts.Persistence; p != nil {
		if err := p.SaveChunk(c, s.opts.WorldID); err != nil {
			s.log.Error("saving generated chunk", "chunk", pos, "err", err)
		}
	}
	s.chunks[pos] = c
	return c
}

// GenerateAsync queues a chunk for generation. It returns false when the
// chunk is already known, the pending cap is reached or the queue is
// full; a later Update asks again.
func (s *ChunkStore) GenerateAsync(pos Vec3i) bool {
	return s.enqueue(streamJob{kind: jobGenerate, pos: WorldToChunk(pos, s.size), epoch: s.epoch, newGen: s.newGen})
}

// Regenerate drops every resident and pending chunk so the next Update
// generates them again, saving over what was persisted. A non-nil newGen
// replaces the generator factory, e.g. after the rule table changed. Jobs
// still running finish in the background and their results are discarded.
// It returns the number of chunks dropped.
func (s *ChunkStore) Regenerate(newGen func() TerrainGenerator) int {
	if newGen != nil {
		s.newGen = newGen
	}
	dropped := len(s.chunks) + len(s.pending)
	clear(s.chunks)
	clear(s.pending)
	s.epoch++
	s.regenerated = true
	s.log.Info("regenerating chunks", "dropped", dropped, "epoch", s.epoch)
	return dropped
}

func (s *ChunkStore) enqueue(job streamJob) bool {
	if s.streamer == nil || s.IsLoaded(job.pos) {
		return false
	}
	if s.maxPending > 0 && len(s.pending) >= s.maxPending {
		return false
	}
	s.pending[job.pos] = struct{}{}
	if !s.streamer.submit(job) {
		// queue full: rollback
		delete(s.pending, job.pos)
		s.log.Debug("chunk queue full", "chunk", job.pos)
		return false
	}
	return true
}

// At returns the resident chunk whose origin is pos, or NullChunk.
func (s *ChunkStore) At(pos Vec3i) *Chunk {
	if c, ok := s.chunks[pos]; ok {
		return c
	}
	return NullChunk
}

// In returns the resident chunk containing world position (x, y, z), or NullChunk.
func (s *ChunkStore) In(x, y, z int) *Chunk {
	return s.At(WorldToChunk(Vec3i{X: x, Y: y, Z: z}, s.size))
}

// CellAt returns the cell at a world position; the empty cell when its
// chunk is not resident.
func (s *ChunkStore) CellAt(p Vec3i) Cell {
	c := s.In(p.X, p.Y, p.Z)
	if IsNull(c) {
		return Cell{}
	}
	return c.Cell(mod(p.X, s.size.X), mod(p.Y, s.size.Y), mod(p.Z, s.size.Z))
}

// ActivateIf sets Active on every resident chunk to pred(chunk).
func (s *ChunkStore) ActivateIf(pred func(*Chunk) bool) {
	for _, c := range s.chunks {
		c.Active = pred(c)
	}
}

// WithinChunkRadius reports whether the chunk at pos lies within radius
// chunks of the chunk containing target on every axis.
func (s *ChunkStore) WithinChunkRadius(pos, target Vec3i, radius int) bool {
	t := WorldToChunk(target, s.size)
	return abs(pos.X-t.X) <= radius*s.size.X &&
		abs(pos.Y-t.Y) <= radius*s.size.Y &&
		abs(pos.Z-t.Z) <= radius*s.size.Z
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Chunks returns the resident chunks in no particular order.
func (s *ChunkStore) Chunks() []*Chunk {
	out := make([]*Chunk, 0, len(s.chunks))
	for _, c := range s.chunks {
		out = append(out, c)
	}
	return out
}

// ResidentCount returns the number of resident chunks.
func (s *ChunkStore) ResidentCount() int {
	return len(s.chunks)
}

// PendingCount returns the number of queued or running jobs not yet merged.
func (s *ChunkStore) PendingCount() int {
	return len(s.pending)
}

// Close waits for the worker pool to finish and drops unmerged results.
// It is safe to call more than once.
func (s *ChunkStore) Close() {
	if s.streamer == nil {
		return
	}
	if dropped := s.streamer.close(); dropped > 0 {
		s.log.Debug("dropped unmerged chunks on close", "count", dropped)
	}
	clear(s.pending)
}
