package world

import (
	"log/slog"
	"sync"

	"tilestream/internal/profiling"
)

type jobKind uint8

const (
	jobGenerate jobKind = iota
	jobLoad
)

type streamJob struct {
	kind  jobKind
	pos   Vec3i
	epoch uint64
	// newGen overrides the streamer's factory for generate jobs
	newGen func() TerrainGenerator
}

type streamResult struct {
	job   streamJob
	chunk *Chunk
	err   error
}

// chunkStreamer runs generation and load jobs on a fixed worker pool.
// Workers never see the store's maps: jobs arrive on a bounded queue and
// finished chunks leave on the results channel, which the owner drains
// once per tick.
type chunkStreamer struct {
	jobs    chan streamJob
	results chan streamResult
	wg      sync.WaitGroup
	closed  bool

	size        Vec3i
	seed        int64
	worldID     string
	newGen      func() TerrainGenerator
	persistence Persistence
	log         *slog.Logger
}

func newChunkStreamer(workers, queueSize int, opts StoreOptions, log *slog.Logger) *chunkStreamer {
	workers = max(workers, 1)
	queueSize = max(queueSize, 1)
	s := &chunkStreamer{
		jobs: make(chan streamJob, queueSize),
		// every queued or running job can park its result without blocking
		results:     make(chan streamResult, queueSize+workers),
		size:        opts.ChunkSize,
		seed:        opts.Seed,
		worldID:     opts.WorldID,
		newGen:      opts.NewGenerator,
		persistence: opts.Persistence,
		log:         log,
	}
	s.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go s.worker()
	}
	return s
}

// submit queues a job without blocking. It reports false when the queue
// is full or the streamer is closed.
func (s *chunkStreamer) submit(job streamJob) bool {
	if s.closed {
		return false
	}
	select {
	case s.jobs <- job:
		return true
	default:
		return false
	}
}

func (s *chunkStreamer) worker() {
	defer s.wg.Done()
	for job := range s.jobs {
		s.results <- s.run(job)
	}
}

func (s *chunkStreamer) run(job streamJob) streamResult {
	switch job.kind {
	case jobLoad:
		defer profiling.Track("world.loadChunk")()
		c := NewChunk(job.pos, s.size)
		if err := s.persistence.LoadChunk(c, s.worldID); err != nil {
			return streamResult{job: job, err: err}
		}
		return streamResult{job: job, chunk: c}
	default:
		// each job gets its own generator
		newGen := s.newGen
		if job.newGen != nil {
			newGen = job.newGen
		}
		c := newGen().Generate(s.seed, job.pos)
		if s.persistence != nil {
			if err := s.persistence.SaveChunk(c, s.worldID); err != nil {
				s.log.Error("saving generated chunk", "chunk", job.pos, "err", err)
			}
		}
		return streamResult{job: job, chunk: c}
	}
}

// drain hands every finished result to fn without blocking.
func (s *chunkStreamer) drain(fn func(streamResult)) int {
	n := 0
	for {
		select {
		case r := <-s.results:
			fn(r)
			n++
		default:
			return n
		}
	}
}

// close stops accepting jobs and blocks until the workers have finished
// everything already queued. Results produced meanwhile are discarded.
func (s *chunkStreamer) close() int {
	if s.closed {
		return 0
	}
	s.closed = true
	close(s.jobs)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	dropped := 0
	for {
		select {
		case <-s.results:
			dropped++
		case <-done:
			return dropped + s.drain(func(streamResult) {})
		}
	}
}
