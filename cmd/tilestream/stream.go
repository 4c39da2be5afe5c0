package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/xlab/closer"

	"tilestream/internal/config"
	"tilestream/internal/profiling"
	"tilestream/internal/rules"
	"tilestream/internal/storage"
	"tilestream/internal/world"
)

func runStream(args []string) error {
	fs := flag.NewFlagSet("stream", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "YAML config file (defaults are embedded)")
	rulesPath := fs.String("rules", "", "rule definition JSON")
	backend := fs.String("store", "", "persistence back end: file, sqlite or none (overrides config)")
	dir := fs.String("dir", "", "file store directory (overrides config)")
	worldID := fs.String("world", "", "resume a world saved by the file store")
	seed := fs.Int64("seed", 1, "world seed for a new world")
	ticks := fs.Int("ticks", 600, "ticks to run; 0 runs until interrupted")
	rate := fs.Int("rate", 30, "ticks per second; 0 runs unthrottled")
	speed := fs.Float64("speed", 4, "viewer speed in tiles per tick")
	report := fs.String("report", "", "write per-tick section timings as CSV")
	verbose := fs.Bool("v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	log := newLogger(*verbose)

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	if *backend != "" {
		cfg.Storage.Backend = *backend
	}
	if *dir != "" {
		cfg.Storage.Dir = *dir
	}

	table, err := loadRules(*rulesPath, log)
	if err != nil {
		return err
	}
	persistence, closePersistence, err := openPersistence(cfg.Storage, log)
	if err != nil {
		return err
	}
	meta, err := worldMetadata(persistence, *worldID, *seed, cfg.Generation, log)
	if err != nil {
		closePersistence()
		return err
	}

	factory := func(table *rules.Table) func() world.TerrainGenerator {
		return func() world.TerrainGenerator {
			return world.NewGenerator(meta, table, cfg.Generation, log)
		}
	}
	store := world.NewChunkStore(world.StoreOptions{
		Stream:       cfg.Stream,
		ChunkSize:    world.Vec3i{X: cfg.Generation.ChunkSize[0], Y: cfg.Generation.ChunkSize[1], Z: cfg.Generation.ChunkSize[2]},
		WorldID:      meta.ID,
		Seed:         meta.Seed,
		Persistence:  persistence,
		NewGenerator: factory(table),
		Logger:       log,
	})

	// SIGHUP reloads the rule file and regenerates every chunk
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	// map centre, in tiles
	center := mgl64.Vec2{
		float64(meta.Size.X) * cfg.Generation.MapToTiles / 2,
		float64(meta.Size.Y) * cfg.Generation.MapToTiles / 2,
	}
	loop := &streamLoop{
		store:   store,
		path:    squarePath(center, center.X()/2, *speed),
		limiter: NewTickLimiter(*rate),
		ticks:   *ticks,
		stop:    make(chan struct{}),
		reload:  hup,
		rebuild: func() (func() world.TerrainGenerator, error) {
			t, err := loadRules(*rulesPath, log)
			if err != nil {
				return nil, err
			}
			return factory(t), nil
		},
		log: log,
	}

	done := make(chan struct{})
	var stopOnce sync.Once
	closer.Bind(func() {
		stopOnce.Do(func() { close(loop.stop) })
		<-done
	})

	log.Info("streaming", "world", meta.ID, "seed", meta.Seed, "store", cfg.Storage.Backend, "workers", cfg.Stream.Workers)
	loop.run()
	store.Close()
	err = writeReport(*report)
	if cerr := closePersistence(); cerr != nil && err == nil {
		err = cerr
	}
	close(done)
	return err
}

// worldMetadata resumes a saved world or builds a new map.
func worldMetadata(p world.Persistence, id string, seed int64, gen config.Generation, log *slog.Logger) (*world.Metadata, error) {
	fs, isFile := p.(*storage.FileStore)
	if id != "" {
		if !isFile {
			return nil, fmt.Errorf("resuming a world needs the file store")
		}
		m, err := fs.LoadMetadata(id)
		if err != nil {
			return nil, err
		}
		log.Info("resumed world", "world", m.ID, "name", m.Name)
		return m, nil
	}

	m, err := world.GenerateMetadata("tilestream", seed, world.Vec3i{}, gen)
	if err != nil {
		return nil, err
	}
	if isFile {
		if err := fs.SaveMetadata(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func writeReport(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := profiling.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}

// streamLoop drives the chunk store at a fixed tick rate.
type streamLoop struct {
	store   *world.ChunkStore
	path    *viewerPath
	limiter *TickLimiter
	ticks   int
	stop    chan struct{}
	log     *slog.Logger

	reload  <-chan os.Signal
	rebuild func() (func() world.TerrainGenerator, error)

	lastReport time.Time
}

func (l *streamLoop) run() {
	l.lastReport = time.Now()
	for i := 0; l.ticks <= 0 || i < l.ticks; i++ {
		select {
		case <-l.stop:
			l.log.Info("interrupted", "tick", i)
			return
		case <-l.reload:
			l.regenerate()
		default:
		}
		l.tick(i)
		l.limiter.Wait()
	}
}

func (l *streamLoop) regenerate() {
	newGen, err := l.rebuild()
	if err != nil {
		l.log.Error("reloading rules, keeping the old table", "err", err)
		return
	}
	l.store.Regenerate(newGen)
}

func (l *streamLoop) tick(i int) {
	profiling.ResetFrame()
	target := l.path.At(i, 0)
	st := l.store.Update(target)
	profiling.EndFrame()

	if time.Since(l.lastReport) >= time.Second {
		l.log.Info("tick",
			"tick", i,
			"target", target,
			"requested", st.Requested,
			"merged", st.Merged,
			"evicted", st.Evicted,
			"pending", st.Pending,
			"resident", st.Resident,
			"top", profiling.TopN(3),
		)
		l.lastReport = time.Now()
	}
}
