package profiling

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
)

// Per-tick section timer. Worker goroutines may record too; totals are
// kept under one mutex.

var (
	mu          sync.Mutex
	tick        int
	frameTotals = make(map[string]time.Duration)
	history     []Sample
)

// Sample is one section's accumulated time within one tick.
type Sample struct {
	Tick    int     `csv:"tick"`
	Section string  `csv:"section"`
	Millis  float64 `csv:"ms"`
}

// Track returns a stop function that records the elapsed time under the given name.
// Usage: defer profiling.Track("world.Update")()
func Track(name string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		mu.Lock()
		frameTotals[name] += d
		mu.Unlock()
	}
}

// ResetFrame clears current per-tick totals without recording them.
func ResetFrame() {
	mu.Lock()
	clear(frameTotals)
	mu.Unlock()
}

// EndFrame moves the current totals into the history and starts a new tick.
func EndFrame() {
	mu.Lock()
	defer mu.Unlock()
	names := make([]string, 0, len(frameTotals))
	for k := range frameTotals {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, name := range names {
		history = append(history, Sample{
			Tick:    tick,
			Section: name,
			Millis:  float64(frameTotals[name].Microseconds()) / 1000.0,
		})
	}
	clear(frameTotals)
	tick++
}

// Snapshot returns a copy of current per-tick totals.
func Snapshot() map[string]time.Duration {
	mu.Lock()
	defer mu.Unlock()
	out := make(map[string]time.Duration, len(frameTotals))
	for k, v := range frameTotals {
		out[k] = v
	}
	return out
}

// SumWithPrefix adds up all current totals whose name starts with prefix.
func SumWithPrefix(prefix string) time.Duration {
	mu.Lock()
	defer mu.Unlock()
	var total time.Duration
	for k, v := range frameTotals {
		if strings.HasPrefix(k, prefix) {
			total += v
		}
	}
	return total
}

// TopN formats top N durations from the current tick totals.
// Example: "world.Update:4.2ms, world.drainResults:0.3ms"
func TopN(n int) string {
	ss := Snapshot()
	type pair struct {
		name string
		dur  time.Duration
	}
	list := make([]pair, 0, len(ss))
	for k, v := range ss {
		list = append(list, pair{name: k, dur: v})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].dur == list[j].dur {
			return list[i].name < list[j].name
		}
		return list[i].dur > list[j].dur
	})
	n = min(n, len(list))
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		parts = append(parts, list[i].name+":"+formatMs(list[i].dur))
	}
	return strings.Join(parts, ", ")
}

func formatMs(d time.Duration) string {
	ms := float64(d.Microseconds()) / 1000.0
	s := strings.TrimSuffix(fmt.Sprintf("%.1f", ms), ".0")
	return s + "ms"
}

// History returns every sample recorded by EndFrame so far.
func History() []Sample {
	mu.Lock()
	defer mu.Unlock()
	return append([]Sample(nil), history...)
}

// Reset drops all totals and history.
func Reset() {
	mu.Lock()
	clear(frameTotals)
	history = nil
	tick = 0
	mu.Unlock()
}

// WriteCSV writes the recorded history to f with a header row.
func WriteCSV(f *os.File) error {
	samples := History()
	if err := gocsv.Marshal(&samples, f); err != nil {
		return fmt.Errorf("writing profile: %w", err)
	}
	return nil
}
