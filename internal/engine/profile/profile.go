// Package profile provides the optional timing collaborator injected into
// the grid manager.
package profile

import (
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Profiler measures named sections. Start returns the function that ends
// the section.
type Profiler interface {
	Start(name string) func()
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) Start(string) func() { return func() {} }

// Sample is the accumulated timing of one section.
type Sample struct {
	Name  string
	Count int
	Total time.Duration
	Max   time.Duration
}

// Mean returns the average duration of the section.
func (s Sample) Mean() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// Stopwatch accumulates durations per section name. It is safe for
// concurrent use.
type Stopwatch struct {
	mu      sync.Mutex
	samples map[string]*Sample
	now     func() time.Time
}

// NewStopwatch creates an empty stopwatch.
func NewStopwatch() *Stopwatch {
	return &Stopwatch{samples: make(map[string]*Sample), now: time.Now}
}

// Start begins timing name.
func (w *Stopwatch) Start(name string) func() {
	begin := w.now()
	return func() {
		w.Record(name, w.now().Sub(begin))
	}
}

// Record adds one measurement of d to name.
func (w *Stopwatch) Record(name string, d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	s, ok := w.samples[name]
	if !ok {
		s = &Sample{Name: name}
		w.samples[name] = s
	}
	s.Count++
	s.Total += d
	s.Max = max(s.Max, d)
}

// Sample returns the accumulated timing of name.
func (w *Stopwatch) Sample(name string) (Sample, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.samples[name]
	if !ok {
		return Sample{}, false
	}
	return *s, true
}

// Samples returns every section sorted by name.
func (w *Stopwatch) Samples() []Sample {
	w.mu.Lock()
	out := make([]Sample, 0, len(w.samples))
	for _, s := range w.samples {
		out = append(out, *s)
	}
	w.mu.Unlock()

	slices.SortFunc(out, func(a, b Sample) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return out
}

// Reset drops every measurement.
func (w *Stopwatch) Reset() {
	w.mu.Lock()
	clear(w.samples)
	w.mu.Unlock()
}

// Report logs one line per section.
func (w *Stopwatch) Report(log *zap.Logger) {
	for _, s := range w.Samples() {
		log.Info("profile",
			zap.String("section", s.Name),
			zap.Int("count", s.Count),
			zap.Duration("total", s.Total),
			zap.Duration("mean", s.Mean()),
			zap.Duration("max", s.Max))
	}
}
