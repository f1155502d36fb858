package metrics

import (
	"math"
	"sort"
	"sync"
	"time"
)

// Welford keeps a running mean and variance without storing observations.
// See https://en.wikipedia.org/wiki/Algorithms_for_calculating_variance#Welford's_online_algorithm
type Welford struct {
	Count int
	Mean  float64
	M2    float64 // sum of squared differences from the mean
}

// Add folds one observation into the running statistics
func (w *Welford) Add(x float64) {
	w.Count++
	delta := x - w.Mean
	w.Mean += delta / float64(w.Count)
	w.M2 += delta * (x - w.Mean)
}

// StdDev returns the population standard deviation, 0 below two observations
func (w *Welford) StdDev() float64 {
	if w.Count < 2 {
		return 0
	}
	return math.Sqrt(w.M2 / float64(w.Count))
}

// LatencySummary is a point-in-time view of one call class
type LatencySummary struct {
	Class  string
	Count  int
	Mean   time.Duration
	StdDev time.Duration
}

// LatencyTracker accumulates API call latency per call class
type LatencyTracker struct {
	mu      sync.Mutex
	classes map[string]*Welford
}

// NewLatencyTracker creates an empty tracker
func NewLatencyTracker() *LatencyTracker {
	return &LatencyTracker{classes: make(map[string]*Welford)}
}

// Observe records the duration of one call
func (t *LatencyTracker) Observe(class string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.classes[class]
	if !ok {
		w = &Welford{}
		t.classes[class] = w
	}
	w.Add(float64(d))
}

// Summaries returns per-class statistics sorted by class name
func (t *LatencyTracker) Summaries() []LatencySummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]LatencySummary, 0, len(t.classes))
	for class, w := range t.classes {
		out = append(out, LatencySummary{
			Class:  class,
			Count:  w.Count,
			Mean:   time.Duration(w.Mean),
			StdDev: time.Duration(w.StdDev()),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Class < out[j].Class })
	return out
}
