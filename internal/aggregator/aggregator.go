package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/atikulmunna/geotail/internal/model"
)

// window is the span used for the events-per-second rate.
const window = 5 * time.Second

// Stats holds a point-in-time snapshot of live monitor metrics.
type Stats struct {
	Uptime      string  `json:"uptime"`
	TotalEvents int64   `json:"total_events"`
	UniqueIPs   int     `json:"unique_ips"`
	EPS         float64 `json:"eps"`
	TopIPs      []Count `json:"top_ips"`
	TopPaths    []Count `json:"top_paths"`
	Statuses    []Count `json:"statuses"`
	DroppedLogs int64   `json:"dropped_logs"`
}

// Aggregator consumes enriched events and computes running counters and a
// time-windowed event rate.
type Aggregator struct {
	mu        sync.RWMutex
	startTime time.Time
	counters  *Counters
	window    []time.Time // event arrival times inside the rate window
	dropped   func() int64
	entries   <-chan model.Enriched
	topN      int
}

// New creates an Aggregator reading from entries. droppedFn reports events the
// hub could not deliver.
func New(entries <-chan model.Enriched, droppedFn func() int64, topN int) *Aggregator {
	if droppedFn == nil {
		droppedFn = func() int64 { return 0 }
	}
	return &Aggregator{
		startTime: time.Now(),
		counters:  NewCounters(),
		dropped:   droppedFn,
		entries:   entries,
		topN:      topN,
	}
}

// Snapshot returns the current metrics.
func (a *Aggregator) Snapshot() Stats {
	a.mu.RLock()
	cutoff := time.Now().Add(-window)
	var recent int
	for _, t := range a.window {
		if t.After(cutoff) {
			recent++
		}
	}
	a.mu.RUnlock()

	return Stats{
		Uptime:      time.Since(a.startTime).Truncate(time.Second).String(),
		TotalEvents: a.counters.Total(),
		UniqueIPs:   a.counters.UniqueIPs(),
		EPS:         float64(recent) / window.Seconds(),
		TopIPs:      a.counters.TopIPs(a.topN),
		TopPaths:    a.counters.TopPaths(a.topN),
		Statuses:    a.counters.Statuses(),
		DroppedLogs: a.dropped(),
	}
}

// Start consumes entries until the context is cancelled or the channel closes.
func (a *Aggregator) Start(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-a.entries:
			if !ok {
				return
			}
			a.record(entry)
		case <-ticker.C:
			a.prune()
		}
	}
}

func (a *Aggregator) record(entry model.Enriched) {
	a.counters.Record(entry.Event)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.window = append(a.window, time.Now())
}

// prune drops arrival times older than the rate window.
func (a *Aggregator) prune() {
	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := time.Now().Add(-window)
	i := 0
	for _, t := range a.window {
		if t.After(cutoff) {
			a.window[i] = t
			i++
		}
	}
	a.window = a.window[:i]
}
