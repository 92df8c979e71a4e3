package aggregator

import (
	"sort"
	"strconv"
	"sync"

	"github.com/atikulmunna/geotail/internal/model"
)

// Count is a key with the number of times it was observed.
type Count struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// Counters accumulates request frequencies per client IP, path and status code.
type Counters struct {
	mu       sync.RWMutex
	total    int64
	ips      map[string]int64
	paths    map[string]int64
	statuses map[int]int64
}

func NewCounters() *Counters {
	return &Counters{
		ips:      make(map[string]int64),
		paths:    make(map[string]int64),
		statuses: make(map[int]int64),
	}
}

// Record counts one event.
func (c *Counters) Record(ev model.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total++
	c.ips[ev.IP]++
	c.paths[ev.Path]++
	c.statuses[ev.Status]++
}

// Total returns the number of recorded events.
func (c *Counters) Total() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.total
}

// UniqueIPs returns the number of distinct client IPs.
func (c *Counters) UniqueIPs() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ips)
}

// TopIPs returns the n most frequent IPs, most frequent first.
func (c *Counters) TopIPs(n int) []Count {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return top(c.ips, n)
}

// TopPaths returns the n most frequent paths, most frequent first.
func (c *Counters) TopPaths(n int) []Count {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return top(c.paths, n)
}

// Statuses returns every observed status code in ascending order.
func (c *Counters) Statuses() []Count {
	c.mu.RLock()
	defer c.mu.RUnlock()

	codes := make([]int, 0, len(c.statuses))
	for code := range c.statuses {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	out := make([]Count, 0, len(codes))
	for _, code := range codes {
		out = append(out, Count{Key: strconv.Itoa(code), Count: c.statuses[code]})
	}
	return out
}

// top sorts by count descending; ties are broken by key so output is stable.
// n <= 0 returns every entry.
func top(m map[string]int64, n int) []Count {
	out := make([]Count, 0, len(m))
	for k, v := range m {
		out = append(out, Count{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
