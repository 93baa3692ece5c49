package ingest

import "sync"

// errAgg aggregates row-level failure messages. Only the first few are
// kept verbatim for the log; the rest just count, bucketed by message.
type errAgg struct {
	mu      sync.Mutex
	limit   int
	count   int64
	first   []string
	buckets map[string]int64
}

func newErrAgg(limit int) *errAgg {
	return &errAgg{limit: limit, buckets: make(map[string]int64)}
}

func (a *errAgg) add(msg string) {
	a.mu.Lock()
	a.buckets[msg]++
	if int64(len(a.first)) < int64(a.limit) {
		a.first = append(a.first, msg)
	}
	a.count++
	a.mu.Unlock()
}

func (a *errAgg) total() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

func (a *errAgg) sample() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.first))
	copy(out, a.first)
	return out
}
