package model

import (
	"sync"
	"sync/atomic"
)

// AggregateState holds named counters shared by every chunk of a step
// (totals printed in file footers, for example). All operations are safe for
// concurrent use.
type AggregateState struct {
	mu       sync.RWMutex
	counters map[string]*atomic.Int64
}

// NewAggregateState returns an empty state.
func NewAggregateState() *AggregateState {
	return &AggregateState{counters: make(map[string]*atomic.Int64)}
}

func (a *AggregateState) counter(name string) *atomic.Int64 {
	a.mu.RLock()
	c, ok := a.counters[name]
	a.mu.RUnlock()
	if ok {
		return c
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if c, ok = a.counters[name]; !ok {
		c = new(atomic.Int64)
		a.counters[name] = c
	}
	return c
}

// Add adds delta to counter name and returns the new value.
func (a *AggregateState) Add(name string, delta int64) int64 {
	return a.counter(name).Add(delta)
}

// Get returns the value of counter name, zero when unknown.
func (a *AggregateState) Get(name string) int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if c, ok := a.counters[name]; ok {
		return c.Load()
	}
	return 0
}

// Snapshot copies all counters.
func (a *AggregateState) Snapshot() map[string]int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]int64, len(a.counters))
	for k, c := range a.counters {
		out[k] = c.Load()
	}
	return out
}

// Reset drops all counters.
func (a *AggregateState) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counters = make(map[string]*atomic.Int64)
}

// PublishTo copies the counters into ec under "aggregate.<name>".
func (a *AggregateState) PublishTo(ec ExecutionContext) {
	for k, v := range a.Snapshot() {
		ec.Put("aggregate."+k, v)
	}
}
