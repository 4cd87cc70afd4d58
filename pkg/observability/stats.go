package observability

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Stats is an in-memory hook implementation that counts gatekeeper
// decisions, pipeline stages and cache traffic. It is safe for concurrent
// use and backs the server's /v1/stats endpoint.
type Stats struct {
	accepted  sync.Map // kind -> *atomic.Int64
	rejected  sync.Map // kind/reason -> *atomic.Int64
	stages    sync.Map // stage -> *stageStats
	cacheHits atomic.Int64
	cacheMiss atomic.Int64
}

type stageStats struct {
	count    atomic.Int64
	failures atomic.Int64
	nanos    atomic.Int64
}

// NewStats returns zeroed counters.
func NewStats() *Stats { return &Stats{} }

func counter(m *sync.Map, key string) *atomic.Int64 {
	if v, ok := m.Load(key); ok {
		return v.(*atomic.Int64)
	}
	v, _ := m.LoadOrStore(key, new(atomic.Int64))
	return v.(*atomic.Int64)
}

func (s *Stats) OnImageAccepted(_ context.Context, kind string, _, _ int) {
	counter(&s.accepted, kind).Add(1)
}

func (s *Stats) OnImageRejected(_ context.Context, kind, reason string, _ error) {
	counter(&s.rejected, kind+"/"+reason).Add(1)
}

func (s *Stats) OnStageStart(context.Context, string) {}

func (s *Stats) OnStageComplete(_ context.Context, stage string, d time.Duration, err error) {
	v, _ := s.stages.LoadOrStore(stage, &stageStats{})
	st := v.(*stageStats)
	st.count.Add(1)
	st.nanos.Add(int64(d))
	if err != nil {
		st.failures.Add(1)
	}
}

func (s *Stats) OnCacheHit(context.Context, string)      { s.cacheHits.Add(1) }
func (s *Stats) OnCacheMiss(context.Context, string)     { s.cacheMiss.Add(1) }
func (s *Stats) OnCacheSet(context.Context, string, int) {}

// StageSnapshot summarizes one pipeline stage.
type StageSnapshot struct {
	Count    int64   `json:"count"`
	Failures int64   `json:"failures"`
	MeanMS   float64 `json:"mean_ms"`
}

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	Accepted    map[string]int64         `json:"accepted"`
	Rejected    map[string]int64         `json:"rejected"`
	Stages      map[string]StageSnapshot `json:"stages"`
	CacheHits   int64                    `json:"cache_hits"`
	CacheMisses int64                    `json:"cache_misses"`
}

// Snapshot copies the current counters.
func (s *Stats) Snapshot() Snapshot {
	snap := Snapshot{
		Accepted:    map[string]int64{},
		Rejected:    map[string]int64{},
		Stages:      map[string]StageSnapshot{},
		CacheHits:   s.cacheHits.Load(),
		CacheMisses: s.cacheMiss.Load(),
	}
	s.accepted.Range(func(k, v any) bool {
		snap.Accepted[k.(string)] = v.(*atomic.Int64).Load()
		return true
	})
	s.rejected.Range(func(k, v any) bool {
		snap.Rejected[k.(string)] = v.(*atomic.Int64).Load()
		return true
	})
	s.stages.Range(func(k, v any) bool {
		st := v.(*stageStats)
		n := st.count.Load()
		ss := StageSnapshot{Count: n, Failures: st.failures.Load()}
		if n > 0 {
			ss.MeanMS = float64(st.nanos.Load()) / float64(n) / float64(time.Millisecond)
		}
		snap.Stages[k.(string)] = ss
		return true
	})
	return snap
}

// RejectionKeys returns the rejection counter keys in sorted order.
func (s Snapshot) RejectionKeys() []string {
	keys := make([]string, 0, len(s.Rejected))
	for k := range s.Rejected {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
