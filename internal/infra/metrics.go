package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Query counters
	fetches      atomic.Uint64
	cacheHits    atomic.Uint64
	deduplicated atomic.Uint64
	fetchErrors  atomic.Uint64

	// Bookmark counters
	bookmarkCommits atomic.Uint64
	persistFailures atomic.Uint64

	// Latency tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	activeClients atomic.Int32
}

// RecordFetch records a completed network fetch with latency.
func (m *Metrics) RecordFetch(latency time.Duration) {
	m.fetches.Add(1)
	m.latencySumNs.Add(latency.Nanoseconds())
	m.latencyCount.Add(1)
}

// RecordCacheHit records a query answered from cache.
func (m *Metrics) RecordCacheHit() {
	m.cacheHits.Add(1)
}

// RecordDeduplicated records a query that joined an in-flight fetch.
func (m *Metrics) RecordDeduplicated() {
	m.deduplicated.Add(1)
}

// RecordFetchError records a failed fetch.
func (m *Metrics) RecordFetchError() {
	m.fetchErrors.Add(1)
}

// RecordCommit records a bookmark commit and whether it reached durable storage.
func (m *Metrics) RecordCommit(persisted bool) {
	m.bookmarkCommits.Add(1)
	if !persisted {
		m.persistFailures.Add(1)
	}
}

// IncrementClients increments connected live-feed clients by 1.
func (m *Metrics) IncrementClients() {
	m.activeClients.Add(1)
}

// DecrementClients decrements connected live-feed clients by 1.
func (m *Metrics) DecrementClients() {
	m.activeClients.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	Fetches         uint64        `json:"fetches"`
	CacheHits       uint64        `json:"cache_hits"`
	Deduplicated    uint64        `json:"deduplicated"`
	FetchErrors     uint64        `json:"fetch_errors"`
	BookmarkCommits uint64        `json:"bookmark_commits"`
	PersistFailures uint64        `json:"persist_failures"`
	AvgLatency      time.Duration `json:"avg_latency"`
	ActiveClients   int32         `json:"active_clients"`
	Timestamp       time.Time     `json:"timestamp"`
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		Fetches:         m.fetches.Load(),
		CacheHits:       m.cacheHits.Load(),
		Deduplicated:    m.deduplicated.Load(),
		FetchErrors:     m.fetchErrors.Load(),
		BookmarkCommits: m.bookmarkCommits.Load(),
		PersistFailures: m.persistFailures.Load(),
		AvgLatency:      time.Duration(avgLatency),
		ActiveClients:   m.activeClients.Load(),
		Timestamp:       time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.fetches.Store(0)
	m.cacheHits.Store(0)
	m.deduplicated.Store(0)
	m.fetchErrors.Store(0)
	m.bookmarkCommits.Store(0)
	m.persistFailures.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.activeClients.Store(0)
}
