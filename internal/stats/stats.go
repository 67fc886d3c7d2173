// Package stats — счётчики движка CSP на атомиках, без блокировок.
package stats

// stats.go
import (
	"sync/atomic"
	"time"
)

// Stats создаётся явно и передаётся сервисам по ссылке. Глобального экземпляра нет.
type Stats struct {
	totalRequests     atomic.Uint64
	totalViolations   atomic.Uint64
	cumulativeLatency atomic.Uint64 // наносекунды
	latencySamples    atomic.Uint64

	noncesGenerated atomic.Uint64
	cacheHits       atomic.Uint64
	cacheMisses     atomic.Uint64
	policyUpdates   atomic.Uint64

	startedAt atomic.Int64 // unix nano
	now       func() time.Time
}

func New() *Stats {
	s := &Stats{now: time.Now}
	s.startedAt.Store(s.now().UnixNano())
	return s
}

// RecordRequest учитывает обработанный запрос и его длительность.
// Отрицательная длительность считается нулевой.
func (s *Stats) RecordRequest(latency time.Duration) {
	if latency < 0 {
		latency = 0
	}
	s.totalRequests.Add(1)
	s.cumulativeLatency.Add(uint64(latency))
	s.latencySamples.Add(1)
}

func (s *Stats) RecordViolation() { s.totalViolations.Add(1) }

// RecordPolicyUpdate учитывает замену политики без перезапуска.
func (s *Stats) RecordPolicyUpdate() { s.policyUpdates.Add(1) }

// NonceGenerated, CacheHit и CacheMiss реализуют nonce.Observer.
func (s *Stats) NonceGenerated() { s.noncesGenerated.Add(1) }
func (s *Stats) CacheHit()       { s.cacheHits.Add(1) }
func (s *Stats) CacheMiss()      { s.cacheMisses.Add(1) }

// Snapshot — копия счётчиков на момент чтения.
type Snapshot struct {
	TotalRequests     uint64        `json:"total_requests"`
	TotalViolations   uint64        `json:"total_violations"`
	CumulativeLatency time.Duration `json:"cumulative_latency_ns"`
	LatencySamples    uint64        `json:"latency_samples"`
	AverageLatency    time.Duration `json:"average_latency_ns"`

	NoncesGenerated uint64 `json:"nonces_generated"`
	CacheHits       uint64 `json:"cache_hits"`
	CacheMisses     uint64 `json:"cache_misses"`
	PolicyUpdates   uint64 `json:"policy_updates"`

	Uptime            time.Duration `json:"uptime_ns"`
	RequestsPerSecond float64       `json:"requests_per_second"`
}

// Snapshot читает счётчики по одному, а не одной транзакцией: при
// конкурентной записи между ними возможен небольшой перекос.
func (s *Stats) Snapshot() Snapshot {
	snap := Snapshot{
		TotalRequests:     s.totalRequests.Load(),
		TotalViolations:   s.totalViolations.Load(),
		CumulativeLatency: time.Duration(s.cumulativeLatency.Load()),
		LatencySamples:    s.latencySamples.Load(),
		NoncesGenerated:   s.noncesGenerated.Load(),
		CacheHits:         s.cacheHits.Load(),
		CacheMisses:       s.cacheMisses.Load(),
		PolicyUpdates:     s.policyUpdates.Load(),
	}
	if snap.LatencySamples > 0 {
		snap.AverageLatency = snap.CumulativeLatency / time.Duration(snap.LatencySamples)
	}
	snap.Uptime = s.now().Sub(time.Unix(0, s.startedAt.Load()))
	if secs := snap.Uptime.Seconds(); secs > 0 {
		snap.RequestsPerSecond = float64(snap.TotalRequests) / secs
	}
	return snap
}

// Reset обнуляет счётчики и начинает отсчёт uptime заново.
func (s *Stats) Reset() {
	s.totalRequests.Store(0)
	s.totalViolations.Store(0)
	s.cumulativeLatency.Store(0)
	s.latencySamples.Store(0)
	s.noncesGenerated.Store(0)
	s.cacheHits.Store(0)
	s.cacheMisses.Store(0)
	s.policyUpdates.Store(0)
	s.startedAt.Store(s.now().UnixNano())
}
