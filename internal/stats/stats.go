package stats

import (
	"sync/atomic"
)

// Stats holds live run counters for the progress signal. Fields are updated
// atomically by workers; readers load them the same way. The exact report
// math runs over the raw results after the barrier, not over these.
type Stats struct {
	Completed uint64
	Success   uint64
	Fail      uint64

	// Latency histogram (nanoseconds)
	Latency *SafeHistogram
}

func New() *Stats {
	return &Stats{
		Latency: NewSafeHistogram(),
	}
}

// Add records one finished call.
func (s *Stats) Add(ok bool, latencyNanos int64) {
	atomic.AddUint64(&s.Completed, 1)
	if ok {
		atomic.AddUint64(&s.Success, 1)
	} else {
		atomic.AddUint64(&s.Fail, 1)
	}
	s.Latency.RecordValue(latencyNanos)
}

func (s *Stats) ErrorRate() float64 {
	done := atomic.LoadUint64(&s.Completed)
	if done == 0 {
		return 0
	}
	fails := atomic.LoadUint64(&s.Fail)
	return (float64(fails) / float64(done)) * 100
}

func (s *Stats) P50Ms() float64 {
	return float64(s.Latency.ValueAtQuantile(50)) / 1e6
}

func (s *Stats) P90Ms() float64 {
	return float64(s.Latency.ValueAtQuantile(90)) / 1e6
}

func (s *Stats) P99Ms() float64 {
	return float64(s.Latency.ValueAtQuantile(99)) / 1e6
}

func (s *Stats) MaxMs() float64 {
	return float64(s.Latency.Max()) / 1e6
}
