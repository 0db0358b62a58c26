package report

import "time"

// CallResult is one completed call, recorded by a worker and never mutated
// afterwards. Error is empty on success; Status always carries the outcome
// classification ("OK", "UNAVAILABLE", "UNKNOWN(23)", ...).
type CallResult struct {
	Timestamp time.Time     `json:"timestamp"`
	Latency   time.Duration `json:"latency"`
	Error     string        `json:"error"`
	Status    string        `json:"status"`
}

// OK reports whether the call completed without a failure.
func (r CallResult) OK() bool {
	return r.Error == ""
}

// LatencyDistribution is one percentile mark of the latency table.
type LatencyDistribution struct {
	Percentage int           `json:"percentage"`
	Latency    time.Duration `json:"latency"`
}

// Bucket is one histogram slot. Mark is the bucket's upper bound.
type Bucket struct {
	Mark      time.Duration `json:"mark"`
	Count     int           `json:"count"`
	Frequency float64       `json:"frequency"`
}

// Report is the aggregated outcome of one run. Built once after the worker
// pool's completion barrier, immutable afterwards, owned by the caller.
//
// WallTime is the measured wall-clock span from first dispatch to barrier
// completion; it is the only run-duration field and Rps derives from it.
type Report struct {
	Date     time.Time     `json:"date"`
	Count    int           `json:"count"`
	WallTime time.Duration `json:"wallTime"`
	Average  time.Duration `json:"average"`
	Fastest  time.Duration `json:"fastest"`
	Slowest  time.Duration `json:"slowest"`
	Rps      float64       `json:"rps"`

	LatencyDistribution []LatencyDistribution `json:"latencyDistribution"`
	Histogram           []Bucket              `json:"histogram"`

	StatusDist map[string]int `json:"statusDistribution"`
	ErrorDist  map[string]int `json:"errorDistribution"`

	Details []CallResult `json:"details"`
}
