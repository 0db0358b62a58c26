package report

import (
	"math"
	"sort"
	"time"
)

// DefaultBuckets is the histogram size when Options.Buckets is zero.
const DefaultBuckets = 10

// percentile marks reported in the latency table.
var marks = []int{10, 25, 50, 75, 90, 95, 99}

// Options tune aggregation.
type Options struct {
	Buckets int
}

// Build folds a completed result set into a Report. Pure: the same results
// and wall time always yield an identical report, and an empty or partial
// set resolves to zero values instead of failing.
func Build(results []CallResult, wallTime time.Duration, opts Options) *Report {
	buckets := opts.Buckets
	if buckets <= 0 {
		buckets = DefaultBuckets
	}

	rep := &Report{
		Count:      len(results),
		WallTime:   wallTime,
		StatusDist: make(map[string]int),
		ErrorDist:  make(map[string]int),
		Details:    results,
	}

	lats := make([]time.Duration, 0, len(results))
	var sum time.Duration
	for _, r := range results {
		lats = append(lats, r.Latency)
		sum += r.Latency
		rep.StatusDist[r.Status]++
		if !r.OK() {
			rep.ErrorDist[r.Error]++
		}
	}

	if len(lats) == 0 {
		return rep
	}

	sort.Slice(lats, func(i, j int) bool { return lats[i] < lats[j] })

	rep.Average = sum / time.Duration(len(lats))
	rep.Fastest = lats[0]
	rep.Slowest = lats[len(lats)-1]
	if wallTime > 0 {
		rep.Rps = float64(len(lats)) / (float64(wallTime) / float64(time.Second))
	}

	rep.LatencyDistribution = latencies(lats)
	rep.Histogram = histogram(lats, buckets)

	return rep
}

// latencies reports the latency at each fixed percentile mark over the
// ascending-sorted samples: index = max(0, ceil(p/100*n) - 1), no
// interpolation between samples.
func latencies(sorted []time.Duration) []LatencyDistribution {
	dist := make([]LatencyDistribution, len(marks))
	n := float64(len(sorted))
	for i, p := range marks {
		idx := int(math.Ceil(float64(p)/100*n)) - 1
		if idx < 0 {
			idx = 0
		}
		dist[i] = LatencyDistribution{Percentage: p, Latency: sorted[idx]}
	}
	return dist
}

// histogram spans [fastest, slowest] with bucketCount equal-width slots.
// A sample lands in floor((latency-fastest)/width), clamped so the maximum
// falls in the final bucket. Identical fastest and slowest collapse to a
// single bucket holding everything.
func histogram(sorted []time.Duration, bucketCount int) []Bucket {
	fastest := sorted[0]
	slowest := sorted[len(sorted)-1]
	total := len(sorted)

	if fastest == slowest {
		return []Bucket{{Mark: slowest, Count: total, Frequency: 1}}
	}

	width := float64(slowest-fastest) / float64(bucketCount)

	buckets := make([]Bucket, bucketCount)
	for i := range buckets {
		buckets[i].Mark = fastest + time.Duration(width*float64(i+1))
	}
	buckets[bucketCount-1].Mark = slowest

	for _, lat := range sorted {
		i := int(float64(lat-fastest) / width)
		if i >= bucketCount {
			i = bucketCount - 1
		}
		buckets[i].Count++
	}
	for i := range buckets {
		buckets[i].Frequency = float64(buckets[i].Count) / float64(total)
	}
	return buckets
}
