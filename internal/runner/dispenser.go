package runner

import "sync/atomic"

// dispenser hands out call indices in [0, total), each exactly once, to any
// number of concurrent claimers.
type dispenser struct {
	next  int64
	total int64
}

func newDispenser(total int) *dispenser {
	return &dispenser{total: int64(total)}
}

// claim returns the next unclaimed index, or ok=false once the range is
// exhausted. The counter increment is atomic; no index is ever returned
// twice or skipped.
func (d *dispenser) claim() (int64, bool) {
	n := atomic.AddInt64(&d.next, 1) - 1
	if n >= d.total {
		return 0, false
	}
	return n, true
}
