package stats

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAddIsConcurrencySafe(t *testing.T) {
	s := New()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 250; j++ {
				s.Add(j%5 != 0, int64(time.Millisecond))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(2000), atomic.LoadUint64(&s.Completed))
	assert.Equal(t, uint64(1600), atomic.LoadUint64(&s.Success))
	assert.Equal(t, uint64(400), atomic.LoadUint64(&s.Fail))
	assert.Equal(t, int64(2000), s.Latency.TotalCount())
}

func TestErrorRate(t *testing.T) {
	s := New()
	assert.Zero(t, s.ErrorRate())

	s.Add(true, int64(time.Millisecond))
	s.Add(false, int64(time.Millisecond))
	assert.InDelta(t, 50.0, s.ErrorRate(), 1e-9)
}

func TestQuantileHelpers(t *testing.T) {
	s := New()
	for i := 1; i <= 100; i++ {
		s.Add(true, int64(i)*int64(time.Millisecond))
	}

	// hdrhistogram quantizes to three significant figures.
	assert.InDelta(t, 50.0, s.P50Ms(), 1.0)
	assert.InDelta(t, 90.0, s.P90Ms(), 1.0)
	assert.InDelta(t, 99.0, s.P99Ms(), 1.0)
	assert.InDelta(t, 100.0, s.MaxMs(), 1.0)
}
