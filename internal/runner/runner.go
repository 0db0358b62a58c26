package runner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/time/rate"

	"volley/internal/report"
	"volley/internal/stats"
	"volley/internal/target"
)

// StatsSnapshot is sent over the Updates channel while a run is active.
// It is a read-only progress signal; the report is built only after the
// completion barrier.
type StatsSnapshot struct {
	Completed uint64
	Success   uint64
	Fail      uint64
	Total     int
	Inflight  int64

	// Pre-calculated live quantiles for the progress line (cheap copy)
	P50Ms float64
	P90Ms float64
	P99Ms float64
	MaxMs float64
}

// StatsUpdateChan is the channel type for live snapshots.
type StatsUpdateChan chan StatsSnapshot

// Runner drives one run: a pool of min(Concurrency, TotalCalls) workers
// drains the shared index dispenser, every claim becomes exactly one call,
// and the full result set is aggregated after the barrier.
type Runner struct {
	Cfg    Config
	Target target.Target
	Stats  *stats.Stats
	Logger log.Logger

	// Event channel
	Updates StatsUpdateChan

	mu      sync.Mutex
	results []report.CallResult
	sealed  bool

	inflight int64
}

func New(cfg Config, tgt target.Target, updates StatsUpdateChan) *Runner {
	if updates == nil {
		// Avoid nil panics if not provided
		updates = make(StatsUpdateChan, 10)
	}

	return &Runner{
		Cfg:     cfg,
		Target:  tgt,
		Stats:   stats.New(),
		Logger:  log.NewNopLogger(),
		Updates: updates,
	}
}

// Run executes the configured volume against the target and returns the
// aggregated report. Only configuration problems surface as errors, before
// any call is issued; per-call failures become report data.
func (r *Runner) Run(ctx context.Context) (*report.Report, error) {
	if err := r.Cfg.Validate(); err != nil {
		return nil, err
	}
	if r.Target == nil {
		return nil, ErrMissingTarget
	}

	if r.Cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Cfg.Timeout)
		defer cancel()
	}

	tickCtx, stopTick := context.WithCancel(ctx)
	defer stopTick()
	r.StartTickLoop(tickCtx, 200*time.Millisecond)

	r.mu.Lock()
	r.results = make([]report.CallResult, 0, r.Cfg.TotalCalls)
	r.sealed = false
	r.mu.Unlock()

	var limiter *rate.Limiter
	if r.Cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(r.Cfg.RPS), 1)
	}

	workers := r.Cfg.Workers()
	level.Debug(r.Logger).Log("msg", "run starting",
		"method", r.Cfg.Method, "total", r.Cfg.TotalCalls, "workers", workers, "rps", r.Cfg.RPS)

	disp := newDispenser(r.Cfg.TotalCalls)
	start := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.work(ctx, disp, limiter)
		}()
	}

	barrier := make(chan struct{})
	go func() {
		wg.Wait()
		close(barrier)
	}()

	select {
	case <-barrier:
	case <-ctx.Done():
		// Run deadline: abandon in-flight calls. Their late results are
		// dropped at the sealed collection, and the partial set aggregates
		// with count < TotalCalls.
		level.Warn(r.Logger).Log("msg", "run deadline reached, abandoning in-flight calls",
			"inflight", atomic.LoadInt64(&r.inflight))
	}

	wall := time.Since(start)

	r.mu.Lock()
	r.sealed = true
	results := r.results
	r.mu.Unlock()

	rep := report.Build(results, wall, report.Options{Buckets: r.Cfg.Buckets})
	rep.Date = time.Now()

	level.Debug(r.Logger).Log("msg", "run complete",
		"count", rep.Count, "wall", wall, "rps", fmt.Sprintf("%.2f", rep.Rps))
	return rep, nil
}

// work loops: claim an index, invoke once, record; stop on exhaustion or
// cancellation. The dispenser guarantees each index is claimed exactly once,
// so the pool as a whole issues exactly TotalCalls calls.
func (r *Runner) work(ctx context.Context, disp *dispenser, limiter *rate.Limiter) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if _, ok := disp.claim(); !ok {
			return
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
		}

		res := r.call(ctx)
		r.Stats.Add(res.OK(), int64(res.Latency))
		r.record(res)
	}
}

// call performs exactly one request/response cycle. It never lets an error
// or panic escape: every outcome, transport faults included, is captured in
// the CallResult so one failing call cannot abort the run or its siblings.
func (r *Runner) call(ctx context.Context) (res report.CallResult) {
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			res = report.CallResult{
				Timestamp: start,
				Latency:   time.Since(start),
				Status:    target.Internal.String(),
				Error:     fmt.Sprintf("target panic: %v", p),
			}
		}
	}()

	atomic.AddInt64(&r.inflight, 1)
	defer atomic.AddInt64(&r.inflight, -1)

	err := r.Target.Invoke(ctx, r.Cfg.Method, r.Cfg.Payload, r.Cfg.Metadata)
	lat := time.Since(start)

	res = report.CallResult{Timestamp: start, Latency: lat}
	if err == nil {
		res.Status = target.OK.String()
		return res
	}
	res.Status, res.Error = target.Classify(err)
	return res
}

func (r *Runner) record(res report.CallResult) {
	r.mu.Lock()
	if !r.sealed {
		r.results = append(r.results, res)
	}
	r.mu.Unlock()
}

// StartTickLoop starts a goroutine that pushes stats snapshots until ctx
// is cancelled.
func (r *Runner) StartTickLoop(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sendUpdate()
			}
		}
	}()
}

func (r *Runner) sendUpdate() {
	s := StatsSnapshot{
		Completed: atomic.LoadUint64(&r.Stats.Completed),
		Success:   atomic.LoadUint64(&r.Stats.Success),
		Fail:      atomic.LoadUint64(&r.Stats.Fail),
		Total:     r.Cfg.TotalCalls,
		Inflight:  atomic.LoadInt64(&r.inflight),
		P50Ms:     r.Stats.P50Ms(),
		P90Ms:     r.Stats.P90Ms(),
		P99Ms:     r.Stats.P99Ms(),
		MaxMs:     r.Stats.MaxMs(),
	}

	// Non-blocking send
	select {
	case r.Updates <- s:
	default:
		// Drop update if channel full, consumer acts as backpressure
	}
}
