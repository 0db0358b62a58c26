// Package cli drives runs from the terminal: live progress line while the
// worker pool executes, a summary block per run, and the optional step
// comparison when several concurrency levels are requested.
package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"

	"volley/internal/report"
	"volley/internal/runner"
	"volley/internal/storage"
	"volley/internal/target"
)

// Options carries everything a terminal run needs. Steps overrides
// Cfg.Concurrency: one run per step, same volume each time. Store is
// optional; when set every finished run is persisted.
type Options struct {
	Cfg    runner.Config
	Target target.Target
	Steps  []int
	Store  *storage.Store
	Logger log.Logger
}

type stepResult struct {
	workers int
	report  *report.Report
}

// Start executes the configured run (or one run per step) and prints the
// results. Only configuration errors are returned; failed calls are part of
// the report.
func Start(ctx context.Context, opts Options) error {
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}

	steps := opts.Steps
	if len(steps) == 0 {
		steps = []int{opts.Cfg.Concurrency}
	}

	printHeader(opts.Cfg, steps)

	results := make([]stepResult, 0, len(steps))
	for i, workers := range steps {
		cfg := opts.Cfg
		cfg.Concurrency = workers

		if len(steps) > 1 {
			fmt.Printf("\n%s\n", titleStyle.Render(fmt.Sprintf("🪜 STEP %d/%d (%d workers)", i+1, len(steps), workers)))
		}

		rep, err := runOne(ctx, cfg, opts)
		if err != nil {
			return err
		}

		PrintSummary(rep)

		if rep.Count < cfg.TotalCalls {
			fmt.Printf("%s\n", warnStyle.Render(
				fmt.Sprintf("⚠️  partial run: %d/%d calls finished before the deadline", rep.Count, cfg.TotalCalls)))
		}

		if opts.Store != nil {
			rec := storage.Record{
				ID:     uuid.New().String(),
				Config: cfg,
				Report: rep,
			}
			if err := opts.Store.Save(rec); err != nil {
				level.Warn(opts.Logger).Log("msg", "could not save run", "err", err)
			} else {
				fmt.Printf("\n💾 Saved run %s\n", subtleStyle.Render(rec.ID))
			}
		}

		results = append(results, stepResult{workers: workers, report: rep})
	}

	if len(results) > 1 {
		printComparison(results)
	}
	return nil
}

// runOne spawns the runner in a goroutine and renders progress from its
// snapshot channel until the run finishes.
func runOne(ctx context.Context, cfg runner.Config, opts Options) (*report.Report, error) {
	updates := make(runner.StatsUpdateChan, 100)
	r := runner.New(cfg, opts.Target, updates)
	r.Logger = opts.Logger

	type outcome struct {
		rep *report.Report
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		rep, err := r.Run(ctx)
		done <- outcome{rep: rep, err: err}
	}()

	start := time.Now()
	for {
		select {
		case snap := <-updates:
			renderProgress(snap, time.Since(start))
		case out := <-done:
			if out.err == nil {
				renderProgress(finalSnapshot(r), time.Since(start))
			}
			fmt.Printf("\n")
			return out.rep, out.err
		}
	}
}

// finalSnapshot settles the progress line at the true end state; abandoned
// workers may still be counting, so loads stay atomic.
func finalSnapshot(r *runner.Runner) runner.StatsSnapshot {
	return runner.StatsSnapshot{
		Completed: atomic.LoadUint64(&r.Stats.Completed),
		Success:   atomic.LoadUint64(&r.Stats.Success),
		Fail:      atomic.LoadUint64(&r.Stats.Fail),
		Total:     r.Cfg.TotalCalls,
		P99Ms:     r.Stats.P99Ms(),
	}
}

func renderProgress(snap runner.StatsSnapshot, elapsed time.Duration) {
	pct := 0.0
	if snap.Total > 0 {
		pct = float64(snap.Completed) / float64(snap.Total)
	}
	if pct > 1.0 {
		pct = 1.0
	}

	rps := 0.0
	if elapsed.Seconds() > 0 {
		rps = float64(snap.Completed) / elapsed.Seconds()
	}

	fmt.Printf("\r%s %3.0f%% | %d/%d | Inf: %3d | RPS: %.1f | OK: %d | Err: %d | p99: %.1fms",
		progressBar(pct, 20), pct*100,
		snap.Completed, snap.Total,
		snap.Inflight,
		rps,
		snap.Success,
		snap.Fail,
		snap.P99Ms,
	)
}

func printHeader(cfg runner.Config, steps []int) {
	fmt.Printf("\n%s\n", titleStyle.Render("🚀 STARTING VOLLEY RUN"))
	fmt.Printf("======================================================================\n")
	fmt.Printf("Method       : %s\n", cfg.Method)
	fmt.Printf("Calls        : %d\n", cfg.TotalCalls)
	if len(steps) > 1 {
		fmt.Printf("Steps        : %v workers\n", steps)
	} else {
		fmt.Printf("Concurrency  : %d (%d effective)\n", cfg.Concurrency, cfg.Workers())
	}
	if cfg.RPS > 0 {
		fmt.Printf("Rate limit   : %d rps\n", cfg.RPS)
	}
	if cfg.Timeout > 0 {
		fmt.Printf("Run deadline : %s\n", cfg.Timeout)
	}
	fmt.Printf("======================================================================\n\n")
}

func progressBar(pct float64, width int) string {
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("-", width-filled) + "]"
}

// PrintSummary writes the full report block. Also used by `volley history`
// to re-print stored runs.
func PrintSummary(rep *report.Report) {
	fmt.Printf("\n%s\n", titleStyle.Render("📊 RUN RESULTS"))
	fmt.Printf("======================================================================\n")
	fmt.Printf("Count          : %d\n", rep.Count)
	fmt.Printf("Total          : %s\n", rep.WallTime)
	fmt.Printf("Slowest        : %s\n", rep.Slowest)
	fmt.Printf("Fastest        : %s\n", rep.Fastest)
	fmt.Printf("Average        : %s\n", rep.Average)
	fmt.Printf("Requests/sec   : %s\n", valueStyle.Render(fmt.Sprintf("%.2f", rep.Rps)))

	if len(rep.LatencyDistribution) > 0 {
		fmt.Printf("\n⏱️  LATENCY DISTRIBUTION\n")
		for _, d := range rep.LatencyDistribution {
			fmt.Printf("   p%-3d: %s\n", d.Percentage, d.Latency)
		}
	}

	if len(rep.Histogram) > 0 {
		fmt.Printf("\n📈 HISTOGRAM\n")
		peak := 0
		for _, b := range rep.Histogram {
			if b.Count > peak {
				peak = b.Count
			}
		}
		for _, b := range rep.Histogram {
			bar := 0
			if peak > 0 {
				bar = b.Count * 30 / peak
			}
			fmt.Printf("   %12s [%5d] |%s\n", b.Mark, b.Count, strings.Repeat("■", bar))
		}
	}

	if len(rep.StatusDist) > 0 {
		fmt.Printf("\n🔢 STATUS DISTRIBUTION\n")
		for _, status := range sortedKeys(rep.StatusDist) {
			fmt.Printf("   [%s] %d responses\n", status, rep.StatusDist[status])
		}
	}

	if len(rep.ErrorDist) > 0 {
		fmt.Printf("\n%s\n", errStyle.Render("❌ ERROR DISTRIBUTION"))
		for _, msg := range sortedKeys(rep.ErrorDist) {
			fmt.Printf("   %d x %s\n", rep.ErrorDist[msg], msg)
		}
	}
	fmt.Printf("======================================================================\n")
}

func printComparison(results []stepResult) {
	fmt.Printf("\n%s\n", titleStyle.Render("🪜 STEP COMPARISON"))
	fmt.Printf("======================================================================\n")
	fmt.Printf("%8s %8s %12s %12s %10s %8s\n", "WORKERS", "COUNT", "AVG", "P99", "RPS", "ERRORS")
	for _, sr := range results {
		var p99 time.Duration
		for _, d := range sr.report.LatencyDistribution {
			if d.Percentage == 99 {
				p99 = d.Latency
			}
		}
		errs := 0
		for _, n := range sr.report.ErrorDist {
			errs += n
		}
		fmt.Printf("%8d %8d %12s %12s %10.2f %8d\n",
			sr.workers, sr.report.Count, sr.report.Average, p99, sr.report.Rps, errs)
	}
	fmt.Printf("======================================================================\n")
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
