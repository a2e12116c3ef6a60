package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	billingo "github.com/billingo/billingo-go"
	"github.com/billingo/billingo-go/metrics/export/prometheus"
)

// runBench issues GET PATH ops times from concurrency workers and reports
// latency percentiles followed by the client's metrics.
func runBench(ctx context.Context, client *billingo.Client, args []string, e env) error {
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	concurrency := fs.Int("concurrency", 16, "number of concurrent workers")
	ops := fs.Int("ops", 1000, "total number of calls")
	if err := fs.Parse(args); err != nil {
		return usageError("bench: " + err.Error())
	}
	if fs.NArg() != 1 {
		return usageError("bench: exactly one PATH argument is required")
	}
	if *concurrency <= 0 || *ops <= 0 {
		return usageError("bench: concurrency and ops must be > 0")
	}

	stats := runPhase(ctx, *ops, *concurrency, func(ctx context.Context) error {
		_, err := client.Get(ctx, fs.Arg(0), nil)
		return err
	})
	printStats(e.stdout, "get", stats)
	_, _ = io.WriteString(e.stdout, prometheus.NewPrometheusExporter(client).Render())

	if stats.failures == int64(stats.ops) {
		return errors.New("every call failed")
	}
	return nil
}

func runPhase(ctx context.Context, ops, concurrency int, call func(context.Context) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops || ctx.Err() != nil {
					return
				}
				t0 := time.Now()
				err := call(ctx)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(w io.Writer, name string, s phaseStats) {
	fmt.Fprintf(w, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
