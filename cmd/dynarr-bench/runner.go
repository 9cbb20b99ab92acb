package main

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/pavanmanishd/dynarr"
	"github.com/pavanmanishd/dynarr/storage"
)

// result is the outcome of running one scenario.
type result struct {
	name       string
	iterations int
	elapsed    time.Duration
	checksum   uint64
	stats      storage.Stats
	err        error
}

// runner executes scenarios on a worker pool. Every scenario allocates
// through its own Metrics wrapper so its storage traffic can be reported
// separately, on top of a shared one that feeds Prometheus.
type runner struct {
	cfg      Config
	parallel int
	shared   *storage.Metrics
	logger   *zap.Logger
}

func newRunner(cfg Config, parallel int, reg prometheus.Registerer, logger *zap.Logger) *runner {
	return &runner{
		cfg:      cfg,
		parallel: max(parallel, 1),
		shared:   storage.NewMetrics(storage.NewHeap(cfg.Heap), reg),
		logger:   logger,
	}
}

func (r *runner) run(names []string) ([]result, error) {
	strategy, err := r.cfg.strategy()
	if err != nil {
		return nil, err
	}

	pool, err := ants.NewPool(r.parallel, ants.WithPanicHandler(func(v interface{}) {
		r.logger.Error("scenario panicked", zap.Any("panic", v))
	}))
	if err != nil {
		return nil, errors.Wrap(err, "create worker pool")
	}
	defer pool.Release()

	results := make([]result, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		results[i] = result{name: name, iterations: r.cfg.Iterations}
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			finished := false
			defer func() {
				// the pool's panic handler logs the value
				if !finished {
					results[i].err = errors.New("scenario panicked")
				}
			}()
			results[i] = r.runOne(name, strategy)
			finished = true
		})
		if err != nil {
			wg.Done()
			results[i].err = errors.Wrapf(err, "submit %s", name)
		}
	}
	wg.Wait()
	return results, nil
}

func (r *runner) runOne(name string, strategy dynarr.ReserveStrategy) result {
	m := storage.NewMetrics(r.shared, nil)
	e := env{storage: m, strategy: strategy, length: r.cfg.Length}
	run := scenarios[name]

	r.logger.Debug("scenario started", zap.String("scenario", name), zap.Int("iterations", r.cfg.Iterations))
	start := time.Now()
	var checksum uint64
	for i := 0; i < r.cfg.Iterations; i++ {
		checksum += run(e)
	}
	res := result{
		name:       name,
		iterations: r.cfg.Iterations,
		elapsed:    time.Since(start),
		checksum:   checksum,
		stats:      m.Stats(),
	}
	if res.stats.Live != 0 {
		res.err = errors.Errorf("%d regions leaked", res.stats.Live)
	}
	r.logger.Debug("scenario finished",
		zap.String("scenario", name),
		zap.Duration("elapsed", res.elapsed),
		zap.Uint64("checksum", checksum),
	)
	return res
}

func printResults(w io.Writer, results []result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCENARIO\tITERATIONS\tPER OP\tALLOCS/OP\tBYTES/OP\tGROWS IN PLACE\tSTATUS")
	for _, res := range results {
		status := "ok"
		if res.err != nil {
			status = res.err.Error()
		}
		n := max(res.iterations, 1)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%s\t%s\t%s\n",
			res.name,
			humanize.Comma(int64(res.iterations)),
			res.elapsed/time.Duration(n),
			float64(res.stats.Allocations)/float64(n),
			humanize.Bytes(uint64(res.stats.BytesAllocated)/uint64(n)),
			humanize.Comma(int64(res.stats.GrowsInPlace)),
			status,
		)
	}
	return tw.Flush()
}
