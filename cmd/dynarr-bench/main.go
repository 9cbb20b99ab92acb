// Command dynarr-bench runs growable-array scenarios against instrumented
// storage and reports time, allocations and bytes per operation.
package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pavanmanishd/dynarr"
	"github.com/pavanmanishd/dynarr/storage"
)

func main() {
	app := kingpin.New("dynarr-bench", "Benchmark driver for growable arrays.")
	app.HelpFlag.Short('h')
	addRunCommand(app)
	addListCommand(app)
	kingpin.MustParse(app.Parse(os.Args[1:]))
}

type runCommand struct {
	configFile    string
	parallel      int
	metricsListen string
	scenarios     []string
}

func addRunCommand(app *kingpin.Application) {
	cmd := &runCommand{}
	run := app.Command("run", "Run scenarios and print a report.").Default().Action(cmd.run)
	run.Flag("config", "TOML configuration file.").Short('c').StringVar(&cmd.configFile)
	run.Flag("parallel", "Scenarios run at once.").Default("1").IntVar(&cmd.parallel)
	run.Flag("metrics.listen", "Address to serve Prometheus metrics on while running.").StringVar(&cmd.metricsListen)
	run.Arg("scenario", "Scenarios to run; all configured ones when empty.").StringsVar(&cmd.scenarios)
}

func (cmd *runCommand) run(_ *kingpin.ParseContext) error {
	cfg, err := loadConfig(cmd.configFile)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	dynarr.SetLogger(logger)
	storage.SetLogger(logger)

	names := cmd.scenarios
	if len(names) == 0 {
		names = cfg.Scenarios
	}
	if len(names) == 0 {
		names = scenarioNames()
	}
	for _, name := range names {
		if _, ok := scenarios[name]; !ok {
			return errors.Errorf("unknown scenario %q, have %s", name, strings.Join(scenarioNames(), ", "))
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	if cmd.metricsListen != "" {
		go serveMetrics(cmd.metricsListen, reg, logger)
	}

	r := newRunner(cfg, cmd.parallel, reg, logger)
	logger.Info("running scenarios",
		zap.Strings("scenarios", names),
		zap.Int("parallel", cmd.parallel),
		zap.Int("length", cfg.Length),
		zap.String("strategy", cfg.Strategy),
	)
	results, err := r.run(names)
	if err != nil {
		return err
	}
	if err := printResults(os.Stdout, results); err != nil {
		return err
	}
	for _, res := range results {
		if res.err != nil {
			return errors.Wrapf(res.err, "scenario %s failed", res.name)
		}
	}
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	logger.Info("serving metrics", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", zap.Error(err))
	}
}

func addListCommand(app *kingpin.Application) {
	app.Command("list", "List the available scenarios.").Action(func(_ *kingpin.ParseContext) error {
		for _, name := range scenarioNames() {
			fmt.Println(name)
		}
		return nil
	})
}
