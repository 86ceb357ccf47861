// Package main provides the lattice CLI: it compiles a network
// description into an executable graph and runs a forward pass over
// random data.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lattice-ml/lattice/graph"
	"github.com/lattice-ml/lattice/internal/config"
	"github.com/lattice-ml/lattice/internal/netconf"
	"github.com/lattice-ml/lattice/internal/profile"
	"github.com/lattice-ml/lattice/tensor"
)

const version = "v0.1.0-dev"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("lattice %s\n", version)
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "lattice: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Model == "" {
		return fmt.Errorf("no model given: set LATTICE_MODEL to a network description file")
	}

	net, err := netconf.Load(cfg.Model)
	if err != nil {
		return err
	}
	ops, err := net.Operators()
	if err != nil {
		return err
	}
	loss, err := net.LossKind()
	if err != nil {
		return err
	}

	opts := []graph.Option{
		graph.WithLogger(logger),
		graph.WithBatchSize(cfg.BatchSize),
	}
	if cfg.MetricsAddr != "" {
		prof, err := profile.NewForwardProfiler(prometheus.DefaultRegisterer)
		if err != nil {
			return err
		}
		opts = append(opts, graph.WithProfiler(prof))
		go serveMetrics(cfg.MetricsAddr, logger)
	}

	g, err := graph.Build(ops, loss, opts...)
	if err != nil {
		return err
	}
	logger.Info("graph compiled",
		zap.String("build_id", g.BuildID()),
		zap.Int("nodes", g.Len()),
		zap.Strings("order", g.SortedNames()),
		zap.Int("aliased", len(g.AliasRecords())),
		zap.Int("tracked_bytes", g.Manager().TrackedBytes()))

	in, err := tensor.NewRaw(g.InputDims()[0].WithBatch(g.BatchSize()))
	if err != nil {
		return err
	}
	in.Randomize(1)
	if err := g.SetInput(in); err != nil {
		return err
	}

	out, err := g.Forward(cfg.Training)
	if err != nil {
		return err
	}
	for i, t := range out {
		logger.Info("forward output",
			zap.Int("slot", i),
			zap.String("shape", t.Shape().String()))
	}
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("serving metrics", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", zap.Error(err))
	}
}
