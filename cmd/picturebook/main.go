// Copyright Picturebook Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/n1n-api/picturebook/internal/catalog"
	"github.com/n1n-api/picturebook/internal/config"
	"github.com/n1n-api/picturebook/internal/metrics"
	"github.com/n1n-api/picturebook/internal/objectstore"
	"github.com/n1n-api/picturebook/internal/orchestrator"
	"github.com/n1n-api/picturebook/internal/outline"
	"github.com/n1n-api/picturebook/internal/prompt"
	"github.com/n1n-api/picturebook/internal/taskstate"
	"github.com/n1n-api/picturebook/internal/transport"
)

// shutdownGrace bounds how long an in-flight request gets to finish once a
// shutdown signal arrives before the server forces the connection closed.
const shutdownGrace = 10 * time.Second

// version is set at release time via -ldflags; "dev" covers local builds.
var version = "dev"

type cmd struct {
	Version struct{} `cmd:"" help:"Show version."`
	Serve   cmdServe `cmd:"" help:"Run the picturebook image-generation API server."`
}

// cmdServe corresponds to `picturebook serve`.
type cmdServe struct {
	Listen      string `help:"Address to listen on." default:":8080"`
	Config      string `help:"Path to the providers.yaml configuration file." default:"providers.yaml" type:"path"`
	CatalogDSN  string `help:"Postgres DSN for the history catalog. Catalog sync is disabled if empty." env:"PICTUREBOOK_CATALOG_DSN"`
	MetricsAddr string `help:"Address to serve /metrics on. Empty disables the metrics endpoint." default:":9090"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	doMain(ctx, os.Stdout, os.Stderr, os.Args[1:], os.Exit)
}

func doMain(ctx context.Context, stdout, stderr io.Writer, args []string, exitFn func(int)) {
	var c cmd
	parser, err := kong.New(&c,
		kong.Name("picturebook"),
		kong.Description("Picturebook image-generation orchestration server"),
		kong.Writers(stdout, stderr),
		kong.Exit(exitFn),
	)
	if err != nil {
		log.Fatalf("error creating parser: %v", err)
	}
	parsed, err := parser.Parse(args)
	parser.FatalIfErrorf(err)

	switch parsed.Command() {
	case "version":
		_, _ = fmt.Fprintf(stdout, "picturebook %s\n", version)
	case "serve":
		if err := runServe(ctx, c.Serve); err != nil {
			log.Fatalf("serve: %v", err)
		}
	default:
		panic("unreachable")
	}
}

func runServe(ctx context.Context, c cmdServe) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cfgSource, err := config.Load(c.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := objectstore.New(ctx, cfgSource.Current().Storage)
	if err != nil {
		return fmt.Errorf("build object store client: %w", err)
	}

	templater, err := prompt.NewTemplater()
	if err != nil {
		return fmt.Errorf("build prompt templater: %w", err)
	}

	m, err := metrics.NewMetricsFromEnv(ctx)
	if err != nil {
		return fmt.Errorf("build metrics: %w", err)
	}
	adapter, err := metrics.NewOrchestratorAdapter(m)
	if err != nil {
		return fmt.Errorf("build orchestrator metrics adapter: %w", err)
	}

	registry := taskstate.NewRegistry()
	engine := orchestrator.New(cfgSource, store, templater, registry, adapter, logger)

	outlineClient := outline.NewClient(cfgSource.Current().ActiveTextProvider(), http.DefaultClient)

	var cat transport.Catalog
	if c.CatalogDSN != "" {
		repo, err := catalog.Open(c.CatalogDSN)
		if err != nil {
			return fmt.Errorf("open catalog: %w", err)
		}
		cat = repo
	}

	handler := transport.New(engine, outlineClient, cat, logger)

	if c.MetricsAddr != "" && m.Registry() != nil {
		go serveMetrics(c.MetricsAddr, m, logger)
	}

	srv := &http.Server{
		Addr:    c.Listen,
		Handler: handler.Router(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("picturebook server starting", "addr", c.Listen)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// serveMetrics runs a standalone /metrics endpoint against the Prometheus
// registry backing m, separate from the main API listener so it can be
// firewalled off from the public API surface.
func serveMetrics(addr string, m metrics.Metrics, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))
	logger.Info("metrics server starting", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server stopped", "error", err)
	}
}
