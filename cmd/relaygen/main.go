package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"relaygen/internal/config"
	"relaygen/internal/crawler"
	"relaygen/internal/diag"
	"relaygen/internal/extractor"
	"relaygen/internal/graph"
	"relaygen/internal/index"
	"relaygen/internal/logging"
	"relaygen/internal/metrics"
	"relaygen/internal/pipeline"
	"relaygen/internal/storage"
	"relaygen/internal/tracing"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"
)

const version = "0.1.0"

var (
	rootCmd = &cobra.Command{
		Use:     "relaygen",
		Short:   "Generate relay factory methods for types embedding a common base",
		Version: version,
	}
	configPath string
	dbPath     string
	noColor    bool
	workers    int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to the relaygen configuration file")
	// Overrides history.db from the configuration when set.
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Path to the run history database (SQLite)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored diagnostics")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "w", 0, "Factories processed in parallel (0 = config or GOMAXPROCS)")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
}

// app holds everything one command needs. Optional parts are nil when disabled.
type app struct {
	cfg     *config.Config
	root    string
	logger  *slog.Logger
	indexer *index.Indexer
	store   *storage.SQLiteStore
	metrics *metrics.Recorder
	tracer  trace.TracerProvider

	shutdown tracing.ShutdownFunc
}

// setup loads the configuration and wires logging, tracing, metrics and history.
func setup(args []string) *app {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if workers > 0 {
		cfg.Generate.Workers = workers
	}

	root := cfg.Project.Root
	if len(args) > 0 {
		root = args[0]
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		log.Fatalf("Failed to resolve root %s: %v", root, err)
	}

	a := &app{cfg: cfg, root: absRoot, logger: logging.New(cfg.Logging)}

	ext, err := extractor.NewExtractor("go")
	if err != nil {
		log.Fatalf("Failed to create extractor: %v", err)
	}
	a.indexer = index.NewIndexer(crawler.NewCrawler(ext).WithLogger(a.logger))

	a.tracer, a.shutdown, err = tracing.NewProvider(cfg.Tracing, version)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}

	a.metrics, err = metrics.NewRecorder()
	if err != nil {
		log.Fatalf("Failed to set up metrics: %v", err)
	}

	if dbPath != "" {
		cfg.History.DB = dbPath
		cfg.History.Enabled = true
	}
	if cfg.History.Enabled {
		path := cfg.History.DB
		if !filepath.IsAbs(path) {
			path = filepath.Join(absRoot, path)
		}
		a.store, err = storage.NewSQLiteStore(path)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
	}
	return a
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.cfg.Metrics.Textfile != "" {
		if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
			a.logger.Warn("failed to write metrics", "error", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.shutdown(ctx); err != nil {
		a.logger.Warn("failed to flush traces", "error", err)
	}
}

func (a *app) buildGraph(ctx context.Context) *graph.Graph {
	fmt.Printf("📂 Scanning directory: %s\n", a.root)
	start := time.Now()
	g, err := a.indexer.BuildGraph(ctx, a.root, a.cfg.Project.Module)
	if err != nil {
		log.Fatalf("Build failed: %v", err)
	}
	s := g.Stats()
	fmt.Printf("✅ Graph built in %v. Found %d types, %d factories, %d constructors.\n",
		time.Since(start).Round(time.Millisecond), s.Types, s.Factories, s.Constructors)
	if s.Unresolved > 0 {
		a.logger.Info("unresolved type references", "count", s.Unresolved)
	}
	return g
}

func (a *app) engine() *pipeline.Engine {
	e := pipeline.NewEngine().
		WithLogger(a.logger).
		WithTracerProvider(a.tracer).
		WithMetrics(a.metrics)
	if a.store != nil {
		e.WithHistory(a.store)
	}
	return e
}

func (a *app) options(mode pipeline.Mode) pipeline.Options {
	return pipeline.Options{
		Mode:      mode,
		Workers:   a.cfg.Generate.Workers,
		Root:      a.root,
		Discovery: a.cfg.Discovery(),
	}
}

func (a *app) printer() *diag.Printer {
	p := diag.NewPrinter(os.Stdout, a.root)
	if noColor {
		p.NoColor()
	}
	return p
}

var statusIcons = map[pipeline.Status]string{
	pipeline.StatusWritten:   "✍️ ",
	pipeline.StatusUnchanged: "✅",
	pipeline.StatusStale:     "⚠️ ",
	pipeline.StatusPlanned:   "📝",
	pipeline.StatusSkipped:   "⏭️ ",
	pipeline.StatusFailed:    "❌",
}

func (a *app) printReport(r *pipeline.Report) {
	for _, f := range r.Factories {
		out := f.Output
		if rel, err := filepath.Rel(a.root, out); err == nil {
			out = rel
		}
		fmt.Printf("  %s %s -> %s (%d methods, %s)\n", statusIcons[f.Status], f.Factory, out, f.Bindings, f.Status)
		if f.Removed {
			fmt.Printf("     🧹 removed stale %s\n", out)
		}
	}
	p := a.printer()
	p.Print(r.Diagnostics)
	p.Summary(r.Diagnostics)
}
