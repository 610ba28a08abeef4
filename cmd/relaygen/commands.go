package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"relaygen/internal/analysis"
	"relaygen/internal/diag"
	"relaygen/internal/discovery"
	"relaygen/internal/generator"
	"relaygen/internal/git"
	"relaygen/internal/graph"
	"relaygen/internal/pipeline"
	"relaygen/internal/planner"
	"relaygen/internal/retrieval"
	"relaygen/internal/watch"

	"github.com/spf13/cobra"
)

var (
	sinceRef     string
	planJSON     bool
	focus        []string
	hops         int
	snapshotPath string
	historyLimit int
	debounce     time.Duration
)

func init() {
	generateCmd.Flags().StringVar(&sinceRef, "since", "", "Only rewrite factories affected by changes since this git ref")
	planCmd.Flags().BoolVar(&planJSON, "json", false, "Print the synthesis plans as JSON")
	graphCmd.Flags().StringSliceVar(&focus, "focus", nil, "Draw only the neighborhood of these factories")
	graphCmd.Flags().IntVar(&hops, "hops", retrieval.DefaultConfig().MaxHops, "Neighborhood radius for --focus")
	graphCmd.Flags().StringVar(&snapshotPath, "snapshot", "", "Also write a JSON snapshot of the symbol graph to this file")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of runs to list")
	watchCmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period before regenerating")
}

var generateCmd = &cobra.Command{
	Use:   "generate [path]",
	Short: "Generate the relay factory methods of every factory under path",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := setup(args)
		defer a.close()
		ctx := cmd.Context()

		g := a.buildGraph(ctx)
		opts := a.options(pipeline.ModeGenerate)

		if sinceRef != "" {
			opts.Affected = affectedSince(ctx, a, g, sinceRef)
		}

		fmt.Println("🚀 Generating factory methods...")
		report, err := a.engine().Run(ctx, g, opts)
		if err != nil {
			log.Fatalf("Generation failed: %v", err)
		}
		a.printReport(report)

		if report.HasErrors() {
			a.close()
			os.Exit(1)
		}
		fmt.Printf("🎉 Done: %d written, %d unchanged.\n", report.Count(pipeline.StatusWritten), report.Count(pipeline.StatusUnchanged))
	},
}

// affectedSince returns the factories touched since ref, or nil for a full run.
func affectedSince(ctx context.Context, a *app, g *graph.Graph, ref string) map[string]bool {
	top, err := git.TopLevel(ctx, a.root)
	if err != nil {
		log.Fatalf("Failed to locate git repository: %v", err)
	}
	changes, err := git.GetChangedFiles(ctx, a.root, ref)
	if err != nil {
		log.Fatalf("Failed to get git changes: %v", err)
	}
	fmt.Printf("📝 Detected %d changed files since %s.\n", len(changes), ref)

	fmt.Println("🔍 Analyzing impact...")
	// Discovery diagnostics are reported by the run itself.
	decls := discovery.Discover(g, a.cfg.Discovery(), diag.NewReporter())
	affected, impact := analysis.NewAnalyzer(g, top).AffectedFactories(decls, changes)
	fmt.Printf("  -> %d symbols directly affected\n", len(impact.DirectlyAffected))
	fmt.Printf("  -> %d symbols indirectly affected\n", len(impact.IndirectlyAffected))
	if affected == nil {
		fmt.Printf("  -> full rebuild: %s\n", strings.Join(impact.Reasons, "; "))
		return nil
	}
	fmt.Printf("  -> %d of %d factories affected\n", len(affected), len(decls))
	return affected
}

var checkCmd = &cobra.Command{
	Use:   "check [path]",
	Short: "Fail when generated files are stale or diagnostics report errors",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := setup(args)
		defer a.close()
		ctx := cmd.Context()

		g := a.buildGraph(ctx)
		report, err := a.engine().Run(ctx, g, a.options(pipeline.ModeCheck))
		if err != nil {
			log.Fatalf("Check failed: %v", err)
		}
		a.printReport(report)

		if stale := report.Count(pipeline.StatusStale); stale > 0 || report.HasErrors() {
			fmt.Printf("❌ %d generated file(s) out of date. Run `relaygen generate`.\n", stale)
			a.close()
			os.Exit(1)
		}
		fmt.Println("✅ Generated files are up to date.")
	},
}

var planCmd = &cobra.Command{
	Use:   "plan [path]",
	Short: "Show the methods that would be generated without writing them",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := setup(args)
		defer a.close()
		ctx := cmd.Context()

		g := a.buildGraph(ctx)
		report, err := a.engine().Run(ctx, g, a.options(pipeline.ModePlan))
		if err != nil {
			log.Fatalf("Planning failed: %v", err)
		}

		if planJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				log.Fatalf("Failed to encode plan: %v", err)
			}
			return
		}

		for _, f := range report.Factories {
			fmt.Printf("🏭 %s (%s)\n", f.Factory, f.Status)
			if f.Plan == nil {
				continue
			}
			for _, p := range f.Plan.Plans {
				fmt.Printf("   %s() -> %s via %s [%s]\n", p.FuncName, p.Produced.Text, p.Constructor, describeResolution(p))
			}
		}
		a.printer().Print(report.Diagnostics)
	},
}

func describeResolution(p planner.Plan) string {
	var parts []string
	for _, s := range p.Resolution.Steps {
		parts = append(parts, fmt.Sprintf("%s %s x%d", s.Kind, s.Service.Text, len(s.Params)))
	}
	if n := len(p.Resolution.Passthrough); n > 0 {
		parts = append(parts, fmt.Sprintf("%d passthrough", n))
	}
	if len(parts) == 0 {
		return "no parameters"
	}
	return strings.Join(parts, ", ")
}

var graphCmd = &cobra.Command{
	Use:   "graph [path]",
	Short: "Print mermaid diagrams of factories and the embedding graph",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := setup(args)
		defer a.close()
		ctx := cmd.Context()

		g := a.buildGraph(ctx)
		if snapshotPath != "" {
			if err := a.indexer.SaveGraph(g, snapshotPath); err != nil {
				log.Fatalf("Failed to save graph: %v", err)
			}
			fmt.Printf("💾 Graph snapshot written to %s\n", snapshotPath)
		}

		m := &generator.MermaidGenerator{}
		if len(focus) > 0 {
			seeds := retrieval.FactorySeeds(g, focus...)
			if len(seeds) == 0 {
				log.Fatalf("No factory named %s", strings.Join(focus, ", "))
			}
			fmt.Print(m.GenerateSubgraphDiagram(g, retrieval.Extract(g, seeds, retrieval.Config{MaxHops: hops})))
			return
		}

		report, err := a.engine().Run(ctx, g, a.options(pipeline.ModePlan))
		if err != nil {
			log.Fatalf("Planning failed: %v", err)
		}
		var plans []*planner.SynthesisPlan
		for _, f := range report.Factories {
			if f.Plan != nil {
				plans = append(plans, f.Plan)
			}
		}
		fmt.Print(m.GenerateFactoryDiagram(plans))
		fmt.Println()
		fmt.Print(m.GenerateEmbeddingDiagram(g))
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Regenerate whenever Go sources change",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := setup(args)
		defer a.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		regenerate := func(ctx context.Context) {
			g := a.buildGraph(ctx)
			report, err := a.engine().Run(ctx, g, a.options(pipeline.ModeGenerate))
			if err != nil {
				a.logger.Warn("generation interrupted", "error", err)
				return
			}
			a.printReport(report)
		}
		regenerate(ctx)

		w := watch.New(a.root, debounce, a.logger)
		fmt.Printf("👀 Watching %s (Ctrl+C to stop)\n", a.root)
		err := w.Run(ctx, func(ctx context.Context, paths []string) {
			fmt.Printf("🔄 %d file(s) changed\n", len(paths))
			regenerate(ctx)
		})
		if err != nil {
			log.Fatalf("Watch failed: %v", err)
		}
		fmt.Println("👋 Stopped watching.")
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded runs, or show the diagnostics and files of one run",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := setup(nil)
		defer a.close()
		ctx := cmd.Context()

		if a.store == nil {
			log.Fatalf("Run history is disabled (history.enabled=false)")
		}

		if len(args) == 0 {
			runs, err := a.store.ListRuns(ctx, historyLimit)
			if err != nil {
				log.Fatalf("Failed to list runs: %v", err)
			}
			if len(runs) == 0 {
				fmt.Println("📭 No runs recorded yet.")
				return
			}
			for _, r := range runs {
				fmt.Printf("%s  %s  %-8s  %d factories, %d methods, %d errors, %d warnings (%v)\n",
					r.ID, r.StartedAt.Local().Format(time.DateTime), r.Mode,
					r.Factories, r.Bindings, r.Errors, r.Warnings, r.Elapsed)
			}
			return
		}

		arts, err := a.store.RunArtifacts(ctx, args[0])
		if err != nil {
			log.Fatalf("Failed to load run: %v", err)
		}
		diags, err := a.store.RunDiagnostics(ctx, args[0])
		if err != nil {
			log.Fatalf("Failed to load run: %v", err)
		}
		for _, f := range arts {
			fmt.Printf("  %s %s -> %s (%d methods)\n", statusIcons[pipeline.Status(f.Status)], f.Factory, f.Path, f.Bindings)
		}
		a.printer().Print(diags)
	},
}
