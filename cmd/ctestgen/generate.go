package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ctestgen/internal/cindex"
	"ctestgen/internal/config"
	"ctestgen/internal/gen"
	"ctestgen/internal/history"
	"ctestgen/internal/regen"
	"ctestgen/internal/report"
	"ctestgen/internal/validate"
)

var generateCmd = &cobra.Command{
	Use:   "generate [file...]",
	Short: "Generate Unity tests for every C source file, or just the named ones",
	Long: `Indexes the source tree, builds the global symbol table, then runs the
generate/validate/regenerate loop per file. Accepted tests land in the
output directory together with a per-file validation report.

With no arguments every .c file under the source directory is processed;
otherwise only the named files are.`,
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return runPipeline(cmd.Context(), cfg, args)
}

// runPipeline is the whole batch: index, generate, validate, persist.
func runPipeline(ctx context.Context, cfg *config.Config, files []string) error {
	started := time.Now()

	indexer := cindex.NewIndexer(logger)
	defer indexer.Close()

	allFiles, err := cindex.ListSourceFiles(cfg.SourceRoot())
	if err != nil {
		return fmt.Errorf("failed to list sources under %s: %w", cfg.SourceRoot(), err)
	}
	if len(files) == 0 {
		files = allFiles
	}
	if len(files) == 0 {
		return fmt.Errorf("no .c files found under %s", cfg.SourceRoot())
	}

	// The symbol table spans every indexed file, not just the requested
	// subset, so cross-file stubs resolve either way.
	table, err := cindex.BuildSymbolTable(indexer, allFiles)
	if err != nil {
		return fmt.Errorf("failed to build symbol table: %w", err)
	}
	logger.Info("symbol table built",
		zap.Int("files", len(allFiles)),
		zap.Int("symbols", table.Len()))

	adapter, err := buildAdapter(ctx, cfg)
	if err != nil {
		return err
	}

	controller := regen.NewController(regen.Config{
		MaxAttempts:    cfg.Regeneration.MaxAttempts,
		Threshold:      cfg.Threshold(),
		AutoRegenerate: cfg.Regeneration.Auto,
		Parallelism:    cfg.Regeneration.Parallelism,
	}, adapter, indexer, validate.DefaultRegistry(logger), table, logger)

	results, runErr := controller.ProcessAll(ctx, files)

	printer := report.NewPrinter(os.Stdout)
	sink, err := report.NewFileSink(cfg.Project.OutputDir)
	if err != nil {
		return err
	}

	failed, belowThreshold := 0, 0
	for _, res := range results {
		if res.File == "" {
			continue // run aborted before this file
		}
		printer.FileLine(res)
		if err := sink.Write(res); err != nil {
			logger.Error("failed to persist result",
				zap.String("file", res.File), zap.Error(err))
		}
		switch {
		case res.Failed():
			failed++
		case !res.Report.Passed(cfg.Threshold()):
			belowThreshold++
		}
	}
	printer.Summary(controller.Stats.Snapshot(), failed+belowThreshold)

	if cfg.History.Enabled {
		saveHistory(cfg, started, &controller.Stats, results)
	}

	if runErr != nil {
		return fmt.Errorf("run aborted: %w", runErr)
	}
	return batchOutcome(failed, belowThreshold, cfg.Threshold(), cfg.Regeneration.Auto)
}

// batchOutcome decides the process exit for a finished batch. A file that
// produced no test at all fails the run regardless of how the threshold gate
// is configured; below-threshold results only fail it when auto-regeneration
// is off, since with it on the attempt budget has already been spent.
func batchOutcome(failed, belowThreshold int, threshold validate.Tier, auto bool) error {
	if failed > 0 {
		return fmt.Errorf("%d file(s) failed to generate a test", failed)
	}
	if belowThreshold > 0 && !auto {
		return fmt.Errorf("%d file(s) below the %s quality threshold", belowThreshold, threshold)
	}
	return nil
}

func buildAdapter(ctx context.Context, cfg *config.Config) (*gen.Adapter, error) {
	backends := make([]gen.Backend, 0, len(cfg.Generation.Models))
	for _, model := range cfg.Generation.Models {
		b, err := gen.NewGeminiBackend(ctx, cfg.Generation.APIKey, model, cfg.Generation.Temperature)
		if err != nil {
			return nil, fmt.Errorf("backend %s: %w", model, err)
		}
		backends = append(backends, b)
	}
	return gen.NewAdapter(logger, backends,
		gen.WithTries(cfg.Generation.Tries),
		gen.WithBackoff(cfg.GetBackoff()),
		gen.WithTimeout(cfg.GetTimeout()))
}

func saveHistory(cfg *config.Config, started time.Time, stats *regen.Stats, results []regen.FileResult) {
	store, err := history.NewStore(cfg.History.DatabasePath)
	if err != nil {
		logger.Warn("history disabled for this run", zap.Error(err))
		return
	}
	defer store.Close()

	run := history.RunRecord{
		ID:         uuid.NewString(),
		StartedAt:  started,
		FinishedAt: time.Now(),
		Stats:      stats.Snapshot(),
	}
	if err := store.SaveRun(run, results); err != nil {
		logger.Warn("failed to record run history", zap.Error(err))
	}
}
