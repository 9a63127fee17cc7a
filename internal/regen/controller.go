package regen

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ctestgen/internal/cindex"
	"ctestgen/internal/normalize"
	"ctestgen/internal/prompt"
	"ctestgen/internal/validate"
)

// Config is the run-level configuration the controller consumes.
type Config struct {
	// MaxAttempts below 1 is clamped to 1 by NewController.
	MaxAttempts    int
	Threshold      validate.Tier
	AutoRegenerate bool
	Parallelism    int
}

// Generator is the slice of the generation adapter the controller needs.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Analyzer extracts per-file facts. Satisfied by *cindex.Indexer.
type Analyzer interface {
	AnalyzeFileDependencies(file string) (cindex.FileAnalysis, error)
}

// FileResult is one file's final outcome: the retained artifact, its
// report, and how the state machine ended.
type FileResult struct {
	File     string
	Output   string
	Report   validate.Report
	Attempts int
	State    State
	Err      error
}

// Failed reports whether the file produced no usable artifact.
func (r FileResult) Failed() bool { return r.State == StateExhausted }

// Controller runs the state machine over files. Files are independent; the
// symbol table is the only shared input and is read-only.
type Controller struct {
	cfg      Config
	adapter  Generator
	analyzer Analyzer
	registry *validate.Registry
	table    cindex.SymbolTable
	logger   *zap.Logger

	Stats Stats
}

func NewController(cfg Config, adapter Generator, analyzer Analyzer, registry *validate.Registry, table cindex.SymbolTable, logger *zap.Logger) *Controller {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		cfg:      cfg,
		adapter:  adapter,
		analyzer: analyzer,
		registry: registry,
		table:    table,
		logger:   logger,
	}
}

// ProcessFile runs Init through a terminal state for one file. Failures are
// contained in the result; the error return is reserved for context
// cancellation, which aborts the whole run.
func (c *Controller) ProcessFile(ctx context.Context, file string) (FileResult, error) {
	result := FileResult{File: file, State: StateInit}

	analysis, err := c.analyzer.AnalyzeFileDependencies(file)
	if err != nil {
		result.State = StateExhausted
		result.Err = fmt.Errorf("%w: %s: %v", prompt.ErrContextBuild, file, err)
		c.Stats.FilesFailed.Add(1)
		return result, nil
	}

	var feedback []string
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		result.State = StateGenerating
		result.Attempts = attempt
		pctx, err := prompt.Build(&analysis, c.table, feedback)
		if err != nil {
			result.State = StateExhausted
			result.Err = err
			c.Stats.FilesFailed.Add(1)
			return result, nil
		}

		c.Stats.AttemptsIssued.Add(1)
		raw, err := c.adapter.Generate(ctx, pctx.Render())
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			result.State = StateExhausted
			result.Err = err
			c.Stats.FilesFailed.Add(1)
			c.logger.Error("generation exhausted",
				zap.String("file", file),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return result, nil
		}

		result.State = StateValidating
		normalized := normalize.Safe(raw, analysis.Includes)
		report := c.registry.Validate(file, validate.Input{
			Test:     normalized,
			Source:   pctx.Source,
			Analysis: &analysis,
		})

		result.State = StateDeciding
		result.Output = normalized
		result.Report = report

		next := Transition(report, attempt, c.cfg.MaxAttempts, c.cfg.Threshold, c.cfg.AutoRegenerate)
		if next == StateAccepted {
			result.State = StateAccepted
			c.Stats.FilesAccepted.Add(1)
			if !report.Passed(c.cfg.Threshold) {
				c.Stats.FilesBelowThreshold.Add(1)
			} else if attempt > 1 {
				c.Stats.SuccessfulRegenerations.Add(1)
			}
			c.logger.Info("file accepted",
				zap.String("file", file),
				zap.Int("attempts", attempt),
				zap.Stringer("quality", report.Quality))
			return result, nil
		}

		// Regenerating: the artifact is discarded, only the issues carry
		// forward as feedback.
		feedback = report.Issues
		result.State = StateRegenerating
		c.logger.Info("regenerating",
			zap.String("file", file),
			zap.Int("attempt", attempt),
			zap.Stringer("quality", report.Quality),
			zap.Int("issues", len(report.Issues)))
	}

	// Unreachable: the final attempt always transitions to Accepted.
	return result, nil
}

// ProcessAll processes files strictly in order by default. With
// Parallelism > 1 files are processed concurrently; per-file results keep
// their input order either way.
func (c *Controller) ProcessAll(ctx context.Context, files []string) ([]FileResult, error) {
	results := make([]FileResult, len(files))

	if c.cfg.Parallelism > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.cfg.Parallelism)
		for i, file := range files {
			i, file := i, file
			g.Go(func() error {
				res, err := c.ProcessFile(gctx, file)
				results[i] = res
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return results, err
		}
		return results, nil
	}

	for i, file := range files {
		res, err := c.ProcessFile(ctx, file)
		results[i] = res
		if err != nil {
			return results, err
		}
	}
	return results, nil
}
