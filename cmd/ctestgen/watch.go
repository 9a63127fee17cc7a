package main

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ctestgen/internal/config"
)

// watchDebounce coalesces editor save bursts into one regeneration.
const watchDebounce = 500 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate tests whenever a C source file changes",
	Long: `Watches the source directory and reruns the generation pipeline for a
file each time it is created or written. Stops on interrupt.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	root := cfg.SourceRoot()
	if err := watcher.Add(root); err != nil {
		return err
	}
	logger.Info("watching for changes", zap.String("dir", root))

	ctx := cmd.Context()
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(watchDebounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !strings.HasSuffix(event.Name, ".c") {
				continue
			}
			pending[event.Name] = time.Now()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(err))
		case <-ticker.C:
			for file, stamp := range pending {
				if time.Since(stamp) < watchDebounce {
					continue
				}
				delete(pending, file)
				regenerateOne(ctx, cfg, file)
			}
		}
	}
}

func regenerateOne(ctx context.Context, cfg *config.Config, file string) {
	logger.Info("source changed", zap.String("file", filepath.Base(file)))
	if err := runPipeline(ctx, cfg, []string{file}); err != nil && ctx.Err() == nil {
		logger.Error("regeneration failed", zap.String("file", file), zap.Error(err))
	}
}
