package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fpm-git/gabagool/internal/indexer"
	"github.com/fpm-git/gabagool/internal/logger"
	"github.com/fpm-git/gabagool/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Regenerate declarations whenever a model or service changes",
	Long: `Generate once, then watch the model and service directories of the project
and its hooks. Changes are debounced; after each regeneration the entities
affected by the change are logged.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&outDir, "out", "", "Output directory (overrides output.dir)")
	watchCmd.Flags().BoolVar(&noCache, "no-cache", false, "Ignore and do not update the descriptor cache")
}

func runWatch(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(projectRoot(args))
	if err != nil {
		return err
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if outDir != "" {
		cfg.Output.Dir = outDir
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.PrintLogo()
	idx := indexer.New(cfg)
	idx.NoCache = noCache

	start := time.Now()
	res, err := idx.Run(ctx, root)
	if err != nil {
		return err
	}
	logger.Success(res.Models(), res.Services(), len(res.Written), time.Since(start))

	var dirs []string
	for _, owner := range res.Project.Owners() {
		dirs = append(dirs, cfg.SourceDirs(owner.Path)...)
	}

	log := logger.ComponentLogger("watch")
	w, err := watch.New(dirs, func(ctx context.Context, changed []string) error {
		return regenerate(ctx, idx, root, changed)
	}, log)
	if err != nil {
		return err
	}
	log.Infow("Watching for changes", "dirs", len(w.Watched()))
	return w.Run(ctx)
}

func regenerate(ctx context.Context, idx *indexer.Indexer, root string, changed []string) error {
	log := logger.ComponentLogger("watch")
	rel := make([]string, 0, len(changed))
	for _, path := range changed {
		if r, err := filepath.Rel(root, path); err == nil {
			path = r
		}
		rel = append(rel, path)
	}
	log.Infow("Regenerating", "files", strings.Join(rel, ", "))

	start := time.Now()
	res, err := idx.Run(ctx, root)
	if err != nil {
		return err
	}
	logger.Success(res.Models(), res.Services(), len(res.Written), time.Since(start))
	for _, report := range res.Impact {
		var affected []string
		for _, level := range report.Levels {
			affected = append(affected, level...)
		}
		log.Infow("Entity changed",
			logger.FieldEntity, report.Root,
			"affected", strings.Join(affected, ", "),
			"levels", len(report.Levels))
	}
	return nil
}
