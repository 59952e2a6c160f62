package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/fpm-git/gabagool/internal/indexer"
	"github.com/fpm-git/gabagool/internal/logger"
)

var (
	outDir  string
	noCache bool
	timing  bool
	impact  bool
)

var generateCmd = &cobra.Command{
	Use:   "generate [path]",
	Short: "Write declarations for a project",
	Long: `Discover hooks, flatten every model and service file, resolve their types
and write the declaration tree (default .types) plus jsconfig.json when it is
missing.

With --impact, entities whose descriptors changed since the previous run are
listed together with every entity that references them.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGenerate,
}

func init() {
	addGenerateFlags(generateCmd)
}

func addGenerateFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory (overrides output.dir)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Ignore and do not update the descriptor cache")
	cmd.Flags().BoolVar(&timing, "timing", false, "Record stage and file timings to timing.jsonl")
	cmd.Flags().BoolVar(&impact, "impact", false, "Report entities affected by changes since the last run")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	root := projectRoot(args)
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if outDir != "" {
		cfg.Output.Dir = outDir
	}

	logger.PrintLogo()
	idx := indexer.New(cfg)
	idx.Progress = true
	idx.NoCache = noCache
	idx.Timing = timing

	start := time.Now()
	res, err := idx.Run(cmd.Context(), root)
	if err != nil {
		return err
	}
	logger.Success(res.Models(), res.Services(), len(res.Written), time.Since(start))
	if res.Warnings > 0 {
		logger.Logger.Infow(fmt.Sprintf("Finished with %d warnings", res.Warnings), logger.FieldCount, res.Warnings)
	}

	if impact {
		return writeImpact(cmd.OutOrStdout(), res)
	}
	return nil
}

func writeImpact(w io.Writer, res *indexer.Result) error {
	if logger.JSONOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"changed": res.Changed, "impact": res.Impact})
	}
	if res.Changed == nil {
		_, err := fmt.Fprintln(w, "No previous run to compare with; impact is reported from the next run on.")
		return err
	}
	if len(res.Changed) == 0 {
		_, err := fmt.Fprintln(w, "No entity changed since the previous run.")
		return err
	}
	if _, err := fmt.Fprintf(w, "Impact of %d changed entities:\n", len(res.Changed)); err != nil {
		return err
	}
	for _, report := range res.Impact {
		if _, err := io.WriteString(w, indexer.FormatImpactReport(report)); err != nil {
			return err
		}
	}
	return nil
}
