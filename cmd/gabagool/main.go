// Command gabagool generates TypeScript declarations for the models and
// services of a Sails project.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/fpm-git/gabagool/internal/config"
	"github.com/fpm-git/gabagool/internal/errors"
	"github.com/fpm-git/gabagool/internal/logger"
)

var (
	jsonOutput bool
	verbose    bool
	configPath string

	// name of the command being executed, for failure reports
	activeCommand = "gabagool"
)

var rootCmd = &cobra.Command{
	Use:   "gabagool [path]",
	Short: "Generate TypeScript declarations for Sails models and services",
	Long: `gabagool reads the models and services of a Sails project (and of any
installed Marlinspike hooks) and writes TypeScript declarations describing
them, so editors can type-check and complete calls against them.

Without a subcommand it runs generate.

Examples:
  gabagool                    # Generate for the current directory
  gabagool ./backend          # Generate for another project root
  gabagool watch              # Regenerate on every source change
  gabagool descriptors -o d.json`,
	Args:          cobra.MaximumNArgs(1),
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		activeCommand = cmd.Name()
		return logger.Initialize(jsonOutput, verbose)
	},
	RunE: runGenerate,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Emit logs as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file (default: search "+config.FileName+")")
	addGenerateFlags(rootCmd)

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(descriptorsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(treeCmd)
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		logger.Failure(activeCommand, err, errors.GetAllHints(err))
	}
	logger.Cleanup()
	if err != nil {
		os.Exit(1)
	}
}

// projectRoot returns the path argument or the working directory.
func projectRoot(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// loadConfig honours --config, then searches the usual locations.
func loadConfig(root string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load(root)
}
