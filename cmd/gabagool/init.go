package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fpm-git/gabagool/internal/config"
	"github.com/fpm-git/gabagool/internal/errors"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Create a " + config.FileName + " configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := writeDefaultConfig(projectRoot(args), initForce)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
		fmt.Fprintln(cmd.OutOrStdout(), "\nEdit this file to configure:")
		fmt.Fprintln(cmd.OutOrStdout(), "  - Model and service file patterns")
		fmt.Fprintln(cmd.OutOrStdout(), "  - Output directory and jsconfig.json creation")
		fmt.Fprintln(cmd.OutOrStdout(), "  - Hook discovery and the supported sails range")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing configuration file")
}

func writeDefaultConfig(root string, force bool) (string, error) {
	path := filepath.Join(root, config.FileName)
	if _, err := os.Stat(path); err == nil && !force {
		return "", errors.WithHint(
			errors.Newf("config file %s already exists", path),
			"Use --force to overwrite it.")
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		return "", err
	}
	return path, nil
}
