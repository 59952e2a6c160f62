package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/fpm-git/gabagool/internal/errors"
	"github.com/fpm-git/gabagool/internal/flatten"
)

var treeCmd = &cobra.Command{
	Use:   "tree <file>",
	Short: "Dump the JavaScript syntax tree of a file",
	Long: `Print every named syntax node of a JavaScript file with its field name,
position and, for leaves, its text. Useful when a model or service is not
flattened the way you expect.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := os.ReadFile(args[0])
		if err != nil {
			return errors.Wrapf(err, "reading %s", args[0])
		}
		return flatten.Dump(cmd.Context(), cmd.OutOrStdout(), source)
	},
}
