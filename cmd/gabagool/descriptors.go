package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fpm-git/gabagool/internal/errors"
	"github.com/fpm-git/gabagool/internal/facts"
	"github.com/fpm-git/gabagool/internal/indexer"
)

var (
	descriptorsOutput    string
	descriptorsDeltaFrom string
	descriptorsDeltaOut  string
	descriptorsEntities  []string
)

var descriptorsCmd = &cobra.Command{
	Use:   "descriptors [path]",
	Short: "Print the resolved descriptors as relational JSON tables",
	Long: `Analyze the project without writing declarations and print its entities,
attributes, functions, parameters and references as JSON tables.

--delta-from compares against tables saved by an earlier invocation and
writes the added and removed rows to --delta-out.

Examples:
  gabagool descriptors -o tables.json
  gabagool descriptors --entity User --entity Pet
  gabagool descriptors --delta-from old.json --delta-out delta.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDescriptors,
}

func init() {
	descriptorsCmd.Flags().StringVarP(&descriptorsOutput, "output", "o", "", "Write tables to file (default: stdout)")
	descriptorsCmd.Flags().StringVar(&descriptorsDeltaFrom, "delta-from", "", "Previous tables JSON to compute a delta from")
	descriptorsCmd.Flags().StringVar(&descriptorsDeltaOut, "delta-out", "", "Write the delta JSON to file (requires --delta-from)")
	descriptorsCmd.Flags().StringArrayVar(&descriptorsEntities, "entity", nil, "Only include rows of this entity (repeatable)")
}

func runDescriptors(cmd *cobra.Command, args []string) error {
	if (descriptorsDeltaFrom == "") != (descriptorsDeltaOut == "") {
		return errors.New("--delta-from and --delta-out must be used together")
	}

	root := projectRoot(args)
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	res, err := indexer.New(cfg).Analyze(cmd.Context(), root)
	if err != nil {
		return err
	}

	tables := selectEntities(res.Tables(), descriptorsEntities)
	if descriptorsOutput != "" {
		if err := writeJSONFile(descriptorsOutput, tables); err != nil {
			return errors.Wrap(err, "writing tables")
		}
	} else if err := encodeJSON(cmd.OutOrStdout(), tables); err != nil {
		return err
	}

	if descriptorsDeltaFrom != "" {
		prev, err := readTables(descriptorsDeltaFrom)
		if err != nil {
			return errors.Wrapf(err, "reading %s", descriptorsDeltaFrom)
		}
		delta := facts.ComputeDelta(selectEntities(prev, descriptorsEntities), tables)
		if err := writeJSONFile(descriptorsDeltaOut, delta); err != nil {
			return errors.Wrap(err, "writing delta")
		}
	}
	return nil
}

func selectEntities(tables facts.Tables, names []string) facts.Tables {
	if len(names) == 0 {
		return tables
	}
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return facts.FilterByEntities(tables, set)
}

func readTables(path string) (facts.Tables, error) {
	f, err := os.Open(path)
	if err != nil {
		return facts.Tables{}, err
	}
	defer func() { _ = f.Close() }()

	var tables facts.Tables
	if err := json.NewDecoder(f).Decode(&tables); err != nil {
		return facts.Tables{}, err
	}
	return tables, nil
}

func writeJSONFile(path string, data interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return encodeJSON(f, data)
}

func encodeJSON(w io.Writer, data interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
