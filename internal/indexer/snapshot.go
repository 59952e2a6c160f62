package indexer

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/fpm-git/gabagool/internal/errors"
	"github.com/fpm-git/gabagool/internal/facts"
)

const tablesSnapshotVersion = 1

type tablesSnapshot struct {
	Version int          `json:"version"`
	Tables  facts.Tables `json:"tables"`
}

// loadTablesSnapshot reads the descriptor tables of the previous run.
func loadTablesSnapshot(dir string) (facts.Tables, bool, error) {
	data, err := os.ReadFile(filepath.Join(dir, "tables.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return facts.Tables{}, false, nil
		}
		return facts.Tables{}, false, errors.Wrap(err, "read tables snapshot")
	}
	var snap tablesSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return facts.Tables{}, false, errors.Wrap(err, "parse tables snapshot")
	}
	if snap.Version != tablesSnapshotVersion {
		return facts.Tables{}, false, nil
	}
	return snap.Tables, true, nil
}

func saveTablesSnapshot(dir string, tables facts.Tables) error {
	snap := tablesSnapshot{Version: tablesSnapshotVersion, Tables: tables}
	if err := writeJSONAtomic(filepath.Join(dir, "tables.json"), snap); err != nil {
		return errors.Wrap(err, "write tables snapshot")
	}
	return nil
}
