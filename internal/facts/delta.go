package facts

import "strconv"

// Delta captures added and removed rows between two snapshots.
type Delta struct {
	Added   Tables `json:"added"`
	Removed Tables `json:"removed"`
}

// ComputeDelta computes row-level additions and removals between two snapshots.
func ComputeDelta(prev, next Tables) Delta {
	return Delta{
		Added:   diffTables(prev, next),
		Removed: diffTables(next, prev),
	}
}

// Empty reports whether the delta carries no rows.
func (d Delta) Empty() bool {
	return d.Added.Len() == 0 && d.Removed.Len() == 0
}

// Len is the total row count.
func (t Tables) Len() int {
	return len(t.Entities) + len(t.Attributes) + len(t.Functions) + len(t.Params) + len(t.Imports)
}

// ChangedEntities lists the entity names touched by the delta, sorted.
func (d Delta) ChangedEntities() []string {
	seen := map[string]bool{}
	for _, t := range []Tables{d.Added, d.Removed} {
		for _, name := range t.entityNames() {
			seen[name] = true
		}
	}
	return sortedKeys(seen)
}

func diffTables(from, to Tables) Tables {
	out := emptyTables()
	out.Entities = diffRows(from.Entities, to.Entities, func(r EntityRow) string {
		return r.Name + "|" + r.Kind + "|" + r.File + "|" + r.Owner + "|" + boolKey(r.Skipped)
	})
	out.Attributes = diffRows(from.Attributes, to.Attributes, func(r AttributeRow) string {
		return r.Entity + "|" + r.Name + "|" + r.Kind + "|" + r.Target + "|" + boolKey(r.Required) + "|" + strconv.Itoa(r.Line)
	})
	out.Functions = diffRows(from.Functions, to.Functions, func(r FunctionRow) string {
		return r.Entity + "|" + r.Name + "|" + boolKey(r.Async) + "|" + r.Returns + "|" + strconv.Itoa(r.Line)
	})
	out.Params = diffRows(from.Params, to.Params, func(r ParamRow) string {
		return r.Entity + "|" + r.Function + "|" + strconv.Itoa(r.Position) + "|" + r.Name + "|" + r.Types + "|" + boolKey(r.Optional) + "|" + boolKey(r.Rest)
	})
	out.Imports = diffRows(from.Imports, to.Imports, func(r ImportRow) string {
		return r.Entity + "|" + r.Target
	})
	return out
}

func diffRows[T any](from, to []T, key func(T) string) []T {
	fromSet := make(map[string]struct{}, len(from))
	for _, row := range from {
		fromSet[key(row)] = struct{}{}
	}
	diff := []T{}
	for _, row := range to {
		if _, ok := fromSet[key(row)]; !ok {
			diff = append(diff, row)
		}
	}
	return diff
}

func boolKey(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
