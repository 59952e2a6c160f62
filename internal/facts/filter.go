package facts

import "sort"

// FilterByEntities returns a new Tables object containing only rows that
// belong to one of the named entities. Import rows match on either side.
func FilterByEntities(tables Tables, names map[string]bool) Tables {
	out := emptyTables()
	if len(names) == 0 {
		return out
	}

	for _, row := range tables.Entities {
		if names[row.Name] {
			out.Entities = append(out.Entities, row)
		}
	}
	for _, row := range tables.Attributes {
		if names[row.Entity] {
			out.Attributes = append(out.Attributes, row)
		}
	}
	for _, row := range tables.Functions {
		if names[row.Entity] {
			out.Functions = append(out.Functions, row)
		}
	}
	for _, row := range tables.Params {
		if names[row.Entity] {
			out.Params = append(out.Params, row)
		}
	}
	for _, row := range tables.Imports {
		if names[row.Entity] || names[row.Target] {
			out.Imports = append(out.Imports, row)
		}
	}
	return out
}

func (t Tables) entityNames() []string {
	seen := map[string]bool{}
	for _, r := range t.Entities {
		seen[r.Name] = true
	}
	for _, r := range t.Attributes {
		seen[r.Entity] = true
	}
	for _, r := range t.Functions {
		seen[r.Entity] = true
	}
	for _, r := range t.Params {
		seen[r.Entity] = true
	}
	for _, r := range t.Imports {
		seen[r.Entity] = true
	}
	return sortedKeys(seen)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
