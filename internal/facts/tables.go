// Package facts flattens a descriptor registry into relational tables that
// can be diffed between runs and filtered by entity.
package facts

import (
	"sort"
	"strings"

	"github.com/fpm-git/gabagool/internal/entity"
)

// Tables is the relational view of a registry.
// Each slice is a relation (table) with flat rows.
type Tables struct {
	Entities   []EntityRow    `json:"entities"`
	Attributes []AttributeRow `json:"attributes"`
	Functions  []FunctionRow  `json:"functions"`
	Params     []ParamRow     `json:"params"`
	Imports    []ImportRow    `json:"imports"`
}

type EntityRow struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	File    string `json:"file"`
	Owner   string `json:"owner"`
	Skipped bool   `json:"skipped"`
}

// AttributeRow records an attribute's effective kind: "type", "collection",
// "model", "through" or "" when none is set. Target is the scalar type or the
// referenced model.
type AttributeRow struct {
	Entity   string `json:"entity"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Target   string `json:"target"`
	Required bool   `json:"required"`
	Line     int    `json:"line"`
}

type FunctionRow struct {
	Entity  string `json:"entity"`
	Name    string `json:"name"`
	Async   bool   `json:"async"`
	Returns string `json:"returns"`
	Line    int    `json:"line"`
}

type ParamRow struct {
	Entity   string `json:"entity"`
	Function string `json:"function"`
	Position int    `json:"position"`
	Name     string `json:"name"`
	Types    string `json:"types"`
	Optional bool   `json:"optional"`
	Rest     bool   `json:"rest"`
}

type ImportRow struct {
	Entity string `json:"entity"`
	Target string `json:"target"`
}

// attributeKinds is the precedence order used when several kinds are present.
var attributeKinds = []string{"type", "collection", "model", "through"}

// BuildTables converts reg into sorted relational rows. Parameter rows use
// resolved typed parameters when available.
func BuildTables(reg *entity.Registry) Tables {
	out := emptyTables()

	for _, d := range reg.All() {
		out.Entities = append(out.Entities, EntityRow{
			Name:    d.Name,
			Kind:    string(d.Kind),
			File:    d.Filename,
			Owner:   d.Owner,
			Skipped: d.Skipped,
		})

		for _, attr := range d.Attributes {
			row := AttributeRow{Entity: d.Name, Name: attr.Name, Required: attr.Required(), Line: attr.Line}
			for _, kind := range attributeKinds {
				if v := attr.String(kind); v != "" {
					row.Kind, row.Target = kind, v
					break
				}
			}
			out.Attributes = append(out.Attributes, row)
		}

		for _, fn := range d.Functions {
			returns := ""
			if fn.Doc != nil && fn.Doc.Returns != nil {
				returns = strings.Join(fn.Doc.Returns.Types, "|")
			}
			out.Functions = append(out.Functions, FunctionRow{
				Entity:  d.Name,
				Name:    fn.Name,
				Async:   fn.Async,
				Returns: returns,
				Line:    fn.Line,
			})
			out.Params = append(out.Params, paramRows(d.Name, fn)...)
		}

		for _, target := range d.Imports.Values() {
			out.Imports = append(out.Imports, ImportRow{Entity: d.Name, Target: target})
		}
	}

	sortTables(&out)
	return out
}

func paramRows(entityName string, fn *entity.Function) []ParamRow {
	var rows []ParamRow
	if len(fn.TypedParams) > 0 {
		for i, p := range fn.TypedParams {
			rows = append(rows, ParamRow{
				Entity:   entityName,
				Function: fn.Name,
				Position: i,
				Name:     p.Name,
				Types:    strings.Join(p.Types, "|"),
				Optional: p.Optional,
				Rest:     p.Rest,
			})
		}
		return rows
	}
	for i, name := range fn.Params {
		rest := strings.HasPrefix(name, "...")
		rows = append(rows, ParamRow{
			Entity:   entityName,
			Function: fn.Name,
			Position: i,
			Name:     strings.TrimPrefix(name, "..."),
			Rest:     rest,
		})
	}
	return rows
}

func sortTables(t *Tables) {
	sort.Slice(t.Entities, func(i, j int) bool {
		return t.Entities[i].Name < t.Entities[j].Name
	})
	sort.SliceStable(t.Attributes, func(i, j int) bool {
		if t.Attributes[i].Entity != t.Attributes[j].Entity {
			return t.Attributes[i].Entity < t.Attributes[j].Entity
		}
		return t.Attributes[i].Line < t.Attributes[j].Line
	})
	sort.SliceStable(t.Functions, func(i, j int) bool {
		if t.Functions[i].Entity != t.Functions[j].Entity {
			return t.Functions[i].Entity < t.Functions[j].Entity
		}
		return t.Functions[i].Line < t.Functions[j].Line
	})
	sort.SliceStable(t.Params, func(i, j int) bool {
		a, b := t.Params[i], t.Params[j]
		if a.Entity != b.Entity {
			return a.Entity < b.Entity
		}
		if a.Function != b.Function {
			return a.Function < b.Function
		}
		return a.Position < b.Position
	})
	sort.Slice(t.Imports, func(i, j int) bool {
		if t.Imports[i].Entity != t.Imports[j].Entity {
			return t.Imports[i].Entity < t.Imports[j].Entity
		}
		return t.Imports[i].Target < t.Imports[j].Target
	})
}

func emptyTables() Tables {
	return Tables{
		Entities:   []EntityRow{},
		Attributes: []AttributeRow{},
		Functions:  []FunctionRow{},
		Params:     []ParamRow{},
		Imports:    []ImportRow{},
	}
}
