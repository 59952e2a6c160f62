package indexer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fpm-git/gabagool/internal/entity"
)

// DependentsGraph maps an entity name to the entities that reference it.
type DependentsGraph map[string]map[string]bool

// BuildDependents inverts the resolved imports of every registered entity.
func BuildDependents(reg *entity.Registry) DependentsGraph {
	graph := make(DependentsGraph)
	for _, d := range reg.All() {
		if d.Imports == nil {
			continue
		}
		for _, target := range d.Imports.Values() {
			if target == "" || target == d.Name {
				continue
			}
			if graph[target] == nil {
				graph[target] = make(map[string]bool)
			}
			graph[target][d.Name] = true
		}
	}
	return graph
}

// ImpactReport lists the entities reached from Root, one level per hop.
type ImpactReport struct {
	Root   string     `json:"root"`
	Levels [][]string `json:"levels"`
}

// ComputeImpact walks dependents breadth first from root.
func ComputeImpact(root string, dependents DependentsGraph) ImpactReport {
	visited := map[string]bool{root: true}
	frontier := []string{root}
	var levels [][]string

	for len(frontier) > 0 {
		var next []string
		for _, name := range frontier {
			for dep := range dependents[name] {
				if visited[dep] {
					continue
				}
				visited[dep] = true
				next = append(next, dep)
			}
		}
		if len(next) == 0 {
			break
		}
		sort.Strings(next)
		levels = append(levels, next)
		frontier = next
	}

	return ImpactReport{Root: root, Levels: levels}
}

func FormatImpactReport(report ImpactReport) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("  %s\n", report.Root))
	if len(report.Levels) == 0 {
		b.WriteString("    no dependents\n")
	}
	for i, level := range report.Levels {
		b.WriteString(fmt.Sprintf("    level %d (%d): %s\n", i+1, len(level), strings.Join(level, ", ")))
	}
	return b.String()
}
