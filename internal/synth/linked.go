package synth

import (
	"strings"

	"github.com/fpm-git/gabagool/internal/entity"
)

const (
	modelBaseImport = "\nimport { $ailsModel } from '../sails/model';"
	referencedLabel = "\n\n// Referenced instance classes...\n"
	instanceLabel   = "\n\n// Main instance class...\n"
	staticLabel     = "\n\n// Main static class...\n"
)

// Linked fills d.Declarations.Linked. Every entity in the registry must have
// been through Standalone first.
//
// The instance classes of directly imported models are inlined ahead of d's
// own declarations. Models those in turn reference are not followed, so their
// names stay as opaque identifiers in the output.
func (s *Synthesizer) Linked(d *entity.Descriptor) {
	var b strings.Builder
	if d.IsModel() {
		b.WriteString(modelBaseImport)
	}

	if deps := s.dependencyInstances(d); len(deps) > 0 {
		b.WriteString(referencedLabel)
		b.WriteString(strings.Join(deps, "\n\n"))
	}

	if d.IsModel() {
		b.WriteString(instanceLabel)
		b.WriteString(d.Declarations.Instance)
		b.WriteString("\n\n")
		b.WriteString(d.Declarations.Search)
		b.WriteString("\n\n")
		b.WriteString(d.Declarations.Complete)
	}

	b.WriteString(staticLabel)
	b.WriteString(d.Declarations.Static)
	b.WriteString("\n")

	d.Declarations.Linked = b.String()
}

// dependencyInstances walks d's imports as a work list, popping from the end.
// A self reference is skipped since d's own instance class is emitted anyway.
func (s *Synthesizer) dependencyInstances(d *entity.Descriptor) []string {
	if d.Imports == nil {
		return nil
	}

	pending := d.Imports.Values()
	visited := map[string]bool{d.Name: d.IsModel()}
	var out []string

	for len(pending) > 0 {
		name := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if visited[name] {
			continue
		}
		visited[name] = true

		target, ok := s.registry.Model(name)
		if !ok {
			s.log.Warnw("Referenced model is missing from the registry; remaining references were not linked",
				"entity", d.Name, "model", name)
			break
		}
		if target.Declarations.Instance == "" {
			continue
		}
		out = append(out, target.Declarations.Instance)
	}
	return out
}
