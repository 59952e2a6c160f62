package synth

import (
	"strings"
)

// Global renders globals.d.ts, which exposes every generated model and
// service, plus the sails runtime objects, in the global scope.
func (s *Synthesizer) Global() string {
	models := s.registry.ModelNames()
	var services []string
	for _, d := range s.registry.Services() {
		services = append(services, d.Name)
	}

	var b strings.Builder
	b.WriteString("\nimport { sails } from './sails/sails';")
	b.WriteString("\nimport { SailsRequest, SailsResponse } from './sails/public';")

	if len(models) > 0 {
		b.WriteString("\n\n// Models")
		for _, name := range models {
			b.WriteString("\nimport { " + name + ", $" + name + "Instance } from './models/" + name + "';")
		}
	}
	if len(services) > 0 {
		b.WriteString("\n\n// Services")
		for _, name := range services {
			b.WriteString("\nimport { " + name + " } from './services/" + name + "';")
		}
	}

	b.WriteString("\n\ndeclare global {\n\n")
	b.WriteString("  const sails: sails;\n")
	b.WriteString("  const SailsRequest: SailsRequest;\n")
	b.WriteString("  const SailsResponse: SailsResponse;")

	globals := func(names []string, format func(string) string) {
		if len(names) == 0 {
			return
		}
		b.WriteString("\n")
		for _, name := range names {
			b.WriteString("\n  " + format(name))
		}
	}
	globals(models, func(name string) string { return "const " + name + ": " + name + ";" })
	globals(models, func(name string) string { return "const $" + name + "Instance: $" + name + "Instance;" })
	globals(services, func(name string) string { return "const " + name + ": " + name + ";" })

	b.WriteString("\n\n}\n")
	return b.String()
}
