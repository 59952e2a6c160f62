// Package synth writes TypeScript declarations for resolved descriptors.
//
// Synthesis runs in two phases. The standalone phase renders each entity from
// its own data. The linked phase, which may only start once every entity has
// been through the standalone phase, assembles the per-file text and inlines
// the instance classes of directly referenced models.
package synth

import (
	"strings"

	"go.uber.org/zap"

	"github.com/fpm-git/gabagool/internal/entity"
	"github.com/fpm-git/gabagool/internal/jsdoc"
	"github.com/fpm-git/gabagool/internal/logger"
	"github.com/fpm-git/gabagool/internal/typeres"
)

// IDDescription documents the implicit identifier member.
const IDDescription = "A unique identifier generated for each document within the database. Of type string if using MongoDB, otherwise a number."

// LifecycleHooks are invoked by the Sails runtime only and never appear on a
// model's static surface.
var LifecycleHooks = []string{
	"beforeCreate",
	"afterCreate",
	"beforeUpdate",
	"afterUpdate",
	"beforeDestroy",
	"afterDestroy",
	"customToJSON",
}

const customToJSON = "customToJSON"

// attributeTypes maps attribute scalar types to declaration types.
var attributeTypes = map[string]string{
	"string":  "string",
	"number":  "number",
	"boolean": "boolean",
	"json":    "object",
	"ref":     "any",
}

// Synthesizer renders declarations for the entities of one registry.
type Synthesizer struct {
	registry *entity.Registry
	log      *zap.SugaredLogger
}

// New creates a Synthesizer over a resolved registry.
func New(registry *entity.Registry, log *zap.SugaredLogger) *Synthesizer {
	if log == nil {
		log = logger.ComponentLogger("synth")
	}
	return &Synthesizer{registry: registry, log: log}
}

// Standalone fills d.Declarations from d's own resolved data. A skipped
// descriptor has no members, so a skipped model still declares its id and
// stays a valid reference target.
func (s *Synthesizer) Standalone(d *entity.Descriptor) {
	if d.IsModel() {
		s.standaloneModel(d)
		return
	}
	d.Declarations.Static = "export declare abstract class " + d.Name + " {" + signatures(d.Functions) + "}"
}

func (s *Synthesizer) standaloneModel(d *entity.Descriptor) {
	var instanceFuncs string
	if fn, ok := d.Function(customToJSON); ok {
		toJSON := *fn
		toJSON.Name = "toJSON?"
		instanceFuncs = strings.TrimPrefix(signatures([]*entity.Function{&toJSON}), "\n\n")
	}

	d.Declarations.Instance = "export declare abstract class $" + d.Name + "Instance {" +
		members(d.Attributes, memberMode{}) + instanceFuncs + "}"
	d.Declarations.Search = "declare abstract class " + d.Name + "Search {" +
		members(d.Attributes, memberMode{referenceOnly: true, allOptional: true}) + "}"
	d.Declarations.Complete = "declare abstract class " + d.Name + "Complete {" +
		members(d.Attributes, memberMode{referenceOnly: true}) + "}"

	public := make([]*entity.Function, 0, len(d.Functions))
	for _, fn := range d.Functions {
		if !isLifecycleHook(fn.Name) {
			public = append(public, fn)
		}
	}
	d.Declarations.Static = "export declare abstract class " + d.Name +
		" extends $ailsModel<$" + d.Name + "Instance, " + d.Name + "Search, " + d.Name + "Complete> {" +
		signatures(public) + "}"
}

func isLifecycleHook(name string) bool {
	for _, hook := range LifecycleHooks {
		if name == hook {
			return true
		}
	}
	return false
}

// memberMode selects the projection rendered by members. Reference-only
// projections describe associations by id and leave collections out.
type memberMode struct {
	referenceOnly bool
	allOptional   bool
}

func members(attrs []*entity.Attribute, mode memberMode) string {
	var b strings.Builder

	hasID := false
	for _, attr := range attrs {
		if attr.Name == "id" {
			hasID = true
			break
		}
	}
	if !hasID {
		b.WriteString("\n\n  ")
		b.WriteString(jsdoc.Serialize(&jsdoc.Doc{Description: IDDescription}))
		b.WriteString("\n  id")
		if mode.referenceOnly || mode.allOptional {
			b.WriteString("?")
		}
		b.WriteString(": string | number;")
	}

	for _, attr := range attrs {
		collection := attr.String("collection")
		if collection != "" && mode.referenceOnly && attr.String("type") == "" {
			continue
		}

		b.WriteString("\n\n")
		if doc := jsdoc.Serialize(attr.Doc); doc != "" {
			b.WriteString("  " + doc + "\n")
		}
		b.WriteString("  " + attr.Name)
		if !attr.Required() || mode.allOptional {
			b.WriteString("?")
		}
		b.WriteString(": " + memberType(attr, mode) + ";")
	}

	b.WriteString("\n\n")
	return b.String()
}

// memberType follows the same precedence as attribute validation: type,
// then collection, then model.
func memberType(attr *entity.Attribute, mode memberMode) string {
	if t := attr.String("type"); t != "" {
		if mapped, ok := attributeTypes[t]; ok {
			return mapped
		}
		return typeres.Wildcard
	}
	if c := attr.String("collection"); c != "" {
		return "$" + c + "Instance[]"
	}
	if m := attr.String("model"); m != "" {
		if mode.referenceOnly {
			return "string | number"
		}
		return "$" + m + "Instance"
	}
	return typeres.Wildcard
}

func signatures(funcs []*entity.Function) string {
	var b strings.Builder
	for _, fn := range funcs {
		params := make([]string, 0, len(fn.TypedParams))
		for _, p := range fn.TypedParams {
			params = append(params, renderParam(p))
		}

		doc := fn.Doc
		result := resultType(fn.Doc)
		if fn.Async {
			if !isSinglePromise(result) {
				result = "Promise<" + result + ">"
			}
			doc = doc.Clone()
			if doc == nil {
				doc = &jsdoc.Doc{}
			}
			doc.Annotations = append(doc.Annotations, jsdoc.Annotation{Tag: jsdoc.TagAsync})
		}

		b.WriteString("\n\n")
		if rendered := jsdoc.Serialize(doc); rendered != "" {
			b.WriteString("  " + rendered + "\n")
		}
		b.WriteString("  abstract " + fn.Name + "(" + strings.Join(params, ", ") + "): " + result + ";")
	}
	b.WriteString("\n\n")
	return b.String()
}

func renderParam(p entity.TypedParam) string {
	types := p.Types
	if len(types) == 0 {
		types = []string{typeres.Wildcard}
	}
	if p.Rest {
		arrays := make([]string, 0, len(types))
		for _, t := range types {
			t = strings.TrimPrefix(t, "...")
			if !strings.HasSuffix(t, "[]") {
				t += "[]"
			}
			arrays = append(arrays, t)
		}
		return "..." + p.Name + ": " + strings.Join(arrays, " | ")
	}
	name := p.Name
	if p.Optional {
		name += "?"
	}
	return name + ": " + strings.Join(types, " | ")
}

func resultType(doc *jsdoc.Doc) string {
	if doc == nil || doc.Returns == nil || len(doc.Returns.Types) == 0 {
		return typeres.Wildcard
	}
	return strings.Join(doc.Returns.Types, "|")
}

// isSinglePromise reports whether t is one Promise<...> with no top-level union.
func isSinglePromise(t string) bool {
	if !strings.HasPrefix(t, "Promise<") || !strings.HasSuffix(t, ">") {
		return false
	}
	depth := 0
	for i := 0; i < len(t); i++ {
		switch t[i] {
		case '<':
			depth++
		case '>':
			depth--
			if depth == 0 && i != len(t)-1 {
				return false
			}
		case '|':
			if depth == 0 {
				return false
			}
		}
	}
	return true
}
