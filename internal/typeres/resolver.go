// Package typeres validates the types declared in doc comments and
// attributes against the project registry, builds typed parameter lists and
// records which models each entity references.
package typeres

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fpm-git/gabagool/internal/entity"
	"github.com/fpm-git/gabagool/internal/errors"
	"github.com/fpm-git/gabagool/internal/jsdoc"
	"github.com/fpm-git/gabagool/internal/logger"
)

// AttributeTypes is the scalar vocabulary accepted for an attribute's type.
var AttributeTypes = []string{"string", "number", "boolean", "json", "ref"}

// Resolver resolves descriptors against a complete registry.
type Resolver struct {
	registry *entity.Registry
	log      *zap.SugaredLogger
}

// New creates a Resolver. The registry must already hold every model.
func New(registry *entity.Registry, log *zap.SugaredLogger) *Resolver {
	if log == nil {
		log = logger.ComponentLogger("typeres")
	}
	return &Resolver{registry: registry, log: log}
}

func (r *Resolver) hasModel(name string) bool {
	_, ok := r.registry.Model(name)
	return ok
}

// Resolve normalizes d's function types, fills TypedParams and Imports, and
// validates its attributes. Only attribute problems produce errors.
func (r *Resolver) Resolve(d *entity.Descriptor) error {
	if d.Imports == nil {
		d.Imports = entity.NewNameSet()
	}
	for _, fn := range d.Functions {
		r.resolveFunction(d, fn)
	}
	for _, attr := range d.Attributes {
		if err := r.resolveAttribute(d, attr); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) resolveFunction(d *entity.Descriptor, fn *entity.Function) {
	g := &grammar{hasModel: r.hasModel}

	// documented parameters the signature does not declare are normalized
	// but contribute no imports
	if fn.Doc != nil {
		for i := range fn.Doc.Parameters {
			fn.Doc.Parameters[i].Types, _ = NormalizeList(fn.Doc.Parameters[i].Types, r.hasModel)
		}
		if fn.Doc.Returns != nil {
			fn.Doc.Returns.Types = g.normalizeList(fn.Doc.Returns.Types)
		}
	}

	fn.TypedParams = TypedParams(fn.Params, fn.Doc)
	for _, p := range fn.TypedParams {
		g.normalizeList(p.Types)
	}

	for _, name := range g.refs {
		d.Imports.Add(name)
	}
}

// NormalizeList normalizes and deduplicates a type list, returning the
// referenced model names alongside.
func NormalizeList(types []string, hasModel ModelLookup) ([]string, []string) {
	g := &grammar{hasModel: hasModel}
	return g.normalizeList(types), g.refs
}

// TypedParams zips raw parameter names with their documentation. Once one
// parameter is optional every later one is too, since optional parameters
// must trail in a signature. Rest parameters are never marked optional.
func TypedParams(params []string, doc *jsdoc.Doc) []entity.TypedParam {
	out := make([]entity.TypedParam, 0, len(params))
	sticky := false
	for _, name := range params {
		rest := strings.HasPrefix(name, restPrefix)
		bare := strings.TrimPrefix(name, restPrefix)

		tp := entity.TypedParam{Name: bare, Types: []string{Wildcard}, Rest: rest}
		documented, ok := doc.Param(bare)
		if !ok && rest {
			documented, ok = doc.Param(name)
		}
		if ok {
			if len(documented.Types) > 0 {
				tp.Types = append([]string(nil), documented.Types...)
			}
			sticky = sticky || documented.Optional
		}
		tp.Optional = sticky && !rest
		out = append(out, tp)
	}
	return out
}

func (r *Resolver) resolveAttribute(d *entity.Descriptor, attr *entity.Attribute) error {
	if attr.Properties == nil {
		attr.Properties = entity.NewProperties()
	}
	props := attr.Properties

	if !truthy(props, "type") && !truthy(props, "collection") && !truthy(props, "model") && !truthy(props, "through") {
		return errors.Structuralf("Invalid attribute %q found in %s (%q). Expected either a type or association specified, but found neither! Please add a type, model, or collection property for this attribute.",
			attr.Name, d.Name, d.Filename)
	}

	switch {
	case truthy(props, "type"):
		raw, _ := props.Get("type")
		if s, ok := raw.(string); !ok || !isAttributeType(s) {
			return errors.Structuralf("Invalid type %q specified for attribute %q in %s (%q)! Valid attribute values are: %s.",
				fmt.Sprint(raw), attr.Name, d.Name, d.Filename, strings.Join(AttributeTypes, ", "))
		}
	case truthy(props, "collection"):
		return r.resolveReference(d, attr, "collection")
	case truthy(props, "model"):
		return r.resolveReference(d, attr, "model")
	}
	return nil
}

func (r *Resolver) resolveReference(d *entity.Descriptor, attr *entity.Attribute, key string) error {
	identity := attr.String(key)

	if strings.ToLower(identity) != identity {
		r.log.Warnw(fmt.Sprintf("Model identity %q for attribute %q should be all lowercase (in %s: %q).",
			identity, attr.Name, d.Name, d.Filename),
			logger.FieldEntity, d.Name,
			logger.FieldAttribute, attr.Name)
	}

	target, ok := r.registry.FindModelFold(identity)
	if !ok {
		what := "model"
		if key == "collection" {
			what = "model collection"
		}
		return errors.Structuralf("Failed to resolve %s type %q for attribute %q in %s (%q). Valid models are: %s.",
			what, identity, attr.Name, d.Name, d.Filename, strings.Join(r.registry.ModelNames(), ", "))
	}

	attr.Properties.Set(key, target.Name)
	d.Imports.Add(target.Name)
	return nil
}

func isAttributeType(t string) bool {
	for _, valid := range AttributeTypes {
		if t == valid {
			return true
		}
	}
	return false
}

// truthy mirrors how Sails treats attribute flags: empty strings, false and
// zero count as unset.
func truthy(props *entity.Properties, key string) bool {
	v, ok := props.Get(key)
	if !ok {
		return false
	}
	switch val := v.(type) {
	case string:
		return val != ""
	case bool:
		return val
	case float64:
		return val != 0
	case nil:
		return false
	}
	return true
}
