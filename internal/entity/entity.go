// Package entity holds the descriptors the pipeline builds for every Sails
// model and service: raw attributes and functions from the flattener, typed
// parameters and imports from the resolver, and the synthesized declarations.
package entity

import (
	"github.com/fpm-git/gabagool/internal/jsdoc"
)

// Kind distinguishes models from services.
type Kind string

const (
	KindModel   Kind = "model"
	KindService Kind = "service"
)

// Descriptor is the per-source-file record for one model or service.
type Descriptor struct {
	Name     string `json:"name"`
	Filename string `json:"filename"`
	Kind     Kind   `json:"kind"`
	// Owner is the hook (or "root project") that contributed the file
	Owner string `json:"owner,omitempty"`

	Attributes []*Attribute `json:"attributes"`
	Functions  []*Function  `json:"functions"`

	// Skipped is set when the module had no usable module.exports object.
	// Skipped descriptors stay registered and are declared without members.
	Skipped bool `json:"skipped,omitempty"`

	Imports      *NameSet     `json:"-"`
	Declarations Declarations `json:"-"`
}

// Attribute is one entry of a model's attributes object.
type Attribute struct {
	Name       string      `json:"name"`
	Properties *Properties `json:"properties"`
	Doc        *jsdoc.Doc  `json:"doc,omitempty"`
	Line       int         `json:"line"`
}

// Function is a method of the exported object.
type Function struct {
	Name string `json:"name"`
	// Params holds simple identifiers in declaration order; rest parameters
	// keep their "..." prefix
	Params []string   `json:"params"`
	Async  bool       `json:"async"`
	Doc    *jsdoc.Doc `json:"doc,omitempty"`
	Line   int        `json:"line"`

	TypedParams []TypedParam `json:"-"`
}

// TypedParam is a parameter after type resolution.
type TypedParam struct {
	Name     string
	Types    []string
	Optional bool
	Rest     bool
}

// Declarations is the synthesized TypeScript text for a descriptor.
type Declarations struct {
	Instance string
	Search   string
	Complete string
	Static   string
	Linked   string
}

// New returns an empty descriptor ready for flattening.
func New(name, filename string, kind Kind) *Descriptor {
	return &Descriptor{
		Name:       name,
		Filename:   filename,
		Kind:       kind,
		Attributes: []*Attribute{},
		Functions:  []*Function{},
		Imports:    NewNameSet(),
	}
}

// IsModel reports whether the descriptor is a model.
func (d *Descriptor) IsModel() bool {
	return d.Kind == KindModel
}

// Attribute returns the attribute with the exact name, if any.
func (d *Descriptor) Attribute(name string) (*Attribute, bool) {
	for _, attr := range d.Attributes {
		if attr.Name == name {
			return attr, true
		}
	}
	return nil, false
}

// Function returns the function with the exact name, if any.
func (d *Descriptor) Function(name string) (*Function, bool) {
	for _, fn := range d.Functions {
		if fn.Name == name {
			return fn, true
		}
	}
	return nil, false
}

// String reads a string-valued property.
func (a *Attribute) String(key string) string {
	if a.Properties == nil {
		return ""
	}
	v, ok := a.Properties.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Required reports whether the attribute carries a truthy required flag.
func (a *Attribute) Required() bool {
	if a.Properties == nil {
		return false
	}
	v, ok := a.Properties.Get("required")
	if !ok {
		return false
	}
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val != ""
	case float64:
		return val != 0
	}
	return false
}
