package entity

import (
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/fpm-git/gabagool/internal/errors"
)

// Registry is the whole-project map from entity name to descriptor. It is
// written once after flattening and read-only afterwards.
type Registry struct {
	models   *orderedmap.OrderedMap[string, *Descriptor]
	services *orderedmap.OrderedMap[string, *Descriptor]
	// folded name -> descriptor, across models and services
	byFold map[string]*Descriptor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		models:   orderedmap.New[string, *Descriptor](),
		services: orderedmap.New[string, *Descriptor](),
		byFold:   make(map[string]*Descriptor),
	}
}

// Add registers a descriptor. Names must be unique case-insensitively across
// models and services.
func (r *Registry) Add(d *Descriptor) error {
	folded := strings.ToLower(d.Name)
	if prev, ok := r.byFold[folded]; ok {
		return errors.Structuralf("Found duplicate definition of %s %q (%s) in %s (defined already in %q [%s]).",
			d.Kind, d.Name, d.Filename, ownerName(d.Owner), prev.Filename, ownerName(prev.Owner))
	}
	r.byFold[folded] = d
	if d.IsModel() {
		r.models.Set(d.Name, d)
	} else {
		r.services.Set(d.Name, d)
	}
	return nil
}

func ownerName(owner string) string {
	if owner == "" {
		return "root project"
	}
	return owner
}

// Model looks up a model by exact name.
func (r *Registry) Model(name string) (*Descriptor, bool) {
	return r.models.Get(name)
}

// Service looks up a service by exact name.
func (r *Registry) Service(name string) (*Descriptor, bool) {
	return r.services.Get(name)
}

// FindModelFold looks up a model by case-insensitive identity.
func (r *Registry) FindModelFold(identity string) (*Descriptor, bool) {
	d, ok := r.byFold[strings.ToLower(identity)]
	if !ok || !d.IsModel() {
		return nil, false
	}
	return d, true
}

// Models returns the models in registration order.
func (r *Registry) Models() []*Descriptor {
	return values(r.models)
}

// Services returns the services in registration order.
func (r *Registry) Services() []*Descriptor {
	return values(r.services)
}

// All returns models followed by services.
func (r *Registry) All() []*Descriptor {
	return append(r.Models(), r.Services()...)
}

// ModelNames returns every model name in registration order.
func (r *Registry) ModelNames() []string {
	names := make([]string, 0, r.models.Len())
	for pair := r.models.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

func (r *Registry) Len() int {
	return r.models.Len() + r.services.Len()
}

func values(m *orderedmap.OrderedMap[string, *Descriptor]) []*Descriptor {
	out := make([]*Descriptor, 0, m.Len())
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}
