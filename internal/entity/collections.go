package entity

import (
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Properties is the insertion-ordered property map of one attribute. Values
// are literal scalars: string, float64 or bool.
type Properties struct {
	m *orderedmap.OrderedMap[string, any]
}

// NewProperties returns an empty property map.
func NewProperties() *Properties {
	return &Properties{m: orderedmap.New[string, any]()}
}

// Set stores a value and reports whether the key was already present.
// An existing key keeps its position.
func (p *Properties) Set(key string, value any) bool {
	_, present := p.m.Set(key, value)
	return present
}

func (p *Properties) Get(key string) (any, bool) {
	return p.m.Get(key)
}

func (p *Properties) Has(key string) bool {
	_, ok := p.m.Get(key)
	return ok
}

func (p *Properties) Len() int {
	return p.m.Len()
}

// Keys returns the keys in insertion order.
func (p *Properties) Keys() []string {
	keys := make([]string, 0, p.m.Len())
	for pair := p.m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

func (p *Properties) MarshalJSON() ([]byte, error) {
	return p.m.MarshalJSON()
}

func (p *Properties) UnmarshalJSON(data []byte) error {
	p.m = orderedmap.New[string, any]()
	return p.m.UnmarshalJSON(data)
}

// NameSet is an insertion-ordered set of entity names.
type NameSet struct {
	m *orderedmap.OrderedMap[string, struct{}]
}

func NewNameSet(names ...string) *NameSet {
	s := &NameSet{m: orderedmap.New[string, struct{}]()}
	for _, name := range names {
		s.Add(name)
	}
	return s
}

// Add inserts name and reports whether it was new.
func (s *NameSet) Add(name string) bool {
	_, present := s.m.Set(name, struct{}{})
	return !present
}

func (s *NameSet) Has(name string) bool {
	_, ok := s.m.Get(name)
	return ok
}

func (s *NameSet) Len() int {
	if s == nil || s.m == nil {
		return 0
	}
	return s.m.Len()
}

// Values returns the names in insertion order.
func (s *NameSet) Values() []string {
	if s == nil || s.m == nil {
		return nil
	}
	out := make([]string, 0, s.m.Len())
	for pair := s.m.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

func (s *NameSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}
