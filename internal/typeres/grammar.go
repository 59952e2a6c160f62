package typeres

import (
	"regexp"
	"strings"
)

// Wildcard is the type every unrecognised leaf degrades to.
const Wildcard = "any"

// ScalarTypes are the base keywords accepted in doc-comment types.
var ScalarTypes = []string{
	"string", "String",
	"object", "Object",
	"number", "Number",
	"boolean", "Boolean",
	"Promise",
	"Array",
	"Function",
	"void",
	"any",
}

var scalarSet = func() map[string]bool {
	m := make(map[string]bool, len(ScalarTypes))
	for _, t := range ScalarTypes {
		m[t] = true
	}
	return m
}()

// Pattern: $NameInstance
var instancePattern = regexp.MustCompile(`^\$([A-Za-z_$][A-Za-z0-9_$]*?)Instance$`)

const (
	restPrefix    = "..."
	arraySuffix   = "[]"
	promisePrefix = "Promise<"
	promiseSuffix = ">"
)

// ModelLookup answers whether a model exists under an exact name.
type ModelLookup func(name string) bool

// grammar normalizes type strings. Each case of normalize is one production;
// the final return is the wildcard fallback.
type grammar struct {
	hasModel ModelLookup
	// refs collects instance references in the order they are seen
	refs []string
}

func (g *grammar) normalize(t string) string {
	t = strings.TrimSpace(t)

	switch {
	case strings.HasPrefix(t, restPrefix):
		return restPrefix + g.normalize(t[len(restPrefix):])

	case strings.HasSuffix(t, arraySuffix):
		return g.normalize(strings.TrimSuffix(t, arraySuffix)) + arraySuffix

	case strings.HasPrefix(t, promisePrefix) && strings.HasSuffix(t, promiseSuffix):
		inner := t[len(promisePrefix) : len(t)-len(promiseSuffix)]
		members := g.normalizeList(splitUnion(inner))
		if len(members) == 0 {
			members = []string{Wildcard}
		}
		return promisePrefix + strings.Join(members, "|") + promiseSuffix

	case instancePattern.MatchString(t):
		name := instancePattern.FindStringSubmatch(t)[1]
		if g.hasModel != nil && g.hasModel(name) {
			g.refs = append(g.refs, name)
			return t
		}

	case scalarSet[t]:
		return t
	}

	return Wildcard
}

// normalizeList normalizes every member and drops duplicates, keeping the
// first occurrence.
func (g *grammar) normalizeList(types []string) []string {
	out := make([]string, 0, len(types))
	seen := make(map[string]bool, len(types))
	for _, t := range types {
		n := g.normalize(t)
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// splitUnion splits on "|" outside angle brackets.
func splitUnion(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case '|':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	if start < len(s) || len(parts) > 0 {
		parts = append(parts, s[start:])
	}
	return parts
}

// NormalizeType returns t with every leaf outside the grammar replaced by the
// wildcard, and the model names it references.
func NormalizeType(t string, hasModel ModelLookup) (string, []string) {
	g := &grammar{hasModel: hasModel}
	return g.normalize(t), g.refs
}

// IsValidType reports whether t is accepted by the grammar without coercion.
func IsValidType(t string, hasModel ModelLookup) bool {
	n, _ := NormalizeType(t, hasModel)
	return n == strings.TrimSpace(t)
}
