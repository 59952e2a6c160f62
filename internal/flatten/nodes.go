package flatten

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

func isFunctionNode(n *sitter.Node) bool {
	switch n.Type() {
	case "function", "function_expression", "arrow_function", "generator_function":
		return true
	}
	return false
}

func hasChildOfType(n *sitter.Node, kind string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == kind {
			return true
		}
	}
	return false
}

// functionParams lists simple identifier parameters in order. Rest
// parameters keep a "..." prefix; destructured and defaulted ones are dropped.
func functionParams(fn *sitter.Node, source []byte) []string {
	params := []string{}

	// arrow functions with a single bare parameter
	if single := fn.ChildByFieldName("parameter"); single != nil {
		if single.Type() == "identifier" {
			params = append(params, single.Content(source))
		}
		return params
	}

	list := fn.ChildByFieldName("parameters")
	if list == nil {
		return params
	}
	for i := 0; i < int(list.NamedChildCount()); i++ {
		p := list.NamedChild(i)
		switch p.Type() {
		case "identifier":
			params = append(params, p.Content(source))
		case "rest_pattern":
			for j := 0; j < int(p.NamedChildCount()); j++ {
				if id := p.NamedChild(j); id.Type() == "identifier" {
					params = append(params, "..."+id.Content(source))
				}
			}
		}
	}
	return params
}

// literalValue converts string, number and boolean literals. Anything else
// (objects, arrays, identifiers, calls, templates) is not captured.
func literalValue(n *sitter.Node, source []byte) (any, bool) {
	if n == nil {
		return nil, false
	}
	switch n.Type() {
	case "string":
		return stringValue(n, source), true
	case "number":
		return numberValue(n.Content(source))
	case "true":
		return true, true
	case "false":
		return false, true
	case "unary_expression":
		op := n.ChildByFieldName("operator")
		arg := n.ChildByFieldName("argument")
		if op == nil || arg == nil || arg.Type() != "number" {
			return nil, false
		}
		v, ok := numberValue(arg.Content(source))
		if !ok {
			return nil, false
		}
		switch op.Content(source) {
		case "-":
			return -v, true
		case "+":
			return v, true
		}
	}
	return nil, false
}

func numberValue(text string) (float64, bool) {
	if v, err := strconv.ParseFloat(strings.ReplaceAll(text, "_", ""), 64); err == nil {
		return v, true
	}
	if v, err := strconv.ParseInt(text, 0, 64); err == nil {
		return float64(v), true
	}
	return 0, false
}

var escapes = map[byte]string{
	'n':  "\n",
	't':  "\t",
	'r':  "\r",
	'b':  "\b",
	'f':  "\f",
	'v':  "\v",
	'0':  "\x00",
	'\\': "\\",
	'\'': "'",
	'"':  "\"",
}

// stringValue decodes a string literal from its fragments and escapes.
func stringValue(n *sitter.Node, source []byte) string {
	var b strings.Builder
	for i := 0; i < int(n.NamedChildCount()); i++ {
		part := n.NamedChild(i)
		text := part.Content(source)
		switch part.Type() {
		case "string_fragment":
			b.WriteString(text)
		case "escape_sequence":
			if len(text) == 2 {
				if s, ok := escapes[text[1]]; ok {
					b.WriteString(s)
					continue
				}
			}
			if unq, err := strconv.Unquote(`"` + text + `"`); err == nil {
				b.WriteString(unq)
			} else {
				b.WriteString(text)
			}
		}
	}
	return b.String()
}
