// Package flatten pulls the attributes and methods out of a Sails model or
// service module's syntax tree.
package flatten

import (
	"context"
	"fmt"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"go.uber.org/zap"

	"github.com/fpm-git/gabagool/internal/entity"
	"github.com/fpm-git/gabagool/internal/errors"
	"github.com/fpm-git/gabagool/internal/jsdoc"
	"github.com/fpm-git/gabagool/internal/logger"
)

// Version identifies the descriptor layout produced by this package. Cached
// descriptors written under another version are ignored.
const Version = "gabagool-flatten-3"

// Flattener parses JavaScript with tree-sitter. A Flattener owns a parser and
// must not be shared between goroutines.
type Flattener struct {
	parser *sitter.Parser
	log    *zap.SugaredLogger
}

// New creates a Flattener reporting warnings to log (the "flatten" component
// logger when nil).
func New(log *zap.SugaredLogger) *Flattener {
	if log == nil {
		log = logger.ComponentLogger("flatten")
	}
	parser := sitter.NewParser()
	parser.SetLanguage(javascript.GetLanguage())
	return &Flattener{parser: parser, log: log}
}

// FlattenFile reads and flattens one source file.
func (f *Flattener) FlattenFile(ctx context.Context, path, name string, kind entity.Kind) (*entity.Descriptor, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s file %q", kind, path)
	}
	d := entity.New(name, path, kind)
	if err := f.Flatten(ctx, content, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Flatten fills d.Attributes and d.Functions from source. A module without a
// usable module.exports object is reported and marked skipped; structural
// problems are returned as errors.
func (f *Flattener) Flatten(ctx context.Context, source []byte, d *entity.Descriptor) error {
	tree, err := f.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return errors.Wrapf(err, "parsing %q", d.Filename)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		line := 0
		if bad := firstErrorNode(root); bad != nil {
			line = int(bad.StartPoint().Row) + 1
		}
		return errors.Structuralf("Failed to load %s file %q: syntax error near line %d", d.Kind, d.Filename, line)
	}

	exports := findModuleExports(root, source)
	if exports == nil {
		f.log.Warnw(fmt.Sprintf("No module.exports assignment found for %s (%q), type information will not be generated.", d.Name, d.Filename),
			logger.FieldEntity, d.Name)
		d.Skipped = true
		return nil
	}

	scan := &scanner{source: source, desc: d, log: f.log}
	if attrs := scan.findAttributesObject(exports); attrs != nil {
		if err := scan.extractAttributes(attrs); err != nil {
			return err
		}
	}
	scan.extractFunctions(exports)
	return nil
}

// findModuleExports returns the object literal assigned to module.exports at
// the top level of the program.
func findModuleExports(root *sitter.Node, source []byte) *sitter.Node {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		stmt := root.NamedChild(i)
		if stmt.Type() != "expression_statement" || stmt.NamedChildCount() == 0 {
			continue
		}
		expr := stmt.NamedChild(0)
		if expr.Type() != "assignment_expression" {
			continue
		}
		left := expr.ChildByFieldName("left")
		right := expr.ChildByFieldName("right")
		if left == nil || right == nil || left.Type() != "member_expression" || right.Type() != "object" {
			continue
		}
		object := left.ChildByFieldName("object")
		property := left.ChildByFieldName("property")
		if object != nil && property != nil && object.Content(source) == "module" && property.Content(source) == "exports" {
			return right
		}
	}
	return nil
}

func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if found := firstErrorNode(n.Child(i)); found != nil {
			return found
		}
	}
	return nil
}

// scanner carries per-module state while walking the export object.
type scanner struct {
	source []byte
	desc   *entity.Descriptor
	log    *zap.SugaredLogger
}

func (s *scanner) warn(msg string, keysAndValues ...interface{}) {
	s.log.Warnw(msg, append([]interface{}{logger.FieldEntity, s.desc.Name}, keysAndValues...)...)
}

func (s *scanner) findAttributesObject(exports *sitter.Node) *sitter.Node {
	for i := 0; i < int(exports.NamedChildCount()); i++ {
		entry := exports.NamedChild(i)
		switch entry.Type() {
		case "shorthand_property_identifier":
			if entry.Content(s.source) == "attributes" {
				s.warn(fmt.Sprintf("Found shorthand attributes key in %s (%q). Please note that this is not currently supported, and that inline attributes should be used instead.",
					s.desc.Name, s.desc.Filename))
				return nil
			}
		case "pair":
			if s.keyName(entry.ChildByFieldName("key")) != "attributes" {
				continue
			}
			value := entry.ChildByFieldName("value")
			if value == nil || value.Type() != "object" {
				s.warn(fmt.Sprintf("Found attributes key in %s (%q) that is not an object literal, attributes will be skipped.",
					s.desc.Name, s.desc.Filename))
				return nil
			}
			return value
		}
	}
	return nil
}

func (s *scanner) extractAttributes(attrs *sitter.Node) error {
	seen := make(map[string]string)

	for i := 0; i < int(attrs.NamedChildCount()); i++ {
		entry := attrs.NamedChild(i)
		if entry.Type() != "pair" {
			continue
		}
		name := s.keyName(entry.ChildByFieldName("key"))
		value := entry.ChildByFieldName("value")
		if name == "" || value == nil {
			continue
		}
		if value.Type() != "object" {
			s.warn(fmt.Sprintf("Found invalid attribute %q in %s (%q). Expected an object expression but found %s instead.",
				name, s.desc.Name, s.desc.Filename, value.Type()),
				logger.FieldAttribute, name)
			continue
		}

		folded := strings.ToLower(name)
		if prev, ok := seen[folded]; ok {
			return errors.Structuralf("Found attribute conflict in %s (%q). The %q attribute's identity has already been assigned by %q.",
				s.desc.Name, s.desc.Filename, name, prev)
		}
		seen[folded] = name

		s.desc.Attributes = append(s.desc.Attributes, &entity.Attribute{
			Name:       name,
			Properties: s.extractAttrProperties(value, name),
			Doc:        s.docFor(entry),
			Line:       int(entry.StartPoint().Row) + 1,
		})
	}
	return nil
}

// extractAttrProperties collects one level of literal scalar properties.
func (s *scanner) extractAttrProperties(obj *sitter.Node, attrName string) *entity.Properties {
	props := entity.NewProperties()
	for i := 0; i < int(obj.NamedChildCount()); i++ {
		entry := obj.NamedChild(i)
		if entry.Type() != "pair" {
			continue
		}
		key := s.keyName(entry.ChildByFieldName("key"))
		value, ok := literalValue(entry.ChildByFieldName("value"), s.source)
		if key == "" || !ok {
			continue
		}
		if props.Set(key, value) {
			s.warn(fmt.Sprintf("Duplicate key used in attribute %q definition in %s (%q). Using new key value...",
				attrName, s.desc.Name, s.desc.Filename),
				logger.FieldAttribute, attrName)
		}
	}
	return props
}

func (s *scanner) extractFunctions(exports *sitter.Node) {
	for i := 0; i < int(exports.NamedChildCount()); i++ {
		entry := exports.NamedChild(i)

		var fn *sitter.Node
		var name string
		switch entry.Type() {
		case "method_definition":
			fn = entry
			name = s.keyName(entry.ChildByFieldName("name"))
		case "pair":
			value := entry.ChildByFieldName("value")
			if value == nil || !isFunctionNode(value) {
				continue
			}
			fn = value
			name = s.keyName(entry.ChildByFieldName("key"))
			s.warn(fmt.Sprintf("Found method %q defined as property in %s (%q). Please use the ES2015 object method syntax instead!",
				name, s.desc.Name, s.desc.Filename),
				logger.FieldFunction, name)
		default:
			continue
		}
		if name == "" {
			continue
		}

		s.desc.Functions = append(s.desc.Functions, &entity.Function{
			Name:   name,
			Params: functionParams(fn, s.source),
			Async:  hasChildOfType(fn, "async"),
			Doc:    s.docFor(entry),
			Line:   int(entry.StartPoint().Row) + 1,
		})
	}
}

// docFor parses the doc comment immediately preceding node, if any.
func (s *scanner) docFor(node *sitter.Node) *jsdoc.Doc {
	prev := node.PrevSibling()
	for prev != nil && prev.Type() == "," {
		prev = prev.PrevSibling()
	}
	if prev == nil || prev.Type() != "comment" {
		return nil
	}
	text := prev.Content(s.source)
	if !strings.HasPrefix(text, "/*") {
		return nil
	}
	doc, ok := jsdoc.Parse(jsdoc.Strip(text))
	if !ok {
		return nil
	}
	return doc
}

// keyName returns the name of a property key: identifiers, string and
// number literals. Computed keys yield "".
func (s *scanner) keyName(key *sitter.Node) string {
	if key == nil {
		return ""
	}
	switch key.Type() {
	case "property_identifier", "identifier", "private_property_identifier":
		return key.Content(s.source)
	case "string":
		return stringValue(key, s.source)
	case "number":
		return key.Content(s.source)
	}
	return ""
}
