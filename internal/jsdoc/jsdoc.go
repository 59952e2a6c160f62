// Package jsdoc parses doc-comment blocks into structured records and writes
// them back out in the layout used for class members in declaration files.
package jsdoc

import (
	"strings"
)

const (
	TagParam   = "@param"
	TagReturns = "@returns"
	TagAsync   = "@async"
)

// Doc is a parsed doc comment.
type Doc struct {
	Description string `json:"description"`
	// Annotations holds every tag other than @param and @returns, in order
	Annotations []Annotation `json:"annotations,omitempty"`
	Parameters  []Param      `json:"parameters,omitempty"`
	Returns     *Returns     `json:"returns,omitempty"`
}

// Annotation is a tag with its (possibly empty) value.
type Annotation struct {
	Tag   string `json:"tag"`
	Value string `json:"value,omitempty"`
}

// Param is a parsed @param stanza.
type Param struct {
	Name        string   `json:"name"`
	Types       []string `json:"types"`
	Description string   `json:"description,omitempty"`
	Optional    bool     `json:"optional,omitempty"`
}

// Returns is the parsed first @returns stanza.
type Returns struct {
	Types       []string `json:"types"`
	Description string   `json:"description,omitempty"`
}

// Parse reads the text of a block comment with its /* and */ delimiters
// removed. It reports false when the text is not a doc comment, i.e. does not
// start with the "*" marker.
func Parse(raw string) (*Doc, bool) {
	if !strings.HasPrefix(raw, "*") {
		return nil, false
	}

	body := continuationPattern.ReplaceAllString(raw[1:], "")
	body = strings.TrimSpace(body)

	tags := tagPattern.FindAllStringIndex(body, -1)
	if len(tags) == 0 {
		return &Doc{Description: body}, true
	}

	doc := &Doc{Description: strings.TrimSpace(body[:tags[0][0]])}
	for i, loc := range tags {
		tag := body[loc[0]:loc[1]]
		end := len(body)
		if i+1 < len(tags) {
			end = tags[i+1][0]
		}

		// a fragment only counts as the tag's value when separated by whitespace
		var value string
		if fragment := body[loc[1]:end]; strings.HasPrefix(fragment, " ") || strings.HasPrefix(fragment, "\t") {
			value = strings.TrimSpace(fragment)
		}

		switch tag {
		case TagParam:
			if p, ok := parseParam(value); ok {
				doc.Parameters = append(doc.Parameters, p)
			}
		case TagReturns:
			if doc.Returns == nil {
				doc.Returns = parseReturns(value)
			}
		default:
			doc.Annotations = append(doc.Annotations, Annotation{Tag: tag, Value: value})
		}
	}

	return doc, true
}

func parseParam(value string) (Param, bool) {
	if value == "" {
		return Param{}, false
	}
	m := matchParam(value)
	if m == nil || m[1] == "" {
		return Param{}, false
	}

	p := Param{
		Name:        m[1],
		Types:       extractTypes(m[0]),
		Description: strings.TrimSpace(m[2]),
	}
	if strings.HasPrefix(p.Name, "[") {
		p.Name = strings.NewReplacer("[", "", "]", "").Replace(p.Name)
		p.Optional = true
	}
	if p.Name == "" {
		return Param{}, false
	}
	return p, true
}

func parseReturns(value string) *Returns {
	if value == "" {
		return nil
	}
	m := matchReturns(value)
	if m == nil {
		return nil
	}
	return &Returns{
		Types:       extractTypes(m[0]),
		Description: strings.TrimSpace(m[1]),
	}
}

// Serialize renders doc as a member-level doc block:
//
//	/**
//	   * description
//	   *
//	   * @param {string} [name] - description
//	   *
//	   * @returns {number} description
//	   */
//
// A nil doc renders as the empty string.
func Serialize(doc *Doc) string {
	if doc == nil {
		return ""
	}

	var b strings.Builder
	stanza := func(line string) {
		if b.Len() > 0 {
			b.WriteString("\n   *")
		}
		b.WriteString("\n   * ")
		b.WriteString(line)
	}

	if desc := strings.TrimSpace(doc.Description); desc != "" {
		b.WriteString("\n   * ")
		b.WriteString(desc)
	}

	for _, p := range doc.Parameters {
		line := TagParam
		if len(p.Types) > 0 {
			line += " {" + strings.Join(p.Types, "|") + "}"
		}
		if p.Optional {
			line += " [" + p.Name + "]"
		} else {
			line += " " + p.Name
		}
		if desc := strings.TrimSpace(p.Description); desc != "" {
			line += " - " + desc
		}
		stanza(line)
	}

	for _, a := range doc.Annotations {
		line := a.Tag
		if a.Value != "" {
			line += " " + a.Value
		}
		stanza(line)
	}

	if doc.Returns != nil {
		line := TagReturns
		if len(doc.Returns.Types) > 0 {
			line += " {" + strings.Join(doc.Returns.Types, "|") + "}"
		}
		if desc := strings.TrimSpace(doc.Returns.Description); desc != "" {
			line += " - " + desc
		}
		stanza(line)
	}

	return "/**" + b.String() + "\n   */"
}

// Strip removes the comment delimiters from block comment source text,
// leaving the form Parse expects ("* ..." for doc comments).
func Strip(comment string) string {
	comment = strings.TrimPrefix(comment, "/*")
	return strings.TrimSuffix(comment, "*/")
}

// Clone returns a deep copy of doc.
func (d *Doc) Clone() *Doc {
	if d == nil {
		return nil
	}
	out := &Doc{
		Description: d.Description,
		Annotations: append([]Annotation(nil), d.Annotations...),
	}
	for _, p := range d.Parameters {
		p.Types = append([]string(nil), p.Types...)
		out.Parameters = append(out.Parameters, p)
	}
	if d.Returns != nil {
		out.Returns = &Returns{
			Types:       append([]string(nil), d.Returns.Types...),
			Description: d.Returns.Description,
		}
	}
	return out
}

// Param returns the documented parameter with the given name.
func (d *Doc) Param(name string) (Param, bool) {
	if d == nil {
		return Param{}, false
	}
	for _, p := range d.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}
