package jsdoc

import (
	"regexp"
	"strings"
)

var (
	// Pattern: newline, optional indentation, continuation star
	continuationPattern = regexp.MustCompile(`(\r|\n)([ \t]+)?\*`)

	// Pattern: @tag
	tagPattern = regexp.MustCompile(`@[A-Za-z]+`)

	// Pattern: {type} [name] - description
	paramPattern = regexp.MustCompile(`^(\{[A-Za-z_$<>\[\]|.]+\})?[\s+]?(\[?[A-Za-z_$][A-Za-z_$0-9]*\]?)[\s+]?-?[\s+]?(.+)?`)

	// Pattern: {type} - description
	returnsPattern = regexp.MustCompile(`^(\{[A-Za-z_$<>\[\]|]+\})?[\s+]?-?[\s+]?(.+)?`)
)

// matchParam returns [types, name, description] for a @param value
func matchParam(value string) []string {
	if m := paramPattern.FindStringSubmatch(value); m != nil {
		return []string{m[1], m[2], m[3]}
	}
	return nil
}

// matchReturns returns [types, description] for a @returns value
func matchReturns(value string) []string {
	if m := returnsPattern.FindStringSubmatch(value); m != nil {
		return []string{m[1], m[2]}
	}
	return nil
}

// extractTypes turns "{a|b}" into ["a", "b"]. An async-result wrapper is kept
// whole so its inner union survives until type resolution.
func extractTypes(decl string) []string {
	decl = strings.NewReplacer("{", "", "}", "").Replace(decl)
	if decl == "" {
		return []string{}
	}
	if strings.HasPrefix(decl, "Promise<") {
		return []string{decl}
	}
	return strings.Split(decl, "|")
}
