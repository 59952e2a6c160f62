// Package policy evaluates project diagnostics (hook placement, sails
// dependency health) with an embedded OPA policy.
package policy

import (
	"context"
	_ "embed"
	"encoding/json"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/fpm-git/gabagool/internal/errors"
	"github.com/fpm-git/gabagool/internal/project"
)

//go:embed project.rego
var projectModule string

const queryRoot = "data.gabagool.project"

// Severities reported by the policy.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Engine evaluates the project policy
type Engine struct {
	queries map[string]rego.PreparedEvalQuery
}

// Diagnostic is one policy finding.
type Diagnostic struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Fatal    bool   `json:"fatal"`
	Subject  string `json:"subject"`
	Message  string `json:"message"`
}

// Result contains the evaluation results
type Result struct {
	Diagnostics []Diagnostic
	Summary     Summary
}

// Summary provides aggregate counts
type Summary struct {
	Total    int `json:"total"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Fatal    int `json:"fatal"`
}

// Input is the data structure passed to OPA
type Input struct {
	Project ProjectInfo `json:"project"`
	Hooks   []HookInfo  `json:"hooks"`
	Sails   SailsInfo   `json:"sails"`
}

type ProjectInfo struct {
	Name string `json:"name"`
}

type HookInfo struct {
	Name               string   `json:"name"`
	HookName           string   `json:"hook_name"`
	Dev                bool     `json:"dev"`
	DevDependencies    []string `json:"dev_dependencies"`
	MarlinDependencies []string `json:"marlin_dependencies"`
}

// SailsInfo describes the project's sails requirement. Checked is false when
// the declared requirement has no parseable lower bound (tags, URLs).
type SailsInfo struct {
	Listed    bool   `json:"listed"`
	Declared  string `json:"declared"`
	Checked   bool   `json:"checked"`
	Supported bool   `json:"supported"`
	Range     string `json:"range"`
}

// New prepares the embedded policy queries.
func New(ctx context.Context) (*Engine, error) {
	engine := &Engine{queries: make(map[string]rego.PreparedEvalQuery)}

	for name, query := range map[string]string{
		"diagnostics": queryRoot + ".all_diagnostics",
		"summary":     queryRoot + ".summary",
	} {
		prepared, err := rego.New(
			rego.Module("project.rego", projectModule),
			rego.Query(query),
		).PrepareForEval(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "preparing %s query", name)
		}
		engine.queries[name] = prepared
	}
	return engine, nil
}

// BuildInput converts a discovered project into policy input. sailsRange is
// the supported semver constraint for the sails dependency.
func BuildInput(p *project.Project, sailsRange string) (Input, error) {
	supported, err := semver.NewConstraint(sailsRange)
	if err != nil {
		return Input{}, errors.WithHint(
			errors.Wrapf(err, "invalid hooks.sailsRange %q", sailsRange),
			"use a semver constraint such as \">= 1.0.0\"")
	}

	in := Input{
		Project: ProjectInfo{Name: p.Package.Name},
		Hooks:   []HookInfo{},
		Sails:   SailsInfo{Range: sailsRange},
	}
	for _, h := range p.Hooks {
		in.Hooks = append(in.Hooks, HookInfo{
			Name:               h.Name,
			HookName:           h.HookName,
			Dev:                h.Dev,
			DevDependencies:    nonNil(h.DevDependencies),
			MarlinDependencies: nonNil(h.MarlinDependencies),
		})
	}

	if declared, ok := p.Package.Requirement("sails"); ok {
		in.Sails.Listed = true
		in.Sails.Declared = declared
		if v, ok := LowerBound(declared); ok {
			in.Sails.Checked = true
			in.Sails.Supported = supported.Check(v)
		}
	}
	return in, nil
}

// LowerBound extracts the minimum version a package.json requirement such
// as "^1.2.3", "~0.12" or ">=1.0.0 <2" allows.
func LowerBound(requirement string) (*semver.Version, bool) {
	fields := strings.Fields(strings.TrimLeft(strings.TrimSpace(requirement), "^~>=v "))
	if len(fields) == 0 {
		return nil, false
	}
	raw := fields[0]
	raw = strings.ReplaceAll(strings.ReplaceAll(raw, ".x", ".0"), ".*", ".0")
	v, err := semver.NewVersion(raw)
	if err != nil {
		return nil, false
	}
	return v, true
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Evaluate runs the policy against the input data
func (e *Engine) Evaluate(ctx context.Context, input Input) (*Result, error) {
	inputMap, err := structToMap(input)
	if err != nil {
		return nil, errors.Wrap(err, "converting input")
	}

	result := &Result{}

	rs, err := e.queries["diagnostics"].Eval(ctx, rego.EvalInput(inputMap))
	if err != nil {
		return nil, errors.Wrap(err, "evaluating diagnostics")
	}
	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		if items, ok := rs[0].Expressions[0].Value.([]interface{}); ok {
			for _, item := range items {
				m, ok := item.(map[string]interface{})
				if !ok {
					continue
				}
				fatal, _ := m["fatal"].(bool)
				result.Diagnostics = append(result.Diagnostics, Diagnostic{
					Rule:     getString(m, "rule"),
					Severity: getString(m, "severity"),
					Fatal:    fatal,
					Subject:  getString(m, "subject"),
					Message:  getString(m, "message"),
				})
			}
		}
	}
	sort.SliceStable(result.Diagnostics, func(i, j int) bool {
		a, b := result.Diagnostics[i], result.Diagnostics[j]
		if a.Severity != b.Severity {
			return a.Severity == SeverityError
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		return a.Subject < b.Subject
	})

	rs, err = e.queries["summary"].Eval(ctx, rego.EvalInput(inputMap))
	if err != nil {
		return nil, errors.Wrap(err, "evaluating summary")
	}
	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		if m, ok := rs[0].Expressions[0].Value.(map[string]interface{}); ok {
			result.Summary = Summary{
				Total:    getInt(m, "total"),
				Errors:   getInt(m, "errors"),
				Warnings: getInt(m, "warnings"),
				Fatal:    getInt(m, "fatal"),
			}
		}
	}
	return result, nil
}

// FatalError returns a structural error for the first fatal diagnostic.
func (r *Result) FatalError() error {
	for _, d := range r.Diagnostics {
		if d.Fatal {
			return errors.Structuralf("%s", d.Message)
		}
	}
	return nil
}

func structToMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	err = json.Unmarshal(data, &result)
	return result, err
}

func getString(m map[string]interface{}, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func getInt(m map[string]interface{}, key string) int {
	switch n := m[key].(type) {
	case int:
		return n
	case float64:
		return int(n)
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	}
	return 0
}
