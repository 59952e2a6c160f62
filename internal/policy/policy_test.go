package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/fpm-git/gabagool/internal/errors"
	"github.com/fpm-git/gabagool/internal/project"
)

func newProject(deps map[string]string, hooks ...*project.Hook) *project.Project {
	pkg := &project.Package{Name: "shop", Dependencies: orderedmap.New[string, string]()}
	for name, version := range deps {
		pkg.Dependencies.Set(name, version)
	}
	return &project.Project{Root: "/srv/shop", Package: pkg, Hooks: hooks}
}

func evaluate(t *testing.T, p *project.Project) *Result {
	t.Helper()
	engine, err := New(context.Background())
	require.NoError(t, err)
	input, err := BuildInput(p, ">= 1.0.0")
	require.NoError(t, err)
	result, err := engine.Evaluate(context.Background(), input)
	require.NoError(t, err)
	return result
}

func rules(r *Result) []string {
	var out []string
	for _, d := range r.Diagnostics {
		out = append(out, d.Rule)
	}
	return out
}

func TestHealthyProject(t *testing.T) {
	result := evaluate(t, newProject(map[string]string{"sails": "^1.5.0"},
		&project.Hook{Name: "sails-hook-auth", HookName: "auth", Dev: true},
	))
	assert.Empty(t, result.Diagnostics)
	assert.Equal(t, Summary{}, result.Summary)
	assert.NoError(t, result.FatalError())
}

func TestMarlinHookInDependencies(t *testing.T) {
	result := evaluate(t, newProject(map[string]string{"sails": "^1.5.0"},
		&project.Hook{Name: "sails-hook-auth", HookName: "auth", Dev: false},
	))
	require.Equal(t, []string{"marlin_hook_in_dependencies"}, rules(result))

	d := result.Diagnostics[0]
	assert.True(t, d.Fatal)
	assert.Equal(t, SeverityError, d.Severity)
	assert.Equal(t, `Found Marlinspike-based "sails-hook-auth" within package dependencies. Please install all Marlinspike hooks as devDependencies instead.`, d.Message)
	assert.Equal(t, Summary{Total: 1, Errors: 1, Fatal: 1}, result.Summary)

	err := result.FatalError()
	require.Error(t, err)
	assert.True(t, errors.IsStructural(err))
	assert.Contains(t, err.Error(), "sails-hook-auth")
}

func TestSubhookDiagnostics(t *testing.T) {
	result := evaluate(t, newProject(map[string]string{"sails": "^1.5.0"},
		&project.Hook{
			Name:               "sails-hook-auth",
			Dev:                true,
			DevDependencies:    []string{"sails-hook-audit", "sails-hook-missing", "lodash"},
			MarlinDependencies: []string{"sails-hook-sessions"},
		},
		&project.Hook{Name: "sails-hook-audit", Dev: true},
	))

	assert.Equal(t, []string{"subhook_marlin_dependency", "uninstalled_potential_hook"}, rules(result))
	assert.False(t, result.Diagnostics[0].Fatal)
	assert.Contains(t, result.Diagnostics[0].Message, "(sails-hook-sessions) within dependencies of subhook \"sails-hook-auth\"")
	assert.Equal(t, "sails-hook-missing", result.Diagnostics[1].Subject)
	assert.Equal(t, Summary{Total: 2, Errors: 1, Warnings: 1}, result.Summary)
	assert.NoError(t, result.FatalError())
}

func TestSailsDependency(t *testing.T) {
	missing := evaluate(t, newProject(map[string]string{"lodash": "^4.0.0"}))
	assert.Equal(t, []string{"missing_sails_dependency"}, rules(missing))
	assert.Contains(t, missing.Diagnostics[0].Message, "The active project (shop) has no sails dependency listed!")

	old := evaluate(t, newProject(map[string]string{"sails": "~0.12.14"}))
	assert.Equal(t, []string{"unsupported_sails_version"}, rules(old))
	assert.Contains(t, old.Diagnostics[0].Message, "sails ~0.12.14")

	unknown := evaluate(t, newProject(map[string]string{"sails": "github:balderdashy/sails"}))
	assert.Empty(t, unknown.Diagnostics)
}

func TestBuildInputRejectsBadRange(t *testing.T) {
	_, err := BuildInput(newProject(nil), "not a range")
	require.Error(t, err)
	assert.Contains(t, errors.FlattenHints(err), "semver constraint")
}

func TestLowerBound(t *testing.T) {
	cases := map[string]string{
		"^1.2.3":        "1.2.3",
		"~0.12":         "0.12.0",
		">= 1.0.0 < 2":  "1.0.0",
		"1.x":           "1.0.0",
		"v1.5.0-beta.1": "1.5.0-beta.1",
	}
	for in, want := range cases {
		v, ok := LowerBound(in)
		require.True(t, ok, in)
		assert.Equal(t, want, v.String(), in)
	}

	for _, in := range []string{"", "*", "latest", "github:balderdashy/sails"} {
		_, ok := LowerBound(in)
		assert.False(t, ok, in)
	}
}
