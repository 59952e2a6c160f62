package indexer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fpm-git/gabagool/internal/config"
	"github.com/fpm-git/gabagool/internal/errors"
)

const (
	authorSrc = `
module.exports = {
  attributes: {
    name: { type: 'string', required: true },
    publisher: { model: 'publisher' },
  },
};
`
	publisherSrc = `
module.exports = {
  attributes: {
    name: { type: 'string' },
  },
};
`
	auditEntrySrc = `
module.exports = {
  attributes: {
    action: { type: 'string' },
  },
};
`
	mailerSrc = `
module.exports = {
  /**
   * @param {string} to
   * @returns {boolean}
   */
  async send(to) {},
};
`
)

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// fixture lays out a project with two models, one service and a dev hook
// contributing a third model.
func fixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	write(t, filepath.Join(root, "package.json"), `{
  "name": "press",
  "dependencies": {"sails": "^1.5.0"},
  "devDependencies": {"sails-hook-audit": "^1.0.0"}
}`)
	write(t, filepath.Join(root, "node_modules", "sails", "package.json"), `{"name": "sails"}`)
	hook := filepath.Join(root, "node_modules", "sails-hook-audit")
	write(t, filepath.Join(hook, "package.json"), `{
  "name": "sails-hook-audit",
  "sails": {"isHook": true, "hookName": "audit"},
  "dependencies": {"marlinspike": "^1.0.0"}
}`)
	write(t, filepath.Join(hook, "api", "models", "AuditEntry.js"), auditEntrySrc)

	write(t, filepath.Join(root, "api", "models", "Author.js"), authorSrc)
	write(t, filepath.Join(root, "api", "models", "Publisher.js"), publisherSrc)
	write(t, filepath.Join(root, "api", "services", "Mailer.js"), mailerSrc)
	return root
}

func newIndexer() *Indexer {
	idx := New(config.DefaultConfig())
	idx.Log = zap.NewNop().Sugar()
	return idx
}

func TestRunGeneratesDeclarationTree(t *testing.T) {
	root := fixture(t)

	res, err := newIndexer().Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Models() != 3 || res.Services() != 1 {
		t.Fatalf("expected 3 models and 1 service, got %d and %d", res.Models(), res.Services())
	}
	if len(res.Written) != 8 {
		t.Fatalf("expected 8 written files, got %d: %v", len(res.Written), res.Written)
	}
	for _, rel := range []string{
		"globals.d.ts",
		"sails/model.d.ts",
		"models/Author.ts",
		"models/AuditEntry.ts",
		"services/Mailer.ts",
	} {
		if _, err := os.Stat(filepath.Join(root, ".types", rel)); err != nil {
			t.Errorf("missing %s: %v", rel, err)
		}
	}
	if !res.JSConfigWritten {
		t.Fatalf("expected jsconfig.json to be created")
	}

	author, err := os.ReadFile(filepath.Join(root, ".types", "models", "Author.ts"))
	if err != nil {
		t.Fatalf("read Author.ts: %v", err)
	}
	if !strings.Contains(string(author), "export declare abstract class $PublisherInstance") {
		t.Fatalf("expected Author.ts to inline the Publisher instance, got:\n%s", author)
	}

	d, ok := res.Registry.Model("AuditEntry")
	if !ok || d.Owner != "sails-hook-audit" {
		t.Fatalf("expected AuditEntry owned by the hook, got %+v", d)
	}

	var stages []string
	for _, s := range res.Stages {
		stages = append(stages, s.Name)
	}
	want := []string{"discover", "diagnostics", "collect", "flatten", "registry", "validate", "resolve", "synthesize", "impact", "write"}
	if diff := cmp.Diff(want, stages); diff != "" {
		t.Fatalf("stages mismatch (-want +got):\n%s", diff)
	}
	if res.Changed != nil {
		t.Fatalf("first run has nothing to compare with, got %v", res.Changed)
	}
}

func TestRunKeepsExistingJSConfig(t *testing.T) {
	root := fixture(t)
	write(t, filepath.Join(root, "jsconfig.json"), "{}")

	res, err := newIndexer().Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.JSConfigWritten {
		t.Fatalf("existing jsconfig.json must not be replaced")
	}
	data, _ := os.ReadFile(filepath.Join(root, "jsconfig.json"))
	if string(data) != "{}" {
		t.Fatalf("jsconfig.json changed: %s", data)
	}
}

func TestRunCacheAndImpact(t *testing.T) {
	root := fixture(t)
	ctx := context.Background()

	if _, err := newIndexer().Run(ctx, root); err != nil {
		t.Fatalf("first run: %v", err)
	}

	second, err := newIndexer().Run(ctx, root)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.CacheHits != 4 {
		t.Fatalf("expected 4 cache hits, got %d", second.CacheHits)
	}
	if second.Changed == nil || len(second.Changed) != 0 {
		t.Fatalf("expected an empty change set, got %#v", second.Changed)
	}

	write(t, filepath.Join(root, "api", "models", "Publisher.js"), `
module.exports = {
  attributes: {
    name: { type: 'string' },
    founded: { type: 'number' },
  },
};
`)
	third, err := newIndexer().Run(ctx, root)
	if err != nil {
		t.Fatalf("third run: %v", err)
	}
	if third.CacheHits != 3 {
		t.Fatalf("expected 3 cache hits, got %d", third.CacheHits)
	}
	if diff := cmp.Diff([]string{"Publisher"}, third.Changed); diff != "" {
		t.Fatalf("changed mismatch (-want +got):\n%s", diff)
	}
	wantImpact := []ImpactReport{{Root: "Publisher", Levels: [][]string{{"Author"}}}}
	if diff := cmp.Diff(wantImpact, third.Impact); diff != "" {
		t.Fatalf("impact mismatch (-want +got):\n%s", diff)
	}
}

func TestRunComparesInMemoryAcrossRuns(t *testing.T) {
	root := fixture(t)
	idx := newIndexer()
	idx.NoCache = true
	ctx := context.Background()

	if _, err := idx.Run(ctx, root); err != nil {
		t.Fatalf("first run: %v", err)
	}
	write(t, filepath.Join(root, "api", "services", "Mailer.js"), `
module.exports = {
  /**
   * @param {string} to
   * @param {string} subject
   * @returns {boolean}
   */
  async send(to, subject) {},
};
`)
	res, err := idx.Run(ctx, root)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.CacheHits != 0 {
		t.Fatalf("cache disabled, got %d hits", res.CacheHits)
	}
	if diff := cmp.Diff([]string{"Mailer"}, res.Changed); diff != "" {
		t.Fatalf("changed mismatch (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(filepath.Join(root, ".gabagool_cache")); !os.IsNotExist(err) {
		t.Fatalf("cache directory must not be created with NoCache, stat err: %v", err)
	}
}

func TestAnalyzeDoesNotWrite(t *testing.T) {
	root := fixture(t)

	res, err := newIndexer().Analyze(context.Background(), root)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if res.Registry.Len() != 4 {
		t.Fatalf("expected 4 entities, got %d", res.Registry.Len())
	}
	if _, err := os.Stat(filepath.Join(root, ".types")); !os.IsNotExist(err) {
		t.Fatalf("Analyze must not create the output tree, stat err: %v", err)
	}
	if len(res.Tables().Entities) != 4 {
		t.Fatalf("expected 4 entity rows, got %d", len(res.Tables().Entities))
	}
}

func TestRunRefusesOutputDirAtProjectRoot(t *testing.T) {
	for _, dir := range []string{".", ""} {
		root := fixture(t)
		idx := newIndexer()
		idx.Config.Output.Dir = dir

		_, err := idx.Run(context.Background(), root)
		if !errors.IsStructural(err) {
			t.Fatalf("output dir %q: expected structural error, got %v", dir, err)
		}
		for _, rel := range []string{"package.json", filepath.Join("api", "models", "Author.js")} {
			if _, statErr := os.Stat(filepath.Join(root, rel)); statErr != nil {
				t.Fatalf("output dir %q: project file %s removed: %v", dir, rel, statErr)
			}
		}
	}
}

func TestRunDuplicateEntity(t *testing.T) {
	root := fixture(t)
	write(t, filepath.Join(root, "api", "services", "author.js"), mailerSrc)

	_, err := newIndexer().Run(context.Background(), root)
	if err == nil {
		t.Fatalf("expected duplicate definition error")
	}
	if !errors.IsStructural(err) {
		t.Fatalf("expected structural error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Found duplicate definition of service \"author\"") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestRunSyntaxError(t *testing.T) {
	root := fixture(t)
	write(t, filepath.Join(root, "api", "models", "Broken.js"), "module.exports = { attributes: {\n")

	_, err := newIndexer().Run(context.Background(), root)
	if !errors.IsStructural(err) {
		t.Fatalf("expected structural error, got %v", err)
	}
}

func TestRunFatalDiagnostic(t *testing.T) {
	root := fixture(t)
	// a Marlinspike hook listed as a regular dependency is fatal
	write(t, filepath.Join(root, "package.json"), `{
  "name": "press",
  "dependencies": {"sails": "^1.5.0", "sails-hook-audit": "^1.0.0"}
}`)

	_, err := newIndexer().Run(context.Background(), root)
	if !errors.IsStructural(err) {
		t.Fatalf("expected structural error, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(root, ".types")); !os.IsNotExist(statErr) {
		t.Fatalf("a fatal diagnostic must stop before writing")
	}
}

func TestRunCountsWarnings(t *testing.T) {
	root := fixture(t)
	write(t, filepath.Join(root, "api", "services", "Legacy.js"), "exports.run = function () {};\n")

	core, logs := observer.New(zapcore.WarnLevel)
	idx := New(config.DefaultConfig())
	idx.Log = zap.New(core).Sugar()

	res, err := idx.Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Warnings != 1 {
		t.Fatalf("expected 1 warning, got %d: %v", res.Warnings, logs.All())
	}
	if logs.FilterMessageSnippet("No module.exports assignment found for Legacy").Len() != 1 {
		t.Fatalf("expected the skipped module warning, got %v", logs.All())
	}
	d, ok := res.Registry.Service("Legacy")
	if !ok || !d.Skipped {
		t.Fatalf("expected Legacy to be registered as skipped")
	}
	if _, err := os.Stat(filepath.Join(root, ".types", "services", "Legacy.ts")); err != nil {
		t.Fatalf("skipped service still gets a declaration file: %v", err)
	}
}

func TestRunDeclaresSkippedReferenceTarget(t *testing.T) {
	root := fixture(t)
	write(t, filepath.Join(root, "api", "models", "Publisher.js"), "module.exports = x;\n")

	res, err := newIndexer().Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if d, ok := res.Registry.Model("Publisher"); !ok || !d.Skipped {
		t.Fatalf("expected Publisher to be registered as skipped")
	}

	author, err := os.ReadFile(filepath.Join(root, ".types", "models", "Author.ts"))
	if err != nil {
		t.Fatalf("read Author.ts: %v", err)
	}
	for _, want := range []string{"publisher?: $PublisherInstance;", "export declare abstract class $PublisherInstance {"} {
		if !strings.Contains(string(author), want) {
			t.Errorf("Author.ts missing %q:\n%s", want, author)
		}
	}

	publisher, err := os.ReadFile(filepath.Join(root, ".types", "models", "Publisher.ts"))
	if err != nil {
		t.Fatalf("read Publisher.ts: %v", err)
	}
	if !strings.Contains(string(publisher), "id: string | number;") {
		t.Fatalf("expected an id-only Publisher declaration, got:\n%s", publisher)
	}
}

func TestRunRecordsTiming(t *testing.T) {
	root := fixture(t)
	path := filepath.Join(t.TempDir(), "timing.jsonl")
	t.Setenv(TimingEnv, path)

	if _, err := newIndexer().Run(context.Background(), root); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read timing output: %v", err)
	}
	out := string(data)
	for _, want := range []string{
		`"event":"stage","phase":"flatten"`,
		`"event":"stage","phase":"write"`,
		`"event":"source","entity":"Author","kind":"model"`,
		`"file":"` + filepath.Join(root, "api", "models", "Author.js") + `"`,
		`"event":"run"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("timing output missing %s:\n%s", want, out)
		}
	}
}
