package synth

import (
	"embed"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fpm-git/gabagool/internal/entity"
	"github.com/fpm-git/gabagool/internal/errors"
)

//go:embed templates/*
var templates embed.FS

const generatedHeader = "// Code generated by gabagool. DO NOT EDIT.\n"

// Write replaces outDir with the static templates, globals.d.ts and one
// linked declaration file per generated entity. It returns the written paths
// in write order. A failure part way leaves a partial tree behind.
func (s *Synthesizer) Write(outDir string) ([]string, error) {
	if err := checkNotProject(outDir); err != nil {
		return nil, err
	}
	if err := os.RemoveAll(outDir); err != nil {
		return nil, errors.Wrapf(err, "failed to clear output directory %s", outDir)
	}
	for _, sub := range []string{"sails", "models", "services"} {
		if err := os.MkdirAll(filepath.Join(outDir, sub), 0o755); err != nil {
			return nil, errors.Wrapf(err, "failed to create output directory %s", sub)
		}
	}

	var written []string
	write := func(rel string, content []byte) error {
		path := filepath.Join(outDir, rel)
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return errors.Wrapf(err, "failed to write %s", path)
		}
		written = append(written, path)
		return nil
	}

	entries, err := fs.ReadDir(templates, "templates")
	if err != nil {
		return nil, errors.Wrap(err, "failed to read embedded templates")
	}
	for _, e := range entries {
		content, err := templates.ReadFile("templates/" + e.Name())
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read template %s", e.Name())
		}
		if err := write(filepath.Join("sails", e.Name()), content); err != nil {
			return nil, err
		}
	}

	if err := write("globals.d.ts", []byte(generatedHeader+s.Global())); err != nil {
		return nil, err
	}

	for _, d := range s.registry.All() {
		dir := "services"
		if d.Kind == entity.KindModel {
			dir = "models"
		}
		if err := write(filepath.Join(dir, d.Name+".ts"), []byte(generatedHeader+d.Declarations.Linked)); err != nil {
			return nil, err
		}
	}

	s.log.Debugw("Wrote declaration tree", "output", outDir, "count", len(written))
	return written, nil
}

// projectMarkers are entries that never appear in a declaration tree.
var projectMarkers = []string{"package.json", "api", "node_modules"}

// CheckOutputDir rejects an output directory that Write would be unsafe to
// clear: the project root, any directory above it, or a directory holding
// project files.
func CheckOutputDir(root, outDir string) error {
	root, outDir = filepath.Clean(root), filepath.Clean(outDir)
	rel, err := filepath.Rel(outDir, root)
	if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return errors.WithHint(
			errors.Structuralf("Output directory %s contains the project root %s", outDir, root),
			"Set output.dir (or --out) to a dedicated directory such as .types.")
	}
	return checkNotProject(outDir)
}

func checkNotProject(outDir string) error {
	for _, marker := range projectMarkers {
		if _, err := os.Stat(filepath.Join(outDir, marker)); err == nil {
			return errors.WithHint(
				errors.Structuralf("Output directory %s holds %s and looks like a project, refusing to clear it", outDir, marker),
				"Set output.dir (or --out) to a dedicated directory such as .types.")
		}
	}
	return nil
}

type jsConfig struct {
	CompilerOptions jsCompilerOptions `json:"compilerOptions"`
	Include         []string          `json:"include"`
	Exclude         []string          `json:"exclude"`
}

type jsCompilerOptions struct {
	Target string `json:"target"`
}

// JSConfig renders the jsconfig.json that points editors at globals.d.ts.
// outRel is the output directory relative to the project root.
func JSConfig(outRel string) ([]byte, error) {
	cfg := jsConfig{
		CompilerOptions: jsCompilerOptions{Target: "es2017"},
		Include:         []string{"./" + filepath.ToSlash(filepath.Join(outRel, "globals.d.ts")), "**/*.js"},
		Exclude:         []string{"node_modules"},
	}
	return json.Marshal(cfg)
}

// WriteJSConfig creates <root>/jsconfig.json unless one already exists. It
// reports whether a file was written.
func WriteJSConfig(root, outRel string) (bool, error) {
	path := filepath.Join(root, "jsconfig.json")
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, errors.Wrapf(err, "failed to stat %s", path)
	}

	data, err := JSConfig(outRel)
	if err != nil {
		return false, errors.Wrap(err, "failed to encode jsconfig.json")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, errors.Wrapf(err, "failed to write %s", path)
	}
	return true, nil
}
