// Package project discovers a Sails project's package manifest and the
// Marlinspike hooks installed alongside it.
package project

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/fpm-git/gabagool/internal/errors"
)

// RootOwner names the project itself when attributing source files.
const RootOwner = "root project"

// MarlinspikePackage is the dependency that marks a hook as Marlinspike-based.
const MarlinspikePackage = "marlinspike"

// Package is the subset of package.json gabagool reads.
type Package struct {
	Name            string                                 `json:"name"`
	Version         string                                 `json:"version"`
	Dependencies    *orderedmap.OrderedMap[string, string] `json:"dependencies"`
	DevDependencies *orderedmap.OrderedMap[string, string] `json:"devDependencies"`
	Sails           *SailsSection                          `json:"sails"`
}

// SailsSection is the "sails" block a hook declares in its package.json.
type SailsSection struct {
	IsHook   bool   `json:"isHook"`
	HookName string `json:"hookName"`
}

// DependencyNames lists dependency names in manifest order.
func (p *Package) DependencyNames() []string {
	return keys(p.Dependencies)
}

// DevDependencyNames lists devDependency names in manifest order.
func (p *Package) DevDependencyNames() []string {
	return keys(p.DevDependencies)
}

// Requirement returns the version range declared for name in either
// dependency list.
func (p *Package) Requirement(name string) (string, bool) {
	for _, deps := range []*orderedmap.OrderedMap[string, string]{p.Dependencies, p.DevDependencies} {
		if deps == nil {
			continue
		}
		if v, ok := deps.Get(name); ok {
			return v, true
		}
	}
	return "", false
}

// IsMarlinspikeHook reports whether the package is a Sails hook built on
// Marlinspike.
func (p *Package) IsMarlinspikeHook() bool {
	if p.Sails == nil || p.Dependencies == nil {
		return false
	}
	_, ok := p.Dependencies.Get(MarlinspikePackage)
	return ok
}

func keys(m *orderedmap.OrderedMap[string, string]) []string {
	if m == nil {
		return nil
	}
	out := make([]string, 0, m.Len())
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// ReadPackage parses the package.json at path.
func ReadPackage(path string) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pkg Package
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	return &pkg, nil
}

// Hook is an installed Marlinspike hook whose models and services join the
// project's declarations.
type Hook struct {
	// Name is the npm package name
	Name     string `json:"name"`
	HookName string `json:"hook_name"`
	Path     string `json:"path"`
	// Dev is set when the hook was installed as a devDependency
	Dev bool `json:"dev"`

	Dependencies    []string `json:"dependencies"`
	DevDependencies []string `json:"dev_dependencies"`

	// MarlinDependencies are Marlinspike hooks this hook pulls in as
	// regular dependencies
	MarlinDependencies []string `json:"marlin_dependencies"`
}

// Project is a discovered Sails project.
type Project struct {
	Root    string
	Package *Package
	Hooks   []*Hook
}

// Owner is a package root that contributes models and services.
type Owner struct {
	Name string
	Path string
}

// Owners returns the project root followed by every hook, in discovery order.
func (p *Project) Owners() []Owner {
	owners := []Owner{{Name: RootOwner, Path: p.Root}}
	for _, h := range p.Hooks {
		owners = append(owners, Owner{Name: h.Name, Path: h.Path})
	}
	return owners
}

// Discover reads <root>/package.json and, when withHooks is set, the
// package.json of every declared dependency. An uninstalled dependency is an
// error since hooks can only be detected from their installed manifests.
func Discover(root string, withHooks bool) (*Project, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve project root")
	}

	manifest := filepath.Join(root, "package.json")
	pkg, err := ReadPackage(manifest)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.WithHint(
				errors.Newf("Unable to load package.json from %s", root),
				"Ensure that this file is accessible and try again.")
		}
		return nil, errors.WithHint(
			errors.Wrap(err, "Unable to load package.json"),
			"Fix the syntax error and try again.")
	}

	p := &Project{Root: root, Package: pkg}
	if !withHooks {
		return p, nil
	}
	for _, dev := range []bool{false, true} {
		names := pkg.DependencyNames()
		if dev {
			names = pkg.DevDependencyNames()
		}
		for _, name := range names {
			hook, err := loadHook(root, name, dev)
			if err != nil {
				return nil, err
			}
			if hook != nil {
				p.Hooks = append(p.Hooks, hook)
			}
		}
	}
	return p, nil
}

func loadHook(root, name string, dev bool) (*Hook, error) {
	dir := filepath.Join(root, "node_modules", filepath.FromSlash(name))
	manifest := filepath.Join(dir, "package.json")
	pkg, err := ReadPackage(manifest)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.WithHint(
				errors.Newf("Unable to load hook information from %q!", manifest),
				"Ensure that this file is accessible, and that all dependencies have been installed via npm/yarn.")
		}
		return nil, errors.Wrapf(err, "Unable to load %s", manifest)
	}
	if !pkg.IsMarlinspikeHook() {
		return nil, nil
	}

	hook := &Hook{
		Name:            pkg.Name,
		HookName:        pkg.Sails.HookName,
		Path:            dir,
		Dev:             dev,
		Dependencies:    pkg.DependencyNames(),
		DevDependencies: pkg.DevDependencyNames(),
	}
	if hook.Name == "" {
		hook.Name = name
	}
	if hook.HookName == "" {
		hook.HookName = hook.Name
	}

	for _, dep := range hook.Dependencies {
		if dep == MarlinspikePackage {
			continue
		}
		if sub := findInstalled(root, dir, dep); sub != nil && sub.IsMarlinspikeHook() {
			hook.MarlinDependencies = append(hook.MarlinDependencies, dep)
		}
	}
	return hook, nil
}

// findInstalled looks for dep nested under the hook first, then hoisted to
// the project's node_modules. Unreadable manifests are ignored.
func findInstalled(root, hookDir, dep string) *Package {
	for _, base := range []string{hookDir, root} {
		pkg, err := ReadPackage(filepath.Join(base, "node_modules", filepath.FromSlash(dep), "package.json"))
		if err == nil {
			return pkg
		}
	}
	return nil
}

// IsPotentialHook reports whether a package name looks like a Sails hook.
func IsPotentialHook(name string) bool {
	return strings.Contains(name, "hook-") || strings.Contains(name, "-hook")
}
