package project

import (
	"path/filepath"
	"strings"

	"github.com/fpm-git/gabagool/internal/config"
	"github.com/fpm-git/gabagool/internal/entity"
)

// Source is one model or service file and the package that contributed it.
type Source struct {
	Path  string
	Name  string
	Kind  entity.Kind
	Owner string
}

// Collect lists the model and service files of the project and its hooks.
// Each owner's models precede its services; the project root comes first.
func (p *Project) Collect(cfg *config.Config) ([]Source, error) {
	var out []Source
	for _, owner := range p.Owners() {
		files, err := cfg.ResolveSources(owner.Path)
		if err != nil {
			return nil, err
		}
		for _, path := range files.Models {
			out = append(out, newSource(path, entity.KindModel, owner.Name))
		}
		for _, path := range files.Services {
			out = append(out, newSource(path, entity.KindService, owner.Name))
		}
	}
	return out, nil
}

func newSource(path string, kind entity.Kind, owner string) Source {
	base := filepath.Base(path)
	return Source{
		Path:  path,
		Name:  strings.TrimSuffix(base, filepath.Ext(base)),
		Kind:  kind,
		Owner: owner,
	}
}

// Descriptor creates the empty descriptor the flattener fills for s.
func (s Source) Descriptor() *entity.Descriptor {
	d := entity.New(s.Name, s.Path, s.Kind)
	d.Owner = s.Owner
	return d
}
