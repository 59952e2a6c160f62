// Package validator checks flattened descriptors against an embedded CUE
// contract before they reach type resolution.
package validator

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/fpm-git/gabagool/internal/entity"
	"github.com/fpm-git/gabagool/internal/errors"
)

//go:embed descriptor.cue
var descriptorSchema []byte

// Validator validates descriptor registries against the CUE contract.
type Validator struct {
	ctx    *cue.Context
	schema cue.Value
}

// New compiles the embedded schema.
func New() (*Validator, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(descriptorSchema)
	if schema.Err() != nil {
		return nil, errors.Wrap(schema.Err(), "compiling descriptor schema")
	}

	return &Validator{ctx: ctx, schema: schema}, nil
}

// RegistryPayload is the JSON shape validated against #Registry.
type RegistryPayload struct {
	Models   []*entity.Descriptor `json:"models"`
	Services []*entity.Descriptor `json:"services"`
}

// Payload builds the #Registry payload for reg.
func Payload(reg *entity.Registry) RegistryPayload {
	p := RegistryPayload{Models: reg.Models(), Services: reg.Services()}
	if p.Models == nil {
		p.Models = []*entity.Descriptor{}
	}
	if p.Services == nil {
		p.Services = []*entity.Descriptor{}
	}
	return p
}

// ValidateRegistry checks every descriptor in reg. A violation is a
// structural error carrying each CUE error as detail.
func (v *Validator) ValidateRegistry(reg *entity.Registry) error {
	data, err := json.Marshal(Payload(reg))
	if err != nil {
		return errors.Wrap(err, "marshaling registry to JSON")
	}

	errs := v.validate(data, "#Registry")
	if len(errs) == 0 {
		return nil
	}

	err = errors.Structuralf("Flattened descriptors violate the descriptor contract: %s", errs[0])
	for _, detail := range errs[1:] {
		err = errors.WithDetail(err, detail)
	}
	return err
}

// ValidateJSON validates JSON bytes against a schema definition such as
// "#Descriptor".
func (v *Validator) ValidateJSON(data []byte, definition string) error {
	if errs := v.validate(data, definition); len(errs) > 0 {
		return errors.Newf("schema validation failed: %s", errs[0])
	}
	return nil
}

func (v *Validator) validate(data []byte, definition string) []string {
	dataValue := v.ctx.CompileBytes(data)
	if dataValue.Err() != nil {
		return []string{fmt.Sprintf("compile error: %v", dataValue.Err())}
	}

	def := v.schema.LookupPath(cue.ParsePath(definition))
	if def.Err() != nil {
		return []string{fmt.Sprintf("schema lookup error: %v", def.Err())}
	}

	unified := def.Unify(dataValue)
	err := unified.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var out []string
	for _, e := range cueerrors.Errors(err) {
		out = append(out, e.Error())
	}
	return out
}
