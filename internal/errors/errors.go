// Package errors provides error handling for gabagool.
//
// This package re-exports github.com/cockroachdb/errors so the rest of the
// module gets stack traces, hints and details through one import.
//
// Usage:
//
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	return errors.WithHint(err, "run npm install first")
package errors

import (
	"fmt"

	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is           = crdb.Is
	As           = crdb.As
	Mark         = crdb.Mark
	Unwrap       = crdb.Unwrap
	UnwrapAll    = crdb.UnwrapAll
	GetAllHints  = crdb.GetAllHints
	FlattenHints = crdb.FlattenHints
)

// ErrStructural marks errors that make a project's declarations impossible to
// generate: duplicate identities, missing or invalid attribute types, unresolved
// references, unparsable sources. A run that hits one stops.
var ErrStructural = New("structural error")

// Structuralf builds a descriptive error marked with ErrStructural. The message
// is kept exactly as formatted so it can be shown to the user unmodified.
func Structuralf(format string, args ...interface{}) error {
	return Mark(crdb.NewWithDepth(1, fmt.Sprintf(format, args...)), ErrStructural)
}

// IsStructural reports whether err is or wraps a structural error.
func IsStructural(err error) bool {
	return err != nil && Is(err, ErrStructural)
}
