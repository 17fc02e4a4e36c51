// Package capture implements the typed capture slot produced by every
// parser step, and the AST collection rule a completed sequence applies
// to its captures.
package capture

import (
	"github.com/nightjar-lang/nightjar/internal/reader"
	"github.com/nightjar-lang/nightjar/internal/value"
)

// Span is a half-open byte range in the input, [Start, End).
type Span struct {
	Start, End reader.Offset
}

// Severity controls whether a Capture is collected into the enclosing
// result.
type Severity uint8

const (
	// SeveritySkip drops the capture entirely.
	SeveritySkip Severity = 0
	// SeverityValue keeps the capture only when it carries a value.
	SeverityValue Severity = 1
	// SeverityKeep always keeps the capture.
	SeverityKeep Severity = 2
	// SeverityCollected and above are always collected regardless of
	// whether a value is present.
	SeverityCollected Severity = 5
)

// Capture is a slot produced by any parser step: a range in the input,
// an optional literal value, and an optional alias.
//
// A capture may be value-only (HasRange=false) when produced by a script
// expression (e.g. `push expr`), or range-only (HasValue=false) when
// produced by a plain consuming token.
type Capture struct {
	Range    Span
	HasRange bool
	Value    value.Value
	HasValue bool
	Alias    string
	Severity Severity
}

// FromRange constructs a range-only capture from a consuming token match.
func FromRange(span Span) Capture {
	return Capture{Range: span, HasRange: true, Severity: SeverityKeep}
}

// FromValue constructs a value-only capture, e.g. from `push expr`.
func FromValue(v value.Value) Capture {
	return Capture{Value: v, HasValue: true, Severity: SeverityValue}
}

// WithAlias returns a copy of c with the alias assigned, used by the
// `name => expr` / `alias =>` syntax before collection.
func (c Capture) WithAlias(alias string) Capture {
	c.Alias = alias
	return c
}

// WithSeverity returns a copy of c with the severity overridden.
func (c Capture) WithSeverity(s Severity) Capture {
	c.Severity = s
	return c
}

// HasAlias reports whether this capture was explicitly aliased.
func (c Capture) HasAlias() bool {
	return c.Alias != ""
}
