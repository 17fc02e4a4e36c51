// Package diag implements the three-tier error taxonomy a parse raises
// (compile-time, parse-time, runtime) and the diagnostic list a run
// accumulates: errors collect into a list, are deduplicated by message,
// and join into one error for display.
package diag

import (
	"bytes"
	"fmt"
)

// Severity classifies a Diagnostic.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

// Diagnostic is the unit of user-visible output, localized to a
// position and formatted with a textual excerpt when available.
type Diagnostic struct {
	Row, Col int
	Offset   int
	Severity Severity
	Message  string
	Excerpt  string
}

func (d Diagnostic) Error() string {
	if d.Excerpt != "" {
		return fmt.Sprintf("%d:%d: %s\n  %s", d.Row, d.Col, d.Message, d.Excerpt)
	}
	return fmt.Sprintf("%d:%d: %s", d.Row, d.Col, d.Message)
}

// CompileError reports bad syntax, an unresolved identifier, a duplicate
// constant, or an invalid character class at compile time.
type CompileError struct {
	Diagnostic
}

func (e *CompileError) Error() string { return "compile error: " + e.Diagnostic.Error() }

// ParseError is raised by `expect`, or by `error(msg)`/`error(msg, true)`,
// and surfaces with position information once it escapes every enclosing
// non-peek alternation boundary.
type ParseError struct {
	Diagnostic
	// Consume indicates error(msg, true) semantics: the current
	// character must be consumed to avoid an infinite loop at the error
	// site.
	Consume bool
}

func (e *ParseError) Error() string { return "parse error: " + e.Diagnostic.Error() }

// RuntimeError reports a type mismatch, index/key error, division by
// zero, stack exhaustion, step-limit overrun or cancellation — fatal to
// the current parse.
type RuntimeError struct {
	Diagnostic
	Cause error
}

func (e *RuntimeError) Error() string {
	if e.Cause != nil {
		return "runtime error: " + e.Diagnostic.Error() + ": " + e.Cause.Error()
	}
	return "runtime error: " + e.Diagnostic.Error()
}

func (e *RuntimeError) Unwrap() error { return e.Cause }

// List accumulates diagnostics across a parse and implements error so it
// can be returned directly.
type List []Diagnostic

// Add appends a diagnostic.
func (l *List) Add(d Diagnostic) {
	*l = append(*l, d)
}

// Err returns the list as an error (deduplicated by message), or nil if
// empty.
func (l List) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l.dedupe()
}

// dedupe removes diagnostics with a duplicate message, preserving the
// first occurrence's position.
func (l List) dedupe() List {
	seen := make(map[string]bool, len(l))
	out := make(List, 0, len(l))
	for _, d := range l {
		if seen[d.Message] {
			continue
		}
		seen[d.Message] = true
		out = append(out, d)
	}
	return out
}

// Error implements the error interface by joining every diagnostic on
// its own line.
func (l List) Error() string {
	var buf bytes.Buffer
	for i, d := range l {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(d.Error())
	}
	return buf.String()
}
