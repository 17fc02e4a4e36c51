// Package vm implements the parselet VM: the Thread driving one parse,
// one frame per parselet call, and the capture/backtracking machinery
// underneath them, plus per-parse memoization and left-recursion
// seeding.
package vm

import (
	"fmt"
	"os"

	"github.com/nightjar-lang/nightjar/internal/builtin"
	"github.com/nightjar-lang/nightjar/internal/capture"
	"github.com/nightjar-lang/nightjar/internal/diag"
	"github.com/nightjar-lang/nightjar/internal/parselet"
	"github.com/nightjar-lang/nightjar/internal/program"
	"github.com/nightjar-lang/nightjar/internal/reader"
	"github.com/nightjar-lang/nightjar/internal/value"
)

// Options configures one Run call.
type Options struct {
	Debug       int // 0..3
	StepLimit   uint64
	Memo        bool
	StartOffset reader.Offset
	// Cancel, if non-nil, is polled between instructions; a closed
	// channel aborts the parse with a fatal diagnostic.
	Cancel <-chan struct{}
}

// Outcome is the result of one parse: an accepted value, or a
// rejection, either way carrying the diagnostics accumulated along the
// way.
type Outcome struct {
	Accepted    bool
	Value       value.Value
	Diagnostics diag.List
}

// Thread executes one parse of one input against one parselet.Table. It
// owns all frame/capture/memo state for that parse; nothing here is
// shared, so two parses may run concurrently as long as each has its
// own Thread.
type Thread struct {
	reader   *reader.Reader
	prog     *program.Program
	table    *parselet.Table
	opts     Options
	builtins *builtin.Registry

	memo    *memoTable
	growing map[growKey]*growState

	errs diag.List
	ffp  farthestFailure

	steps uint64

	debugDepth int
}

// farthestFailure records the deepest failing match position, for a
// default diagnostic when nothing else was reported.
type farthestFailure struct {
	valid  bool
	pos    reader.Position
	rule   string
	wanted string
}

// New constructs a Thread ready to run entry against input.
func New(table *parselet.Table, prog *program.Program, input []byte, opts Options, builtins *builtin.Registry) *Thread {
	r := reader.New(input)
	for i := reader.Offset(0); i < opts.StartOffset; i++ {
		if _, ok := r.Next(); !ok {
			break
		}
	}
	t := &Thread{
		reader:   r,
		prog:     prog,
		table:    table,
		opts:     opts,
		builtins: builtins,
	}
	if opts.Memo {
		t.memo = newMemoTable()
	}
	return t
}

// Run executes entry against the Thread's input.
func (t *Thread) Run(entry *parselet.Parselet) Outcome {
	res, err := t.safeCallTopLevel(entry)
	if err != nil {
		if exit, ok := err.(exitSignal); ok {
			return Outcome{Accepted: true, Value: exit.value, Diagnostics: t.errs}
		}
		t.reportFatal(err)
		return Outcome{Accepted: false, Diagnostics: t.errs}
	}
	if !res.ok {
		if len(t.errs) == 0 {
			t.reportFarthestFailure()
		}
		return Outcome{Accepted: false, Diagnostics: t.errs}
	}
	return Outcome{Accepted: true, Value: res.value, Diagnostics: t.errs}
}

// safeCallTopLevel recovers RuntimeError-worthy panics into a regular
// error return so a runtime fault aborts the parse instead of the
// process.
func (t *Thread) safeCallTopLevel(entry *parselet.Parselet) (callResult, error) {
	var (
		res callResult
		err error
	)
	func() {
		defer func() {
			if e := recover(); e != nil {
				switch ev := e.(type) {
				case exitSignal:
					err = ev
				case error:
					err = ev
				default:
					err = fmt.Errorf("%v", ev)
				}
			}
		}()
		res, err = t.callParselet(entry, callArgs{}, nil)
	}()
	return res, err
}

func (t *Thread) reportFatal(err error) {
	pos := t.reader.Pos()
	t.errs.Add(diag.Diagnostic{
		Row: pos.Line, Col: pos.Col, Offset: int(pos.Offset),
		Severity: diag.SeverityFatal, Message: err.Error(),
	})
}

// recordFailure tracks the deepest position at which any match attempt
// failed, used for the default "no match found" diagnostic when nothing
// more specific was raised.
func (t *Thread) recordFailure(wanted string) {
	pos := t.reader.Pos()
	if !t.ffp.valid || pos.Offset > t.ffp.pos.Offset {
		t.ffp = farthestFailure{valid: true, pos: pos, wanted: wanted}
	}
}

// raiseParseError promotes the current failure into a recorded
// diagnostic, implementing `expect`/`error()`: unlike a plain reject, the
// failure is reported even if some other alternative later succeeds.
func (t *Thread) raiseParseError() {
	pos := t.reader.Pos()
	msg := "parse error"
	if t.ffp.valid && t.ffp.wanted != "" {
		msg = fmt.Sprintf("expected %s", t.ffp.wanted)
	}
	t.errs.Add(diag.Diagnostic{
		Row: pos.Line, Col: pos.Col, Offset: int(pos.Offset),
		Severity: diag.SeverityError, Message: msg,
	})
}

// raiseExplicitParseError implements the explicit `error(msg[, consume])`
// builtin: unlike raiseParseError, the message comes
// from the script rather than the farthest-failure heuristic, and
// Consume optionally advances the reader one codepoint so a retry loop
// around the error site can't spin forever at the same offset.
func (t *Thread) raiseExplicitParseError(pe *diag.ParseError) {
	pos := t.reader.Pos()
	t.errs.Add(diag.Diagnostic{
		Row: pos.Line, Col: pos.Col, Offset: int(pos.Offset),
		Severity: diag.SeverityError, Message: pe.Message,
	})
	if pe.Consume {
		t.reader.Next()
	}
}

func (t *Thread) reportFarthestFailure() {
	if !t.ffp.valid {
		t.errs.Add(diag.Diagnostic{Message: "no match found"})
		return
	}
	msg := "no match found"
	if t.ffp.wanted != "" {
		msg = fmt.Sprintf("expected %s", t.ffp.wanted)
	}
	t.errs.Add(diag.Diagnostic{
		Row: t.ffp.pos.Line, Col: t.ffp.pos.Col, Offset: int(t.ffp.pos.Offset),
		Severity: diag.SeverityError, Message: msg,
	})
}

// Diagnostics returns every diagnostic accumulated so far; a successful
// parse may still have recorded recoverable errors.
func (t *Thread) Diagnostics() diag.List { return t.errs }

// traceCall writes one call-entry line at debug level 2+, indented by
// call depth.
func (t *Thread) traceCall(name string) {
	pos := t.reader.Pos()
	fmt.Fprintf(os.Stderr, "%*scall %s @%d:%d\n", t.debugDepth*2, "", name, pos.Line, pos.Col)
}

// traceInstr writes one executed instruction at debug level 3.
func (t *Thread) traceInstr(pc int32, ins program.Instr) {
	fmt.Fprintf(os.Stderr, "%*s[%4d] %s\n", t.debugDepth*2, "", pc, t.prog.Disasm(ins))
}

func (t *Thread) sliceFunc(span capture.Span) string {
	return string(t.reader.Slice(span.Start, span.End))
}

// exitSignal unwinds every active call up to the top-level driver,
// implementing `exit [expr]`.
type exitSignal struct {
	value value.Value
}

func (e exitSignal) Error() string { return "exit" }
