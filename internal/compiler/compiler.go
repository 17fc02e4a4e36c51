package compiler

import (
	"fmt"

	"github.com/nightjar-lang/nightjar/internal/diag"
	"github.com/nightjar-lang/nightjar/internal/parselet"
	"github.com/nightjar-lang/nightjar/internal/program"
)

// Compiled is the output of compiling one source file: the table of
// parselets it defines, the shared instruction stream their bodies
// index into, and the entry parselet a run starts from.
type Compiled struct {
	Table   *parselet.Table
	Program *program.Program
	Entry   *parselet.Parselet
}

// Compile lexes, parses, analyzes and lowers src into a Compiled unit.
// The first parselet defined in src is taken as the entry point — the
// source has no dedicated "main"/"start" keyword, so definition order
// is the only signal available, the same convention a single-rule
// grammar file implies by construction.
func Compile(filename string, src []byte) (*Compiled, error) {
	file, err := Parse(src)
	if err != nil {
		return nil, &diag.CompileError{Diagnostic: diag.Diagnostic{
			Severity: diag.SeverityError,
			Message:  fmt.Sprintf("%s: %v", filename, err),
		}}
	}

	table, prog, entry, err := Generate(file)
	if err != nil {
		return nil, &diag.CompileError{Diagnostic: diag.Diagnostic{
			Severity: diag.SeverityError,
			Message:  fmt.Sprintf("%s: %v", filename, err),
		}}
	}

	return &Compiled{Table: table, Program: prog, Entry: entry}, nil
}
