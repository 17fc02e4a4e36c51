package program

import (
	"fmt"
	"strings"

	"github.com/nightjar-lang/nightjar/internal/value"
)

// Program is the compiled instruction stream plus the pools its
// instructions index into. A single Program backs every parselet
// compiled from one source unit; parselets hold entry points into it.
type Program struct {
	Instrs []Instr

	Matchers  []Matcher
	Constants []value.Value
	Strings   []string
}

// AddMatcher interns a matcher and returns its index.
func (p *Program) AddMatcher(m Matcher) int32 {
	p.Matchers = append(p.Matchers, m)
	return int32(len(p.Matchers) - 1)
}

// AddConstant interns a constant value and returns its index.
func (p *Program) AddConstant(v value.Value) int32 {
	p.Constants = append(p.Constants, v)
	return int32(len(p.Constants) - 1)
}

// AddString interns a string (identifier/alias/emit name) and returns
// its index.
func (p *Program) AddString(s string) int32 {
	for i, existing := range p.Strings {
		if existing == s {
			return int32(i)
		}
	}
	p.Strings = append(p.Strings, s)
	return int32(len(p.Strings) - 1)
}

// Emit appends an instruction and returns its index, usable as a
// backpatch target.
func (p *Program) Emit(op Op, a, b int32) int {
	p.Instrs = append(p.Instrs, Instr{Op: op, A: a, B: b})
	return len(p.Instrs) - 1
}

// Patch overwrites the A operand of a previously emitted instruction,
// used to backpatch forward jumps once their target is known.
func (p *Program) Patch(at int, a int32) {
	p.Instrs[at].A = a
}

// Here returns the index the next Emit will land at.
func (p *Program) Here() int32 {
	return int32(len(p.Instrs))
}

// String disassembles the whole instruction stream, one line per
// instruction.
func (p *Program) String() string {
	var b strings.Builder
	for i, instr := range p.Instrs {
		fmt.Fprintf(&b, "[%4d] %s\n", i, p.instrToString(instr))
	}
	return b.String()
}

// Disasm renders one instruction with its pool operands resolved, for
// debug traces and the `build` command's listing.
func (p *Program) Disasm(ins Instr) string { return p.instrToString(ins) }

func (p *Program) instrToString(ins Instr) string {
	switch ins.Op {
	case OpMatch:
		return fmt.Sprintf("%s %s", ins.Op, p.Matchers[ins.A])
	case OpConst:
		return fmt.Sprintf("%s %s", ins.Op, p.Constants[ins.A].String())
	case OpCapAlias, OpAttr, OpCallNative, OpArgName, OpDictSet, OpAST:
		if int(ins.A) < len(p.Strings) {
			return fmt.Sprintf("%s %q", ins.Op, p.Strings[ins.A])
		}
	}
	return fmt.Sprintf("%s %d %d", ins.Op, ins.A, ins.B)
}
