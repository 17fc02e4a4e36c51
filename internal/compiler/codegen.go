package compiler

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/nightjar-lang/nightjar/internal/charclass"
	"github.com/nightjar-lang/nightjar/internal/parselet"
	"github.com/nightjar-lang/nightjar/internal/program"
	"github.com/nightjar-lang/nightjar/internal/value"
)

// Generate lowers a parsed File into a parselet.Table and a shared
// program.Program, returning the entry parselet. The file's first
// definition is the entry point; there is no dedicated start keyword.
func Generate(f *File) (*parselet.Table, *program.Program, *parselet.Parselet, error) {
	if len(f.Defs) == 0 {
		return nil, nil, nil, fmt.Errorf("no parselet definitions")
	}
	table := parselet.NewTable()
	for _, d := range f.Defs {
		table.Declare(d.Name)
	}
	consumesArr, leftRecArr := analyze(f.Defs)

	prog := &program.Program{}
	cg := &codegen{prog: prog, table: table}

	for i, d := range f.Defs {
		p := table.Get(i)
		p.Consumes = consumesArr[i]
		p.LeftRecursive = leftRecArr[i]
		p.Severity = int(capSeverityValue)
		if err := cg.compileDef(d, p); err != nil {
			return nil, nil, nil, err
		}
	}
	return table, prog, table.Get(0), nil
}

// capSeverityValue is the default severity every parselet call
// contributes to its caller's capture stack (an alias at the call site
// names the capture but does not change its severity): the capture is
// kept when it carries a value.
const capSeverityValue = 1

type codegen struct {
	prog  *program.Program
	table *parselet.Table

	scope      *scope
	pendingFail []int // instructions needing a patch to the body's fail label
	loops       []loopCtx
}

type loopCtx struct {
	stepPC          int32 // -1 if not yet known (patched via pendingContinue)
	pendingBreak    []int
	pendingContinue []int
}

// scope tracks the current parselet's local-variable slot assignment.
type scope struct {
	names []string
	index map[string]int
}

func newScope() *scope {
	return &scope{index: map[string]int{}}
}

func (s *scope) declare(name string) int {
	if idx, ok := s.index[name]; ok {
		return idx
	}
	idx := len(s.names)
	s.names = append(s.names, name)
	s.index[name] = idx
	return idx
}

func (s *scope) lookup(name string) (int, bool) {
	idx, ok := s.index[name]
	return idx, ok
}

func (cg *codegen) compileDef(d *ParseletDef, p *parselet.Parselet) error {
	cg.scope = newScope()

	for _, g := range d.Generics {
		cg.scope.declare(g.Name)
	}
	for _, a := range d.Params {
		cg.scope.declare(a.Name)
	}

	for _, g := range d.Generics {
		gd := parselet.GenericDesc{Name: g.Name, DefaultPC: parselet.NoPC}
		if g.Default != nil {
			pc := cg.prog.Here()
			if err := cg.genValue(g.Default); err != nil {
				return err
			}
			cg.prog.Emit(program.OpAccept, 0, 1)
			gd.DefaultPC = int(pc)
		}
		p.Generics = append(p.Generics, gd)
	}
	for _, a := range d.Params {
		ad := parselet.ArgDesc{Name: a.Name, DefaultPC: parselet.NoPC}
		if a.Default != nil {
			pc := cg.prog.Here()
			if err := cg.genValue(a.Default); err != nil {
				return err
			}
			cg.prog.Emit(program.OpAccept, 0, 1)
			ad.DefaultPC = int(pc)
		}
		p.Args = append(p.Args, ad)
	}

	if len(d.Begin) > 0 {
		p.BeginPC = int(cg.prog.Here())
		if err := cg.compileTopLevelBody(d.Begin); err != nil {
			return err
		}
	}

	p.MainPC = int(cg.prog.Here())
	if err := cg.compileTopLevelBody(d.Body); err != nil {
		return err
	}

	if len(d.End) > 0 {
		p.EndPC = int(cg.prog.Here())
		// The main body's result is already sitting on the expression
		// stack (call.go pushes it before entering EndPC); bind it to
		// a local so end-clause statements can refer to it by name.
		resultSlot := cg.scope.declare("_result")
		cg.prog.Emit(program.OpStoreLocal, int32(resultSlot), 0)
		if err := cg.compileTopLevelBody(d.End); err != nil {
			return err
		}
		if !endsInTerminal(d.End) {
			cg.prog.Emit(program.OpLoadLocal, int32(resultSlot), 0)
			cg.prog.Emit(program.OpAccept, 0, 1)
		}
	}

	p.Locals = len(cg.scope.names)
	return nil
}

func endsInTerminal(stmts []Stmt) bool {
	if len(stmts) == 0 {
		return false
	}
	switch stmts[len(stmts)-1].(type) {
	case *AcceptStmt, *ReturnStmt, *RejectStmt, *RepeatStmt, *ExitStmt:
		return true
	}
	return false
}

// compileTopLevelBody compiles a begin/main/end statement list as one
// self-contained segment: every control path ends in an explicit
// Accept/Reject (bodies never fall through into a neighboring
// parselet's instructions, since every parselet's code shares one flat
// Program).
func (cg *codegen) compileTopLevelBody(stmts []Stmt) error {
	savedFail := cg.pendingFail
	cg.pendingFail = nil

	for _, s := range stmts {
		if err := cg.genStmt(s); err != nil {
			return err
		}
	}
	if !endsInTerminal(stmts) {
		cg.prog.Emit(program.OpAccept, 0, 0)
	}
	failPC := cg.prog.Here()
	cg.prog.Emit(program.OpReject, 0, 0)
	for _, at := range cg.pendingFail {
		cg.prog.Patch(at, failPC)
	}

	cg.pendingFail = savedFail
	return nil
}

// emitFailJump records a forward jump to the enclosing body's fail
// label, patched once that label's address is known.
func (cg *codegen) emitFailJump() {
	at := cg.prog.Emit(program.OpJumpIfFail, -1, 0)
	cg.pendingFail = append(cg.pendingFail, at)
}

func (cg *codegen) genStmt(s Stmt) error {
	switch s := s.(type) {
	case *ExprStmt:
		if err := cg.genTerm(s.X); err != nil {
			return err
		}
		cg.emitFailJump()
		return nil

	case *AssignStmt:
		return cg.genAssign(s)

	case *AcceptStmt:
		if s.X != nil {
			if err := cg.genValue(s.X); err != nil {
				return err
			}
			cg.prog.Emit(program.OpAccept, 0, 1)
		} else {
			cg.prog.Emit(program.OpAccept, 0, 0)
		}
		return nil
	case *ReturnStmt:
		// `return` is accept-with-value by another name: the VM has no
		// separate return opcode, and the two read identically here.
		if s.X != nil {
			if err := cg.genValue(s.X); err != nil {
				return err
			}
			cg.prog.Emit(program.OpAccept, 0, 1)
		} else {
			cg.prog.Emit(program.OpAccept, 0, 0)
		}
		return nil
	case *RejectStmt:
		cg.prog.Emit(program.OpReject, 0, 0)
		return nil
	case *RepeatStmt:
		if s.X != nil {
			// A value attached to `repeat` has no seed-carrying opcode;
			// evaluate for any side effect and discard.
			if err := cg.genValue(s.X); err != nil {
				return err
			}
			cg.prog.Emit(program.OpPop, 0, 0)
		}
		cg.prog.Emit(program.OpRepeat, 0, 0)
		return nil
	case *NextStmt:
		// `next` is the loop-frame control, a synonym of `continue`.
		if len(cg.loops) == 0 {
			return fmt.Errorf("'next' outside a loop")
		}
		lp := &cg.loops[len(cg.loops)-1]
		at := cg.prog.Emit(program.OpContinue, -1, 0)
		lp.pendingContinue = append(lp.pendingContinue, at)
		return nil
	case *ExitStmt:
		if s.X != nil {
			if err := cg.genValue(s.X); err != nil {
				return err
			}
		}
		cg.prog.Emit(program.OpExit, 0, 0)
		return nil
	case *ContinueStmt:
		if len(cg.loops) == 0 {
			return fmt.Errorf("'continue' outside a loop")
		}
		lp := &cg.loops[len(cg.loops)-1]
		at := cg.prog.Emit(program.OpContinue, -1, 0)
		lp.pendingContinue = append(lp.pendingContinue, at)
		return nil
	case *BreakStmt:
		if len(cg.loops) == 0 {
			return fmt.Errorf("'break' outside a loop")
		}
		if s.X != nil {
			if err := cg.genValue(s.X); err != nil {
				return err
			}
			cg.prog.Emit(program.OpPushValueCap, 0, 0)
		}
		lp := &cg.loops[len(cg.loops)-1]
		at := cg.prog.Emit(program.OpBreak, -1, 0)
		lp.pendingBreak = append(lp.pendingBreak, at)
		return nil
	case *PushStmt:
		if err := cg.genValue(s.X); err != nil {
			return err
		}
		cg.prog.Emit(program.OpPushValueCap, 0, 0)
		return nil

	case *IfStmt:
		return cg.genIf(s)
	case *ForStmt:
		return cg.genFor(s)
	case *LoopStmt:
		return cg.genLoop(s)
	}
	return fmt.Errorf("codegen: unhandled statement %T", s)
}

// genAssign compiles x = e / x += e / etc. A "hold" assignment
// (trailing comma form) additionally contributes the assigned value to
// the enclosing sequence's capture stream; OpDup keeps a copy on the
// expression stack for that before OpStoreLocal consumes one.
func (cg *codegen) genAssign(s *AssignStmt) error {
	slot := cg.scope.declare(s.Name)

	if s.Op != "=" {
		cg.prog.Emit(program.OpLoadLocal, int32(slot), 0)
		if err := cg.genValue(s.RHS); err != nil {
			return err
		}
		cg.prog.Emit(program.OpBinOp, int32(compoundOp(s.Op)), 0)
	} else {
		if err := cg.genValue(s.RHS); err != nil {
			return err
		}
	}
	if s.Hold {
		cg.prog.Emit(program.OpDup, 0, 0)
	}
	cg.prog.Emit(program.OpStoreLocal, int32(slot), 0)
	if s.Hold {
		cg.prog.Emit(program.OpPushValueCap, 0, 0)
	}
	return nil
}

func compoundOp(op string) program.BinOp {
	switch op {
	case "+=":
		return program.BinAdd
	case "-=":
		return program.BinSub
	case "*=":
		return program.BinMul
	case "/=":
		return program.BinDiv
	case "//=":
		return program.BinFloorDiv
	case "%=":
		return program.BinMod
	}
	return program.BinAdd
}

func (cg *codegen) genIf(s *IfStmt) error {
	if err := cg.genValue(s.Cond); err != nil {
		return err
	}
	cg.prog.Emit(program.OpTest, 0, 0)
	elseJump := cg.prog.Emit(program.OpJumpIfFail, -1, 0)
	for _, st := range s.Then {
		if err := cg.genStmt(st); err != nil {
			return err
		}
	}
	endJump := cg.prog.Emit(program.OpJump, -1, 0)
	cg.prog.Patch(elseJump, cg.prog.Here())
	for _, st := range s.Else {
		if err := cg.genStmt(st); err != nil {
			return err
		}
	}
	cg.prog.Patch(endJump, cg.prog.Here())
	return nil
}

func (cg *codegen) genFor(s *ForStmt) error {
	if s.Init != nil {
		if err := cg.genHeaderStmt(s.Init); err != nil {
			return err
		}
	}
	loopBegin := cg.prog.Emit(program.OpLoopBegin, -1, 0)
	cg.loops = append(cg.loops, loopCtx{})

	loopStart := cg.prog.Here()
	var condFail int = -1
	if s.Cond != nil {
		if err := cg.genValue(s.Cond); err != nil {
			return err
		}
		cg.prog.Emit(program.OpTest, 0, 0)
		condFail = cg.prog.Emit(program.OpJumpIfFail, -1, 0)
	}
	for _, st := range s.Body {
		if err := cg.genStmt(st); err != nil {
			return err
		}
	}
	stepPC := cg.prog.Here()
	if s.Step != nil {
		if err := cg.genHeaderStmt(s.Step); err != nil {
			return err
		}
	}
	cg.prog.Emit(program.OpJump, loopStart, 0)

	condFailPC := cg.prog.Here()
	if condFail != -1 {
		cg.prog.Patch(condFail, condFailPC)
	}
	cg.prog.Emit(program.OpLoopEnd, 0, 0)
	afterLoop := cg.prog.Here()
	cg.prog.Patch(loopBegin, afterLoop)

	lp := cg.loops[len(cg.loops)-1]
	cg.loops = cg.loops[:len(cg.loops)-1]
	for _, at := range lp.pendingBreak {
		cg.prog.Patch(at, afterLoop)
	}
	for _, at := range lp.pendingContinue {
		cg.prog.Patch(at, stepPC)
	}
	return nil
}

func (cg *codegen) genLoop(s *LoopStmt) error {
	loopBegin := cg.prog.Emit(program.OpLoopBegin, -1, 0)
	cg.loops = append(cg.loops, loopCtx{})

	loopStart := cg.prog.Here()
	var condFail int = -1
	if s.Cond != nil {
		if err := cg.genValue(s.Cond); err != nil {
			return err
		}
		cg.prog.Emit(program.OpTest, 0, 0)
		condFail = cg.prog.Emit(program.OpJumpIfFail, -1, 0)
	}
	for _, st := range s.Body {
		if err := cg.genStmt(st); err != nil {
			return err
		}
	}
	cg.prog.Emit(program.OpJump, loopStart, 0)

	condFailPC := cg.prog.Here()
	if condFail != -1 {
		cg.prog.Patch(condFail, condFailPC)
	}
	cg.prog.Emit(program.OpLoopEnd, 0, 0)
	afterLoop := cg.prog.Here()
	cg.prog.Patch(loopBegin, afterLoop)

	lp := cg.loops[len(cg.loops)-1]
	cg.loops = cg.loops[:len(cg.loops)-1]
	for _, at := range lp.pendingBreak {
		cg.prog.Patch(at, afterLoop)
	}
	for _, at := range lp.pendingContinue {
		cg.prog.Patch(at, loopStart)
	}
	return nil
}

// genHeaderStmt compiles a for(;;) Init/Step slot: an AssignStmt, or a
// bare value expression evaluated and discarded.
func (cg *codegen) genHeaderStmt(s Stmt) error {
	switch s := s.(type) {
	case *AssignStmt:
		return cg.genAssign(s)
	case *ExprStmt:
		if err := cg.genValue(s.X); err != nil {
			return err
		}
		cg.prog.Emit(program.OpPop, 0, 0)
		return nil
	}
	return fmt.Errorf("codegen: invalid for-loop header statement %T", s)
}

// ---- parsing-term codegen ----

func (cg *codegen) genTerm(e Expr) error {
	switch e := e.(type) {
	case *MatchLit:
		return cg.genMatcherTerm(program.StringMatcher{Value: e.Val}, false)
	case *TouchLit:
		return cg.genMatcherTerm(program.StringMatcher{Value: e.Val}, true)
	case *CharClassLit:
		cls, err := parseCharClassLiteral(e.Raw)
		if err != nil {
			return err
		}
		return cg.genMatcherTerm(program.ClassMatcher{Class: cls}, false)
	case *AnyLit:
		return cg.genMatcherTerm(program.AnyMatcher{}, false)
	case *EOFLit:
		return cg.genMatcherTerm(program.EOFMatcher{}, false)
	case *EmptyLit:
		return cg.genMatcherTerm(program.EmptyMatcher{}, false)

	case *CapRef:
		cg.prog.Emit(program.OpCapRef, int32(e.Index), 0)
		cg.prog.Emit(program.OpPushValueCap, 0, 0)
		cg.prog.Emit(program.OpForceOk, 0, 0)
		return nil

	case *Call:
		return cg.genCallTerm(e)

	case *Alias:
		if err := cg.genTerm(e.X); err != nil {
			return err
		}
		skip := cg.prog.Emit(program.OpJumpIfFail, -1, 0)
		cg.prog.Emit(program.OpCapAlias, cg.prog.AddString(e.Name), 0)
		cg.prog.Patch(skip, cg.prog.Here())
		return nil

	case *AST:
		return cg.genASTTerm(e)

	case *Paren:
		return cg.genTerm(e.X)

	case *Sequence:
		return cg.genSequence(e)
	case *Block:
		return cg.genBlock(e)
	case *Quant:
		return cg.genQuant(e)
	case *Modifier:
		return cg.genModifier(e)
	}
	return fmt.Errorf("codegen: %T is not a parsing expression", e)
}

func (cg *codegen) genMatcherTerm(m program.Matcher, touch bool) error {
	idx := cg.prog.AddMatcher(m)
	cg.prog.Emit(program.OpPushPos, 0, 0)
	cg.prog.Emit(program.OpMatch, idx, 0)
	if touch {
		skip := cg.prog.Emit(program.OpJumpIfFail, -1, 0)
		cg.prog.Emit(program.OpCapSeverity, 0 /* SeveritySkip */, 0)
		cg.prog.Patch(skip, cg.prog.Here())
	}
	cg.prog.Emit(program.OpRestorePosIfFail, 0, 0)
	return nil
}

func (cg *codegen) genCallTerm(c *Call) error {
	if p, ok := cg.table.Lookup(c.Name); ok {
		cg.prog.Emit(program.OpArgsBegin, 0, 0)
		for _, g := range c.Generics {
			if err := cg.genValue(g); err != nil {
				return err
			}
			cg.prog.Emit(program.OpGenericArg, 0, 0)
		}
		for _, a := range c.Args {
			if err := cg.genValue(a); err != nil {
				return err
			}
			cg.prog.Emit(program.OpArgPos, 0, 0)
		}
		for _, na := range c.Named {
			if err := cg.genValue(na.Val); err != nil {
				return err
			}
			cg.prog.Emit(program.OpArgName, cg.prog.AddString(na.Name), 0)
		}
		cg.prog.Emit(program.OpCallRule, int32(p.Index), 0)
		return nil
	}

	if len(c.Named) > 0 {
		return fmt.Errorf("native function %q does not accept named arguments", c.Name)
	}
	if len(c.Generics) > 0 {
		return fmt.Errorf("native function %q does not accept generic arguments", c.Name)
	}
	for _, a := range c.Args {
		if err := cg.genValue(a); err != nil {
			return err
		}
	}
	cg.prog.Emit(program.OpCallNative, cg.prog.AddString(c.Name), int32(len(c.Args)))
	cg.prog.Emit(program.OpPushValueCap, 0, 0)
	cg.prog.Emit(program.OpForceOk, 0, 0)
	return nil
}

func (cg *codegen) genASTTerm(a *AST) error {
	if a.Value == nil {
		cg.prog.Emit(program.OpAST, cg.prog.AddString(a.Emit), 0)
	} else {
		if err := cg.genValue(a.Value); err != nil {
			return err
		}
		cg.prog.Emit(program.OpAST, cg.prog.AddString(a.Emit), 1)
	}
	cg.prog.Emit(program.OpPushValueCap, 0, 0)
	cg.prog.Emit(program.OpForceOk, 0, 0)
	return nil
}

func (cg *codegen) genSequence(s *Sequence) error {
	cg.prog.Emit(program.OpPushPos, 0, 0)
	cg.prog.Emit(program.OpCapMark, 0, 0)
	var fails []int
	for _, item := range s.Items {
		if err := cg.genTerm(item); err != nil {
			return err
		}
		fails = append(fails, cg.prog.Emit(program.OpJumpIfFail, -1, 0))
	}
	cg.prog.Emit(program.OpPopPos, 0, 0)
	cg.prog.Emit(program.OpCapCollect, 0, 0)
	done := cg.prog.Emit(program.OpJump, -1, 0)

	failPC := cg.prog.Here()
	for _, at := range fails {
		cg.prog.Patch(at, failPC)
	}
	cg.prog.Emit(program.OpCapDiscard, 0, 0)
	cg.prog.Emit(program.OpRestorePos, 0, 0)

	cg.prog.Patch(done, cg.prog.Here())
	return nil
}

func (cg *codegen) genBlock(b *Block) error {
	var dones []int
	for i, alt := range b.Alts {
		if err := cg.genTerm(alt); err != nil {
			return err
		}
		if i < len(b.Alts)-1 {
			dones = append(dones, cg.prog.Emit(program.OpJumpIfOk, -1, 0))
		}
	}
	end := cg.prog.Here()
	for _, at := range dones {
		cg.prog.Patch(at, end)
	}
	return nil
}

func (cg *codegen) genQuant(q *Quant) error {
	switch q.Kind {
	case '?':
		if err := cg.genTerm(q.X); err != nil {
			return err
		}
		ok := cg.prog.Emit(program.OpJumpIfOk, -1, 0)
		cg.prog.Emit(program.OpForceOk, 0, 0)
		cg.prog.Patch(ok, cg.prog.Here())
		return nil
	case '*':
		// Each iteration is bracketed by OpPushPos/OpJumpIfMoved so an
		// iteration that matched without consuming ends the loop instead
		// of spinning at the same offset forever, and by OpCapMark so
		// OpQuantAppend only ever takes a capture this iteration produced.
		cg.prog.Emit(program.OpQuantStart, 0, 0)
		loop := cg.prog.Here()
		cg.prog.Emit(program.OpPushPos, 0, 0)
		cg.prog.Emit(program.OpCapMark, 0, 0)
		if err := cg.genTerm(q.X); err != nil {
			return err
		}
		fail := cg.prog.Emit(program.OpJumpIfFail, -1, 0)
		cg.prog.Emit(program.OpQuantAppend, 0, 0)
		cg.prog.Emit(program.OpJumpIfMoved, loop, 0)
		done := cg.prog.Emit(program.OpJump, -1, 0)
		cg.prog.Patch(fail, cg.prog.Here())
		cg.prog.Emit(program.OpCapDiscard, 0, 0)
		cg.prog.Emit(program.OpPopPos, 0, 0)
		cg.prog.Patch(done, cg.prog.Here())
		cg.prog.Emit(program.OpQuantFinish, 0, 0)
		cg.prog.Emit(program.OpForceOk, 0, 0)
		return nil
	case '+':
		// OpQuantStart precedes the first iteration so the finished list
		// capture's range covers every iteration, the first included.
		cg.prog.Emit(program.OpQuantStart, 0, 0)
		cg.prog.Emit(program.OpPushPos, 0, 0)
		cg.prog.Emit(program.OpCapMark, 0, 0)
		if err := cg.genTerm(q.X); err != nil {
			return err
		}
		hardFail := cg.prog.Emit(program.OpJumpIfFail, -1, 0)
		cg.prog.Emit(program.OpQuantAppend, 0, 0)
		moved := cg.prog.Emit(program.OpJumpIfMoved, -1, 0)
		finish0 := cg.prog.Emit(program.OpJump, -1, 0)
		loop := cg.prog.Here()
		cg.prog.Patch(moved, loop)
		cg.prog.Emit(program.OpPushPos, 0, 0)
		cg.prog.Emit(program.OpCapMark, 0, 0)
		if err := cg.genTerm(q.X); err != nil {
			return err
		}
		fail := cg.prog.Emit(program.OpJumpIfFail, -1, 0)
		cg.prog.Emit(program.OpQuantAppend, 0, 0)
		cg.prog.Emit(program.OpJumpIfMoved, loop, 0)
		finish1 := cg.prog.Emit(program.OpJump, -1, 0)
		cg.prog.Patch(fail, cg.prog.Here())
		cg.prog.Emit(program.OpCapDiscard, 0, 0)
		cg.prog.Emit(program.OpPopPos, 0, 0)
		cg.prog.Patch(finish0, cg.prog.Here())
		cg.prog.Patch(finish1, cg.prog.Here())
		cg.prog.Emit(program.OpQuantFinish, 0, 0)
		cg.prog.Emit(program.OpForceOk, 0, 0)
		done := cg.prog.Emit(program.OpJump, -1, 0)
		cg.prog.Patch(hardFail, cg.prog.Here())
		cg.prog.Emit(program.OpCapDiscard, 0, 0)
		cg.prog.Emit(program.OpPopPos, 0, 0)
		// Drop the unused accumulator: finish it above a fresh mark and
		// discard back to that mark (ok stays false).
		cg.prog.Emit(program.OpCapMark, 0, 0)
		cg.prog.Emit(program.OpQuantFinish, 0, 0)
		cg.prog.Emit(program.OpCapDiscard, 0, 0)
		cg.prog.Patch(done, cg.prog.Here())
		return nil
	}
	return fmt.Errorf("codegen: unknown quantifier %q", q.Kind)
}

func (cg *codegen) genModifier(m *Modifier) error {
	switch m.Kind {
	case "peek":
		// Position is always restored; the child's collected result is
		// kept on success (peek's value is its child's value).
		cg.prog.Emit(program.OpPushPos, 0, 0)
		cg.prog.Emit(program.OpCapMark, 0, 0)
		if err := cg.genTerm(m.X); err != nil {
			return err
		}
		fail := cg.prog.Emit(program.OpJumpIfFail, -1, 0)
		cg.prog.Emit(program.OpCapCollect, 0, 0)
		done := cg.prog.Emit(program.OpJump, -1, 0)
		cg.prog.Patch(fail, cg.prog.Here())
		cg.prog.Emit(program.OpCapDiscard, 0, 0)
		cg.prog.Patch(done, cg.prog.Here())
		cg.prog.Emit(program.OpRestorePos, 0, 0)
		return nil
	case "not":
		cg.prog.Emit(program.OpPushPos, 0, 0)
		cg.prog.Emit(program.OpCapMark, 0, 0)
		if err := cg.genTerm(m.X); err != nil {
			return err
		}
		cg.prog.Emit(program.OpCapDiscard, 0, 0)
		cg.prog.Emit(program.OpRestorePos, 0, 0)
		cg.prog.Emit(program.OpInvert, 0, 0)
		return nil
	case "expect":
		if err := cg.genTerm(m.X); err != nil {
			return err
		}
		done := cg.prog.Emit(program.OpJumpIfOk, -1, 0)
		cg.prog.Emit(program.OpRaise, 0, 0)
		cg.prog.Patch(done, cg.prog.Here())
		return nil
	}
	return fmt.Errorf("codegen: unknown modifier %q", m.Kind)
}

// ---- value-expression codegen ----

func (cg *codegen) genValue(e Expr) error {
	switch e := e.(type) {
	case *IntLit:
		z, ok := new(big.Int).SetString(e.Val, 10)
		if !ok {
			return fmt.Errorf("codegen: invalid integer literal %q", e.Val)
		}
		cg.prog.Emit(program.OpConst, cg.prog.AddConstant(value.Int{V: z}), 0)
		return nil
	case *FloatLit:
		f, err := strconv.ParseFloat(e.Val, 64)
		if err != nil {
			return fmt.Errorf("codegen: invalid float literal %q: %w", e.Val, err)
		}
		cg.prog.Emit(program.OpConst, cg.prog.AddConstant(value.Float(f)), 0)
		return nil
	case *MatchLit:
		cg.prog.Emit(program.OpConst, cg.prog.AddConstant(value.Str(e.Val)), 0)
		return nil
	case *TouchLit:
		cg.prog.Emit(program.OpConst, cg.prog.AddConstant(value.Str(e.Val)), 0)
		return nil
	case *Ident:
		idx, ok := cg.scope.lookup(e.Name)
		if !ok {
			return fmt.Errorf("codegen: undefined variable %q", e.Name)
		}
		cg.prog.Emit(program.OpLoadLocal, int32(idx), 0)
		return nil
	case *CapRef:
		cg.prog.Emit(program.OpCapRef, int32(e.Index), 0)
		return nil
	case *Call:
		if _, ok := cg.table.Lookup(e.Name); ok {
			return fmt.Errorf("codegen: parselet %q cannot be called from a value expression; use it as a parsing term", e.Name)
		}
		if len(e.Named) > 0 {
			return fmt.Errorf("native function %q does not accept named arguments", e.Name)
		}
		if len(e.Generics) > 0 {
			return fmt.Errorf("native function %q does not accept generic arguments", e.Name)
		}
		for _, a := range e.Args {
			if err := cg.genValue(a); err != nil {
				return err
			}
		}
		cg.prog.Emit(program.OpCallNative, cg.prog.AddString(e.Name), int32(len(e.Args)))
		return nil
	case *Paren:
		return cg.genValue(e.X)
	case *ListLit:
		for _, it := range e.Items {
			if err := cg.genValue(it); err != nil {
				return err
			}
		}
		cg.prog.Emit(program.OpMakeList, int32(len(e.Items)), 0)
		return nil
	case *DictLit:
		cg.prog.Emit(program.OpMakeDict, 0, 0)
		for i, k := range e.Keys {
			if err := cg.genValue(e.Vals[i]); err != nil {
				return err
			}
			cg.prog.Emit(program.OpDictSet, cg.prog.AddString(k), 0)
		}
		return nil
	case *BinExpr:
		if err := cg.genValue(e.X); err != nil {
			return err
		}
		if err := cg.genValue(e.Y); err != nil {
			return err
		}
		op, err := binOpFor(e.Op)
		if err != nil {
			return err
		}
		cg.prog.Emit(program.OpBinOp, int32(op), 0)
		return nil
	case *UnExpr:
		if err := cg.genValue(e.X); err != nil {
			return err
		}
		var op program.UnOp
		switch e.Op {
		case "-":
			op = program.UnNeg
		case "!":
			op = program.UnNot
		default:
			return fmt.Errorf("codegen: unknown unary operator %q", e.Op)
		}
		cg.prog.Emit(program.OpUnOp, int32(op), 0)
		return nil
	case *IndexExpr:
		if err := cg.genValue(e.X); err != nil {
			return err
		}
		if err := cg.genValue(e.Idx); err != nil {
			return err
		}
		cg.prog.Emit(program.OpIndex, 0, 0)
		return nil
	case *AttrExpr:
		if err := cg.genValue(e.X); err != nil {
			return err
		}
		cg.prog.Emit(program.OpAttr, cg.prog.AddString(e.Name), 0)
		return nil
	}
	return fmt.Errorf("codegen: %T is not a value expression", e)
}

func binOpFor(op string) (program.BinOp, error) {
	switch op {
	case "+":
		return program.BinAdd, nil
	case "-":
		return program.BinSub, nil
	case "*":
		return program.BinMul, nil
	case "/":
		return program.BinDiv, nil
	case "//":
		return program.BinFloorDiv, nil
	case "%":
		return program.BinMod, nil
	case "==":
		return program.BinEq, nil
	case "!=":
		return program.BinNe, nil
	case "<":
		return program.BinLt, nil
	case "<=":
		return program.BinLe, nil
	case ">":
		return program.BinGt, nil
	case ">=":
		return program.BinGe, nil
	case "and":
		return program.BinAnd, nil
	case "or":
		return program.BinOr, nil
	}
	return 0, fmt.Errorf("codegen: unknown binary operator %q", op)
}

// parseCharClassLiteral interprets a bracket expression's raw text (the
// substring between "[" and "]") into a charclass.Class: an optional
// leading "^" inverts the class; "a-z" is a range; "\xHH"/"\n"/"\t"/"\r"
// escape a single code point; "\p{Name}" names a Unicode category,
// script, or property, resolved by internal/charclass.
func parseCharClassLiteral(raw string) (*charclass.Class, error) {
	rs := []rune(raw)
	inverted := false
	i := 0
	if len(rs) > 0 && rs[0] == '^' {
		inverted = true
		i = 1
	}
	var ranges []charclass.Range
	var classNames []string

	readEscaped := func() (rune, error) {
		c := rs[i]
		i++
		switch c {
		case 'n':
			return '\n', nil
		case 't':
			return '\t', nil
		case 'r':
			return '\r', nil
		case 'x':
			if i+2 > len(rs) {
				return 0, fmt.Errorf("invalid \\x escape in character class")
			}
			v, err := strconv.ParseUint(string(rs[i:i+2]), 16, 8)
			if err != nil {
				return 0, fmt.Errorf("invalid \\x escape in character class: %w", err)
			}
			i += 2
			return rune(v), nil
		default:
			return c, nil
		}
	}

	for i < len(rs) {
		if rs[i] == '\\' && i+2 < len(rs) && rs[i+1] == 'p' && rs[i+2] == '{' {
			j := i + 3
			for j < len(rs) && rs[j] != '}' {
				j++
			}
			if j == len(rs) {
				return nil, fmt.Errorf("unterminated \\p{...} in character class")
			}
			classNames = append(classNames, string(rs[i+3:j]))
			i = j + 1
			continue
		}
		var lo rune
		var err error
		if rs[i] == '\\' {
			i++
			lo, err = readEscaped()
		} else {
			lo = rs[i]
			i++
		}
		if err != nil {
			return nil, err
		}
		if i+1 < len(rs) && rs[i] == '-' {
			i++ // consume '-'
			var hi rune
			if rs[i] == '\\' {
				i++
				hi, err = readEscaped()
				if err != nil {
					return nil, err
				}
			} else {
				hi = rs[i]
				i++
			}
			if hi < lo {
				return nil, fmt.Errorf("invalid character class range %c-%c", lo, hi)
			}
			ranges = append(ranges, charclass.Range{Lo: lo, Hi: hi})
			continue
		}
		ranges = append(ranges, charclass.Range{Lo: lo, Hi: lo})
	}

	return charclass.New(ranges, classNames, inverted)
}
