package vm

import (
	"fmt"

	"github.com/nightjar-lang/nightjar/internal/capture"
	"github.com/nightjar-lang/nightjar/internal/diag"
	"github.com/nightjar-lang/nightjar/internal/parselet"
	"github.com/nightjar-lang/nightjar/internal/program"
	"github.com/nightjar-lang/nightjar/internal/reader"
	"github.com/nightjar-lang/nightjar/internal/value"
)

// loopFrame tracks one active for/loop statement's end target. The
// jump targets of `break`/`continue` are compiled into their own
// instructions.
type loopFrame struct {
	endTarget int32
}

// frame is the mutable state of one parselet call: its bound locals and
// the stacks its compiled body pushes and pops while running. Every
// stack here is call-local: a Thread recurses through callParselet at
// every OpCallRule, so each call gets its own frame rather than sharing
// thread-wide stacks.
type frame struct {
	p      *parselet.Parselet
	locals []value.Value

	capStack   []capture.Capture
	markStack  []int
	exprStack  []value.Value
	quantStack [][]value.Value
	quantPos   []reader.Offset
	loopStack  []loopFrame
	posStack   []reader.Offset

	pendingArgs     callArgs
	pendingGenerics []value.Value
}

func newFrame(p *parselet.Parselet) *frame {
	return &frame{p: p, locals: make([]value.Value, p.Locals)}
}

func (fr *frame) popExpr() value.Value {
	n := len(fr.exprStack) - 1
	v := fr.exprStack[n]
	fr.exprStack = fr.exprStack[:n]
	return v
}

// bodyKind classifies how a runBody invocation ended.
type bodyKind int

const (
	bodyAccept bodyKind = iota
	bodyReject
	bodyRepeat
)

type bodyResult struct {
	kind  bodyKind
	value value.Value
}

// runBody executes instructions starting at pc until it hits a statement
// opcode that ends the segment (accept/reject/repeat), or an `exit`,
// which unwinds every active call via exitSignal. Falling off the end of
// the instruction stream without hitting one of those is treated as an
// implicit accept of whatever is on the capture stack.
func (t *Thread) runBody(fr *frame, pc int32) (bodyResult, error) {
	ok := true
	for {
		t.steps++
		if t.opts.StepLimit != 0 && t.steps > t.opts.StepLimit {
			return bodyResult{}, fmt.Errorf("step limit exceeded")
		}
		select {
		case <-t.opts.Cancel:
			return bodyResult{}, fmt.Errorf("parse canceled")
		default:
		}

		if int(pc) >= len(t.prog.Instrs) {
			return bodyResult{kind: bodyAccept, value: t.collectFrame(fr)}, nil
		}
		instr := t.prog.Instrs[pc]
		if t.opts.Debug >= 3 {
			t.traceInstr(pc, instr)
		}

		switch instr.Op {
		case program.OpNop:
			pc++

		case program.OpMatch:
			m := t.prog.Matchers[instr.A]
			start := t.reader.Mark()
			if m.Match(t.reader) {
				end := t.reader.Mark()
				fr.capStack = append(fr.capStack, capture.FromRange(capture.Span{Start: start, End: end}))
				ok = true
			} else {
				t.recordFailure(m.String())
				ok = false
			}
			pc++

		case program.OpCallRule:
			callee := t.table.Get(int(instr.A))
			args := fr.pendingArgs
			fr.pendingArgs = callArgs{}
			generics := fr.pendingGenerics
			fr.pendingGenerics = nil
			res, err := t.callParselet(callee, args, generics)
			if err != nil {
				return bodyResult{}, err
			}
			ok = res.ok
			if res.ok {
				fr.capStack = append(fr.capStack, capture.Capture{
					Value: res.value, HasValue: true,
					Severity: capture.Severity(callee.Severity),
				})
			}
			pc++

		case program.OpPushPos:
			fr.posStack = append(fr.posStack, t.reader.Mark())
			pc++
		case program.OpPopPos:
			fr.posStack = fr.posStack[:len(fr.posStack)-1]
			pc++
		case program.OpRestorePos:
			o := fr.posStack[len(fr.posStack)-1]
			fr.posStack = fr.posStack[:len(fr.posStack)-1]
			t.reader.Restore(o)
			pc++
		case program.OpRestorePosIfFail:
			o := fr.posStack[len(fr.posStack)-1]
			fr.posStack = fr.posStack[:len(fr.posStack)-1]
			if !ok {
				t.reader.Restore(o)
			}
			pc++

		case program.OpJump:
			pc = instr.A
		case program.OpJumpIfFail:
			if !ok {
				pc = instr.A
			} else {
				pc++
			}
		case program.OpJumpIfOk:
			if ok {
				pc = instr.A
			} else {
				pc++
			}
		case program.OpJumpIfMoved:
			o := fr.posStack[len(fr.posStack)-1]
			fr.posStack = fr.posStack[:len(fr.posStack)-1]
			if t.reader.Mark() > o {
				pc = instr.A
			} else {
				pc++
			}
		case program.OpInvert:
			ok = !ok
			pc++
		case program.OpForceOk:
			ok = true
			pc++

		case program.OpCapMark:
			fr.markStack = append(fr.markStack, len(fr.capStack))
			pc++
		case program.OpCapCollect:
			mark := fr.markStack[len(fr.markStack)-1]
			fr.markStack = fr.markStack[:len(fr.markStack)-1]
			seg := append([]capture.Capture(nil), fr.capStack[mark:]...)
			fr.capStack = fr.capStack[:mark]
			v := capture.Collect(seg, t.sliceFunc)
			fr.capStack = append(fr.capStack, capture.Capture{Value: v, HasValue: true, Severity: capture.SeverityValue})
			pc++
		case program.OpCapDiscard:
			mark := fr.markStack[len(fr.markStack)-1]
			fr.markStack = fr.markStack[:len(fr.markStack)-1]
			fr.capStack = fr.capStack[:mark]
			pc++
		case program.OpCapAlias:
			if n := len(fr.capStack); n > 0 {
				fr.capStack[n-1] = fr.capStack[n-1].WithAlias(t.prog.Strings[instr.A])
			}
			pc++
		case program.OpCapSeverity:
			if n := len(fr.capStack); n > 0 {
				fr.capStack[n-1] = fr.capStack[n-1].WithSeverity(capture.Severity(instr.A))
			}
			pc++

		case program.OpQuantStart:
			fr.quantStack = append(fr.quantStack, nil)
			fr.quantPos = append(fr.quantPos, t.reader.Mark())
			pc++
		case program.OpQuantAppend:
			mark := fr.markStack[len(fr.markStack)-1]
			fr.markStack = fr.markStack[:len(fr.markStack)-1]
			if len(fr.capStack) > mark {
				c := fr.capStack[len(fr.capStack)-1]
				fr.capStack = fr.capStack[:mark]
				top := len(fr.quantStack) - 1
				fr.quantStack[top] = append(fr.quantStack[top], captureValue(c, t.sliceFunc))
			}
			pc++
		case program.OpQuantFinish:
			top := len(fr.quantStack) - 1
			items := fr.quantStack[top]
			fr.quantStack = fr.quantStack[:top]
			start := fr.quantPos[len(fr.quantPos)-1]
			fr.quantPos = fr.quantPos[:len(fr.quantPos)-1]
			fr.capStack = append(fr.capStack, capture.Capture{
				Range: capture.Span{Start: start, End: t.reader.Mark()}, HasRange: true,
				Value: value.List{Items: items}, HasValue: true,
				Severity: capture.SeverityValue,
			})
			pc++
		case program.OpPushValueCap:
			v := fr.popExpr()
			fr.capStack = append(fr.capStack, capture.FromValue(v))
			pc++

		case program.OpConst:
			fr.exprStack = append(fr.exprStack, t.prog.Constants[instr.A])
			pc++
		case program.OpLoadLocal:
			fr.exprStack = append(fr.exprStack, fr.locals[instr.A])
			pc++
		case program.OpStoreLocal:
			fr.locals[instr.A] = fr.popExpr()
			pc++
		case program.OpDup:
			fr.exprStack = append(fr.exprStack, fr.exprStack[len(fr.exprStack)-1])
			pc++
		case program.OpPop:
			fr.popExpr()
			pc++
		case program.OpTest:
			ok = fr.popExpr().Truthy()
			pc++
		case program.OpBinOp:
			b := fr.popExpr()
			a := fr.popExpr()
			v, err := evalBinOp(program.BinOp(instr.A), a, b)
			if err != nil {
				return bodyResult{}, err
			}
			fr.exprStack = append(fr.exprStack, v)
			pc++
		case program.OpUnOp:
			a := fr.popExpr()
			v, err := evalUnOp(program.UnOp(instr.A), a)
			if err != nil {
				return bodyResult{}, err
			}
			fr.exprStack = append(fr.exprStack, v)
			pc++
		case program.OpIndex:
			idx := fr.popExpr()
			coll := fr.popExpr()
			v, err := value.Index(coll, idx)
			if err != nil {
				return bodyResult{}, err
			}
			fr.exprStack = append(fr.exprStack, v)
			pc++
		case program.OpAttr:
			recv := fr.popExpr()
			v, err := value.Attribute(recv, t.prog.Strings[instr.A])
			if err != nil {
				return bodyResult{}, err
			}
			fr.exprStack = append(fr.exprStack, v)
			pc++
		case program.OpCallNative:
			name := t.prog.Strings[instr.A]
			argc := int(instr.B)
			args := make([]value.Value, argc)
			for i := argc - 1; i >= 0; i-- {
				args[i] = fr.popExpr()
			}
			fn, found := t.builtins.Lookup(name)
			if !found {
				return bodyResult{}, fmt.Errorf("undefined native function %q", name)
			}
			v, err := fn(args)
			if err != nil {
				if pe, ok := err.(*diag.ParseError); ok {
					t.raiseExplicitParseError(pe)
					return bodyResult{kind: bodyReject}, nil
				}
				return bodyResult{}, err
			}
			fr.exprStack = append(fr.exprStack, v)
			pc++
		case program.OpCapRef:
			fr.exprStack = append(fr.exprStack, t.capRef(fr, int(instr.A)))
			pc++
		case program.OpMakeList:
			n := int(instr.A)
			items := make([]value.Value, n)
			for i := n - 1; i >= 0; i-- {
				items[i] = fr.popExpr()
			}
			fr.exprStack = append(fr.exprStack, value.List{Items: items})
			pc++
		case program.OpMakeDict:
			fr.exprStack = append(fr.exprStack, value.NewDict())
			pc++
		case program.OpDictSet:
			v := fr.popExpr()
			d := fr.exprStack[len(fr.exprStack)-1].(*value.Dict)
			d.Set(t.prog.Strings[instr.A], v)
			pc++
		case program.OpAST:
			fr.exprStack = append(fr.exprStack, t.buildAST(fr, t.prog.Strings[instr.A], instr.B != 0))
			pc++

		case program.OpArgsBegin:
			fr.pendingArgs = callArgs{}
			fr.pendingGenerics = nil
			pc++
		case program.OpGenericArg:
			fr.pendingGenerics = append(fr.pendingGenerics, fr.popExpr())
			pc++
		case program.OpArgName:
			v := fr.popExpr()
			if fr.pendingArgs.Named == nil {
				fr.pendingArgs.Named = make(map[string]value.Value)
			}
			fr.pendingArgs.Named[t.prog.Strings[instr.A]] = v
			pc++
		case program.OpArgPos:
			fr.pendingArgs.Positional = append(fr.pendingArgs.Positional, fr.popExpr())
			pc++

		case program.OpAccept:
			var v value.Value
			if instr.B != 0 {
				v = fr.popExpr()
			} else {
				v = t.collectFrame(fr)
			}
			return bodyResult{kind: bodyAccept, value: v}, nil
		case program.OpReject:
			return bodyResult{kind: bodyReject}, nil
		case program.OpRepeat:
			return bodyResult{kind: bodyRepeat}, nil
		case program.OpExit:
			v := value.Value(value.Void{})
			if len(fr.exprStack) > 0 {
				v = fr.popExpr()
			}
			return bodyResult{}, exitSignal{value: v}
		case program.OpRaise:
			t.raiseParseError()
			return bodyResult{kind: bodyReject}, nil

		case program.OpLoopBegin:
			fr.loopStack = append(fr.loopStack, loopFrame{endTarget: instr.A})
			pc++
		case program.OpLoopEnd:
			fr.loopStack = fr.loopStack[:len(fr.loopStack)-1]
			pc++
		case program.OpBreak:
			fr.loopStack = fr.loopStack[:len(fr.loopStack)-1]
			pc = instr.A
		case program.OpContinue:
			pc = instr.A

		default:
			return bodyResult{}, fmt.Errorf("unhandled opcode %s", instr.Op)
		}
	}
}

// collectFrame applies the sequence-exit collection rule to everything
// still on the capture stack, the way reaching the end of a main body
// with no explicit `accept expr` collects its whole sequence.
func (t *Thread) collectFrame(fr *frame) value.Value {
	v := capture.Collect(fr.capStack, t.sliceFunc)
	fr.capStack = fr.capStack[:0]
	return v
}

// captureValue resolves a capture to the value a script expression sees
// for it: its literal value if it carries one, else its range substring.
func captureValue(c capture.Capture, slice capture.SliceFunc) value.Value {
	if c.HasValue {
		return c.Value
	}
	if c.HasRange {
		return value.Str(slice(c.Range))
	}
	return value.Void{}
}

// capRef resolves a $0/$1../$n reference: $0 is the whole call's
// collected result so far (without consuming the capture stack), $n for
// n>=1 is the n-th capture pushed in this body.
func (t *Thread) capRef(fr *frame, idx int) value.Value {
	if idx == 0 {
		return capture.Collect(append([]capture.Capture(nil), fr.capStack...), t.sliceFunc)
	}
	i := idx - 1
	if i < 0 || i >= len(fr.capStack) {
		return value.Void{}
	}
	return captureValue(fr.capStack[i], t.sliceFunc)
}

// buildAST implements the `ast(name[, value])` emitter: a Dict
// {emit, row, col, children|value} wrapping either the explicit value
// (popped from the expression stack when explicit is set) or the
// frame's collected captures. row/col locate the first captured range
// when one exists, else the current reader position.
func (t *Thread) buildAST(fr *frame, name string, explicit bool) value.Value {
	pos := t.reader.Pos()
	row, col := pos.Line, pos.Col
	if !explicit {
		for _, c := range fr.capStack {
			if c.HasRange {
				row, col = t.reader.LineCol(c.Range.Start)
				break
			}
		}
	}

	d := value.NewDict()
	d.Set("emit", value.Str(name))
	d.Set("row", value.NewInt(int64(row)))
	d.Set("col", value.NewInt(int64(col)))

	if explicit {
		d.Set("value", fr.popExpr())
		return d
	}
	collected := t.collectFrame(fr)
	if l, ok := collected.(value.List); ok {
		d.Set("children", l)
	} else {
		d.Set("value", collected)
	}
	return d
}

func evalBinOp(op program.BinOp, a, b value.Value) (value.Value, error) {
	switch op {
	case program.BinAdd:
		return value.Add(a, b)
	case program.BinSub:
		return value.Sub(a, b)
	case program.BinMul:
		return value.Mul(a, b)
	case program.BinDiv:
		return value.Div(a, b)
	case program.BinFloorDiv:
		return value.FloorDiv(a, b)
	case program.BinMod:
		return value.Mod(a, b)
	case program.BinEq:
		return value.Bool(value.Equal(a, b)), nil
	case program.BinNe:
		return value.Bool(!value.Equal(a, b)), nil
	case program.BinLt, program.BinLe, program.BinGt, program.BinGe:
		c, err := value.Compare(a, b)
		if err != nil {
			return nil, err
		}
		switch op {
		case program.BinLt:
			return value.Bool(c < 0), nil
		case program.BinLe:
			return value.Bool(c <= 0), nil
		case program.BinGt:
			return value.Bool(c > 0), nil
		default:
			return value.Bool(c >= 0), nil
		}
	case program.BinAnd:
		return value.Bool(a.Truthy() && b.Truthy()), nil
	case program.BinOr:
		return value.Bool(a.Truthy() || b.Truthy()), nil
	}
	return nil, fmt.Errorf("unhandled binary operator %d", op)
}

func evalUnOp(op program.UnOp, a value.Value) (value.Value, error) {
	switch op {
	case program.UnNeg:
		return value.Sub(value.NewInt(0), a)
	case program.UnNot:
		return value.Bool(!a.Truthy()), nil
	}
	return nil, fmt.Errorf("unhandled unary operator %d", op)
}
