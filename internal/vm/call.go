package vm

import (
	"fmt"

	"github.com/nightjar-lang/nightjar/internal/parselet"
	"github.com/nightjar-lang/nightjar/internal/reader"
	"github.com/nightjar-lang/nightjar/internal/value"
)

// callArgs is the bound argument set for one parselet call: positional
// values in call order, plus any named overrides.
type callArgs struct {
	Positional []value.Value
	Named      map[string]value.Value
}

// callResult is what a completed call contributes to its caller: whether
// it matched, the collapsed value it produced, and where the reader
// ended up.
type callResult struct {
	ok         bool
	value      value.Value
	exitOffset reader.Offset
}

// growKey identifies one in-progress left-recursive seed: a parselet
// growing its match at a fixed entry offset.
type growKey struct {
	calleeIdx int
	offset    reader.Offset
}

type growState struct {
	result callResult
}

// callParselet is the single entry point every call instruction and the
// top-level driver use to invoke a parselet: it consults the memo table,
// routes left-recursive parselets through the seeded-growth loop, and
// otherwise runs the call once.
func (t *Thread) callParselet(p *parselet.Parselet, args callArgs, generics []value.Value) (callResult, error) {
	entryOffset := t.reader.Mark()

	// A reentrant call into a left-recursive parselet already growing at
	// this offset must hit the seed directly, bypassing the memo table
	// entirely: memoizing one of these in-progress probes would cache the
	// seed's not-yet-final result under the same key the converged result
	// is stored under once growth completes, and every later lookup at
	// this offset would then return the stale probe instead of recursing
	// into callLeftRecursive to keep growing.
	if p.LeftRecursive {
		gk := growKey{calleeIdx: p.Index, offset: entryOffset}
		if g, ok := t.growing[gk]; ok {
			t.reader.Restore(g.result.exitOffset)
			return g.result, nil
		}
	}

	var key memoKey
	memoize := t.opts.Memo && t.memo != nil
	if memoize {
		key = memoKey{calleeIdx: p.Index, offset: entryOffset, argsHash: hashArgs(args, generics)}
		if e, ok := t.memo.get(key); ok {
			t.reader.Restore(e.exitOffset)
			return callResult{ok: e.ok, value: e.value, exitOffset: e.exitOffset}, nil
		}
	}

	if t.opts.Debug >= 2 {
		t.traceCall(p.Name)
	}
	t.debugDepth++

	var (
		res callResult
		err error
	)
	if p.LeftRecursive {
		res, err = t.callLeftRecursive(p, args, generics, entryOffset)
	} else {
		res, err = t.callOnce(p, args, generics, entryOffset)
	}
	t.debugDepth--
	if err != nil {
		return callResult{}, err
	}

	if memoize {
		t.memo.put(key, memoEntry{ok: res.ok, value: res.value, exitOffset: res.exitOffset})
	}
	return res, nil
}

// callOnce runs one non-recursive invocation of p: its begin clause (if
// any), its main body (restarted in place on `repeat`), and its end
// clause (if any, with the main body's result available to it).
func (t *Thread) callOnce(p *parselet.Parselet, args callArgs, generics []value.Value, entryOffset reader.Offset) (callResult, error) {
	fr := newFrame(p)
	if err := t.bindArgs(p, args, generics, fr); err != nil {
		return callResult{}, err
	}

	if p.BeginPC != parselet.NoPC {
		res, err := t.runBody(fr, int32(p.BeginPC))
		if err != nil {
			return callResult{}, err
		}
		if res.kind == bodyReject {
			t.reader.Restore(entryOffset)
			return callResult{ok: false, exitOffset: entryOffset}, nil
		}
	}

	var mainRes bodyResult
	for {
		res, err := t.runBody(fr, int32(p.MainPC))
		if err != nil {
			return callResult{}, err
		}
		if res.kind == bodyRepeat {
			fr.capStack = fr.capStack[:0]
			fr.markStack = fr.markStack[:0]
			fr.quantStack = fr.quantStack[:0]
			fr.quantPos = fr.quantPos[:0]
			fr.exprStack = fr.exprStack[:0]
			fr.posStack = fr.posStack[:0]
			fr.loopStack = fr.loopStack[:0]
			t.reader.Restore(entryOffset)
			continue
		}
		mainRes = res
		break
	}
	if mainRes.kind == bodyReject {
		t.reader.Restore(entryOffset)
		return callResult{ok: false, exitOffset: entryOffset}, nil
	}

	result := mainRes.value
	if p.EndPC != parselet.NoPC {
		fr.exprStack = append(fr.exprStack, result)
		res, err := t.runBody(fr, int32(p.EndPC))
		if err != nil {
			return callResult{}, err
		}
		if res.kind == bodyReject {
			t.reader.Restore(entryOffset)
			return callResult{ok: false, exitOffset: entryOffset}, nil
		}
		result = res.value
	}
	return callResult{ok: true, value: result, exitOffset: t.reader.Mark()}, nil
}

// callLeftRecursive implements seeded growth: it repeatedly re-runs p
// from entryOffset, feeding each recursive self-call at the same offset
// the best match found so far, until an iteration fails to grow past it.
func (t *Thread) callLeftRecursive(p *parselet.Parselet, args callArgs, generics []value.Value, entryOffset reader.Offset) (callResult, error) {
	gk := growKey{calleeIdx: p.Index, offset: entryOffset}
	if g, ok := t.growing[gk]; ok {
		t.reader.Restore(g.result.exitOffset)
		return g.result, nil
	}

	if t.growing == nil {
		t.growing = make(map[growKey]*growState)
	}
	seed := &growState{result: callResult{ok: false, exitOffset: entryOffset}}
	t.growing[gk] = seed
	defer delete(t.growing, gk)

	for {
		t.reader.Restore(entryOffset)
		res, err := t.callOnce(p, args, generics, entryOffset)
		if err != nil {
			return callResult{}, err
		}
		if res.ok && res.exitOffset > seed.result.exitOffset {
			seed.result = res
			continue
		}
		if !seed.result.ok && res.ok {
			seed.result = res
		}
		break
	}
	t.reader.Restore(seed.result.exitOffset)
	return seed.result, nil
}

// bindArgs populates fr.locals from generics then positional/named
// arguments, evaluating default-value expressions for anything the
// caller omitted. Locals are laid out generics first, then arguments,
// then true locals, matching how the compiler allocates slots.
func (t *Thread) bindArgs(p *parselet.Parselet, args callArgs, generics []value.Value, fr *frame) error {
	idx := 0
	for gi, g := range p.Generics {
		switch {
		case gi < len(generics):
			fr.locals[idx] = generics[gi]
		case g.DefaultPC != parselet.NoPC:
			v, err := t.evalDefault(fr, g.DefaultPC)
			if err != nil {
				return err
			}
			fr.locals[idx] = v
		default:
			return fmt.Errorf("%s: missing generic argument %q", p.Name, g.Name)
		}
		idx++
	}

	for ai, a := range p.Args {
		switch {
		case args.Named != nil && hasNamed(args.Named, a.Name):
			fr.locals[idx] = args.Named[a.Name]
		case ai < len(args.Positional):
			fr.locals[idx] = args.Positional[ai]
		case a.DefaultPC != parselet.NoPC:
			v, err := t.evalDefault(fr, a.DefaultPC)
			if err != nil {
				return err
			}
			fr.locals[idx] = v
		default:
			fr.locals[idx] = value.Void{}
		}
		idx++
	}

	for ; idx < len(fr.locals); idx++ {
		fr.locals[idx] = value.Void{}
	}
	return nil
}

func hasNamed(m map[string]value.Value, name string) bool {
	_, ok := m[name]
	return ok
}

// evalDefault runs a default-value expression's compiled instructions
// (laid out by the compiler to end in their own `accept`, the same way a
// one-expression main body would) and returns the value it produced.
func (t *Thread) evalDefault(fr *frame, pc int) (value.Value, error) {
	res, err := t.runBody(fr, int32(pc))
	if err != nil {
		return nil, err
	}
	if res.kind != bodyAccept {
		return nil, fmt.Errorf("default expression failed to evaluate")
	}
	return res.value, nil
}
