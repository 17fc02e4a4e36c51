package compiler

// analyze computes, for every parselet in defs, whether it is
// left-recursive (can re-enter itself at the same offset it started
// from, with no intervening consumption) and whether it is guaranteed
// to consume at least one code point on every accepting path. Both are
// fixed-point dataflow analyses over the call graph: start optimistic
// ("does not consume", "not left-recursive") and only flip a bit when a
// body shows a path that forces the opposite conclusion, iterating
// until no bit changes — the standard may/must dataflow shape, applied
// to a grammar's call graph instead of a CFG.
//
// Both walks descend through every compound statement (if/for/loop
// bodies included): a self-call is left-recursive no matter how deeply
// it is nested in statement structure, as long as no consumption is
// guaranteed before control can reach it.
type analysis struct {
	defs     []*ParseletDef
	byName   map[string]int
	consumes []bool
	leftRec  []bool
	changed  bool
}

func analyze(defs []*ParseletDef) (consumes, leftRec []bool) {
	a := &analysis{
		defs:     defs,
		byName:   map[string]int{},
		consumes: make([]bool, len(defs)),
		leftRec:  make([]bool, len(defs)),
	}
	for i, d := range defs {
		a.byName[d.Name] = i
	}
	for {
		a.changed = false
		for i, d := range defs {
			mustConsume := a.stmtsMustConsume(d.Body)
			if mustConsume && !a.consumes[i] {
				a.consumes[i] = true
				a.changed = true
			}
			if a.stmtsLeftRecurse(d.Body, i) && !a.leftRec[i] {
				a.leftRec[i] = true
				a.changed = true
			}
		}
		if !a.changed {
			break
		}
	}
	return a.consumes, a.leftRec
}

// stmtsMustConsume reports whether every path through stmts consumes
// at least one code point: one statement that consumes on every one of
// its own paths is enough, since every accepting path runs every
// statement in order.
func (a *analysis) stmtsMustConsume(stmts []Stmt) bool {
	for _, s := range stmts {
		if a.stmtMustConsume(s) {
			return true
		}
	}
	return false
}

// stmtMustConsume reports whether one statement consumes on every path
// through it.
func (a *analysis) stmtMustConsume(s Stmt) bool {
	switch s := s.(type) {
	case *ExprStmt:
		return a.exprMustConsume(s.X)
	case *IfStmt:
		// Guaranteed only when both branches exist and both consume; a
		// missing else is a zero-consumption path.
		return len(s.Else) > 0 && a.stmtsMustConsume(s.Then) && a.stmtsMustConsume(s.Else)
	}
	// for/loop bodies may run zero times, so they never establish
	// consumption; no other statement kind touches the reader.
	return false
}

func (a *analysis) exprMustConsume(e Expr) bool {
	switch e := e.(type) {
	case *MatchLit:
		return len(e.Val) > 0
	case *TouchLit:
		return len(e.Val) > 0
	case *CharClassLit:
		return true
	case *AnyLit:
		return true
	case *Sequence:
		for _, it := range e.Items {
			if a.exprMustConsume(it) {
				return true
			}
		}
		return false
	case *Block:
		for _, alt := range e.Alts {
			if !a.exprMustConsume(alt) {
				return false
			}
		}
		return len(e.Alts) > 0
	case *Quant:
		if e.Kind == '+' {
			return a.exprMustConsume(e.X)
		}
		return false
	case *Modifier:
		if e.Kind == "expect" {
			return a.exprMustConsume(e.X)
		}
		return false // peek/not never consume
	case *Alias:
		return a.exprMustConsume(e.X)
	case *Paren:
		return a.exprMustConsume(e.X)
	case *Call:
		idx, ok := a.byName[e.Name]
		if !ok {
			return false // builtin/native call: never a parsing primitive
		}
		return a.consumes[idx]
	}
	return false
}

// stmtsLeftRecurse reports whether, at the entry of stmts, control can
// reach a recursive call to selfIdx before any code point is consumed.
func (a *analysis) stmtsLeftRecurse(stmts []Stmt, selfIdx int) bool {
	return a.stmtsLeftRecurseVisited(stmts, selfIdx, map[int]bool{})
}

// stmtsLeftRecurseVisited scans stmts in order: a statement that can
// reach the self-call flags the body; a statement guaranteed to consume
// ends the scan (everything after it runs at an advanced offset); any
// other statement is stepped over, since it leaves the reader where it
// was.
func (a *analysis) stmtsLeftRecurseVisited(stmts []Stmt, selfIdx int, visited map[int]bool) bool {
	for _, s := range stmts {
		if a.stmtLeftRecurses(s, selfIdx, visited) {
			return true
		}
		if a.stmtMustConsume(s) {
			return false
		}
	}
	return false
}

// stmtLeftRecurses reports whether one statement can reach a self-call
// before consuming, descending into if/for/loop bodies (a loop body may
// run its first iteration at the entry offset).
func (a *analysis) stmtLeftRecurses(s Stmt, selfIdx int, visited map[int]bool) bool {
	switch s := s.(type) {
	case *ExprStmt:
		return a.exprLeftRecurses(s.X, selfIdx, visited)
	case *IfStmt:
		return a.stmtsLeftRecurseVisited(s.Then, selfIdx, visited) ||
			a.stmtsLeftRecurseVisited(s.Else, selfIdx, visited)
	case *ForStmt:
		return a.stmtsLeftRecurseVisited(s.Body, selfIdx, visited)
	case *LoopStmt:
		return a.stmtsLeftRecurseVisited(s.Body, selfIdx, visited)
	}
	return false
}

func (a *analysis) exprLeftRecurses(e Expr, selfIdx int, visited map[int]bool) bool {
	switch e := e.(type) {
	case *Sequence:
		for _, it := range e.Items {
			if a.exprLeftRecurses(it, selfIdx, visited) {
				return true
			}
			if a.exprMustConsume(it) {
				return false
			}
		}
		return false
	case *Block:
		for _, alt := range e.Alts {
			if a.exprLeftRecurses(alt, selfIdx, visited) {
				return true
			}
		}
		return false
	case *Quant:
		return a.exprLeftRecurses(e.X, selfIdx, visited)
	case *Modifier:
		return a.exprLeftRecurses(e.X, selfIdx, visited)
	case *Alias:
		return a.exprLeftRecurses(e.X, selfIdx, visited)
	case *Paren:
		return a.exprLeftRecurses(e.X, selfIdx, visited)
	case *Call:
		idx, ok := a.byName[e.Name]
		if !ok {
			return false
		}
		if idx == selfIdx {
			return true
		}
		if visited[idx] {
			return false
		}
		visited[idx] = true
		return a.stmtsLeftRecurseVisited(a.defs[idx].Body, selfIdx, visited)
	}
	return false
}
