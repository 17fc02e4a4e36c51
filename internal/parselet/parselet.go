// Package parselet implements the compiled parsing procedure that is
// the language's unit of call, memoization and scope.
package parselet

import "github.com/nightjar-lang/nightjar/internal/value"

// NoPC marks an absent begin/end body or default-expression entry point.
const NoPC = -1

// ArgDesc describes one positional or named argument slot.
type ArgDesc struct {
	Name string
	// DefaultPC is the entry point of a compiled expression computing
	// the default value, or NoPC if the argument is required.
	DefaultPC int
}

// GenericDesc describes one generic (compile-time) parameter: a name and
// an optional default template pc, mirroring ArgDesc's shape.
type GenericDesc struct {
	Name      string
	DefaultPC int
}

// Parselet is an immutable, compiled parsing procedure. All
// cross-references between parselets are by integer Index into the
// owning Table, not by pointer, so the call graph's cycles (for
// left/mutual recursion) need no cycle-collection: storage is a flat
// arena keyed by integer id.
type Parselet struct {
	Index int
	Name  string

	Generics []GenericDesc
	Args     []ArgDesc
	Locals   int

	// BeginPC/MainPC/EndPC are entry points into the owning Table's
	// shared Program instruction stream. BeginPC/EndPC are NoPC when the
	// parselet has no begin/end clause.
	BeginPC, MainPC, EndPC int

	// Consumes is true iff every accepting path strictly advances the
	// reader from the call's entry offset. It is false for a parselet
	// that advances on some accepting paths but not on all of them.
	Consumes bool
	// LeftRecursive is true iff this parselet can reach a non-tail
	// self-call before consuming.
	LeftRecursive bool

	// Severity is the default severity a call to this parselet
	// contributes to its caller's capture stack; an alias at the call
	// site names the capture without changing its severity.
	Severity int
}

// ParseletID implements value.ParseletRef so a Parselet can be carried
// as a first-class Value without an import cycle between this package
// and internal/value.
func (p *Parselet) ParseletID() int { return p.Index }

func (p *Parselet) Tag() string    { return "parselet" }
func (p *Parselet) Truthy() bool   { return true }
func (p *Parselet) String() string { return "<parselet " + p.Name + ">" }

var _ value.ParseletRef = (*Parselet)(nil)

// Table is the flat arena of every parselet compiled from one source
// unit, plus the shared bytecode Program their entry points index into.
type Table struct {
	byIndex []*Parselet
	byName  map[string]int
}

// NewTable returns an empty parselet table.
func NewTable() *Table {
	return &Table{byName: make(map[string]int)}
}

// Declare reserves a slot for a parselet that will be filled in once its
// body is compiled, letting forward/mutual/left recursion resolve by
// name before the referenced parselet's bytecode exists yet.
func (t *Table) Declare(name string) *Parselet {
	if idx, ok := t.byName[name]; ok {
		return t.byIndex[idx]
	}
	p := &Parselet{Index: len(t.byIndex), Name: name, BeginPC: NoPC, EndPC: NoPC}
	t.byIndex = append(t.byIndex, p)
	t.byName[name] = p.Index
	return p
}

// Lookup returns the parselet registered under name, if any.
func (t *Table) Lookup(name string) (*Parselet, bool) {
	idx, ok := t.byName[name]
	if !ok {
		return nil, false
	}
	return t.byIndex[idx], true
}

// Get returns the parselet at index i.
func (t *Table) Get(i int) *Parselet {
	return t.byIndex[i]
}

// Len returns the number of declared parselets.
func (t *Table) Len() int { return len(t.byIndex) }

// All returns every declared parselet in declaration order.
func (t *Table) All() []*Parselet { return t.byIndex }
