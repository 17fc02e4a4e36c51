// Package value implements the dynamic value algebra shared by every
// parselet and script expression: void, null, bool, int, float, string,
// list, dict, parselet references, native objects and token literals.
package value

import (
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// Value is the tagged-variant interface implemented by every runtime
// value. There is no host-level inheritance: polymorphism lives entirely
// in which concrete type satisfies this interface, not in a class
// hierarchy.
type Value interface {
	// Tag names the value's kind, for diagnostics and type errors.
	Tag() string
	// Truthy implements the truthiness predicate required of every value.
	Truthy() bool
	// String renders the value the way it would appear in source or in a
	// dump.
	String() string
}

// Void is the "no value" result, distinct from Null.
type Void struct{}

func (Void) Tag() string    { return "void" }
func (Void) Truthy() bool   { return false }
func (Void) String() string { return "void" }

// Null is the script-visible null value.
type Null struct{}

func (Null) Tag() string    { return "null" }
func (Null) Truthy() bool   { return false }
func (Null) String() string { return "null" }

// Bool wraps a boolean.
type Bool bool

func (Bool) Tag() string      { return "bool" }
func (b Bool) Truthy() bool   { return bool(b) }
func (b Bool) String() string { return strconv.FormatBool(bool(b)) }

// Int wraps an arbitrary-precision integer.
type Int struct{ V *big.Int }

// NewInt constructs an Int from an int64.
func NewInt(v int64) Int { return Int{V: big.NewInt(v)} }

func (Int) Tag() string      { return "int" }
func (i Int) Truthy() bool   { return i.V.Sign() != 0 }
func (i Int) String() string { return i.V.String() }

// Float wraps a 64-bit IEEE float.
type Float float64

func (Float) Tag() string      { return "float" }
func (f Float) Truthy() bool   { return f != 0 }
func (f Float) String() string { return strconv.FormatFloat(float64(f), 'g', -1, 64) }

// Str wraps a UTF-8 string.
type Str string

func (Str) Tag() string      { return "str" }
func (s Str) Truthy() bool   { return len(s) > 0 }
func (s Str) String() string { return string(s) }

// List is an ordered sequence of values, shared by reference.
type List struct{ Items []Value }

func (List) Tag() string    { return "list" }
func (l List) Truthy() bool { return len(l.Items) > 0 }
func (l List) String() string {
	parts := make([]string, len(l.Items))
	for i, it := range l.Items {
		parts[i] = it.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Dict is an insertion-ordered Str->Value mapping, shared by reference.
type Dict struct {
	keys   []string
	values map[string]Value
}

// NewDict returns an empty, insertion-ordered dict.
func NewDict() *Dict {
	return &Dict{values: make(map[string]Value)}
}

func (d *Dict) Tag() string  { return "dict" }
func (d *Dict) Truthy() bool { return d != nil && len(d.keys) > 0 }

func (d *Dict) String() string {
	parts := make([]string, 0, len(d.keys))
	for _, k := range d.keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, d.values[k].String()))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Get returns the value for key and whether it was present.
func (d *Dict) Get(key string) (Value, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Set inserts or updates key, preserving original insertion order on
// update and appending on new keys.
func (d *Dict) Set(key string, v Value) {
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = v
}

// Keys returns the keys in insertion order. The returned slice must not
// be mutated by the caller.
func (d *Dict) Keys() []string { return d.keys }

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.keys) }

// Merge returns a new Dict that is the right-biased union of d and
// other, used to implement Dict + Dict.
func (d *Dict) Merge(other *Dict) *Dict {
	out := NewDict()
	for _, k := range d.keys {
		v, _ := d.values[k]
		out.Set(k, v)
	}
	for _, k := range other.keys {
		v, _ := other.values[k]
		out.Set(k, v)
	}
	return out
}

// SortedKeys returns a copy of the keys sorted lexically, used only for
// deterministic diagnostics/dumps that don't care about insertion order.
func (d *Dict) SortedKeys() []string {
	out := append([]string(nil), d.keys...)
	sort.Strings(out)
	return out
}

// Object wraps an opaque native Go value that scripts can carry around
// but not introspect beyond what its Native() exposes to builtins.
type Object struct {
	Name string
	Val  any
}

func (Object) Tag() string      { return "object" }
func (Object) Truthy() bool     { return true }
func (o Object) String() string { return fmt.Sprintf("<object %s>", o.Name) }
func (o Object) Native() any    { return o.Val }

// Equal implements structural equality for scalars and deep equality
// for aggregates.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch av := a.(type) {
	case Void:
		_, ok := b.(Void)
		return ok
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av.V.Cmp(bv.V) == 0
	case Float:
		bv, ok := b.(Float)
		return ok && av == bv
	case Str:
		bv, ok := b.(Str)
		return ok && av == bv
	case List:
		bv, ok := b.(List)
		if !ok || len(av.Items) != len(bv.Items) {
			return false
		}
		for i := range av.Items {
			if !Equal(av.Items[i], bv.Items[i]) {
				return false
			}
		}
		return true
	case *Dict:
		bv, ok := b.(*Dict)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for _, k := range av.keys {
			bval, ok := bv.Get(k)
			if !ok || !Equal(av.values[k], bval) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// Compare orders two scalar, string or list values. It returns -1, 0, 1.
// Dicts have no defined ordering.
func Compare(a, b Value) (int, error) {
	switch av := a.(type) {
	case Int:
		switch bv := b.(type) {
		case Int:
			return av.V.Cmp(bv.V), nil
		case Float:
			af := new(big.Float).SetInt(av.V)
			return af.Cmp(big.NewFloat(float64(bv))), nil
		}
	case Float:
		switch bv := b.(type) {
		case Float:
			switch {
			case av < bv:
				return -1, nil
			case av > bv:
				return 1, nil
			default:
				return 0, nil
			}
		case Int:
			bf := new(big.Float).SetInt(bv.V)
			return big.NewFloat(float64(av)).Cmp(bf), nil
		}
	case Str:
		if bv, ok := b.(Str); ok {
			return strings.Compare(string(av), string(bv)), nil
		}
	case List:
		if bv, ok := b.(List); ok {
			n := len(av.Items)
			if len(bv.Items) < n {
				n = len(bv.Items)
			}
			for i := 0; i < n; i++ {
				c, err := Compare(av.Items[i], bv.Items[i])
				if err != nil {
					return 0, err
				}
				if c != 0 {
					return c, nil
				}
			}
			return len(av.Items) - len(bv.Items), nil
		}
	}
	return 0, &TypeError{Op: "compare", A: a, B: b}
}

// TypeError reports an operation applied to incompatible value tags.
type TypeError struct {
	Op   string
	A, B Value
}

func (e *TypeError) Error() string {
	if e.B == nil {
		return fmt.Sprintf("TypeError: cannot %s %s", e.Op, e.A.Tag())
	}
	return fmt.Sprintf("TypeError: cannot %s %s and %s", e.Op, e.A.Tag(), e.B.Tag())
}

// IndexError reports an out-of-range list/string index.
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("IndexError: index %d out of range (len %d)", e.Index, e.Len)
}

// KeyError reports a missing dict key.
type KeyError struct{ Key string }

func (e *KeyError) Error() string {
	return fmt.Sprintf("KeyError: %q", e.Key)
}

// ValueError reports an operation that is type-correct but semantically
// invalid, such as division by zero.
type ValueError struct{ Msg string }

func (e *ValueError) Error() string { return "ValueError: " + e.Msg }
