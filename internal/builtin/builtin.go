// Package builtin implements the fixed built-in function library: the
// small set of native callables every script can call by name.
package builtin

import (
	"fmt"
	"strings"

	"github.com/nightjar-lang/nightjar/internal/diag"
	"github.com/nightjar-lang/nightjar/internal/value"
)

// Func is one native callable: it receives already-evaluated arguments
// and returns a Value or an error. The VM records a *diag.ParseError as
// a recoverable diagnostic and rejects; any other error aborts the run.
type Func func(args []value.Value) (value.Value, error)

// Registry is a name->Func lookup table, consulted by the VM's
// OpCallNative instruction.
type Registry struct {
	fns map[string]Func
}

// NewRegistry returns a Registry pre-populated with the standard library.
func NewRegistry() *Registry {
	r := &Registry{fns: make(map[string]Func)}
	r.register()
	return r
}

// Lookup returns the Func registered under name, if any.
func (r *Registry) Lookup(name string) (Func, bool) {
	fn, ok := r.fns[name]
	return fn, ok
}

// Register adds or overrides a native function, for hosts that want to
// extend the standard library.
func (r *Registry) Register(name string, fn Func) {
	r.fns[name] = fn
}

func (r *Registry) register() {
	r.fns["len"] = biLen
	r.fns["str"] = biStr
	r.fns["int"] = biInt
	r.fns["float"] = biFloat
	r.fns["bool"] = biBool
	r.fns["ord"] = biOrd
	r.fns["chr"] = biChr
	r.fns["print"] = biPrint
	r.fns["error"] = biError
	r.fns["push"] = biPush
	r.fns["keys"] = biKeys
	r.fns["values"] = biValues
	r.fns["upper"] = biUpper
	r.fns["lower"] = biLower
}

func argErr(name string, want, got int) error {
	return fmt.Errorf("%s: expected %d argument(s), got %d", name, want, got)
}

func biLen(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, argErr("len", 1, len(args))
	}
	switch v := args[0].(type) {
	case value.Str:
		return value.NewInt(int64(len([]rune(string(v))))), nil
	case value.List:
		return value.NewInt(int64(len(v.Items))), nil
	case *value.Dict:
		return value.NewInt(int64(v.Len())), nil
	}
	return nil, &value.TypeError{Op: "len", A: args[0]}
}

func biStr(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, argErr("str", 1, len(args))
	}
	return value.ToStr(args[0]), nil
}

func biInt(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, argErr("int", 1, len(args))
	}
	return value.ToInt(args[0])
}

func biFloat(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, argErr("float", 1, len(args))
	}
	return value.ToFloat(args[0])
}

func biBool(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, argErr("bool", 1, len(args))
	}
	return value.ToBool(args[0]), nil
}

func biOrd(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, argErr("ord", 1, len(args))
	}
	s, ok := args[0].(value.Str)
	if !ok {
		return nil, &value.TypeError{Op: "ord", A: args[0]}
	}
	runes := []rune(string(s))
	if len(runes) == 0 {
		return nil, &value.ValueError{Msg: "ord() of empty string"}
	}
	return value.NewInt(int64(runes[0])), nil
}

func biChr(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, argErr("chr", 1, len(args))
	}
	i, ok := args[0].(value.Int)
	if !ok {
		return nil, &value.TypeError{Op: "chr", A: args[0]}
	}
	return value.Str(rune(i.V.Int64())), nil
}

func biPrint(args []value.Value) (value.Value, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	fmt.Println(strings.Join(parts, " "))
	return value.Void{}, nil
}

// biError implements the `error(msg[, consume])` builtin: it raises a
// recoverable ParseError rather than aborting the parse,
// distinguishing it from a genuine RuntimeError. The optional second
// argument is `error(msg, true)`, which additionally consumes the
// current character to keep a retry loop around the error site from
// spinning forever at the same offset.
func biError(args []value.Value) (value.Value, error) {
	if len(args) == 0 || len(args) > 2 {
		return nil, &value.ValueError{Msg: "error(): expected 1 or 2 arguments"}
	}
	consume := len(args) == 2 && args[1].Truthy()
	return nil, &diag.ParseError{
		Diagnostic: diag.Diagnostic{Message: string(value.ToStr(args[0]))},
		Consume:    consume,
	}
}

func biPush(args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return nil, argErr("push", 2, len(args))
	}
	l, ok := args[0].(value.List)
	if !ok {
		return nil, &value.TypeError{Op: "push", A: args[0]}
	}
	items := append(append([]value.Value(nil), l.Items...), args[1])
	return value.List{Items: items}, nil
}

func biKeys(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, argErr("keys", 1, len(args))
	}
	d, ok := args[0].(*value.Dict)
	if !ok {
		return nil, &value.TypeError{Op: "keys", A: args[0]}
	}
	items := make([]value.Value, 0, d.Len())
	for _, k := range d.Keys() {
		items = append(items, value.Str(k))
	}
	return value.List{Items: items}, nil
}

func biValues(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, argErr("values", 1, len(args))
	}
	d, ok := args[0].(*value.Dict)
	if !ok {
		return nil, &value.TypeError{Op: "values", A: args[0]}
	}
	items := make([]value.Value, 0, d.Len())
	for _, k := range d.Keys() {
		v, _ := d.Get(k)
		items = append(items, v)
	}
	return value.List{Items: items}, nil
}

func biUpper(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, argErr("upper", 1, len(args))
	}
	s, ok := args[0].(value.Str)
	if !ok {
		return nil, &value.TypeError{Op: "upper", A: args[0]}
	}
	return value.Str(strings.ToUpper(string(s))), nil
}

func biLower(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, argErr("lower", 1, len(args))
	}
	s, ok := args[0].(value.Str)
	if !ok {
		return nil, &value.TypeError{Op: "lower", A: args[0]}
	}
	return value.Str(strings.ToLower(string(s))), nil
}
