package value

import (
	"math"
	"math/big"
	"strconv"
)

// Add implements "+": numeric addition, string and list concatenation,
// right-biased dict merge.
func Add(a, b Value) (Value, error) {
	switch av := a.(type) {
	case Int:
		switch bv := b.(type) {
		case Int:
			return Int{V: new(big.Int).Add(av.V, bv.V)}, nil
		case Float:
			f, _ := new(big.Float).SetInt(av.V).Float64()
			return Float(f) + bv, nil
		}
	case Float:
		switch bv := b.(type) {
		case Float:
			return av + bv, nil
		case Int:
			f, _ := new(big.Float).SetInt(bv.V).Float64()
			return av + Float(f), nil
		}
	case Str:
		if bv, ok := b.(Str); ok {
			return av + bv, nil
		}
	case List:
		if bv, ok := b.(List); ok {
			out := make([]Value, 0, len(av.Items)+len(bv.Items))
			out = append(out, av.Items...)
			out = append(out, bv.Items...)
			return List{Items: out}, nil
		}
	case *Dict:
		if bv, ok := b.(*Dict); ok {
			return av.Merge(bv), nil
		}
	}
	return nil, &TypeError{Op: "add", A: a, B: b}
}

// arith applies a numeric binary op, promoting to float if either side is
// a float.
func arith(a, b Value, op string, intOp func(x, y *big.Int) (*big.Int, error), fltOp func(x, y float64) (float64, error)) (Value, error) {
	af, aIsFloat := a.(Float)
	bf, bIsFloat := b.(Float)
	ai, aIsInt := a.(Int)
	bi, bIsInt := b.(Int)

	if aIsInt && bIsInt {
		r, err := intOp(ai.V, bi.V)
		if err != nil {
			return nil, err
		}
		return Int{V: r}, nil
	}
	if (aIsFloat || aIsInt) && (bIsFloat || bIsInt) {
		var x, y float64
		if aIsFloat {
			x = float64(af)
		} else {
			x, _ = new(big.Float).SetInt(ai.V).Float64()
		}
		if bIsFloat {
			y = float64(bf)
		} else {
			y, _ = new(big.Float).SetInt(bi.V).Float64()
		}
		r, err := fltOp(x, y)
		if err != nil {
			return nil, err
		}
		return Float(r), nil
	}
	return nil, &TypeError{Op: op, A: a, B: b}
}

// Sub implements "-".
func Sub(a, b Value) (Value, error) {
	return arith(a, b, "subtract",
		func(x, y *big.Int) (*big.Int, error) { return new(big.Int).Sub(x, y), nil },
		func(x, y float64) (float64, error) { return x - y, nil })
}

// Mul implements "*".
func Mul(a, b Value) (Value, error) {
	return arith(a, b, "multiply",
		func(x, y *big.Int) (*big.Int, error) { return new(big.Int).Mul(x, y), nil },
		func(x, y float64) (float64, error) { return x * y, nil })
}

// Div implements "/", which always yields a Float.
func Div(a, b Value) (Value, error) {
	ai, aIsInt := a.(Int)
	bi, bIsInt := b.(Int)
	if aIsInt && bIsInt {
		if bi.V.Sign() == 0 {
			return nil, &ValueError{Msg: "division by zero"}
		}
		af, _ := new(big.Float).SetInt(ai.V).Float64()
		bf, _ := new(big.Float).SetInt(bi.V).Float64()
		return Float(af / bf), nil
	}
	return arith(a, b, "divide",
		func(x, y *big.Int) (*big.Int, error) { return nil, &ValueError{Msg: "division by zero"} },
		func(x, y float64) (float64, error) {
			if y == 0 {
				return 0, &ValueError{Msg: "division by zero"}
			}
			return x / y, nil
		})
}

// FloorDiv implements "//", floor integer division.
func FloorDiv(a, b Value) (Value, error) {
	ai, aOk := a.(Int)
	bi, bOk := b.(Int)
	if !aOk || !bOk {
		return nil, &TypeError{Op: "floor-divide", A: a, B: b}
	}
	if bi.V.Sign() == 0 {
		return nil, &ValueError{Msg: "division by zero"}
	}
	q, m := new(big.Int), new(big.Int)
	q.DivMod(ai.V, bi.V, m)
	// big.Int.DivMod is already Euclidean (non-negative remainder); floor
	// division additionally requires the quotient to round toward
	// negative infinity, which DivMod already does for positive divisors.
	// For negative divisors, adjust to match floor semantics.
	if bi.V.Sign() < 0 && m.Sign() != 0 {
		q.Sub(q, big.NewInt(1))
	}
	return Int{V: q}, nil
}

// Mod implements "%", truncated remainder carrying the divisor's sign.
func Mod(a, b Value) (Value, error) {
	ai, aOk := a.(Int)
	bi, bOk := b.(Int)
	if aOk && bOk {
		if bi.V.Sign() == 0 {
			return nil, &ValueError{Msg: "modulo by zero"}
		}
		r := new(big.Int).Rem(ai.V, bi.V)
		if r.Sign() != 0 && (r.Sign() < 0) != (bi.V.Sign() < 0) {
			r.Add(r, bi.V)
		}
		return Int{V: r}, nil
	}
	return arith(a, b, "modulo",
		func(x, y *big.Int) (*big.Int, error) { return nil, &ValueError{Msg: "modulo by zero"} },
		func(x, y float64) (float64, error) {
			if y == 0 {
				return 0, &ValueError{Msg: "modulo by zero"}
			}
			r := math.Mod(x, y)
			if r != 0 && (r < 0) != (y < 0) {
				r += y
			}
			return r, nil
		})
}

// Index implements integer indexing of list/str and string-keyed
// indexing of dict.
func Index(v, idx Value) (Value, error) {
	switch vv := v.(type) {
	case List:
		i, ok := idx.(Int)
		if !ok {
			return nil, &TypeError{Op: "index", A: v, B: idx}
		}
		n := i.V.Int64()
		if n < 0 || int(n) >= len(vv.Items) {
			return nil, &IndexError{Index: int(n), Len: len(vv.Items)}
		}
		return vv.Items[n], nil
	case Str:
		i, ok := idx.(Int)
		if !ok {
			return nil, &TypeError{Op: "index", A: v, B: idx}
		}
		runes := []rune(string(vv))
		n := i.V.Int64()
		if n < 0 || int(n) >= len(runes) {
			return nil, &IndexError{Index: int(n), Len: len(runes)}
		}
		return Str(string(runes[n])), nil
	case *Dict:
		k, ok := idx.(Str)
		if !ok {
			return nil, &TypeError{Op: "index", A: v, B: idx}
		}
		val, ok := vv.Get(string(k))
		if !ok {
			return nil, &KeyError{Key: string(k)}
		}
		return val, nil
	}
	return nil, &TypeError{Op: "index", A: v, B: idx}
}

// Attribute implements ".name" sugar for dict/object lookup.
func Attribute(v Value, name string) (Value, error) {
	switch vv := v.(type) {
	case *Dict:
		val, ok := vv.Get(name)
		if !ok {
			return nil, &KeyError{Key: name}
		}
		return val, nil
	case Object:
		return nil, &TypeError{Op: "attribute " + name, A: v}
	}
	return nil, &TypeError{Op: "attribute " + name, A: v}
}

// ToInt coerces a value to Int: string via base-10 parse, float by
// round-to-nearest, bool via truthiness.
func ToInt(v Value) (Int, error) {
	switch vv := v.(type) {
	case Int:
		return vv, nil
	case Float:
		bi, _ := big.NewFloat(math.RoundToEven(float64(vv))).Int(nil)
		return Int{V: bi}, nil
	case Str:
		bi, ok := new(big.Int).SetString(string(vv), 10)
		if !ok {
			return Int{}, &ValueError{Msg: "cannot parse int: " + string(vv)}
		}
		return Int{V: bi}, nil
	case Bool:
		if vv {
			return NewInt(1), nil
		}
		return NewInt(0), nil
	}
	return Int{}, &TypeError{Op: "convert to int", A: v}
}

// ToFloat coerces a value to Float.
func ToFloat(v Value) (Float, error) {
	switch vv := v.(type) {
	case Float:
		return vv, nil
	case Int:
		f, _ := new(big.Float).SetInt(vv.V).Float64()
		return Float(f), nil
	case Str:
		f, err := strconv.ParseFloat(string(vv), 64)
		if err != nil {
			return 0, &ValueError{Msg: "cannot parse float: " + string(vv)}
		}
		return Float(f), nil
	case Bool:
		if vv {
			return 1, nil
		}
		return 0, nil
	}
	return 0, &TypeError{Op: "convert to float", A: v}
}

// ToStr coerces a value to Str, used by both explicit str() calls and
// implicit range-substring capture bubbling.
func ToStr(v Value) Str {
	if s, ok := v.(Str); ok {
		return s
	}
	return Str(v.String())
}

// ToBool derives a Bool from any value's truthiness.
func ToBool(v Value) Bool {
	return Bool(v.Truthy())
}

// ToNative converts v into a plain Go value built from map[string]any,
// []any, string, float64, int64, bool and nil, suitable for
// encoding/json or gopkg.in/yaml.v3 marshaling by the `dump` command's
// AST-dump output. Int is kept as int64 where it fits, else rendered as
// its decimal string to avoid silently losing precision.
func ToNative(v Value) any {
	switch vv := v.(type) {
	case Void:
		return nil
	case Null:
		return nil
	case Bool:
		return bool(vv)
	case Int:
		if vv.V.IsInt64() {
			return vv.V.Int64()
		}
		return vv.V.String()
	case Float:
		return float64(vv)
	case Str:
		return string(vv)
	case List:
		out := make([]any, len(vv.Items))
		for i, it := range vv.Items {
			out[i] = ToNative(it)
		}
		return out
	case *Dict:
		out := make(map[string]any, vv.Len())
		for _, k := range vv.Keys() {
			val, _ := vv.Get(k)
			out[k] = ToNative(val)
		}
		return out
	default:
		return vv.String()
	}
}
