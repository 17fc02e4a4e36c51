package value

import (
	"math/big"
	"testing"
)

func TestEqualScalars(t *testing.T) {
	if !Equal(NewInt(3), NewInt(3)) {
		t.Fatal("Equal(3, 3) = false")
	}
	if Equal(NewInt(3), NewInt(4)) {
		t.Fatal("Equal(3, 4) = true")
	}
	if !Equal(Str("a"), Str("a")) {
		t.Fatal("Equal(\"a\", \"a\") = false")
	}
}

func TestEqualDeep(t *testing.T) {
	a := List{Items: []Value{NewInt(1), Str("x")}}
	b := List{Items: []Value{NewInt(1), Str("x")}}
	if !Equal(a, b) {
		t.Fatal("Equal(list, list) = false for equal lists")
	}

	d1 := NewDict()
	d1.Set("a", NewInt(1))
	d2 := NewDict()
	d2.Set("a", NewInt(1))
	if !Equal(d1, d2) {
		t.Fatal("Equal(dict, dict) = false for equal dicts")
	}
}

func TestDictOrderedMerge(t *testing.T) {
	a := NewDict()
	a.Set("x", NewInt(1))
	a.Set("y", NewInt(2))
	b := NewDict()
	b.Set("y", NewInt(20))
	b.Set("z", NewInt(3))

	m := a.Merge(b)
	if got := m.Keys(); len(got) != 3 || got[0] != "x" || got[1] != "y" || got[2] != "z" {
		t.Fatalf("Merge keys = %v; want [x y z]", got)
	}
	v, _ := m.Get("y")
	if iv := v.(Int); iv.V.Cmp(big.NewInt(20)) != 0 {
		t.Fatalf("right-biased merge did not override: y = %v", v)
	}
}

func TestArithDivFloorMod(t *testing.T) {
	v, err := Div(NewInt(7), NewInt(2))
	if err != nil || v.(Float) != 3.5 {
		t.Fatalf("Div(7,2) = %v, %v; want 3.5", v, err)
	}

	v, err = FloorDiv(NewInt(-7), NewInt(2))
	if err != nil || v.(Int).V.Int64() != -4 {
		t.Fatalf("FloorDiv(-7,2) = %v, %v; want -4", v, err)
	}

	v, err = FloorDiv(NewInt(7), NewInt(-2))
	if err != nil || v.(Int).V.Int64() != -4 {
		t.Fatalf("FloorDiv(7,-2) = %v, %v; want -4", v, err)
	}

	v, err = FloorDiv(NewInt(-7), NewInt(-2))
	if err != nil || v.(Int).V.Int64() != 3 {
		t.Fatalf("FloorDiv(-7,-2) = %v, %v; want 3", v, err)
	}

	v, err = Mod(NewInt(-7), NewInt(2))
	if err != nil || v.(Int).V.Int64() != 1 {
		t.Fatalf("Mod(-7,2) = %v, %v; want 1 (sign of divisor)", v, err)
	}

	v, err = Mod(Float(-7), Float(3))
	if err != nil || v.(Float) != 2 {
		t.Fatalf("Mod(-7.0,3.0) = %v, %v; want 2 (sign of divisor)", v, err)
	}

	if _, err := Div(NewInt(1), NewInt(0)); err == nil {
		t.Fatal("Div by zero did not error")
	}
}

func TestIndexAndAttribute(t *testing.T) {
	l := List{Items: []Value{NewInt(10), NewInt(20)}}
	v, err := Index(l, NewInt(1))
	if err != nil || v.(Int).V.Int64() != 20 {
		t.Fatalf("Index(l,1) = %v, %v", v, err)
	}
	if _, err := Index(l, NewInt(5)); err == nil {
		t.Fatal("out of range index did not error")
	}

	d := NewDict()
	d.Set("name", Str("nightjar"))
	v, err = Attribute(d, "name")
	if err != nil || v.(Str) != "nightjar" {
		t.Fatalf("Attribute(d,name) = %v, %v", v, err)
	}
	if _, err := Attribute(d, "missing"); err == nil {
		t.Fatal("missing key did not error")
	}
}

func TestTruthiness(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{Void{}, false},
		{Null{}, false},
		{Bool(false), false},
		{NewInt(0), false},
		{NewInt(1), true},
		{Str(""), false},
		{Str("x"), true},
		{List{}, false},
		{List{Items: []Value{NewInt(1)}}, true},
	}
	for _, c := range cases {
		if got := c.v.Truthy(); got != c.want {
			t.Errorf("%v.Truthy() = %v; want %v", c.v, got, c.want)
		}
	}
}
