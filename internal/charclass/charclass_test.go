package charclass

import "testing"

func TestContainsRanges(t *testing.T) {
	c, err := New([]Range{{'0', '9'}, {'a', 'f'}}, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	for _, rn := range []rune{'0', '5', '9', 'a', 'f'} {
		if !c.Contains(rn) {
			t.Errorf("Contains(%q) = false; want true", rn)
		}
	}
	for _, rn := range []rune{'g', 'A', ' '} {
		if c.Contains(rn) {
			t.Errorf("Contains(%q) = true; want false", rn)
		}
	}
}

func TestInverted(t *testing.T) {
	c, err := New([]Range{{'a', 'z'}}, nil, true)
	if err != nil {
		t.Fatal(err)
	}
	if c.Contains('m') {
		t.Error("inverted class should reject 'm'")
	}
	if !c.Contains('M') {
		t.Error("inverted class should accept 'M'")
	}
}

func TestCanonicalizeMergesOverlaps(t *testing.T) {
	c, err := New([]Range{{'d', 'f'}, {'a', 'c'}, {'b', 'e'}}, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.ranges) != 1 || c.ranges[0] != (Range{'a', 'f'}) {
		t.Fatalf("canonicalize() = %v; want single merged range a-f", c.ranges)
	}
}

func TestNamedUnicodeClass(t *testing.T) {
	c, err := New(nil, []string{"L"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Contains('A') {
		t.Error("Contains('A') = false for \\p{L}")
	}
	if c.Contains('5') {
		t.Error("Contains('5') = true for \\p{L}")
	}
}

func TestInvalidClassName(t *testing.T) {
	if _, err := New(nil, []string{"NotAClass"}, false); err == nil {
		t.Fatal("expected error for invalid class name")
	}
}
