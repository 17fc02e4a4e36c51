package reader

import "testing"

func TestPeekNextEOF(t *testing.T) {
	r := New([]byte("ab"))

	rn, ok := r.Peek()
	if !ok || rn != 'a' {
		t.Fatalf("Peek() = %q, %v; want 'a', true", rn, ok)
	}

	rn, ok = r.Next()
	if !ok || rn != 'a' {
		t.Fatalf("Next() = %q, %v; want 'a', true", rn, ok)
	}

	rn, ok = r.Next()
	if !ok || rn != 'b' {
		t.Fatalf("Next() = %q, %v; want 'b', true", rn, ok)
	}

	if _, ok := r.Next(); ok {
		t.Fatalf("Next() at EOF returned ok=true")
	}
	if !r.AtEOF() {
		t.Fatalf("AtEOF() = false after consuming all input")
	}
}

func TestMarkRestore(t *testing.T) {
	r := New([]byte("hello"))
	m := r.Mark()
	r.Next()
	r.Next()
	r.Restore(m)

	rn, ok := r.Peek()
	if !ok || rn != 'h' {
		t.Fatalf("after restore, Peek() = %q, %v; want 'h', true", rn, ok)
	}
}

func TestLineCol(t *testing.T) {
	r := New([]byte("ab\ncd"))
	for i := 0; i < 3; i++ {
		r.Next()
	}
	pos := r.Pos()
	if pos.Line != 2 || pos.Col != 1 {
		t.Fatalf("Pos() = %+v; want line=2 col=1", pos)
	}

	line, col := r.LineCol(4)
	if line != 2 || col != 2 {
		t.Fatalf("LineCol(4) = %d,%d; want 2,2", line, col)
	}
}

func TestSlice(t *testing.T) {
	r := New([]byte("hello world"))
	start := r.Mark()
	for i := 0; i < 5; i++ {
		r.Next()
	}
	end := r.Mark()
	if got := string(r.Slice(start, end)); got != "hello" {
		t.Fatalf("Slice() = %q; want %q", got, "hello")
	}
}
