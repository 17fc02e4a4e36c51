package capture

import (
	"testing"

	"github.com/nightjar-lang/nightjar/internal/value"
)

func slicer(s string) SliceFunc {
	return func(sp Span) string { return s[sp.Start:sp.End] }
}

func TestCollectSingleValueBubbles(t *testing.T) {
	caps := []Capture{FromValue(value.NewInt(42))}
	got := Collect(caps, slicer(""))
	if iv, ok := got.(value.Int); !ok || iv.V.Int64() != 42 {
		t.Fatalf("Collect() = %v; want Int(42)", got)
	}
}

func TestCollectMultipleValuesList(t *testing.T) {
	caps := []Capture{FromValue(value.NewInt(1)), FromValue(value.NewInt(2))}
	got := Collect(caps, slicer(""))
	l, ok := got.(value.List)
	if !ok || len(l.Items) != 2 {
		t.Fatalf("Collect() = %v; want List of 2", got)
	}
}

func TestCollectJoinedRangeFallback(t *testing.T) {
	caps := []Capture{
		FromRange(Span{0, 3}),
	}
	got := Collect(caps, slicer("hello world"))
	s, ok := got.(value.Str)
	if !ok || s != "hel" {
		t.Fatalf("Collect() = %v; want Str(hel)", got)
	}
}

// TestCollectTouchOnlySequenceIsVoid exercises a sequence whose sole
// capture is a Touch match (lowered with SeveritySkip): Touch
// contributes void, not its matched range, even when it is the only
// capture in the sequence and would otherwise fall through to the
// joined-range case.
func TestCollectTouchOnlySequenceIsVoid(t *testing.T) {
	caps := []Capture{
		FromRange(Span{0, 3}).WithSeverity(SeveritySkip),
	}
	got := Collect(caps, slicer("hello world"))
	if _, ok := got.(value.Void); !ok {
		t.Fatalf("Collect() = %v; want Void{}", got)
	}
}

func TestCollectAliasedDictWithChildren(t *testing.T) {
	caps := []Capture{
		FromValue(value.NewInt(1)).WithAlias("a"),
		FromRange(Span{0, 5}).WithSeverity(SeverityKeep),
	}
	got := Collect(caps, slicer("hello world"))
	d, ok := got.(*value.Dict)
	if !ok {
		t.Fatalf("Collect() = %T; want *Dict", got)
	}
	v, ok := d.Get("a")
	if !ok || v.(value.Int).V.Int64() != 1 {
		t.Fatalf("Dict[a] = %v", v)
	}
	children, ok := d.Get("children")
	if !ok {
		t.Fatal("Dict has no children entry")
	}
	cl := children.(value.List)
	if len(cl.Items) != 1 || cl.Items[0].(value.Str) != "hello" {
		t.Fatalf("children = %v", cl)
	}
}

func TestCollectEmptyIsVoid(t *testing.T) {
	got := Collect(nil, slicer(""))
	if _, ok := got.(value.Void); !ok {
		t.Fatalf("Collect(nil) = %v; want Void", got)
	}
}

func TestCollectedSeverityIgnoresHasValue(t *testing.T) {
	caps := []Capture{
		FromRange(Span{0, 5}).WithSeverity(SeverityCollected),
	}
	got := Collect(caps, slicer("hello world"))
	if s, ok := got.(value.Str); !ok || s != "hello" {
		t.Fatalf("Collect() = %v; want Str(hello) via severity>=5 collection", got)
	}
}
