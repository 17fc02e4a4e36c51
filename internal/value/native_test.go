package value

import (
	"math/big"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestToNativeScalars(t *testing.T) {
	require.Nil(t, ToNative(Void{}))
	require.Nil(t, ToNative(Null{}))
	require.Equal(t, true, ToNative(Bool(true)))
	require.Equal(t, int64(42), ToNative(NewInt(42)))
	require.Equal(t, "nightjar", ToNative(Str("nightjar")))
}

// TestToNativeNestedStructure exercises the deep Dict/List conversion
// the `dump` command's JSON/YAML encoders rely on, diffing the
// converted tree against a literal map[string]any/[]any shape.
func TestToNativeNestedStructure(t *testing.T) {
	d := NewDict()
	d.Set("op", Str("add"))
	lhs := NewDict()
	lhs.Set("int", NewInt(1))
	d.Set("lhs", lhs)
	d.Set("children", List{Items: []Value{NewInt(2), NewInt(3)}})

	got := ToNative(d)
	want := map[string]any{
		"op":       "add",
		"lhs":      map[string]any{"int": int64(1)},
		"children": []any{int64(2), int64(3)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ToNative() mismatch (-want +got):\n%s", diff)
	}
}

func TestToNativeBigIntOverflowsToString(t *testing.T) {
	huge := Int{V: new(big.Int).Lsh(big.NewInt(1), 100)}
	got, ok := ToNative(huge).(string)
	require.True(t, ok, "expected an overflowing Int to render as its decimal string")
	require.NotEmpty(t, got)
}
