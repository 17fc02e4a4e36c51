package vm_test

// End-to-end tests driving source text through the full
// compiler -> vm pipeline: grammar text in, input in, accepted
// value or reject/error out.

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nightjar-lang/nightjar/internal/builtin"
	"github.com/nightjar-lang/nightjar/internal/compiler"
	"github.com/nightjar-lang/nightjar/internal/value"
	"github.com/nightjar-lang/nightjar/internal/vm"
)

func runSource(t *testing.T, src, input string, opts vm.Options) vm.Outcome {
	t.Helper()
	compiled, err := compiler.Compile("test.njr", []byte(src))
	require.NoError(t, err)
	th := vm.New(compiled.Table, compiled.Program, []byte(input), opts, builtin.NewRegistry())
	return th.Run(compiled.Entry)
}

// arithmeticGrammar recognises decimal addition and multiplication with
// the usual precedence, folding digits the same way digitsGrammar's
// Digits parselet does below. Aliasing tags each binary node's operands
// and operator as lhs/op/rhs rather than a tagged {op:add, int:1, ...}
// shape, the same approximation leftRecursiveSumGrammar already takes
// for its own tree shape.
const arithmeticGrammar = `Expr := lhs => Term op => ('+' | '-') rhs => Expr | Term

Term := lhs => Digits op => ('*' | '/') rhs => Term | Digits

Digits := {
	[0-9]+
	s = ""
	for (i = 0; i < len($1); i += 1) {
		s = s + $1[i]
	}
	accept int(s)
}
`

func TestArithmeticGrammarBuildsPrecedenceTree(t *testing.T) {
	out := runSource(t, arithmeticGrammar, "1+2*3", vm.Options{Memo: true})
	require.True(t, out.Accepted)

	outer, ok := out.Value.(*value.Dict)
	require.True(t, ok, "expected the outermost result to be a dict, got %T", out.Value)
	require.Equal(t, "1", mustGet(t, outer, "lhs").String())
	require.Equal(t, "+", mustGet(t, outer, "op").String())

	inner, ok := mustGet(t, outer, "rhs").(*value.Dict)
	require.True(t, ok, "expected the right child to be a dict, got %T", mustGet(t, outer, "rhs"))
	require.Equal(t, "2", mustGet(t, inner, "lhs").String())
	require.Equal(t, "*", mustGet(t, inner, "op").String())
	require.Equal(t, "3", mustGet(t, inner, "rhs").String())
}

// stringEscapeGrammar accepts a double-quoted string literal and
// expands \n, \t and \xHH escapes found in its matched content. This is
// distinct from the compiler's own source-level string escaping in
// lex.go's scanQuoted, which only ever sees nightjar's grammar source,
// never the data a compiled grammar parses at runtime.
const stringEscapeGrammar = `StrLit := {
	'"'
	[^"]*
	raw = ""
	for (i = 0; i < len($2); i += 1) {
		raw = raw + $2[i]
	}
	'"'
	s = ""
	for (i = 0; i < len(raw); i += 1) {
		c = raw[i]
		if c == "\\" {
			i += 1
			nc = raw[i]
			if nc == "n" {
				s = s + "\n"
			} else if nc == "t" {
				s = s + "\t"
			} else if nc == "x" {
				v = (ord(raw[i+1]) - ord("0")) * 16 + (ord(raw[i+2]) - ord("0"))
				s = s + chr(v)
				i = i + 2
			} else {
				s = s + nc
			}
		} else {
			s = s + c
		}
	}
	accept s
}
`

func TestStringLiteralExpandsEscapes(t *testing.T) {
	out := runSource(t, stringEscapeGrammar, `"hi\n\x21"`, vm.Options{})
	require.True(t, out.Accepted)
	require.Equal(t, "hi\n!", out.Value.String())
}

// digitsGrammar folds a run of decimal digits into an Int: the
// quantifier collects each digit match into a list of single-character
// strings, so the body concatenates them back into one string before
// handing it to int().
const digitsGrammar = `Digits := {
	[0-9]+
	s = ""
	for (i = 0; i < len($1); i += 1) {
		s = s + $1[i]
	}
	accept int(s)
}
`

func TestCharClassQuantifierYieldsInt(t *testing.T) {
	out := runSource(t, digitsGrammar, "00042abc", vm.Options{Memo: true})
	require.True(t, out.Accepted)
	require.Equal(t, "42", out.Value.String())
}

// leftRecursiveSumGrammar is the classic `E := E "+" N | N`:
// a direct left-recursive alternative growing a left-associative tree,
// here represented as nested {lhs, rhs} dicts rather than named "op"
// fields, since aliasing only tags the two operands.
const leftRecursiveSumGrammar = `E := lhs => E '+' rhs => N | N

N := {
	[0-9]+
	s = ""
	for (i = 0; i < len($1); i += 1) {
		s = s + $1[i]
	}
	accept int(s)
}
`

func TestLeftRecursionBuildsLeftAssociativeTree(t *testing.T) {
	// Memo enabled deliberately: this is the path that once let a
	// left-recursive seed's in-progress failure get memoized and
	// permanently block growth.
	out := runSource(t, leftRecursiveSumGrammar, "1+2+3", vm.Options{Memo: true})
	require.True(t, out.Accepted)

	outer, ok := out.Value.(*value.Dict)
	require.True(t, ok, "expected the outermost result to be a dict, got %T", out.Value)
	rhs, _ := outer.Get("rhs")
	require.Equal(t, "3", rhs.String())

	inner, ok := mustGet(t, outer, "lhs").(*value.Dict)
	require.True(t, ok, "expected the left child to be a dict, got %T", mustGet(t, outer, "lhs"))
	require.Equal(t, "1", mustGet(t, inner, "lhs").String())
	require.Equal(t, "2", mustGet(t, inner, "rhs").String())
}

func TestLeftRecursionWithoutMemo(t *testing.T) {
	out := runSource(t, leftRecursiveSumGrammar, "1+2+3", vm.Options{Memo: false})
	require.True(t, out.Accepted)
	outer, ok := out.Value.(*value.Dict)
	require.True(t, ok)
	rhs, _ := outer.Get("rhs")
	require.Equal(t, "3", rhs.String())
}

func mustGet(t *testing.T, d *value.Dict, key string) value.Value {
	t.Helper()
	v, ok := d.Get(key)
	require.True(t, ok, "missing key %q", key)
	return v
}

const expectFailureGrammar = `S := "a" expect "b"
`

func TestExpectRaisesDiagnostic(t *testing.T) {
	out := runSource(t, expectFailureGrammar, "ax", vm.Options{})
	require.False(t, out.Accepted)
	require.NotEmpty(t, out.Diagnostics)
	found := false
	for _, d := range out.Diagnostics {
		if strings.Contains(d.Error(), "b") {
			found = true
		}
	}
	require.True(t, found, "expected a diagnostic mentioning 'b', got %v", out.Diagnostics)
}

// nullableStarGrammar wraps an optional (hence nullable) child in a
// Kleene star: each iteration that matches without advancing must end
// the loop rather than spin at the same offset.
const nullableStarGrammar = `S := ("a"?)* EOF
`

func TestKleeneOverNullableChildTerminates(t *testing.T) {
	out := runSource(t, nullableStarGrammar, "", vm.Options{StepLimit: 10000})
	require.True(t, out.Accepted)

	out = runSource(t, nullableStarGrammar, "aaa", vm.Options{StepLimit: 10000})
	require.True(t, out.Accepted)
}

// quantAfterCaptureGrammar pins down that a zero-capture quantifier
// iteration cannot steal a capture an earlier sequence item produced.
const quantAfterCaptureGrammar = `S := "x" ("a"?)* EOF
`

func TestQuantifierDoesNotStealPriorCapture(t *testing.T) {
	out := runSource(t, quantAfterCaptureGrammar, "x", vm.Options{StepLimit: 10000})
	require.True(t, out.Accepted)
	require.Equal(t, "[]", out.Value.String())
}

const astEmitterGrammar = `A := [0-9]+ ast("num")
`

func TestASTEmitterWrapsUniformNode(t *testing.T) {
	out := runSource(t, astEmitterGrammar, "42", vm.Options{})
	require.True(t, out.Accepted)
	d, ok := out.Value.(*value.Dict)
	require.True(t, ok, "expected an ast() node dict, got %T", out.Value)
	require.Equal(t, "num", mustGet(t, d, "emit").String())
	require.Equal(t, "1", mustGet(t, d, "row").String())
	require.Equal(t, "1", mustGet(t, d, "col").String())
	require.Equal(t, "[4, 2]", mustGet(t, d, "children").String())
}

const peekValueGrammar = `S := peek "ab" "a"
`

func TestPeekYieldsChildValueWithoutConsuming(t *testing.T) {
	out := runSource(t, peekValueGrammar, "ab", vm.Options{})
	require.True(t, out.Accepted)
	require.Equal(t, "ab", out.Value.String())

	rejected := runSource(t, peekValueGrammar, "ax", vm.Options{})
	require.False(t, rejected.Accepted)
}

const peekNotGrammar = `S := not "x" .
`

func TestNotRejectsOnMatchAcceptsOtherwise(t *testing.T) {
	rejected := runSource(t, peekNotGrammar, "x", vm.Options{})
	require.False(t, rejected.Accepted)

	accepted := runSource(t, peekNotGrammar, "y", vm.Options{})
	require.True(t, accepted.Accepted)
	require.Equal(t, "y", accepted.Value.String())
}

const explicitErrorGrammar = `S := "a" | error("custom message")
`

func TestExplicitErrorIsRecoverableNotFatal(t *testing.T) {
	out := runSource(t, explicitErrorGrammar, "b", vm.Options{})
	require.False(t, out.Accepted)
	found := false
	for _, d := range out.Diagnostics {
		if strings.Contains(d.Error(), "custom message") {
			found = true
		}
	}
	require.True(t, found, "expected a diagnostic mentioning 'custom message', got %v", out.Diagnostics)
}
