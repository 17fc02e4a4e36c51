package nightjar

// End-to-end tests driving grammar and input fixture files through
// runMain's full compile->run pipeline, capturing the injected writers
// rather than parsing process output.

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nightjar-lang/nightjar/internal/logging"
	"github.com/nightjar-lang/nightjar/internal/vm"
)

// writeFixture writes content to name under t.TempDir() and returns its
// path.
func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runFixture(t *testing.T, grammar, input string, opts vm.Options) (int, string, string) {
	t.Helper()
	grammarPath := writeFixture(t, "grammar.njr", grammar)
	inputPath := writeFixture(t, "input.txt", input)

	var stdout, stderr bytes.Buffer
	code, err := runMain(&stdout, &stderr, strings.NewReader(""), grammarPath, []string{inputPath}, opts, logging.NewNoOpLogger())
	require.NoError(t, err)
	return code, stdout.String(), stderr.String()
}

// Scenario 1: arithmetic grammar recognising decimal addition and
// multiplication, input "1+2*3".
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

func TestRunArithmeticGrammar(t *testing.T) {
	code, stdout, _ := runFixture(t, arithmeticGrammar, "1+2*3", vm.Options{Memo: true})
	require.Equal(t, ExitOK, code)
	require.Contains(t, stdout, "accept")
	require.Contains(t, stdout, "lhs: 1")
	require.Contains(t, stdout, "op: +")
}

// Scenario 2: character class and quantifier, T_Integer := [0-9]+ on
// "00042abc".
const integerGrammar = `T_Integer := {
	[0-9]+
	s = ""
	for (i = 0; i < len($1); i += 1) {
		s = s + $1[i]
	}
	accept int(s)
}
`

func TestRunCharClassQuantifier(t *testing.T) {
	code, stdout, _ := runFixture(t, integerGrammar, "00042abc", vm.Options{Memo: true})
	require.Equal(t, ExitOK, code)
	require.Contains(t, stdout, "accept 42")
}

// Scenario 3: string literal with \n/\t/\xHH escape expansion.
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

func TestRunStringLiteralEscapes(t *testing.T) {
	code, stdout, _ := runFixture(t, stringEscapeGrammar, `"hi\n\x21"`, vm.Options{})
	require.Equal(t, ExitOK, code)
	require.Contains(t, stdout, "accept hi")
}

// Scenario 4: left recursion, E := E "+" N | N on "1+2+3".
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

func TestRunLeftRecursion(t *testing.T) {
	code, stdout, _ := runFixture(t, leftRecursiveSumGrammar, "1+2+3", vm.Options{Memo: true})
	require.Equal(t, ExitOK, code)
	require.Contains(t, stdout, "accept")
	require.Contains(t, stdout, "rhs: 3")
}

// Scenario 5: expect failure, S := "a" expect "b" on "ax".
const expectFailureGrammar = `S := "a" expect "b"
`

func TestRunExpectFailureDiagnostic(t *testing.T) {
	code, _, stderr := runFixture(t, expectFailureGrammar, "ax", vm.Options{})
	require.Equal(t, ExitParseError, code)
	require.Contains(t, stderr, "b")
}

// Scenario 6: peek/not, S := not "x" . on "x" and "y".
const peekNotGrammar = `S := not "x" .
`

func TestRunPeekNot(t *testing.T) {
	code, stdout, _ := runFixture(t, peekNotGrammar, "x", vm.Options{})
	require.Equal(t, ExitParseError, code)
	require.Contains(t, stdout, "reject")

	code, stdout, _ = runFixture(t, peekNotGrammar, "y", vm.Options{})
	require.Equal(t, ExitOK, code)
	require.Contains(t, stdout, "accept y")
}
