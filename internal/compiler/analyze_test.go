package compiler

import "testing"

// analyzeSource parses src and returns the computed flags keyed by
// parselet name.
func analyzeSource(t *testing.T, src string) (consumes, leftRec map[string]bool) {
	t.Helper()
	f, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	cArr, lArr := analyze(f.Defs)
	consumes, leftRec = map[string]bool{}, map[string]bool{}
	for i, d := range f.Defs {
		consumes[d.Name] = cArr[i]
		leftRec[d.Name] = lArr[i]
	}
	return consumes, leftRec
}

func TestAnalyzeFlags(t *testing.T) {
	tests := []struct {
		note     string
		src      string
		consumes map[string]bool
		leftRec  map[string]bool
	}{
		{
			note: "direct left recursion",
			src: `E := E '+' N | N
N := [0-9]+
`,
			consumes: map[string]bool{"E": true, "N": true},
			leftRec:  map[string]bool{"E": true, "N": false},
		},
		{
			note: "self-call after a non-consuming if statement",
			src: `E := {
	if 1 { x = 1 }
	E '+' N | N
}
N := [0-9]+
`,
			leftRec: map[string]bool{"E": true, "N": false},
		},
		{
			note: "self-call inside an if body",
			src: `P := {
	if 1 { P }
	'x'
}
`,
			consumes: map[string]bool{"P": true},
			leftRec:  map[string]bool{"P": true},
		},
		{
			note: "self-call inside a for body",
			src: `L := {
	for (i = 0; i < 2; i += 1) { L }
	'x'
}
`,
			leftRec: map[string]bool{"L": true},
		},
		{
			note: "self-call inside a loop body",
			src: `W := {
	loop 0 { W }
	'x'
}
`,
			leftRec: map[string]bool{"W": true},
		},
		{
			note: "indirect recursion through a nested if",
			src: `A := B
B := {
	if 1 { A '!' }
	'x'
}
`,
			consumes: map[string]bool{"A": true, "B": true},
			leftRec:  map[string]bool{"A": true, "B": true},
		},
		{
			note: "consuming token before the self-call",
			src: `R := 'x' R
`,
			consumes: map[string]bool{"R": true},
			leftRec:  map[string]bool{"R": false},
		},
		{
			note: "if consuming on both branches blocks recursion",
			src: `G := {
	if 1 { 'x' } else { 'y' }
	G
}
`,
			consumes: map[string]bool{"G": true},
			leftRec:  map[string]bool{"G": false},
		},
		{
			note: "optional consumption is not guaranteed consumption",
			src: `Q := 'a'?
`,
			consumes: map[string]bool{"Q": false},
			leftRec:  map[string]bool{"Q": false},
		},
		{
			note: "loop body alone never guarantees consumption",
			src: `Z := loop 0 { 'x' }
`,
			consumes: map[string]bool{"Z": false},
			leftRec:  map[string]bool{"Z": false},
		},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			consumes, leftRec := analyzeSource(t, tc.src)
			for name, want := range tc.consumes {
				if got := consumes[name]; got != want {
					t.Errorf("consumes[%s] = %v; want %v", name, got, want)
				}
			}
			for name, want := range tc.leftRec {
				if got := leftRec[name]; got != want {
					t.Errorf("leftRec[%s] = %v; want %v", name, got, want)
				}
			}
		})
	}
}
