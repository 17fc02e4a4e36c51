package program

import (
	"unicode"
	"unicode/utf8"

	"github.com/nightjar-lang/nightjar/internal/charclass"
	"github.com/nightjar-lang/nightjar/internal/reader"
)

// Matcher is a single-step consumer tried by OpMatch. It is given the
// reader positioned at the attempt's start and must leave it at the end
// of the match on success, or anywhere on failure: the compiler brackets
// every OpMatch with a save/restore-on-fail instruction pair, so a
// matcher that consumed partway before failing never leaks that
// consumption.
type Matcher interface {
	Match(r *reader.Reader) bool
	String() string
}

// AnyMatcher matches a single code point, but not EOF.
type AnyMatcher struct{}

func (AnyMatcher) Match(r *reader.Reader) bool {
	_, ok := r.Next()
	return ok
}
func (AnyMatcher) String() string { return "." }

// EOFMatcher succeeds only when the reader has no more runes.
type EOFMatcher struct{}

func (EOFMatcher) Match(r *reader.Reader) bool { return r.AtEOF() }
func (EOFMatcher) String() string              { return "$" }

// EmptyMatcher always succeeds without consuming, used for the Empty
// built-in token.
type EmptyMatcher struct{}

func (EmptyMatcher) Match(*reader.Reader) bool { return true }
func (EmptyMatcher) String() string            { return "Empty" }

// StringMatcher matches literal text, used for both Touch and Match
// tokens (the distinction is whether the caller keeps the resulting
// range capture, not in the matcher itself).
type StringMatcher struct {
	Value      string
	IgnoreCase bool
}

func (s StringMatcher) Match(r *reader.Reader) bool {
	for _, want := range s.Value {
		rn, ok := r.Peek()
		if !ok {
			return false
		}
		if s.IgnoreCase {
			rn = unicode.ToLower(rn)
			want = unicode.ToLower(want)
		}
		if rn != want {
			return false
		}
		r.Next()
	}
	return true
}
func (s StringMatcher) String() string { return s.Value }

// CharMatcher matches a single literal rune.
type CharMatcher struct {
	Rn         rune
	IgnoreCase bool
}

func (c CharMatcher) Match(r *reader.Reader) bool {
	rn, ok := r.Peek()
	if !ok {
		return false
	}
	got, want := rn, c.Rn
	if c.IgnoreCase {
		got, want = unicode.ToLower(got), unicode.ToLower(want)
	}
	if got != want {
		return false
	}
	r.Next()
	return true
}
func (c CharMatcher) String() string { return string(c.Rn) }

// CharsMatcher matches any one of a fixed set of runes.
type CharsMatcher struct {
	Set        []rune
	IgnoreCase bool
}

func (c CharsMatcher) Match(r *reader.Reader) bool {
	rn, ok := r.Peek()
	if !ok {
		return false
	}
	got := rn
	if c.IgnoreCase {
		got = unicode.ToLower(got)
	}
	for _, want := range c.Set {
		w := want
		if c.IgnoreCase {
			w = unicode.ToLower(w)
		}
		if got == w {
			r.Next()
			return true
		}
	}
	return false
}
func (c CharsMatcher) String() string { return string(c.Set) }

// ClassMatcher matches a single code point against a character class.
type ClassMatcher struct {
	Class *charclass.Class
}

func (c ClassMatcher) Match(r *reader.Reader) bool {
	rn, ok := r.Peek()
	if !ok || rn == utf8.RuneError {
		return false
	}
	if !c.Class.Contains(rn) {
		return false
	}
	r.Next()
	return true
}
func (c ClassMatcher) String() string { return c.Class.String() }
