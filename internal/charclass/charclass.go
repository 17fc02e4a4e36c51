// Package charclass implements the character-class value a bracket
// expression compiles to: an ordered set of Unicode code-point ranges
// plus an inverted flag, canonicalized on construction so membership
// testing stays cheap regardless of how the class was written.
package charclass

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// Range is an inclusive code-point range.
type Range struct {
	Lo, Hi rune
}

// Class is a canonicalized (sorted, merged, disjoint) character class.
type Class struct {
	ranges   []Range
	classes  []*unicode.RangeTable
	inverted bool
}

// New builds a Class from raw ranges and named Unicode classes
// (categories, scripts or properties), canonicalizing the ranges.
func New(ranges []Range, classNames []string, inverted bool) (*Class, error) {
	c := &Class{inverted: inverted}
	c.ranges = canonicalize(ranges)
	for _, name := range classNames {
		rt, err := lookupRangeTable(name)
		if err != nil {
			return nil, err
		}
		c.classes = append(c.classes, rt)
	}
	return c, nil
}

// canonicalize sorts ranges by Lo and merges overlapping/adjacent ones.
func canonicalize(in []Range) []Range {
	if len(in) == 0 {
		return nil
	}
	rs := append([]Range(nil), in...)
	sort.Slice(rs, func(i, j int) bool { return rs[i].Lo < rs[j].Lo })

	out := make([]Range, 0, len(rs))
	cur := rs[0]
	for _, r := range rs[1:] {
		if r.Lo <= cur.Hi+1 {
			if r.Hi > cur.Hi {
				cur.Hi = r.Hi
			}
			continue
		}
		out = append(out, cur)
		cur = r
	}
	out = append(out, cur)
	return out
}

// lookupRangeTable resolves a class name against Unicode categories,
// properties and scripts.
func lookupRangeTable(class string) (*unicode.RangeTable, error) {
	if rt, ok := unicode.Categories[class]; ok {
		return rt, nil
	}
	if rt, ok := unicode.Properties[class]; ok {
		return rt, nil
	}
	if rt, ok := unicode.Scripts[class]; ok {
		return rt, nil
	}
	return nil, fmt.Errorf("charclass: invalid Unicode class: %s", class)
}

// Contains reports membership via binary search over the canonical
// ranges, falling back to a linear scan of any named Unicode classes.
func (c *Class) Contains(rn rune) bool {
	found := containsRange(c.ranges, rn)
	if !found {
		for _, rt := range c.classes {
			if unicode.Is(rt, rn) {
				found = true
				break
			}
		}
	}
	if c.inverted {
		return !found
	}
	return found
}

// containsRange performs the O(log n) binary search over canonical,
// disjoint, sorted ranges.
func containsRange(ranges []Range, rn rune) bool {
	lo, hi := 0, len(ranges)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		r := ranges[mid]
		switch {
		case rn < r.Lo:
			hi = mid - 1
		case rn > r.Hi:
			lo = mid + 1
		default:
			return true
		}
	}
	return false
}

// String formats the class for debug disassembly: "[^a-z]" style, with
// named classes rendered as a count since they can't be stringified
// losslessly.
func (c *Class) String() string {
	var b strings.Builder
	b.WriteByte('[')
	if c.inverted {
		b.WriteByte('^')
	}
	for _, r := range c.ranges {
		if r.Lo == r.Hi {
			fmt.Fprintf(&b, "%c", r.Lo)
		} else {
			fmt.Fprintf(&b, "%c-%c", r.Lo, r.Hi)
		}
	}
	if n := len(c.classes); n > 0 {
		fmt.Fprintf(&b, "\\p{%d classes}", n)
	}
	b.WriteByte(']')
	return b.String()
}
