package capture

import (
	"github.com/nightjar-lang/nightjar/internal/reader"
	"github.com/nightjar-lang/nightjar/internal/value"
)

// SliceFunc returns the raw substring for a Span, supplied by the VM so
// this package stays independent of the reader's buffer lifetime.
type SliceFunc func(Span) string

// Collect applies the sequence-exit collection rule to a run of captures:
//
//  1. If any capture has an alias, the result is a Dict of alias->value
//     entries; unaliased siblings are collected under "children" only if
//     their severity is >= 1.
//  2. Else if there are multiple value-carrying captures, the result is
//     a List of them in source order.
//  3. Else if exactly one value-carrying capture remains, it bubbles up.
//  4. Else the joined range substring is the result.
func Collect(caps []Capture, slice SliceFunc) value.Value {
	if len(caps) == 0 {
		return value.Void{}
	}

	hasAlias := false
	for _, c := range caps {
		if c.HasAlias() {
			hasAlias = true
			break
		}
	}

	if hasAlias {
		return collectAliased(caps, slice)
	}

	valueCarrying := filterValueCarrying(caps)
	switch len(valueCarrying) {
	case 0:
		return joinedRange(caps, slice)
	case 1:
		return resolveValue(valueCarrying[0], slice)
	default:
		items := make([]value.Value, len(valueCarrying))
		for i, c := range valueCarrying {
			items[i] = resolveValue(c, slice)
		}
		return value.List{Items: items}
	}
}

// collectAliased builds the Dict for case 1, gathering unaliased
// siblings with severity >= SeverityValue under "children".
func collectAliased(caps []Capture, slice SliceFunc) value.Value {
	d := value.NewDict()
	var children []value.Value
	for _, c := range caps {
		if c.HasAlias() {
			d.Set(c.Alias, resolveValue(c, slice))
			continue
		}
		if c.Severity >= SeverityValue {
			children = append(children, resolveValue(c, slice))
		}
	}
	if len(children) > 0 {
		d.Set("children", value.List{Items: children})
	}
	return d
}

// filterValueCarrying returns the captures that contribute a value to
// collection: those with an explicit value, or a range-only capture
// whose severity requires it be collected regardless (>= SeverityCollected).
func filterValueCarrying(caps []Capture) []Capture {
	var out []Capture
	for _, c := range caps {
		if c.Severity == SeveritySkip {
			continue
		}
		if c.HasValue || c.Severity >= SeverityCollected {
			out = append(out, c)
		}
	}
	return out
}

// resolveValue returns a capture's script-visible value: its literal
// value if present, else the raw range substring.
func resolveValue(c Capture, slice SliceFunc) value.Value {
	if c.HasValue {
		return c.Value
	}
	if c.HasRange {
		return value.Str(slice(c.Range))
	}
	return value.Void{}
}

// joinedRange implements case 4: the substring spanning every capture's
// range, joined in source order.
func joinedRange(caps []Capture, slice SliceFunc) value.Value {
	var start, end reader.Offset
	found := false
	for _, c := range caps {
		if !c.HasRange || c.Severity == SeveritySkip {
			continue
		}
		if !found {
			start, end = c.Range.Start, c.Range.End
			found = true
			continue
		}
		if c.Range.Start < start {
			start = c.Range.Start
		}
		if c.Range.End > end {
			end = c.Range.End
		}
	}
	if !found {
		return value.Void{}
	}
	return value.Str(slice(Span{Start: start, End: end}))
}
