// Public domain.

// Package grbseg implements half-open GPS time segments and segment lists.
//
// Lists returned by functions of this package are coalesced: sorted by start
// time, non-empty, and with no two segments overlapping or touching.
package grbseg

import "sort"

// Seg is the half-open interval [Start, End) in GPS seconds.
type Seg struct {
	Start, End float64
}

// Duration returns the length of s, or 0 for an empty or inverted segment.
func (s Seg) Duration() float64 {
	if s.End <= s.Start {
		return 0
	}
	return s.End - s.Start
}

// Empty reports whether s contains no time.
func (s Seg) Empty() bool {
	return !(s.End > s.Start)
}

// Contains reports whether t is in [Start, End).
func (s Seg) Contains(t float64) bool {
	return t >= s.Start && t < s.End
}

// Intersects reports whether s and o share any time.
func (s Seg) Intersects(o Seg) bool {
	return s.Start < o.End && o.Start < s.End && !s.Empty() && !o.Empty()
}

// Shift returns s moved by dt seconds.
func (s Seg) Shift(dt float64) Seg {
	return Seg{s.Start + dt, s.End + dt}
}

// List is a list of segments.
type List []Seg

// Coalesce returns a new sorted list with empty segments dropped and
// overlapping or touching segments merged.  l is not modified.
func (l List) Coalesce() List {
	c := make(List, 0, len(l))
	for _, s := range l {
		if !s.Empty() {
			c = append(c, s)
		}
	}
	if len(c) == 0 {
		return c
	}
	sort.Slice(c, func(i, j int) bool {
		if c[i].Start != c[j].Start {
			return c[i].Start < c[j].Start
		}
		return c[i].End < c[j].End
	})
	out := c[:1]
	for _, s := range c[1:] {
		last := &out[len(out)-1]
		if s.Start <= last.End {
			if s.End > last.End {
				last.End = s.End
			}
			continue
		}
		out = append(out, s)
	}
	return out
}

// Union returns the coalesced union of l and o.
func (l List) Union(o List) List {
	u := make(List, 0, len(l)+len(o))
	u = append(u, l...)
	return append(u, o...).Coalesce()
}

// Subtract returns the coalesced list of time in l but not in o.
func (l List) Subtract(o List) List {
	a := l.Coalesce()
	b := o.Coalesce()
	var out List
	j := 0
	for _, s := range a {
		start := s.Start
		// skip exclusions entirely before this segment
		for j < len(b) && b[j].End <= start {
			j++
		}
		for k := j; k < len(b) && b[k].Start < s.End; k++ {
			if b[k].Start > start {
				out = append(out, Seg{start, b[k].Start})
			}
			if b[k].End > start {
				start = b[k].End
			}
			if start >= s.End {
				break
			}
		}
		if start < s.End {
			out = append(out, Seg{start, s.End})
		}
	}
	if out == nil {
		out = List{}
	}
	return out
}

// Shift returns a copy of l with every segment moved by dt seconds.
func (l List) Shift(dt float64) List {
	out := make(List, len(l))
	for i, s := range l {
		out[i] = s.Shift(dt)
	}
	return out
}

// Duration returns the total time covered by l, counting overlaps once.
func (l List) Duration() (d float64) {
	for _, s := range l.Coalesce() {
		d += s.Duration()
	}
	return
}

// Intersects reports whether any segment of l intersects s.
func (l List) Intersects(s Seg) bool {
	for _, ls := range l {
		if ls.Intersects(s) {
			return true
		}
	}
	return false
}

// Contains reports whether some segment of l contains t.  l must be
// coalesced.
func (l List) Contains(t float64) bool {
	i := sort.Search(len(l), func(i int) bool { return l[i].End > t })
	return i < len(l) && l[i].Contains(t)
}
