// Public domain.

// Package grbtrial partitions the live time of each time slide into
// off-source trials.
package grbtrial

import (
	"errors"
	"math"
	"sort"

	"github.com/soniakeys/grbpost/internal/grbseg"
	"github.com/soniakeys/grbpost/internal/grbtab"
)

// Params controls trial construction.
//
// Duration is the nominal trial length, normally the on-source window
// length.  A usable interval shorter than MinDuration gives no trial, and a
// tail shorter than MinDuration is merged into the trial before it.
type Params struct {
	Duration    float64
	MinDuration float64
}

// Validate checks p.
func (p Params) Validate() error {
	if !(p.Duration > 0) {
		return errors.New("trial duration must be positive")
	}
	if !(p.MinDuration > 0) || p.MinDuration > p.Duration {
		return errors.New("minimum trial duration must be in (0, duration]")
	}
	return nil
}

// Trial is one independent off-source trial.
type Trial struct {
	Slide int
	grbseg.Seg
}

// Set holds the trials of all slides.  Slides are in ascending ID order and
// Trials[Start[k]:Start[k+1]] are the ordered trials of Slides[k].
type Set struct {
	Slides []int
	Start  []int
	Trials []Trial
}

// N returns the total number of trials.
func (s *Set) N() int { return len(s.Trials) }

// Slide returns the trials of slide id, nil if the slide has none.
func (s *Set) Slide(id int) []Trial {
	k := sort.SearchInts(s.Slides, id)
	if k == len(s.Slides) || s.Slides[k] != id {
		return nil
	}
	return s.Trials[s.Start[k]:s.Start[k+1]]
}

// Usable returns the segments of slide sl that are available for trials:
// segs less the slid vetoes of every detector and less the slid buffer.
func Usable(sl grbtab.TimeSlide, segs grbseg.List,
	vetoes [grbtab.NumIfo]grbseg.List, buffer grbseg.Seg) grbseg.List {
	var excl grbseg.List
	for ifo := grbtab.Ifo(0); ifo < grbtab.NumIfo; ifo++ {
		excl = append(excl, vetoes[ifo].Shift(-sl.Offset[ifo])...)
		if !buffer.Empty() {
			excl = append(excl, buffer.Shift(-sl.Offset[ifo]))
		}
	}
	return segs.Subtract(excl)
}

// Build constructs trials for all slides.
//
// segs holds per-slide segment lists; a slide with no segments gets no
// trials.  Output is deterministic for given input.
func Build(slides []grbtab.TimeSlide, segs map[int]grbseg.List,
	vetoes [grbtab.NumIfo]grbseg.List, buffer grbseg.Seg, p Params) (*Set, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	sorted := append([]grbtab.TimeSlide{}, slides...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	set := &Set{}
	for _, sl := range sorted {
		set.Slides = append(set.Slides, sl.ID)
		set.Start = append(set.Start, len(set.Trials))
		if len(segs[sl.ID]) == 0 {
			continue
		}
		for _, u := range Usable(sl, segs[sl.ID], vetoes, buffer) {
			set.Trials = tile(set.Trials, sl.ID, u, p)
		}
	}
	set.Start = append(set.Start, len(set.Trials))
	return set, nil
}

// Find returns the index in s.Trials of the trial of slide that contains
// time t, or -1.
func (s *Set) Find(slide int, t float64) int {
	k := sort.SearchInts(s.Slides, slide)
	if k == len(s.Slides) || s.Slides[k] != slide {
		return -1
	}
	lo, hi := s.Start[k], s.Start[k+1]
	// first trial ending after t
	j := lo + sort.Search(hi-lo, func(x int) bool {
		return s.Trials[lo+x].End > t
	})
	if j < hi && s.Trials[j].Contains(t) {
		return j
	}
	return -1
}

// tileEps is the relative slack, in units of the trial duration, allowed
// when counting whole trials in an interval.
const tileEps = 1e-9

// tile appends the trials covering u.
func tile(ts []Trial, slide int, u grbseg.Seg, p Params) []Trial {
	slack := tileEps * p.Duration
	if u.Duration()+slack < p.MinDuration {
		return ts
	}
	first := len(ts)
	n := int(math.Floor(u.Duration()/p.Duration + tileEps))
	tail := u.Start
	for k := 1; k <= n; k++ {
		end := math.Min(u.Start+float64(k)*p.Duration, u.End)
		ts = append(ts, Trial{slide, grbseg.Seg{Start: tail, End: end}})
		tail = end
	}
	switch rem := u.End - tail; {
	case rem <= slack:
		if len(ts) > first {
			ts[len(ts)-1].End = u.End
		}
	case rem+slack >= p.MinDuration || len(ts) == first:
		ts = append(ts, Trial{slide, grbseg.Seg{Start: tail, End: u.End}})
	default:
		ts[len(ts)-1].End = u.End
	}
	return ts
}
