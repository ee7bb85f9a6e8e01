// Public domain.

// Package grbbkg ranks off-source trials and estimates false-alarm
// probabilities against the resulting background.
package grbbkg

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/soniakeys/grbpost/internal/grbtab"
	"github.com/soniakeys/grbpost/internal/grbtrial"
)

// Background holds the loudest statistic of every trial.
//
// Values is laid out like grbtrial.Set.Trials: Values[i] belongs to trial i
// of the set the background was ranked from.
type Background struct {
	Slides []int
	Start  []int
	Values []float64
	sorted []float64
}

// Rank finds, for each trial, the largest stat among triggers of the same
// slide ending in the trial.  Trials without triggers get zero.  stats must
// be aligned with trigs.
func Rank(set *grbtrial.Set, trigs []grbtab.Trigger, stats []float64) *Background {
	b := &Background{
		Slides: set.Slides,
		Start:  set.Start,
		Values: make([]float64, set.N()),
	}
	for i := range trigs {
		if j := set.Find(trigs[i].Slide, trigs[i].EndTime); j >= 0 && stats[i] > b.Values[j] {
			b.Values[j] = stats[i]
		}
	}
	b.sort()
	return b
}

func (b *Background) sort() {
	b.sorted = append([]float64{}, b.Values...)
	sort.Float64s(b.sorted)
}

// New constructs a Background from stored per-slide values.
func New(slides, start []int, values []float64) *Background {
	b := &Background{Slides: slides, Start: start, Values: values}
	b.sort()
	return b
}

// N returns the number of trials.
func (b *Background) N() int { return len(b.Values) }

// Slide returns the trial values of slide id.
func (b *Background) Slide(id int) []float64 {
	k := sort.SearchInts(b.Slides, id)
	if k == len(b.Slides) || b.Slides[k] != id {
		return nil
	}
	return b.Values[b.Start[k]:b.Start[k+1]]
}

// Median returns the empirical median trial value, 0 with no trials.
func (b *Background) Median() float64 {
	if len(b.sorted) == 0 {
		return 0
	}
	return stat.Quantile(.5, stat.Empirical, b.sorted, nil)
}

// Loudest returns the maximum trial value, optionally ignoring slide 0.
func (b *Background) Loudest(excludeZeroLag bool) float64 {
	var max float64
	for k, id := range b.Slides {
		if excludeZeroLag && id == 0 {
			continue
		}
		if v := b.Values[b.Start[k]:b.Start[k+1]]; len(v) > 0 {
			if m := floats.Max(v); m > max {
				max = m
			}
		}
	}
	return max
}

// Significance is a false-alarm probability estimate.
//
// With no louder trial, UpperBound is set and Value is 1/N: the FAP is
// only known to be below that.
type Significance struct {
	Count      int
	N          int
	Value      float64
	UpperBound bool
}

func (s Significance) String() string {
	if s.N == 0 {
		return "-"
	}
	if s.UpperBound {
		return fmt.Sprintf("< %.3g", s.Value)
	}
	return fmt.Sprintf("%.3g", s.Value)
}

// FAP counts trials louder than candidate.
func (b *Background) FAP(candidate float64) Significance {
	n := len(b.sorted)
	s := Significance{N: n}
	if n == 0 {
		return s
	}
	s.Count = n - sort.Search(n, func(i int) bool { return b.sorted[i] > candidate })
	if s.Count == 0 {
		s.UpperBound = true
		s.Value = 1 / float64(n)
		return s
	}
	s.Value = float64(s.Count) / float64(n)
	return s
}

// LoudestTriggers returns indexes of the n triggers with largest stat,
// loudest first.  Ties go to the earlier end time.  Vetoed triggers are not
// returned.
func LoudestTriggers(trigs []grbtab.Trigger, stats []float64, n int) []int {
	var x []int
	for i, s := range stats {
		if s > 0 {
			x = append(x, i)
		}
	}
	sort.SliceStable(x, func(i, j int) bool {
		a, b := x[i], x[j]
		if stats[a] != stats[b] {
			return stats[a] > stats[b]
		}
		return trigs[a].EndTime < trigs[b].EndTime
	})
	if len(x) > n {
		x = x[:n]
	}
	return x
}
