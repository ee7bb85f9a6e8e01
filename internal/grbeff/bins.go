// Public domain.

package grbeff

import (
	"errors"
	"math"

	"go-hep.org/x/hep/hbook"
)

// Binning defines N linear distance bins on [Lower, Upper) plus an overflow
// bin, index N, holding everything at or beyond Upper.
type Binning struct {
	N            int
	Lower, Upper float64 // Mpc
}

// Validate checks b.
func (b Binning) Validate() error {
	if b.N < 1 {
		return errors.New("num_bins must be at least 1")
	}
	if !(b.Lower >= 0) || !(b.Upper > b.Lower) || math.IsInf(b.Upper, 0) {
		return errors.New("distance range must satisfy 0 <= lower_dist < upper_dist")
	}
	return nil
}

// Width returns the width of a regular bin.
func (b Binning) Width() float64 {
	return (b.Upper - b.Lower) / float64(b.N)
}

// Index returns the bin of distance d.  Distances below Lower are in no bin.
func (b Binning) Index(d float64) (x int, inRange bool) {
	if !(d >= b.Lower) {
		return
	}
	if d >= b.Upper {
		return b.N, true
	}
	x = int((d - b.Lower) / b.Width())
	if x >= b.N { // rounding at the upper edge
		x = b.N - 1
	}
	return x, true
}

// Center returns the mid point of bin x.  The overflow bin is given the
// center it would have as one more regular bin.
func (b Binning) Center(x int) float64 {
	return b.Lower + (float64(x)+.5)*b.Width()
}

// Edges returns the limits of bin x.  The overflow bin has hi = +Inf.
func (b Binning) Edges(x int) (lo, hi float64) {
	lo = b.Lower + float64(x)*b.Width()
	if x >= b.N {
		return b.Upper, math.Inf(1)
	}
	return lo, lo + b.Width()
}

// Curve accumulates injection counts by distance bin.
//
// Three histograms share the binning: all injections, injections louder
// than the loudest background trial, and injections louder than the
// foreground reference.
type Curve struct {
	Bins             Binning
	total, bkg, fore *hbook.H1D
}

func newCurve(b Binning) *Curve {
	// one extra regular-width bin serves as overflow
	hi := b.Upper + b.Width()
	return &Curve{
		Bins:  b,
		total: hbook.NewH1D(b.N+1, b.Lower, hi),
		bkg:   hbook.NewH1D(b.N+1, b.Lower, hi),
		fore:  hbook.NewH1D(b.N+1, b.Lower, hi),
	}
}

// fill counts one injection at distance d.
func (c *Curve) fill(d float64, aboveBkg, aboveFore bool) {
	x, ok := c.Bins.Index(d)
	if !ok {
		return
	}
	// fill at the bin center so floating point edges can't move an entry
	xc := c.Bins.Center(x)
	c.total.Fill(xc, 1)
	if aboveBkg {
		c.bkg.Fill(xc, 1)
	}
	if aboveFore {
		c.fore.Fill(xc, 1)
	}
}

func counts(h *hbook.H1D, n int) []int {
	c := make([]int, n)
	for i := range c {
		_, y := h.XY(i)
		c[i] = int(math.Round(y))
	}
	return c
}

// Total returns the number of injections per bin, overflow last.
func (c *Curve) Total() []int { return counts(c.total, c.Bins.N+1) }

// Background returns the efficiency against the loudest background trial.
func (c *Curve) Background() []Eff {
	return effs(counts(c.bkg, c.Bins.N+1), c.Total())
}

// Foreground returns the efficiency against the foreground reference.
func (c *Curve) Foreground() []Eff {
	return effs(counts(c.fore, c.Bins.N+1), c.Total())
}

func effs(found, total []int) []Eff {
	e := make([]Eff, len(total))
	for i := range e {
		e[i] = Wilson(found[i], total[i])
	}
	return e
}
