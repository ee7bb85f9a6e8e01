// Public domain.

// Package grbeff computes injection recovery efficiency as a function of
// distance, and the sensitive and exclusion distances derived from it.
//
// Injections are classified against the loudest background trial and
// against a foreground reference, redrawn in distance to marginalize over
// calibration and waveform amplitude error, and counted in distance bins.
package grbeff

import (
	"errors"
	"math"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/soniakeys/grbpost/internal/grbinj"
	"github.com/soniakeys/grbpost/internal/grbtab"
)

// Eff is the recovery efficiency of one bin.
//
// Fraction is Found/Total, ErrLow and ErrHigh are distances from Fraction
// to the ends of the interval.  With Total == 0 nothing is defined and all
// values are zero.
type Eff struct {
	Found, Total    int
	Fraction        float64
	ErrLow, ErrHigh float64
	Defined         bool
}

// Wilson returns the efficiency of found out of total with the Wilson score
// interval for z = 1.
func Wilson(found, total int) Eff {
	e := Eff{Found: found, Total: total}
	if total <= 0 {
		return e
	}
	k, n := float64(found), float64(total)
	e.Defined = true
	e.Fraction = k / n
	common := n * (2*k + 1)
	denom := 2 * n * (n + 1)
	vary := math.Sqrt(4*n*k*(n-k) + n*n)
	e.ErrLow = e.Fraction - (common-vary)/denom
	e.ErrHigh = (common+vary)/denom - e.Fraction
	return e
}

// Status qualifies a Distance.
type Status int

const (
	Measured    Status = iota
	Unreached          // curve under threshold in every bin
	Unbounded          // curve still above threshold in the last bin
	NotComputed        // no bin had injections
)

var statusNames = [...]string{"measured", "unreached", "unbounded", "not computed"}

func (s Status) String() string { return statusNames[s] }

// Distance is a distance at which an efficiency curve crosses a threshold.
// Mpc is the crossing for Measured, a lower limit (the last bin center) for
// Unbounded, and zero otherwise.
type Distance struct {
	Mpc    float64
	Status Status
}

// Crossing finds where y, sampled at increasing x, falls below thr.
//
// The scan starts at the first point at or above thr and advances while the
// next point stays at or above thr.  The result interpolates linearly
// between that point and the next.
func Crossing(x, y []float64, thr float64) Distance {
	if len(y) == 0 {
		return Distance{Status: NotComputed}
	}
	i := 0
	for i < len(y) && y[i] < thr {
		i++
	}
	if i == len(y) {
		return Distance{Status: Unreached}
	}
	for i+1 < len(y) && y[i+1] >= thr {
		i++
	}
	if i+1 == len(y) {
		return Distance{Mpc: x[i], Status: Unbounded}
	}
	d := x[i] + (y[i]-thr)*(x[i+1]-x[i])/(y[i]-y[i+1])
	return Distance{Mpc: d, Status: Measured}
}

// Disposition classifies an injection.
type Disposition int

const (
	FoundLoud  Disposition = iota // louder than the loudest background trial
	FoundQuiet                    // recovered, not louder than background
	Vetoed                        // recovered with zero statistic
	Missed                        // no associated trigger
)

var dispNames = [...]string{"found", "quiet", "vetoed", "missed"}

func (d Disposition) String() string { return dispNames[d] }

// Classified is a matched injection with its disposition.
// Glitched marks a FoundLoud injection near a louder zero-lag trigger; it is
// not counted as found against the foreground.
type Classified struct {
	grbinj.Found
	Disposition Disposition
	Glitched    bool
}

// Params configures the engine.
type Params struct {
	Bins                Binning
	NumMC               int
	CalError            [grbtab.NumIfo]float64
	DCCalError          [grbtab.NumIfo]float64
	WaveformError       float64
	ClusterWindow       float64 // seconds, glitch check
	GlitchCheckFactor   float64 // <= 0 disables the glitch check
	ExclusionPercentile float64
}

// Validate checks p.
func (p *Params) Validate() error {
	if err := p.Bins.Validate(); err != nil {
		return err
	}
	if p.NumMC < 0 {
		return errors.New("num_mc_injs must not be negative")
	}
	for ifo := range p.CalError {
		if p.CalError[ifo] < 0 || p.DCCalError[ifo] < 0 {
			return errors.New("calibration errors must not be negative")
		}
	}
	if ae := p.AmplitudeError(); ae.Cal*zMax >= 1 {
		return errors.New("combined calibration error too large for distance redraws")
	}
	if p.WaveformError < 0 || p.ClusterWindow < 0 {
		return errors.New("waveform_error and cluster_window must not be negative")
	}
	if p.ExclusionPercentile < 50 || p.ExclusionPercentile > 99 {
		return errors.New("exclusion_percentile must be in [50, 99]")
	}
	return nil
}

// AmplitudeError returns the combined amplitude error of p.
func (p *Params) AmplitudeError() AmplitudeError {
	return amplitudeError(p.CalError, p.DCCalError, p.WaveformError)
}

// Input is what the engine consumes beyond Params.
type Input struct {
	Injections []grbinj.Found
	Background float64 // loudest background trial
	Foreground float64 // reference for exclusion counts
	// zero-lag off-source triggers for the glitch check
	ZeroLag      []grbtab.Trigger
	ZeroLagStats []float64
}

// Result is the engine output.
type Result struct {
	Injections []Classified
	NoMC, MC   *Curve
	Sensitive  Distance // 50% on the no-MC background curve
	Exclusion  Distance // percentile on the reduced foreground curve
	// ExclusionNoMC is set when Exclusion was taken from the no-MC curve
	ExclusionNoMC bool
}

// Classify assigns dispositions and runs the glitch check.
func Classify(p *Params, in *Input) []Classified {
	ix := make([]int, len(in.ZeroLag))
	for i := range ix {
		ix[i] = i
	}
	sort.Slice(ix, func(a, b int) bool {
		return in.ZeroLag[ix[a]].EndTime < in.ZeroLag[ix[b]].EndTime
	})
	c := make([]Classified, len(in.Injections))
	for i, f := range in.Injections {
		c[i].Found = f
		switch {
		case !f.Recovered():
			c[i].Disposition = Missed
		case f.Stat == 0:
			c[i].Disposition = Vetoed
		case f.Stat > in.Background:
			c[i].Disposition = FoundLoud
			c[i].Glitched = p.GlitchCheckFactor > 0 && glitch(in, ix,
				f.Injection.Time, p.ClusterWindow, f.Stat*p.GlitchCheckFactor)
		default:
			c[i].Disposition = FoundQuiet
		}
	}
	return c
}

// glitch reports whether a zero-lag trigger within window of t is louder
// than limit.  ix orders in.ZeroLag by time.
func glitch(in *Input, ix []int, t, window, limit float64) bool {
	lo := sort.Search(len(ix), func(i int) bool {
		return in.ZeroLag[ix[i]].EndTime >= t-window
	})
	for _, i := range ix[lo:] {
		if in.ZeroLag[i].EndTime > t+window {
			break
		}
		if in.ZeroLagStats[i] > limit {
			return true
		}
	}
	return false
}

// Run computes efficiency curves and distances.  rnd drives the Monte
// Carlo redraws; pass a seeded source for repeatable output.
func Run(p *Params, in *Input, rnd Rand, log logrus.FieldLogger) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(in.ZeroLag) != len(in.ZeroLagStats) {
		return nil, errors.New("zero-lag triggers and statistics differ in length")
	}
	r := &Result{Injections: Classify(p, in)}

	dist := make([]float64, len(r.Injections))
	for i := range r.Injections {
		dist[i] = r.Injections[i].Injection.Distance
	}
	mc := Redraw(dist, p.AmplitudeError(), p.NumMC, rnd)

	r.NoMC = newCurve(p.Bins)
	r.MC = newCurve(p.Bins)
	n := len(dist)
	for k := 0; k <= p.NumMC; k++ {
		c := r.MC
		if k == 0 {
			c = r.NoMC
		}
		for i := range r.Injections {
			inj := &r.Injections[i]
			c.fill(mc[k*n+i], inj.Disposition == FoundLoud,
				inj.Stat > in.Foreground && !inj.Glitched)
		}
	}
	if p.NumMC == 0 {
		r.MC = r.NoMC
	}

	x := centers(p.Bins)
	r.Sensitive = crossAt(x, r.NoMC.Background(), 1, .5)
	thr := p.ExclusionPercentile / 100
	z := distuv.UnitNormal.Quantile(thr)
	r.Exclusion = crossAt(x, r.MC.Foreground(), z, thr)
	if r.Exclusion.Status == Unbounded && p.NumMC > 0 {
		r.Exclusion = crossAt(x, r.NoMC.Foreground(), z, thr)
		r.ExclusionNoMC = true
	}

	if log != nil {
		if r.Sensitive.Status != Measured {
			log.WithField("status", r.Sensitive.Status).
				Error("unable to measure 50% sensitive distance")
		}
		if r.Exclusion.Status != Measured {
			log.WithFields(logrus.Fields{
				"status":     r.Exclusion.Status,
				"percentile": p.ExclusionPercentile,
			}).Error("unable to measure exclusion distance")
		}
	}
	return r, nil
}

func centers(b Binning) []float64 {
	x := make([]float64, b.N)
	for i := range x {
		x[i] = b.Center(i)
	}
	return x
}

// crossAt reduces each defined regular bin to fraction - zs*ErrLow and
// finds where that falls below thr.  Undefined bins are skipped.
func crossAt(x []float64, e []Eff, zs, thr float64) Distance {
	var xs, ys []float64
	for i := range x {
		if e[i].Defined {
			xs = append(xs, x[i])
			ys = append(ys, e[i].Fraction-zs*e[i].ErrLow)
		}
	}
	return Crossing(xs, ys, thr)
}
