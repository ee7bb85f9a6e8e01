// Public domain.

// Package grbinj associates simulated signals with the triggers of the
// injection run.
package grbinj

import (
	"math"
	"sort"

	"github.com/soniakeys/coord"
	"github.com/soniakeys/unit"

	"github.com/soniakeys/grbpost/internal/grbtab"
)

// Found is the result of matching one injection.
//
// Trigger is the index of the loudest trigger within the matching window,
// -1 when nothing was recovered.  Stat and SkyError are meaningful only for
// a recovered injection.
type Found struct {
	Injection grbtab.Injection
	Trigger   int
	Stat      float64
	SkyError  unit.Angle
}

// Recovered reports whether any trigger was associated with the injection.
func (f *Found) Recovered() bool { return f.Trigger >= 0 }

// Match associates each injection with the loudest trigger whose end time
// is within window seconds of the injection time.  Ties go to the trigger
// closest in time.  stats must be aligned with trigs.
func Match(injs []grbtab.Injection, trigs []grbtab.Trigger, stats []float64,
	window float64) []Found {
	// time order for window searches
	ix := make([]int, len(trigs))
	for i := range ix {
		ix[i] = i
	}
	sort.Slice(ix, func(a, b int) bool { return trigs[ix[a]].EndTime < trigs[ix[b]].EndTime })

	found := make([]Found, len(injs))
	for n, in := range injs {
		f := Found{Injection: in, Trigger: -1}
		lo := sort.Search(len(ix), func(i int) bool {
			return trigs[ix[i]].EndTime >= in.Time-window
		})
		for _, i := range ix[lo:] {
			t := &trigs[i]
			if t.EndTime > in.Time+window {
				break
			}
			switch {
			case f.Trigger < 0, stats[i] > f.Stat:
			case stats[i] == f.Stat &&
				math.Abs(t.EndTime-in.Time) < math.Abs(trigs[f.Trigger].EndTime-in.Time):
			default:
				continue
			}
			f.Trigger = i
			f.Stat = stats[i]
		}
		if f.Recovered() {
			t := &trigs[f.Trigger]
			f.SkyError = Separation(in.RA, in.Dec, t.RA, t.Dec)
		}
		found[n] = f
	}
	return found
}

// UnitVector returns the equatorial unit vector toward ra, dec.
func UnitVector(ra unit.RA, dec unit.Angle) coord.Cart {
	sdec, cdec := math.Sincos(dec.Rad())
	sra, cra := math.Sincos(ra.Rad())
	return coord.Cart{
		X: cra * cdec,
		Y: sra * cdec,
		Z: sdec,
	}
}

// Separation returns the great circle angle between two sky positions.
func Separation(ra1 unit.RA, dec1 unit.Angle, ra2 unit.RA, dec2 unit.Angle) unit.Angle {
	u1 := UnitVector(ra1, dec1)
	u2 := UnitVector(ra2, dec2)
	c := u1.Dot(&u2)
	// rounding can put c a hair outside [-1, 1]
	switch {
	case c > 1:
		c = 1
	case c < -1:
		c = -1
	}
	return unit.Angle(math.Acos(c))
}
