// Public domain.

// Package grbtab defines the tables read by grbpost: triggers, time slides,
// segments, vetoes and injections.
//
// Values of these types are loaded once and not modified afterward.
package grbtab

import (
	"errors"
	"fmt"
	"math"

	"github.com/soniakeys/unit"

	"github.com/soniakeys/grbpost/internal/grbseg"
)

// Ifo identifies a detector.
type Ifo int

// Detectors known to grbpost.  Per-detector values are held in arrays
// indexed by Ifo.
const (
	H1 Ifo = iota
	L1
	V1
	K1
	NumIfo
)

var ifoNames = [NumIfo]string{"H1", "L1", "V1", "K1"}

func (i Ifo) String() string {
	if i < 0 || i >= NumIfo {
		return fmt.Sprintf("Ifo(%d)", int(i))
	}
	return ifoNames[i]
}

// ParseIfo returns the detector named s.
func ParseIfo(s string) (Ifo, error) {
	for i, n := range ifoNames {
		if n == s {
			return Ifo(i), nil
		}
	}
	return 0, fmt.Errorf("unknown detector %q", s)
}

// Network is a set of detectors.
type Network uint8

// Add returns n with detector i included.
func (n Network) Add(i Ifo) Network { return n | 1<<uint(i) }

// Has reports whether detector i is in n.
func (n Network) Has(i Ifo) bool { return n&(1<<uint(i)) != 0 }

// Len returns the number of detectors in n.
func (n Network) Len() (c int) {
	for i := Ifo(0); i < NumIfo; i++ {
		if n.Has(i) {
			c++
		}
	}
	return
}

func (n Network) String() string {
	s := ""
	for i := Ifo(0); i < NumIfo; i++ {
		if n.Has(i) {
			s += i.String()
		}
	}
	return s
}

// Chisq is a chi-squared value with its degrees-of-freedom parameter.
// Dof <= 0 means the test was not computed for the trigger.
type Chisq struct {
	Value, Dof float64
}

// Trigger is one coherent candidate event.
type Trigger struct {
	ID      int64
	Slide   int
	EndTime float64 // GPS seconds
	SNR     float64 // coherent SNR
	Network Network
	Sngl    [NumIfo]float64 // single-detector SNR, valid where Network.Has
	Chisq   Chisq           // standard (power) chi-squared
	Bank    Chisq           // bank chi-squared
	Auto    Chisq           // auto (cont) chi-squared
	NullSNR float64
	RA      unit.RA
	Dec     unit.Angle
	Mass1   float64
	Mass2   float64
}

// TimeSlide is a set of per-detector time offsets.  Slide 0 is zero lag.
type TimeSlide struct {
	ID     int
	Offset [NumIfo]float64
}

// Injection is a simulated signal added to the data.
type Injection struct {
	ID          int64
	Time        float64 // GPS seconds, geocentric
	Distance    float64 // Mpc
	Mass1       float64
	Mass2       float64
	Spin1z      float64
	Spin2z      float64
	Inclination unit.Angle
	RA          unit.RA
	Dec         unit.Angle
}

// Tables holds all input of one run.
type Tables struct {
	Slides   []TimeSlide
	Segments map[int]grbseg.List // per slide, already offset adjusted
	Vetoes   [NumIfo]grbseg.List // per detector, unslid
	OnSource grbseg.Seg          // zero length if absent
	Buffer   grbseg.Seg          // on-source plus padding, excluded from trials

	OffSource  []Trigger // triggers of all slides
	OnTrigs    []Trigger // zero-lag triggers in the on-source window
	InjTrigs   []Trigger // triggers of the injection run
	Injections []Injection
}

// ErrNoTriggers is returned by Validate for an empty off-source trigger set.
var ErrNoTriggers = errors.New("no off-source triggers")

// Slide returns the time slide with the given id.
func (t *Tables) Slide(id int) (TimeSlide, bool) {
	for _, s := range t.Slides {
		if s.ID == id {
			return s, true
		}
	}
	return TimeSlide{}, false
}

// Validate checks t for input malformation.
func (t *Tables) Validate() error {
	if len(t.Slides) == 0 {
		return errors.New("no time slides")
	}
	seen := map[int]bool{}
	for _, s := range t.Slides {
		if seen[s.ID] {
			return fmt.Errorf("duplicate time slide %d", s.ID)
		}
		seen[s.ID] = true
	}
	if !seen[0] {
		return errors.New("zero-lag time slide 0 missing")
	}
	if len(t.OffSource) == 0 {
		return ErrNoTriggers
	}
	for _, tr := range t.OffSource {
		if !seen[tr.Slide] {
			return fmt.Errorf("trigger %d references unknown time slide %d",
				tr.ID, tr.Slide)
		}
	}
	for _, in := range t.Injections {
		if !(in.Distance > 0) || math.IsInf(in.Distance, 0) {
			return fmt.Errorf("injection %d has invalid distance %g",
				in.ID, in.Distance)
		}
	}
	return nil
}
