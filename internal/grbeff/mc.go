// Public domain.

package grbeff

import (
	"math"

	xrand "golang.org/x/exp/rand"

	"github.com/soniakeys/grbpost/internal/grbtab"
)

// Rand is the random source for distance redraws.  The engine takes it as
// an argument rather than using global state so that a seeded source gives
// repeatable results.
type Rand interface {
	NormFloat64() float64
}

// NewRand returns a PCG generator seeded with seed.
func NewRand(seed uint64) *xrand.Rand {
	rnd := xrand.New(&xrand.PCGSource{})
	rnd.Seed(seed)
	return rnd
}

// zMax bounds the normal deviates used for redraws.
const zMax = 3

func boundedNorm(rnd Rand) float64 {
	for {
		if z := rnd.NormFloat64(); z >= -zMax && z <= zMax {
			return z
		}
	}
}

// AmplitudeError is the fractional amplitude uncertainty applied to
// injected distances.
type AmplitudeError struct {
	Cal      float64 // random calibration error, detectors in quadrature
	DC       float64 // systematic scale, 1 + largest DC calibration error
	Waveform float64 // waveform modeling error
}

// amplitudeError combines per-detector calibration errors.
func amplitudeError(cal, dc [grbtab.NumIfo]float64, wf float64) AmplitudeError {
	e := AmplitudeError{DC: 1, Waveform: wf}
	var sq, maxDC float64
	for ifo := range cal {
		sq += cal[ifo] * cal[ifo]
		if dc[ifo] > maxDC {
			maxDC = dc[ifo]
		}
	}
	e.Cal = math.Sqrt(sq)
	e.DC += maxDC
	return e
}

// Redraw returns distances perturbed by amplitude error.
//
// The result is numMC+1 rows of len(dist) values, row major.  Row 0 is dist
// unchanged.  Each other row holds
//
//	d / (DC * (1 + z1*Cal) * (1 + |z2|*Waveform))
//
// with z1, z2 standard normal deviates bounded to |z| <= 3.
func Redraw(dist []float64, e AmplitudeError, numMC int, rnd Rand) []float64 {
	n := len(dist)
	out := make([]float64, (numMC+1)*n)
	copy(out, dist)
	for k := 1; k <= numMC; k++ {
		row := out[k*n : (k+1)*n]
		for i, d := range dist {
			cal := 1 + boundedNorm(rnd)*e.Cal
			wf := 1 + math.Abs(boundedNorm(rnd))*e.Waveform
			row[i] = d / (e.DC * cal * wf)
		}
	}
	return out
}
