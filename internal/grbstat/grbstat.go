// Public domain.

// Package grbstat computes the BestNR ranking statistic.
//
// BestNR starts from the coherent SNR reweighted by chi-squared (newSNR)
// and applies null-SNR and single-detector consistency vetoes.  A value of
// zero means the trigger was vetoed or invalid; any other value is positive.
package grbstat

import (
	"errors"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/soniakeys/grbpost/internal/grbtab"
)

// Family selects the normalization of a chi-squared test.
type Family int

const (
	Standard Family = iota // power chi-squared, 2p-2 degrees of freedom
	Bank
	Auto
)

// ReducedChisq returns chi-squared per degree of freedom.
// A test with dof <= 0 was not computed and gives 0.
func ReducedChisq(c grbtab.Chisq, f Family) float64 {
	if c.Dof <= 0 {
		return 0
	}
	if f == Standard {
		if d := 2*c.Dof - 2; d > 0 {
			return c.Value / d
		}
		return 0
	}
	return c.Value / c.Dof
}

// NewSNR reweights snr by reduced chi-squared rchisq.
//
//	newSNR = snr / ((1 + rchisq^(q/n)) / 2)^(1/n)   for rchisq > 1
//	newSNR = snr                                   otherwise
func NewSNR(snr, rchisq, q, n float64) float64 {
	if !(rchisq > 1) {
		return snr
	}
	return snr / math.Pow((1+math.Pow(rchisq, q/n))/2, 1/n)
}

// Params holds the statistic thresholds.
type Params struct {
	ChisqIndex       float64    // q
	ChisqNHigh       float64    // n
	NullSNRThreshold [2]float64 // low (soft veto), high (hard veto)
	NullGradThresh   float64    // SNR above which null thresholds rise
	NullGradVal      float64    // rise per unit SNR
	SnglSNRThreshold float64
	NewSNRThreshold  float64
	SNRThreshold     float64 // coherent SNR cut, 0 disables
}

// Validate checks p.
func (p Params) Validate() error {
	switch {
	case !(p.ChisqIndex > 0) || !(p.ChisqNHigh > 0):
		return errors.New("chisq_index and chisq_nhigh must be positive")
	case p.NullSNRThreshold[0] < 0 || p.NullSNRThreshold[1] < p.NullSNRThreshold[0]:
		return errors.New("null_snr_threshold must be 0 <= low <= high")
	case p.NullGradVal < 0:
		return errors.New("null_grad_val must not be negative")
	case !(p.NewSNRThreshold > 0):
		return errors.New("newsnr_threshold must be positive")
	case p.SnglSNRThreshold < 0 || p.SNRThreshold < 0:
		return errors.New("snr thresholds must not be negative")
	}
	return nil
}

// Veto identifies why a trigger got a zero statistic.
type Veto int

const (
	Pass Veto = iota
	VetoInvalid
	VetoSNR
	VetoBank
	VetoAuto
	VetoNull
	VetoSngl
	VetoNewSNR
)

var vetoNames = [...]string{"pass", "invalid", "snr", "bank", "auto",
	"null", "sngl", "newsnr"}

func (v Veto) String() string { return vetoNames[v] }

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

// NullThresholds returns the soft and hard null-SNR thresholds at coherent
// SNR snr.
func (p *Params) NullThresholds(snr float64) (low, high float64) {
	low, high = p.NullSNRThreshold[0], p.NullSNRThreshold[1]
	if snr > p.NullGradThresh {
		d := (snr - p.NullGradThresh) * p.NullGradVal
		low += d
		high += d
	}
	return
}

// BestNR computes the statistic for one trigger.
func (p *Params) BestNR(t *grbtab.Trigger) (float64, Veto) {
	if !finite(t.SNR) || !finite(t.NullSNR) || t.NullSNR < 0 ||
		!finite(t.Chisq.Value) || !finite(t.Bank.Value) || !finite(t.Auto.Value) {
		return 0, VetoInvalid
	}
	if t.SNR < p.SNRThreshold {
		return 0, VetoSNR
	}
	q, n := p.ChisqIndex, p.ChisqNHigh
	if t.Bank.Dof > 0 &&
		NewSNR(t.SNR, ReducedChisq(t.Bank, Bank), q, n) < p.NewSNRThreshold {
		return 0, VetoBank
	}
	if t.Auto.Dof > 0 &&
		NewSNR(t.SNR, ReducedChisq(t.Auto, Auto), q, n) < p.NewSNRThreshold {
		return 0, VetoAuto
	}
	nsnr := NewSNR(t.SNR, ReducedChisq(t.Chisq, Standard), q, n)

	stat := nsnr
	soft := false
	// a zero null SNR means no null stream, e.g. a two detector network
	if t.NullSNR > 0 {
		low, high := p.NullThresholds(t.SNR)
		if t.NullSNR > high {
			return 0, VetoNull
		}
		if t.NullSNR > low {
			soft = true
			stat *= .5
		}
	}
	if soft {
		for ifo := grbtab.Ifo(0); ifo < grbtab.NumIfo; ifo++ {
			if t.Network.Has(ifo) && t.Sngl[ifo] > p.SnglSNRThreshold {
				return 0, VetoSngl
			}
		}
	}
	if nsnr < p.NewSNRThreshold {
		return 0, VetoNewSNR
	}
	return stat, Pass
}

// Combiner applies BestNR to trigger tables.
type Combiner struct {
	Params
	Log logrus.FieldLogger
}

// Rank returns the statistic of each trigger, in input order.  Invalid
// triggers give zero and a warning.
func (c *Combiner) Rank(trigs []grbtab.Trigger) []float64 {
	stats := make([]float64, len(trigs))
	for i := range trigs {
		s, v := c.BestNR(&trigs[i])
		if v == VetoInvalid && c.Log != nil {
			c.Log.WithFields(logrus.Fields{
				"trigger":  trigs[i].ID,
				"slide":    trigs[i].Slide,
				"end_time": trigs[i].EndTime,
			}).Warn("non-finite statistic input, trigger treated as vetoed")
		}
		stats[i] = s
	}
	return stats
}
