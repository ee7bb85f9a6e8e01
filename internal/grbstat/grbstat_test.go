// Public domain.

package grbstat_test

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soniakeys/grbpost/internal/grbstat"
	"github.com/soniakeys/grbpost/internal/grbtab"
)

var params = grbstat.Params{
	ChisqIndex:       4,
	ChisqNHigh:       3,
	NullSNRThreshold: [2]float64{3.5, 5.25},
	NullGradThresh:   20,
	NullGradVal:      .2,
	SnglSNRThreshold: 9,
	NewSNRThreshold:  6,
}

func ExampleNewSNR() {
	fmt.Printf("%.4f\n", grbstat.NewSNR(10, 4, 4, 3))
	fmt.Printf("%.4f\n", grbstat.NewSNR(10, .8, 4, 3))
	// Output:
	// 6.4802
	// 10.0000
}

func TestNewSNRClosedForm(t *testing.T) {
	want := 10 / math.Pow((1+math.Pow(4, 4./3))/2, 1./3)
	assert.Equal(t, want, grbstat.NewSNR(10, 4, 4, 3))
}

func TestReducedChisq(t *testing.T) {
	c := grbtab.Chisq{Value: 64, Dof: 17}
	assert.Equal(t, 2., grbstat.ReducedChisq(c, grbstat.Standard))
	assert.Equal(t, 64./17, grbstat.ReducedChisq(c, grbstat.Bank))
	assert.Zero(t, grbstat.ReducedChisq(grbtab.Chisq{Value: 5}, grbstat.Auto))
}

func trig(snr, rchisq, null float64, sngl ...float64) grbtab.Trigger {
	t := grbtab.Trigger{
		SNR:     snr,
		NullSNR: null,
		// standard dof of 2 gives a divisor of 2
		Chisq: grbtab.Chisq{Value: 2 * rchisq, Dof: 2},
	}
	for i, s := range sngl {
		t.Network = t.Network.Add(grbtab.Ifo(i))
		t.Sngl[i] = s
	}
	return t
}

func TestBestNRVetoes(t *testing.T) {
	p := params
	cases := []struct {
		name string
		trig grbtab.Trigger
		veto grbstat.Veto
		stat float64
	}{
		{"clean", trig(10, 4, 0, 7, 7), grbstat.Pass, grbstat.NewSNR(10, 4, 4, 3)},
		{"soft null halves", trig(10, 1, 4, 7, 7), grbstat.Pass, 5},
		{"hard null", trig(10, 1, 5.5, 7, 7), grbstat.VetoNull, 0},
		{"null gradient soft state", trig(30, 1, 6, 20, 20),
			grbstat.VetoSngl, 0},
		{"null gradient clean", trig(30, 1, 3, 20, 20), grbstat.Pass, 30},
		{"sngl in soft state", trig(10, 1, 4, 9.5, 2), grbstat.VetoSngl, 0},
		{"sngl outside soft state", trig(10, 1, 3, 9.5, 2), grbstat.Pass, 10},
		{"below newsnr", trig(6.5, 3, 0, 5, 5), grbstat.VetoNewSNR, 0},
		{"nan chisq", trig(10, math.NaN(), 0), grbstat.VetoInvalid, 0},
		{"negative null", trig(10, 1, -1), grbstat.VetoInvalid, 0},
	}
	for _, c := range cases {
		s, v := p.BestNR(&c.trig)
		assert.Equal(t, c.veto, v, c.name)
		assert.Equal(t, c.stat, s, c.name)
	}
}

func TestBestNRBankAutoCuts(t *testing.T) {
	p := params
	p.SNRThreshold = 6
	tr := trig(8, 1, 0)
	tr.Bank = grbtab.Chisq{Value: 40, Dof: 4}
	_, v := p.BestNR(&tr)
	assert.Equal(t, grbstat.VetoBank, v)

	tr = trig(8, 1, 0)
	tr.Auto = grbtab.Chisq{Value: 40, Dof: 4}
	_, v = p.BestNR(&tr)
	assert.Equal(t, grbstat.VetoAuto, v)

	tr = trig(5, 1, 0)
	_, v = p.BestNR(&tr)
	assert.Equal(t, grbstat.VetoSNR, v)
}

// BestNR is never negative, and is zero whenever newSNR is under threshold
// or a null veto fires.
func TestBestNRProperties(t *testing.T) {
	p := params
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 5000; i++ {
		tr := trig(rnd.Float64()*40, rnd.Float64()*6, rnd.Float64()*10,
			rnd.Float64()*15, rnd.Float64()*15, rnd.Float64()*15)
		s, v := p.BestNR(&tr)
		require.GreaterOrEqual(t, s, 0.)
		nsnr := grbstat.NewSNR(tr.SNR, grbstat.ReducedChisq(tr.Chisq, grbstat.Standard),
			p.ChisqIndex, p.ChisqNHigh)
		_, high := p.NullThresholds(tr.SNR)
		if nsnr < p.NewSNRThreshold || tr.NullSNR > high {
			require.Zero(t, s)
		}
		require.Equal(t, v == grbstat.Pass, s > 0, "trigger %+v", tr)
	}
}

func TestRankLogsInvalid(t *testing.T) {
	log, hook := test.NewNullLogger()
	c := grbstat.Combiner{Params: params, Log: log}
	trigs := []grbtab.Trigger{trig(10, 1, 0), trig(math.Inf(1), 1, 0)}
	stats := c.Rank(trigs)
	require.Len(t, stats, 2)
	assert.Equal(t, 10., stats[0])
	assert.Zero(t, stats[1])
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestParamsValidate(t *testing.T) {
	require.NoError(t, params.Validate())
	p := params
	p.NewSNRThreshold = 0
	assert.Error(t, p.Validate())
	p = params
	p.NullSNRThreshold = [2]float64{6, 4}
	assert.Error(t, p.Validate())
}
