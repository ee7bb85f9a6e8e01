// Public domain.

package grbrep_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	sexa "github.com/soniakeys/sexagesimal"
	"github.com/soniakeys/unit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soniakeys/grbpost/internal/grbbkg"
	"github.com/soniakeys/grbpost/internal/grbdb"
	"github.com/soniakeys/grbpost/internal/grbeff"
	"github.com/soniakeys/grbpost/internal/grbrep"
	"github.com/soniakeys/grbpost/internal/grbseg"
	"github.com/soniakeys/grbpost/internal/grbtab"
	"github.com/soniakeys/grbpost/internal/grbtrial"
)

func ExampleGPSToUTC() {
	fmt.Println(grbrep.GPSToUTC(1187008882.4).Format("2006-01-02 15:04:05.0"))
	fmt.Println(grbrep.GPSToUTC(1126259462.4).Format("2006-01-02 15:04:05.0"))
	// Output:
	// 2017-08-17 12:41:04.4
	// 2015-09-14 09:50:45.4
}

func TestLeapSeconds(t *testing.T) {
	assert.Equal(t, 0, grbrep.LeapSeconds(0))
	assert.Equal(t, 17, grbrep.LeapSeconds(1126259462))
	assert.Equal(t, 18, grbrep.LeapSeconds(1187008882))
	// first second of 2017 in GPS
	start17 := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC).
		Sub(time.Date(1980, 1, 6, 0, 0, 0, 0, time.UTC)).Seconds() + 18
	assert.Equal(t, 17, grbrep.LeapSeconds(start17-1))
	assert.Equal(t, 18, grbrep.LeapSeconds(start17))
	assert.Equal(t, time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC),
		grbrep.GPSToUTC(start17))
}

func TestGPSToJD(t *testing.T) {
	// unix 1502973664.4
	assert.InDelta(t, 1502973664.4/86400+2440587.5,
		grbrep.GPSToJD(1187008882.4), 1e-8)
}

func TestLoudest(t *testing.T) {
	b := grbbkg.New([]int{0, 1}, []int{0, 2, 5}, []float64{1, 2, 3, 4, 5})
	tr := grbtab.Trigger{ID: 4, Slide: 1, EndTime: 1187008882.4, SNR: 9.5,
		NullSNR: 1.5, RA: unit.RAFromDeg(197.45), Dec: unit.AngleFromDeg(-23.38)}
	var buf bytes.Buffer
	grbrep.Loudest(&buf, []grbdb.Event{{Trigger: tr, Stat: 9, FAP: b.FAP(9)}})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	row := lines[1]
	assert.Contains(t, row, "< 0.2")
	assert.Contains(t, row, "9.000")
	assert.Contains(t, row, fmt.Sprintf("%.1d", sexa.FmtRA(tr.RA)))
	assert.Contains(t, row, fmt.Sprintf("%.6f", grbrep.GPSToJD(tr.EndTime)))
}

func TestDistances(t *testing.T) {
	res := &grbeff.Result{
		Sensitive:     grbeff.Distance{Mpc: 123.456, Status: grbeff.Measured},
		Exclusion:     grbeff.Distance{Mpc: 50, Status: grbeff.Unbounded},
		ExclusionNoMC: true,
	}
	var buf bytes.Buffer
	grbrep.Distances(&buf, res, 90)
	assert.Equal(t, "50% sensitive distance:  123.46 Mpc\n"+
		"90% exclusion distance:  > 50.00 Mpc (no marginalization)\n", buf.String())

	res.Exclusion.Status = grbeff.Unreached
	res.ExclusionNoMC = false
	buf.Reset()
	grbrep.Distances(&buf, res, 90)
	assert.Contains(t, buf.String(), "90% exclusion distance:  unreached\n")
}

func TestTrials(t *testing.T) {
	set := &grbtrial.Set{
		Slides: []int{0, 3},
		Start:  []int{0, 2, 2},
		Trials: []grbtrial.Trial{
			{Slide: 0, Seg: grbseg.Seg{Start: 0, End: 6}},
			{Slide: 0, Seg: grbseg.Seg{Start: 6, End: 14}},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, grbrep.Trials(&buf, set))
	assert.Equal(t, "Slide  Trials   Live time (s)\n"+
		"    0       2          14.000\n"+
		"    3       0           0.000\n"+
		"Total       2\n", buf.String())
}

func TestWrite(t *testing.T) {
	p := grbeff.Params{Bins: grbeff.Binning{N: 2, Lower: 0, Upper: 10},
		ExclusionPercentile: 90}
	res, err := grbeff.Run(&p, &grbeff.Input{}, grbeff.NewRand(1), nil)
	require.NoError(t, err)
	r := &grbdb.Results{
		Summary:             grbdb.Summary{Trials: 5, Median: 3, Loudest: 5},
		Efficiency:          res,
		ExclusionPercentile: 90,
	}
	var buf bytes.Buffer
	require.NoError(t, grbrep.Write(&buf, r))
	s := buf.String()
	assert.Contains(t, s, "Off-source trials:       5\n")
	assert.Contains(t, s, "On-source:               not analysed\n")
	assert.Contains(t, s, "  0.00 -    5.00       0          -        -       -")
	assert.Contains(t, s, " 10.00 -   above")
	assert.Contains(t, s, "50% sensitive distance:  not computed\n")
}
