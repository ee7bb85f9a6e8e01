// Public domain.

package grbinj_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/soniakeys/unit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soniakeys/grbpost/internal/grbinj"
	"github.com/soniakeys/grbpost/internal/grbtab"
)

func ExampleSeparation() {
	a := grbinj.Separation(unit.RAFromDeg(10), unit.AngleFromDeg(0),
		unit.RAFromDeg(40), unit.AngleFromDeg(0))
	fmt.Printf("%.6f\n", a.Deg())
	// Output:
	// 30.000000
}

func TestMatch(t *testing.T) {
	injs := []grbtab.Injection{
		{ID: 1, Time: 100, Distance: 20, RA: unit.RAFromDeg(50), Dec: unit.AngleFromDeg(10)},
		{ID: 2, Time: 200, Distance: 30},
		{ID: 3, Time: 300, Distance: 40},
	}
	trigs := []grbtab.Trigger{
		{EndTime: 300.05},
		{EndTime: 99.95, RA: unit.RAFromDeg(50), Dec: unit.AngleFromDeg(12)},
		{EndTime: 100.02},
		{EndTime: 250},
		{EndTime: 299.98},
	}
	stats := []float64{0, 11, 8, 20, 0}
	f := grbinj.Match(injs, trigs, stats, .1)
	require.Len(t, f, 3)

	assert.True(t, f[0].Recovered())
	assert.Equal(t, 1, f[0].Trigger)
	assert.Equal(t, 11., f[0].Stat)
	assert.InDelta(t, 2, f[0].SkyError.Deg(), 1e-9)

	assert.False(t, f[1].Recovered())

	// both candidates vetoed; the nearer one in time is kept
	assert.True(t, f[2].Recovered())
	assert.Equal(t, 4, f[2].Trigger)
	assert.Zero(t, f[2].Stat)
}

func TestSeparationAntipodal(t *testing.T) {
	a := grbinj.Separation(0, unit.AngleFromDeg(90), 0, unit.AngleFromDeg(-90))
	assert.InDelta(t, math.Pi, a.Rad(), 1e-12)
	a = grbinj.Separation(unit.RAFromDeg(123), unit.AngleFromDeg(-45),
		unit.RAFromDeg(123), unit.AngleFromDeg(-45))
	assert.False(t, math.IsNaN(a.Rad()))
	assert.InDelta(t, 0, a.Rad(), 1e-7)
}
