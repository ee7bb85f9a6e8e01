// Public domain.

package grbtab_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soniakeys/grbpost/internal/grbtab"
)

func ExampleNetwork() {
	var n grbtab.Network
	n = n.Add(grbtab.H1).Add(grbtab.V1)
	fmt.Println(n, n.Len(), n.Has(grbtab.L1))
	// Output:
	// H1V1 2 false
}

func TestParseIfo(t *testing.T) {
	i, err := grbtab.ParseIfo("L1")
	require.NoError(t, err)
	assert.Equal(t, grbtab.L1, i)
	_, err = grbtab.ParseIfo("X9")
	assert.Error(t, err)
}

func validTables() *grbtab.Tables {
	return &grbtab.Tables{
		Slides:     []grbtab.TimeSlide{{ID: 0}, {ID: 1}},
		OffSource:  []grbtab.Trigger{{ID: 1, Slide: 1}},
		Injections: []grbtab.Injection{{ID: 1, Distance: 40}},
	}
}

func TestValidate(t *testing.T) {
	tb := validTables()
	require.NoError(t, tb.Validate())

	tb = validTables()
	tb.OffSource = nil
	assert.ErrorIs(t, tb.Validate(), grbtab.ErrNoTriggers)

	tb = validTables()
	tb.Slides = tb.Slides[1:]
	assert.Error(t, tb.Validate(), "slide 0 missing")

	tb = validTables()
	tb.OffSource[0].Slide = 7
	assert.Error(t, tb.Validate(), "unknown slide")

	tb = validTables()
	tb.Injections[0].Distance = 0
	assert.Error(t, tb.Validate(), "zero distance")

	tb = validTables()
	s, ok := tb.Slide(1)
	assert.True(t, ok)
	assert.Equal(t, 1, s.ID)
}
