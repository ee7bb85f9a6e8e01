// Public domain.

package grbseg_test

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/soniakeys/grbpost/internal/grbseg"
)

func ExampleList_Subtract() {
	l := grbseg.List{{0, 10}, {20, 30}}
	v := grbseg.List{{2, 3}, {8, 22}}
	fmt.Println(l.Subtract(v))
	// Output:
	// [{0 2} {3 8} {22 30}]
}

func TestCoalesce(t *testing.T) {
	l := grbseg.List{{5, 7}, {0, 2}, {2, 3}, {6, 9}, {4, 4}}
	want := grbseg.List{{0, 3}, {5, 9}}
	if d := cmp.Diff(want, l.Coalesce()); d != "" {
		t.Fatal(d)
	}
	// input untouched
	if l[0] != (grbseg.Seg{5, 7}) {
		t.Fatal("Coalesce modified its receiver")
	}
}

func TestSubtract(t *testing.T) {
	cases := []struct {
		l, o, want grbseg.List
	}{
		{grbseg.List{{0, 10}}, nil, grbseg.List{{0, 10}}},
		{grbseg.List{{0, 10}}, grbseg.List{{-5, 15}}, grbseg.List{}},
		{grbseg.List{{5, 10}}, grbseg.List{{0, 7}}, grbseg.List{{7, 10}}},
		{grbseg.List{{0, 10}}, grbseg.List{{0, 1}, {9, 10}}, grbseg.List{{1, 9}}},
		{grbseg.List{{0, 4}, {6, 10}}, grbseg.List{{3, 7}}, grbseg.List{{0, 3}, {7, 10}}},
	}
	for _, c := range cases {
		if d := cmp.Diff(c.want, c.l.Subtract(c.o)); d != "" {
			t.Errorf("%v - %v: %s", c.l, c.o, d)
		}
	}
}

func TestSegPredicates(t *testing.T) {
	s := grbseg.Seg{10, 20}
	if !s.Contains(10) || s.Contains(20) {
		t.Fatal("Contains not half-open")
	}
	if s.Intersects(grbseg.Seg{20, 30}) {
		t.Fatal("touching segments reported as intersecting")
	}
	if !s.Intersects(grbseg.Seg{19.5, 30}) {
		t.Fatal("overlap not detected")
	}
	if got := (grbseg.List{{0, 5}, {3, 8}}).Duration(); got != 8 {
		t.Fatal("Duration", got)
	}
	if got := (grbseg.List{{0, 5}}).Shift(-2); got[0] != (grbseg.Seg{-2, 3}) {
		t.Fatal("Shift", got)
	}
}

func TestListContains(t *testing.T) {
	l := grbseg.List{{0, 5}, {10, 20}}
	for _, c := range []struct {
		t    float64
		want bool
	}{{-1, false}, {0, true}, {4.9, true}, {5, false}, {7, false}, {10, true}, {20, false}} {
		if got := l.Contains(c.t); got != c.want {
			t.Errorf("Contains(%g) = %t", c.t, got)
		}
	}
	if (grbseg.List{}).Contains(0) {
		t.Fatal("empty list contains 0")
	}
}
