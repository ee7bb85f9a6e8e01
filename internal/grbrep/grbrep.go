// Public domain.

// Package grbrep formats grbpost results as plain text.
package grbrep

import (
	"bufio"
	"fmt"
	"io"

	sexa "github.com/soniakeys/sexagesimal"

	"github.com/soniakeys/grbpost/internal/grbdb"
	"github.com/soniakeys/grbpost/internal/grbeff"
	"github.com/soniakeys/grbpost/internal/grbtrial"
)

// Write writes the full report of r.
func Write(w io.Writer, r *grbdb.Results) error {
	b := bufio.NewWriter(w)
	fmt.Fprintf(b, "grbpost run %s\n\n", r.RunID)
	Summary(b, &r.Summary)
	fmt.Fprintln(b)
	Loudest(b, r.Loudest)
	if r.Efficiency != nil {
		fmt.Fprintln(b)
		Efficiency(b, r.Efficiency)
		fmt.Fprintln(b)
		Distances(b, r.Efficiency, r.ExclusionPercentile)
	}
	return b.Flush()
}

// Summary writes the background summary lines.
func Summary(w io.Writer, s *grbdb.Summary) {
	fmt.Fprintf(w, "Off-source trials:       %d\n", s.Trials)
	fmt.Fprintf(w, "Median loudest BestNR:   %.4f\n", s.Median)
	fmt.Fprintf(w, "Loudest background:      %.4f\n", s.Loudest)
	if !s.OnSource {
		fmt.Fprintln(w, "On-source:               not analysed")
		return
	}
	fmt.Fprintf(w, "Loudest on-source:       %.4f  FAP %s\n",
		s.OnSourceStat, s.OnSourceFAP)
}

// Loudest writes the loudest event table.
func Loudest(w io.Writer, ev []grbdb.Event) {
	fmt.Fprintln(w, "Rank Slide      GPS end time          JD (UTC)"+
		"          RA            Dec     SNR   Null  BestNR       FAP")
	for i, e := range ev {
		t := &e.Trigger
		fmt.Fprintf(w, "%4d %5d %17.4f %17.6f %13s %14s %7.3f %6.3f %7.3f %9s\n",
			i+1, t.Slide, t.EndTime, GPSToJD(t.EndTime),
			fmt.Sprintf("%.1d", sexa.FmtRA(t.RA)),
			fmt.Sprintf("%+.0d", sexa.FmtAngle(t.Dec)),
			t.SNR, t.NullSNR, e.Stat, e.FAP)
	}
}

// Efficiency writes the per-bin efficiency table of the no-MC and MC
// curves.
func Efficiency(w io.Writer, res *grbeff.Result) {
	fmt.Fprintln(w, "   Distance (Mpc)     Inj   Eff(bkg)     -err    +err"+
		"  Eff(MC fg)     -err    +err")
	b := res.NoMC.Bins
	tot := res.NoMC.Total()
	bkg := res.NoMC.Background()
	fg := res.MC.Foreground()
	for x := range tot {
		lo, hi := b.Edges(x)
		rng := fmt.Sprintf("%7.2f - %7.2f", lo, hi)
		if x == b.N {
			rng = fmt.Sprintf("%7.2f -   above", lo)
		}
		fmt.Fprintf(w, "%s %7d %s %s\n", rng, tot[x], effCol(bkg[x]), effCol(fg[x]))
	}
}

func effCol(e grbeff.Eff) string {
	if !e.Defined {
		return fmt.Sprintf("%10s %8s %7s", "-", "-", "-")
	}
	return fmt.Sprintf("%10.4f %8.4f %7.4f", e.Fraction, e.ErrLow, e.ErrHigh)
}

// Distances writes the sensitive and exclusion distance lines.
func Distances(w io.Writer, res *grbeff.Result, pct float64) {
	fmt.Fprintf(w, "50%% sensitive distance:  %s\n", fmtDist(res.Sensitive))
	note := ""
	if res.ExclusionNoMC {
		note = " (no marginalization)"
	}
	fmt.Fprintf(w, "%g%% exclusion distance:  %s%s\n", pct, fmtDist(res.Exclusion), note)
}

func fmtDist(d grbeff.Distance) string {
	switch d.Status {
	case grbeff.Measured:
		return fmt.Sprintf("%.2f Mpc", d.Mpc)
	case grbeff.Unbounded:
		return fmt.Sprintf("> %.2f Mpc", d.Mpc)
	}
	return d.Status.String()
}

// Trials writes the number of trials and live time of each slide.
func Trials(w io.Writer, set *grbtrial.Set) error {
	b := bufio.NewWriter(w)
	fmt.Fprintln(b, "Slide  Trials   Live time (s)")
	for k, id := range set.Slides {
		ts := set.Trials[set.Start[k]:set.Start[k+1]]
		var live float64
		for _, t := range ts {
			live += t.Duration()
		}
		fmt.Fprintf(b, "%5d %7d %15.3f\n", id, len(ts), live)
	}
	fmt.Fprintf(b, "Total %7d\n", set.N())
	return b.Flush()
}
