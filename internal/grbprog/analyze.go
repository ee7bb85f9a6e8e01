// Public domain.

package grbprog

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/soniakeys/grbpost/internal/grbbkg"
	"github.com/soniakeys/grbpost/internal/grbconf"
	"github.com/soniakeys/grbpost/internal/grbdb"
	"github.com/soniakeys/grbpost/internal/grbeff"
	"github.com/soniakeys/grbpost/internal/grbinj"
	"github.com/soniakeys/grbpost/internal/grbstat"
	"github.com/soniakeys/grbpost/internal/grbtab"
	"github.com/soniakeys/grbpost/internal/grbtrial"
)

// ErrNoTrials is returned when no off-source trial could be built.  No
// false-alarm probability can be estimated.
var ErrNoTrials = errors.New("no off-source trials after segment and veto selection")

// BuildTrials constructs the off-source trials of t.  Slide 0 is left out
// when the configuration excludes zero lag.
func BuildTrials(cfg *grbconf.Config, t *grbtab.Tables) (*grbtrial.Set, error) {
	tp, err := cfg.TrialParams(t.OnSource.Duration())
	if err != nil {
		return nil, err
	}
	slides := t.Slides
	if cfg.Trials.ExcludeZeroLag {
		slides = nil
		for _, s := range t.Slides {
			if s.ID != 0 {
				slides = append(slides, s)
			}
		}
	}
	return grbtrial.Build(slides, t.Segments, t.Vetoes, t.Buffer, tp)
}

// Analyze runs the postprocessing pipeline over t.  The returned results
// have no run id, creation time or configuration; the caller records those.
func Analyze(cfg *grbconf.Config, t *grbtab.Tables, log logrus.FieldLogger) (*grbdb.Results, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	sp, err := cfg.StatParams()
	if err != nil {
		return nil, err
	}
	comb := grbstat.Combiner{Params: sp, Log: log}

	set, err := BuildTrials(cfg, t)
	if err != nil {
		return nil, err
	}
	if set.N() == 0 {
		return nil, ErrNoTrials
	}
	log.WithFields(logrus.Fields{
		"slides": len(set.Slides),
		"trials": set.N(),
	}).Info("built off-source trials")

	offStats := comb.Rank(t.OffSource)
	bkg := grbbkg.Rank(set, t.OffSource, offStats)
	// triggers outside every trial are discarded
	var live []grbtab.Trigger
	var liveStats []float64
	for i := range t.OffSource {
		if set.Find(t.OffSource[i].Slide, t.OffSource[i].EndTime) >= 0 {
			live = append(live, t.OffSource[i])
			liveStats = append(liveStats, offStats[i])
		}
	}
	r := &grbdb.Results{
		Trials:     set,
		Background: bkg,
		Summary: grbdb.Summary{
			Trials:  bkg.N(),
			Median:  bkg.Median(),
			Loudest: bkg.Loudest(false),
		},
		ExclusionPercentile: cfg.Efficiency.ExclusionPercentile,
	}
	s := &r.Summary
	if !t.OnSource.Empty() {
		s.OnSource = true
		if len(t.OnTrigs) > 0 {
			s.OnSourceStat = floats.Max(comb.Rank(t.OnTrigs))
		}
		s.OnSourceFAP = bkg.FAP(s.OnSourceStat)
		log.WithFields(logrus.Fields{
			"bestnr": s.OnSourceStat,
			"fap":    s.OnSourceFAP.String(),
		}).Info("on-source result")
	}
	for _, i := range grbbkg.LoudestTriggers(live, liveStats, cfg.Report.Loudest) {
		r.Loudest = append(r.Loudest, grbdb.Event{
			Trigger: live[i],
			Stat:    liveStats[i],
			FAP:     bkg.FAP(liveStats[i]),
		})
	}

	if len(t.Injections) == 0 {
		log.Info("no injections, efficiency not computed")
		return r, nil
	}
	ep, err := cfg.EffParams()
	if err != nil {
		return nil, err
	}
	injStats := comb.Rank(t.InjTrigs)
	in := &grbeff.Input{
		Injections: grbinj.Match(t.Injections, t.InjTrigs, injStats,
			cfg.Efficiency.InjectionWindow),
		Background: s.Loudest,
		Foreground: s.Loudest,
	}
	if s.OnSource {
		in.Foreground = s.OnSourceStat
	}
	// zero-lag triggers in usable time, whether or not slide 0 is in the
	// background
	if sl, ok := t.Slide(0); ok {
		usable := grbtrial.Usable(sl, t.Segments[0], t.Vetoes, t.Buffer)
		for i := range t.OffSource {
			if t.OffSource[i].Slide == 0 && usable.Contains(t.OffSource[i].EndTime) {
				in.ZeroLag = append(in.ZeroLag, t.OffSource[i])
				in.ZeroLagStats = append(in.ZeroLagStats, offStats[i])
			}
		}
	}
	res, err := grbeff.Run(&ep, in, grbeff.NewRand(cfg.Efficiency.RandomSeed), log)
	if err != nil {
		return nil, err
	}
	r.Efficiency = res
	r.InjTrigs = t.InjTrigs
	log.WithFields(logrus.Fields{
		"injections": len(t.Injections),
		"sensitive":  res.Sensitive.Mpc,
		"exclusion":  res.Exclusion.Mpc,
	}).Info("computed efficiency")
	return r, nil
}
