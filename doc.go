/*
Command grbpost postprocesses the output of a GRB-triggered coherent
gravitational-wave search.  It ranks candidates against time-slid
background, estimates false-alarm probabilities, and measures search
sensitivity with simulated signals.

Contents

  Program overview
  Command line usage
  Configuration
  File formats
  Algorithm outline


Program overview

Input is one SQLite database holding the coherent triggers of an analysis:
the off-source triggers of all time slides, the zero-lag triggers of the
on-source window, and the triggers of an injection run, together with the
segments, vetoes, time slides and simulated signals of that analysis.
Output is a results database and a text report on stdout.

The report gives the number of off-source trials, the median and the
loudest background statistic, the loudest on-source event with its
false-alarm probability, a table of the loudest off-source events, and when
injections are present, efficiency by distance with the 50% sensitive
distance and the exclusion distance.

A false-alarm probability is the fraction of off-source trials with a louder
loudest event.  When no trial is louder the probability is only known to be
below 1/N and is printed as "< x".

Sample report fragment:

  Off-source trials:       2340
  Median loudest BestNR:   6.8812
  Loudest background:      9.5021
  Loudest on-source:       7.1044  FAP 0.391

  50% sensitive distance:  148.22 Mpc
  90% exclusion distance:  103.57 Mpc


Command line usage

  Usage: grbpost run [-c <config-file>] [-i <input>] [-o <output>]
         grbpost trials [-c <config-file>] [-i <input>]
         grbpost init <database>
         grbpost version

Run performs the full analysis.  Trials builds off-source trials only and
prints the count and live time per slide, a quick check of segment and veto
input.  Init creates an empty input database with the expected tables.

Options -i and -o override input and output of the configuration file.


Configuration

The configuration file is YAML.  Every key can also be set from the
environment as GRBPOST_ followed by the upper case key path with dots
replaced by underscores, for example GRBPOST_EFFICIENCY_NUM_MC_INJS.
Environment values take precedence over the file.

  input: grb.db
  output: results.db
  logging:
    level: info              # debug, info, warn, error
  statistic:
    chisq_index: 4           # q
    chisq_nhigh: 3           # n
    null_snr_threshold: [3.5, 5.25]
    null_grad_thresh: 20
    null_grad_val: 0.2
    sngl_snr_threshold: 4
    newsnr_threshold: 6
    snr_threshold: 0         # coherent SNR cut, 0 for none
  trials:
    duration: 0              # 0 for the on-source length
    min_duration: 0          # 0 for duration
    exclude_zero_lag: false
  efficiency:
    num_bins: 10
    lower_dist: 0            # Mpc
    upper_dist: 500
    num_mc_injs: 100
    cal_error: {H1: 0.1, L1: 0.1}
    dc_cal_error: {H1: 0.0, L1: 0.0}
    waveform_error: 0
    cluster_window: 0.1      # seconds
    glitch_check_factor: 1   # 0 disables the check
    random_seed: 0
    exclusion_percentile: 90 # 50 to 99
    injection_window: 1      # seconds
  report:
    loudest: 10

Configuration errors are fatal before any input is read.


File formats

The input database has these tables.  Times are GPS seconds, angles are
radians, distances are Mpc.

	time_slides     slide_id, ifo, time_offset
	segments        slide_id, start_time, end_time
	vetoes          ifo, start_time, end_time
	search_windows  name ("onsource" or "buffer"), start_time, end_time
	triggers        run, id, slide_id, end_time, snr, chisq, chisq_dof,
	                bank_chisq, bank_chisq_dof, cont_chisq, cont_chisq_dof,
	                null_snr, ra, dec, mass1, mass2
	sngl_triggers   run, trigger_id, ifo, snr
	injections      id, time, distance, mass1, mass2, spin1z, spin2z,
	                inclination, ra, dec

Triggers.run is "offsource", "onsource" or "injection".  Slide 0 is zero
lag.  Segments are given per slide, already adjusted for the slide offsets.
A missing buffer window defaults to the on-source window.

The results database holds tables run, slides, background, summary,
loudest, efficiency, distances and injections.  Run records a random run id,
the creation time and the configuration as JSON.  Background holds the
loudest statistic of every trial as stored doubles, so reading it back
gives the computed values exactly.


Algorithm outline

1.  For each time slide, usable time is the slide's segments less the
vetoes of every detector and less the on-source buffer, both moved by the
negated slide offset of each detector.  Each usable interval is cut into
consecutive trials of the configured duration.  A remainder of at least the
minimum duration is its own trial; a shorter one is added to the trial
before it.

2.  Each trigger gets a BestNR statistic.  Coherent SNR is reweighted by the
reduced chi-squared,

	newSNR = SNR / ((1 + rchisq^(q/n)) / 2)^(1/n)   for rchisq > 1

A null SNR above a threshold that rises linearly with SNR beyond
null_grad_thresh zeroes the statistic; above the lower threshold it is
halved.  In that halved state, any single-detector SNR above
sngl_snr_threshold zeroes it.  Finally a newSNR under newsnr_threshold gives
zero.

3.  The loudest BestNR of each trial forms the background.  Triggers outside
every trial are discarded and appear in no table.  A candidate's
false-alarm probability is the fraction of trials with a louder value.

4.  Each injection is matched to the loudest injection-run trigger within the
injection window.  It is found if that statistic exceeds the loudest
background trial.  A found injection with a louder zero-lag trigger nearby
is not counted toward the exclusion efficiency.

5.  Injected distances are redrawn num_mc_injs times to account for
calibration and waveform amplitude error.  The random source is seeded from
random_seed so results are repeatable.  Efficiency in each distance bin
has a Wilson score interval.  The sensitive distance is where the lower
bound of the efficiency falls below 50%.  The exclusion distance is where
the efficiency, reduced by the normal quantile of the percentile times the
lower error, falls below the percentile.  When a curve never crosses its
threshold the distance is reported as unreached or as a lower limit, an
error is logged, and the run continues.

-------------
Public domain.
*/
package main
