// Public domain.

package grbconf_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soniakeys/grbpost/internal/grbconf"
	"github.com/soniakeys/grbpost/internal/grbtab"
)

const testYAML = `
input: grb.db
output: results.db
statistic:
  null_snr_threshold: [3, 5]
  sngl_snr_threshold: 5
efficiency:
  num_bins: 20
  upper_dist: 300
  num_mc_injs: 50
  cal_error:
    H1: 0.1
    L1: 0.12
  dc_cal_error:
    V1: 0.04
  random_seed: 1234
trials:
  exclude_zero_lag: true
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grbpost.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAndValidate(t *testing.T) {
	cfg, err := grbconf.Load(writeConfig(t, testYAML))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "grb.db", cfg.Input)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Trials.ExcludeZeroLag)
	assert.Equal(t, 10, cfg.Report.Loudest)

	sp, err := cfg.StatParams()
	require.NoError(t, err)
	assert.Equal(t, [2]float64{3, 5}, sp.NullSNRThreshold)
	assert.Equal(t, 5., sp.SnglSNRThreshold)
	assert.Equal(t, 4., sp.ChisqIndex)

	ep, err := cfg.EffParams()
	require.NoError(t, err)
	assert.Equal(t, 20, ep.Bins.N)
	assert.Equal(t, 300., ep.Bins.Upper)
	assert.Equal(t, 50, ep.NumMC)
	assert.Equal(t, .1, ep.CalError[grbtab.H1])
	assert.Equal(t, .12, ep.CalError[grbtab.L1])
	assert.Equal(t, .04, ep.DCCalError[grbtab.V1])
	assert.Equal(t, 90., ep.ExclusionPercentile)
	assert.Equal(t, uint64(1234), cfg.Efficiency.RandomSeed)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("GRBPOST_EFFICIENCY_NUM_MC_INJS", "7")
	t.Setenv("GRBPOST_OUTPUT", "env.db")
	cfg, err := grbconf.Load(writeConfig(t, testYAML))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Efficiency.NumMCInjs)
	assert.Equal(t, "env.db", cfg.Output)
}

func TestDefaultsOnly(t *testing.T) {
	cfg, err := grbconf.Load("")
	require.NoError(t, err)
	assert.Error(t, cfg.Validate(), "output is required")
	assert.NoError(t, cfg.ValidateParams())
	cfg.Output = "out.db"
	assert.NoError(t, cfg.Validate())
}

func TestTrialParams(t *testing.T) {
	cfg, err := grbconf.Load("")
	require.NoError(t, err)
	p, err := cfg.TrialParams(6)
	require.NoError(t, err)
	assert.Equal(t, 6., p.Duration)
	assert.Equal(t, 6., p.MinDuration)

	cfg.Trials.MinDuration = 2
	p, err = cfg.TrialParams(6)
	require.NoError(t, err)
	assert.Equal(t, 2., p.MinDuration)

	_, err = cfg.TrialParams(0)
	assert.Error(t, err)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*grbconf.Config){
		"percentile low":   func(c *grbconf.Config) { c.Efficiency.ExclusionPercentile = 40 },
		"percentile high":  func(c *grbconf.Config) { c.Efficiency.ExclusionPercentile = 99.5 },
		"unknown detector": func(c *grbconf.Config) { c.Efficiency.CalError = map[string]float64{"x1": .1} },
		"huge cal error":   func(c *grbconf.Config) { c.Efficiency.CalError = map[string]float64{"h1": .4} },
		"null pair":        func(c *grbconf.Config) { c.Statistic.NullSNRThreshold = []float64{3} },
		"newsnr":           func(c *grbconf.Config) { c.Statistic.NewSNRThreshold = 0 },
		"log level":        func(c *grbconf.Config) { c.Logging.Level = "loud" },
		"bins":             func(c *grbconf.Config) { c.Efficiency.NumBins = 0 },
		"window":           func(c *grbconf.Config) { c.Efficiency.InjectionWindow = 0 },
		"min duration":     func(c *grbconf.Config) { c.Trials.Duration = 4; c.Trials.MinDuration = 5 },
	}
	for name, mod := range cases {
		t.Run(name, func(t *testing.T) {
			cfg, err := grbconf.Load(writeConfig(t, testYAML))
			require.NoError(t, err)
			mod(cfg)
			assert.Error(t, cfg.Validate())
			assert.Error(t, cfg.ValidateParams())
		})
	}
}
