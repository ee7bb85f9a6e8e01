// Public domain.

// Package grbconf loads grbpost configuration from a YAML file with
// GRBPOST_ environment overrides.
package grbconf

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/soniakeys/grbpost/internal/grbeff"
	"github.com/soniakeys/grbpost/internal/grbstat"
	"github.com/soniakeys/grbpost/internal/grbtab"
	"github.com/soniakeys/grbpost/internal/grbtrial"
)

// Config is the complete configuration.
type Config struct {
	Input      string           `mapstructure:"input"`
	Output     string           `mapstructure:"output"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Statistic  StatisticConfig  `mapstructure:"statistic"`
	Trials     TrialsConfig     `mapstructure:"trials"`
	Efficiency EfficiencyConfig `mapstructure:"efficiency"`
	Report     ReportConfig     `mapstructure:"report"`
}

// LoggingConfig sets the log level.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// StatisticConfig holds BestNR thresholds.
type StatisticConfig struct {
	ChisqIndex       float64   `mapstructure:"chisq_index"`
	ChisqNHigh       float64   `mapstructure:"chisq_nhigh"`
	NullSNRThreshold []float64 `mapstructure:"null_snr_threshold"` // low, high
	NullGradThresh   float64   `mapstructure:"null_grad_thresh"`
	NullGradVal      float64   `mapstructure:"null_grad_val"`
	SnglSNRThreshold float64   `mapstructure:"sngl_snr_threshold"`
	NewSNRThreshold  float64   `mapstructure:"newsnr_threshold"`
	SNRThreshold     float64   `mapstructure:"snr_threshold"`
}

// TrialsConfig controls off-source trials.  A zero duration means the
// length of the on-source window; a zero minimum means the duration.
type TrialsConfig struct {
	Duration       float64 `mapstructure:"duration"`
	MinDuration    float64 `mapstructure:"min_duration"`
	ExcludeZeroLag bool    `mapstructure:"exclude_zero_lag"`
}

// EfficiencyConfig controls the injection efficiency calculation.
// Calibration errors are keyed by detector name.
type EfficiencyConfig struct {
	NumBins             int                `mapstructure:"num_bins"`
	LowerDist           float64            `mapstructure:"lower_dist"`
	UpperDist           float64            `mapstructure:"upper_dist"`
	NumMCInjs           int                `mapstructure:"num_mc_injs"`
	CalError            map[string]float64 `mapstructure:"cal_error"`
	DCCalError          map[string]float64 `mapstructure:"dc_cal_error"`
	WaveformError       float64            `mapstructure:"waveform_error"`
	ClusterWindow       float64            `mapstructure:"cluster_window"`
	GlitchCheckFactor   float64            `mapstructure:"glitch_check_factor"`
	RandomSeed          uint64             `mapstructure:"random_seed"`
	ExclusionPercentile float64            `mapstructure:"exclusion_percentile"`
	InjectionWindow     float64            `mapstructure:"injection_window"`
}

// ReportConfig controls the text report.  Loudest is the number of
// off-source events listed.
type ReportConfig struct {
	Loudest int `mapstructure:"loudest"`
}

// Load reads configuration from path and the environment.  With an empty
// path only defaults and environment are used.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("GRBPOST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("input", "")
	v.SetDefault("output", "")
	v.SetDefault("logging.level", "info")

	v.SetDefault("statistic.chisq_index", 4.)
	v.SetDefault("statistic.chisq_nhigh", 3.)
	v.SetDefault("statistic.null_snr_threshold", []float64{3.5, 5.25})
	v.SetDefault("statistic.null_grad_thresh", 20.)
	v.SetDefault("statistic.null_grad_val", .2)
	v.SetDefault("statistic.sngl_snr_threshold", 4.)
	v.SetDefault("statistic.newsnr_threshold", 6.)
	v.SetDefault("statistic.snr_threshold", 0.) // 0 = no cut

	v.SetDefault("trials.duration", 0.)     // 0 = on-source length
	v.SetDefault("trials.min_duration", 0.) // 0 = duration
	v.SetDefault("trials.exclude_zero_lag", false)

	v.SetDefault("efficiency.num_bins", 10)
	v.SetDefault("efficiency.lower_dist", 0.)
	v.SetDefault("efficiency.upper_dist", 500.)
	v.SetDefault("efficiency.num_mc_injs", 100)
	v.SetDefault("efficiency.cal_error", map[string]float64{})
	v.SetDefault("efficiency.dc_cal_error", map[string]float64{})
	v.SetDefault("efficiency.waveform_error", 0.)
	v.SetDefault("efficiency.cluster_window", .1)
	v.SetDefault("efficiency.glitch_check_factor", 1.)
	v.SetDefault("efficiency.random_seed", 0)
	v.SetDefault("efficiency.exclusion_percentile", 90.)
	v.SetDefault("efficiency.injection_window", 1.)

	v.SetDefault("report.loudest", 10)
}

// StatParams returns the BestNR parameters.
func (c *Config) StatParams() (grbstat.Params, error) {
	s := &c.Statistic
	if len(s.NullSNRThreshold) != 2 {
		return grbstat.Params{}, errors.New(
			"statistic.null_snr_threshold must be a [low, high] pair")
	}
	p := grbstat.Params{
		ChisqIndex:       s.ChisqIndex,
		ChisqNHigh:       s.ChisqNHigh,
		NullSNRThreshold: [2]float64{s.NullSNRThreshold[0], s.NullSNRThreshold[1]},
		NullGradThresh:   s.NullGradThresh,
		NullGradVal:      s.NullGradVal,
		SnglSNRThreshold: s.SnglSNRThreshold,
		NewSNRThreshold:  s.NewSNRThreshold,
		SNRThreshold:     s.SNRThreshold,
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("statistic: %w", err)
	}
	return p, nil
}

// TrialParams returns trial parameters for an on-source window of length
// onSource seconds.
func (c *Config) TrialParams(onSource float64) (grbtrial.Params, error) {
	p := grbtrial.Params{Duration: c.Trials.Duration, MinDuration: c.Trials.MinDuration}
	if p.Duration == 0 {
		p.Duration = onSource
	}
	if p.MinDuration == 0 {
		p.MinDuration = p.Duration
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("trials: %w", err)
	}
	return p, nil
}

// perIfo maps detector keys to an array.  viper lower-cases map keys.
func perIfo(key string, m map[string]float64) (a [grbtab.NumIfo]float64, err error) {
	for k, v := range m {
		ifo, err := grbtab.ParseIfo(strings.ToUpper(k))
		if err != nil {
			return a, fmt.Errorf("%s: %w", key, err)
		}
		a[ifo] = v
	}
	return
}

// EffParams returns the efficiency engine parameters.
func (c *Config) EffParams() (grbeff.Params, error) {
	e := &c.Efficiency
	p := grbeff.Params{
		Bins:                grbeff.Binning{N: e.NumBins, Lower: e.LowerDist, Upper: e.UpperDist},
		NumMC:               e.NumMCInjs,
		WaveformError:       e.WaveformError,
		ClusterWindow:       e.ClusterWindow,
		GlitchCheckFactor:   e.GlitchCheckFactor,
		ExclusionPercentile: e.ExclusionPercentile,
	}
	var err error
	if p.CalError, err = perIfo("efficiency.cal_error", e.CalError); err != nil {
		return p, err
	}
	if p.DCCalError, err = perIfo("efficiency.dc_cal_error", e.DCCalError); err != nil {
		return p, err
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("efficiency: %w", err)
	}
	return p, nil
}

// Validate checks everything that can be checked before input is read.
func (c *Config) Validate() error {
	if c.Output == "" {
		return errors.New("output is required")
	}
	return c.ValidateParams()
}

// ValidateParams checks everything Validate does except the output path.
func (c *Config) ValidateParams() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("logging.level must be one of: debug, info, warn, error")
	}
	if _, err := c.StatParams(); err != nil {
		return err
	}
	if c.Trials.Duration < 0 || c.Trials.MinDuration < 0 {
		return errors.New("trials durations must not be negative")
	}
	if c.Trials.Duration > 0 && c.Trials.MinDuration > c.Trials.Duration {
		return errors.New("trials.min_duration must not exceed trials.duration")
	}
	if _, err := c.EffParams(); err != nil {
		return err
	}
	if !(c.Efficiency.InjectionWindow > 0) {
		return errors.New("efficiency.injection_window must be positive")
	}
	if c.Report.Loudest < 0 {
		return errors.New("report.loudest must not be negative")
	}
	return nil
}
