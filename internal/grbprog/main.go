// Public domain.

// Package grbprog implements the grbpost command.
package grbprog

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/soniakeys/exit"
	"github.com/spf13/cobra"

	"github.com/soniakeys/grbpost/internal/grbconf"
	"github.com/soniakeys/grbpost/internal/grbdb"
	"github.com/soniakeys/grbpost/internal/grbrep"
)

const versionString = "grbpost version 0.1 Go source."
const copyrightString = "Public domain."

// Main runs the command line program.
func Main() {
	defer exit.Handler()
	if err := NewCommand().Execute(); err != nil {
		exit.Log(err)
	}
}

// NewCommand returns the root command.  Errors are returned from Execute
// rather than printed.
func NewCommand() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:           "grbpost",
		Short:         "Postprocess a GRB-triggered coherent search",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "",
		"configuration file (YAML)")

	var input, output string
	run := &cobra.Command{
		Use:   "run",
		Short: "Rank background, estimate significance and compute efficiency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgPath, input, output)
			if err != nil {
				return err
			}
			return runPipeline(cfg, cmd.OutOrStdout(), newLogger(cfg, cmd.ErrOrStderr()))
		},
	}
	run.Flags().StringVarP(&input, "input", "i", "", "input database, overrides config")
	run.Flags().StringVarP(&output, "output", "o", "", "results database, overrides config")

	trials := &cobra.Command{
		Use:   "trials",
		Short: "Build off-source trials and print a per-slide summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := grbconf.Load(cfgPath)
			if err != nil {
				return err
			}
			if input != "" {
				cfg.Input = input
			}
			if cfg.Input == "" {
				return fmt.Errorf("input is required")
			}
			if err := cfg.ValidateParams(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			t, err := grbdb.ReadTables(cfg.Input)
			if err != nil {
				return err
			}
			if err := t.Validate(); err != nil {
				return fmt.Errorf("invalid input: %w", err)
			}
			set, err := BuildTrials(cfg, t)
			if err != nil {
				return err
			}
			return grbrep.Trials(cmd.OutOrStdout(), set)
		},
	}
	trials.Flags().StringVarP(&input, "input", "i", "", "input database, overrides config")

	initCmd := &cobra.Command{
		Use:   "init <database>",
		Short: "Create an empty input database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return grbdb.CreateInput(args[0])
		},
	}

	version := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionString)
			fmt.Fprintln(cmd.OutOrStdout(), copyrightString)
		},
	}

	root.AddCommand(run, trials, initCmd, version)
	return root
}

// loadConfig loads and validates configuration, applying command line
// overrides.
func loadConfig(path, input, output string) (*grbconf.Config, error) {
	cfg, err := grbconf.Load(path)
	if err != nil {
		return nil, err
	}
	if input != "" {
		cfg.Input = input
	}
	if output != "" {
		cfg.Output = output
	}
	if cfg.Input == "" {
		return nil, fmt.Errorf("input is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *grbconf.Config, w io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	// level was checked by Validate
	if lvl, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		log.SetLevel(lvl)
	}
	return log
}

func runPipeline(cfg *grbconf.Config, out io.Writer, log *logrus.Logger) error {
	t, err := grbdb.ReadTables(cfg.Input)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"input":      cfg.Input,
		"slides":     len(t.Slides),
		"offsource":  len(t.OffSource),
		"onsource":   len(t.OnTrigs),
		"injections": len(t.Injections),
	}).Info("read input tables")

	r, err := Analyze(cfg, t, log)
	if err != nil {
		return err
	}
	r.RunID = uuid.New()
	r.Created = time.Now().UTC()
	r.Config = cfg
	if err := grbdb.WriteResults(cfg.Output, r); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"output": cfg.Output,
		"run_id": r.RunID,
	}).Info("wrote results")
	return grbrep.Write(out, r)
}
