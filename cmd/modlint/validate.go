package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/modlint/pkg/config"
	"github.com/ormasoftchile/modlint/pkg/metrics"
	"github.com/ormasoftchile/modlint/pkg/progress"
	"github.com/ormasoftchile/modlint/pkg/validate"
	"github.com/ormasoftchile/modlint/pkg/watch"
)

type validateFlags struct {
	context      int
	format       string
	metricsFile  string
	progressFile string
	watch        bool
}

func addValidateFlags(cmd *cobra.Command) *validateFlags {
	v := &validateFlags{}
	f := cmd.Flags()
	f.IntVar(&v.context, "context", 3, "source lines shown around each issue")
	f.StringVar(&v.format, "format", "text", "report format: text, json")
	f.StringVar(&v.metricsFile, "metrics-file", "", "write Prometheus metrics to this file after every run")
	f.StringVar(&v.progressFile, "progress-file", "", "report run progress into this JSON file")
	f.BoolVarP(&v.watch, "watch", "w", false, "re-validate whenever the manifest or schema changes")
	return v
}

func (v *validateFlags) apply(cmd *cobra.Command) func(*config.Config) {
	return func(cfg *config.Config) {
		flags := cmd.Flags()
		if flags.Changed("context") {
			cfg.ContextLines = v.context
		}
		if flags.Changed("format") {
			cfg.Format = v.format
		}
		if flags.Changed("metrics-file") {
			cfg.MetricsFile = v.metricsFile
		}
		if flags.Changed("progress-file") {
			cfg.ProgressFile = v.progressFile
		}
	}
}

func runValidate(cmd *cobra.Command, g *globalFlags, v *validateFlags, path string) error {
	tc, err := g.load(cmd, v.apply(cmd))
	if err != nil {
		return err
	}

	var opts []validate.Option
	var collector *metrics.Collector
	if tc.cfg.MetricsFile != "" {
		collector = metrics.New(nil)
		opts = append(opts, validate.WithObserver(collector))
	}
	if tc.cfg.ProgressFile != "" {
		opts = append(opts, validate.WithProgress(progress.New(tc.cfg.ProgressFile, tc.logger).Emit))
	}
	validator, err := tc.validator(opts...)
	if err != nil {
		return err
	}

	check := func() (bool, error) {
		res, err := validator.ValidateFile(path)
		if err != nil {
			return false, err
		}
		if err := tc.writeReport(cmd.OutOrStdout(), res); err != nil {
			return false, fmt.Errorf("write report: %w", err)
		}
		if collector != nil {
			if err := collector.WriteFile(tc.cfg.MetricsFile); err != nil {
				tc.logger.Warn("metrics not written", "file", tc.cfg.MetricsFile, "error", err)
			}
		}
		return res.Valid(), nil
	}

	if v.watch {
		return watchManifest(cmd.Context(), cmd, tc, path, check)
	}

	valid, err := check()
	if err != nil {
		return err
	}
	if !valid {
		return errInvalid
	}
	return nil
}

// watchManifest validates once and then after every change until
// interrupted. Failures of a single run are reported and watching goes on.
func watchManifest(ctx context.Context, cmd *cobra.Command, tc *toolchain, path string, check func() (bool, error)) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	paths := []string{path}
	if tc.cfg.SchemaPath != "" {
		paths = append(paths, tc.cfg.SchemaPath)
	}
	w, err := watch.New(paths, tc.cfg.Watch.Debounce.Duration, tc.logger)
	if err != nil {
		return err
	}

	run := func() {
		if _, err := check(); err != nil {
			tc.logger.Error("validation run failed", "error", err)
		}
	}
	run()
	return w.Run(ctx, func() {
		fmt.Fprintf(cmd.OutOrStdout(), "\n%s changed, validating again\n", path)
		run()
	})
}
