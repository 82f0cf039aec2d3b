package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/modlint/pkg/config"
	"github.com/ormasoftchile/modlint/pkg/logging"
	"github.com/ormasoftchile/modlint/pkg/report"
	"github.com/ormasoftchile/modlint/pkg/rules"
	"github.com/ormasoftchile/modlint/pkg/schema"
	"github.com/ormasoftchile/modlint/pkg/validate"
)

// errInvalid is returned when a manifest has errors. The report has already
// been printed, so main only sets the exit code.
var errInvalid = errors.New("validation failed")

// excerptWidth truncates source lines shown in text reports.
const excerptWidth = 160

type globalFlags struct {
	configFile string
	schema     string
	strict     bool
	noColor    bool
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "modlint [flags] <manifest.yml>",
		Short: "Validate module manifests",
		Long: `modlint checks module manifests against the manifest schema and the
semantic validation rules declared next to it.

Structural problems (missing or unexpected fields, wrong types) are reported
first. Only a structurally valid manifest is checked for duplicate ids,
dangling dataset and collection references, unused resources and condition
references. Every issue is reported with its line and a source excerpt.

The exit status is 1 when the manifest has errors. Warnings never fail.`,
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&g.configFile, "config", "c", "", "config file (default "+config.DefaultFile+" when present)")
	pf.StringVar(&g.schema, "schema", "", "schema file (default: bundled schema, env "+config.EnvSchema+")")
	pf.BoolVar(&g.strict, "strict", true, "fail on misdeclared or unregistered rules (env "+config.EnvStrict+")")
	pf.BoolVar(&g.noColor, "no-color", false, "disable colored output (env "+config.EnvNoColor+")")
	pf.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&g.logFormat, "log-format", "", "log format: text, json")

	v := addValidateFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd, g, v, args[0])
	}

	cmd.AddCommand(newRulesCmd(g))
	cmd.AddCommand(newSchemaCmd(g))
	cmd.AddCommand(newEvalCmd(g))
	return cmd
}

// settings resolves the configuration: defaults, config file, environment,
// then the flags the user actually set.
func (g *globalFlags) settings(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(g.configFile)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)

	flags := cmd.Flags()
	if flags.Changed("schema") {
		cfg.SchemaPath = g.schema
	}
	if flags.Changed("strict") {
		cfg.Strict = g.strict
	}
	if g.noColor {
		cfg.Color = false
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = g.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = g.logFormat
	}
	return cfg, nil
}

// toolchain is what every command needs to validate.
type toolchain struct {
	cfg      *config.Config
	logger   *slog.Logger
	source   *schema.Source
	registry *rules.Registry
}

func (g *globalFlags) load(cmd *cobra.Command, override func(*config.Config)) (*toolchain, error) {
	cfg, err := g.settings(cmd)
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}

	var src *schema.Source
	if cfg.SchemaPath == "" {
		src, err = schema.Bundled()
	} else {
		src, err = schema.LoadSource(cfg.SchemaPath)
	}
	if err != nil {
		return nil, err
	}

	reg, err := rules.Load(src.Data(), rules.Options{Strict: cfg.Strict, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", src.Name(), err)
	}
	logger.Debug("schema loaded", "schema", src.Name(), "rules", len(reg.Rules()), "strict", reg.Strict())
	return &toolchain{cfg: cfg, logger: logger, source: src, registry: reg}, nil
}

func (t *toolchain) validator(opts ...validate.Option) (*validate.Validator, error) {
	return validate.New(t.source, t.registry, append([]validate.Option{validate.WithLogger(t.logger)}, opts...)...)
}

func (t *toolchain) writeReport(w io.Writer, res *validate.Result) error {
	if t.cfg.Format == "json" {
		return report.JSON(w, res)
	}
	return report.New(w, report.Options{
		Color:        t.cfg.Color,
		ContextLines: t.cfg.ContextLines,
		MaxWidth:     excerptWidth,
	}).Write(res)
}
