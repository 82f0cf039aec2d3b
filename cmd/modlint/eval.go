package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/ormasoftchile/modlint/pkg/condition"
	"github.com/ormasoftchile/modlint/pkg/schema"
)

func newEvalCmd(g *globalFlags) *cobra.Command {
	var (
		argFlags []string
		inputs   []string
		outputs  []string
	)
	cmd := &cobra.Command{
		Use:   "eval <manifest.yml>",
		Short: "Show which input layers are included for given arguments",
		Long: `Evaluate the conditions of every input layer.

Arguments take their manifest defaults unless set with --arg. References to
input and output layers hold when the layer is named with --input or
--output. Layers without conditions are always included.

The manifest is validated first; an invalid manifest is reported instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			tc, err := g.load(cmd, nil)
			if err != nil {
				return err
			}
			v, err := tc.validator()
			if err != nil {
				return err
			}
			res, err := v.ValidateFile(path)
			if err != nil {
				return err
			}
			if !res.Valid() {
				if err := tc.writeReport(cmd.ErrOrStderr(), res); err != nil {
					return err
				}
				return errInvalid
			}

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			m, err := schema.DecodeManifest(f)
			if err != nil {
				return err
			}

			env, err := evalEnv(&m.Module, argFlags, inputs, outputs)
			if err != nil {
				return err
			}

			layers := evalLayers(&m.Module, env)
			width := 0
			for _, l := range layers {
				width = max(width, runewidth.StringWidth(l.id))
			}
			out := cmd.OutOrStdout()
			for _, l := range layers {
				fmt.Fprintf(out, "%s  %s\n", runewidth.FillRight(l.id, width), l.outcome)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&argFlags, "arg", nil, "set an argument value (name=value), repeatable")
	cmd.Flags().StringArrayVar(&inputs, "input", nil, "mark an input layer as selected, repeatable")
	cmd.Flags().StringArrayVar(&outputs, "output", nil, "mark an output layer as selected, repeatable")
	return cmd
}

func evalEnv(module *schema.Module, argFlags, inputs, outputs []string) (condition.Env, error) {
	env := condition.Env{
		Args:    make(map[string]any),
		Inputs:  make(map[string]bool),
		Outputs: make(map[string]bool),
	}

	declared := make(map[string]bool)
	for _, a := range module.Arguments {
		declared[a.Name] = true
		if a.Default != nil {
			env.Args[a.Name] = a.Default
		}
	}
	for _, kv := range argFlags {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return env, fmt.Errorf("invalid --arg %q: expected name=value", kv)
		}
		if !declared[name] {
			return env, fmt.Errorf("invalid --arg %q: the manifest declares no argument %q", kv, name)
		}
		env.Args[name] = value
	}

	for _, id := range inputs {
		env.Inputs[id] = true
	}
	for _, id := range outputs {
		env.Outputs[id] = true
	}
	return env, nil
}

type layerOutcome struct {
	id      string
	outcome string
}

func evalLayers(module *schema.Module, env condition.Env) []layerOutcome {
	out := make([]layerOutcome, 0, len(module.InputLayers))
	for _, layer := range module.InputLayers {
		if layer.Conditions == nil {
			out = append(out, layerOutcome{layer.ID, "included"})
			continue
		}
		included, err := condition.Evaluate(condition.Parse(layer.Conditions.Value), env)
		switch {
		case err != nil:
			out = append(out, layerOutcome{layer.ID, "error: " + err.Error()})
		case included:
			out = append(out, layerOutcome{layer.ID, "included"})
		default:
			out = append(out, layerOutcome{layer.ID, "excluded"})
		}
	}
	return out
}
