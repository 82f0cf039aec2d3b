package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/modlint/pkg/schema"
)

func newSchemaCmd(g *globalFlags) *cobra.Command {
	var types bool
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the manifest JSON Schema",
		Long: `Print the draft-07 structural schema manifests are validated against.

With --types the schema reflected from the Go manifest model is printed
instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			if types {
				data, err = schema.GenerateManifestJSONSchema()
			} else {
				var tc *toolchain
				tc, err = g.load(cmd, nil)
				if err != nil {
					return err
				}
				data, err = tc.source.StructuralJSON()
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
	cmd.Flags().BoolVar(&types, "types", false, "print the schema of the Go manifest model")
	return cmd
}
