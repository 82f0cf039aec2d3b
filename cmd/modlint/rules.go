package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/modlint/pkg/report"
)

func newRulesCmd(g *globalFlags) *cobra.Command {
	var (
		unusedIn []string
		markdown bool
	)
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the declared validation rules",
		Long: `List the validation rules declared in the schema.

With --unused-in the given manifests are validated first and the rules
none of them triggered are listed after the catalog. Run it over a
representative set of manifests to find rules that never fire.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tc, err := g.load(cmd, nil)
			if err != nil {
				return err
			}

			md := report.Catalog(tc.registry)
			if len(unusedIn) > 0 {
				v, err := tc.validator()
				if err != nil {
					return err
				}
				for _, path := range unusedIn {
					res, err := v.ValidateFile(path)
					if err != nil {
						return err
					}
					tc.logger.Info("manifest checked", "manifest", path, "errors", len(res.Errors), "warnings", len(res.Warnings))
				}
				md += "\n" + report.UnusedCatalog(tc.registry.Unused())
			}

			if markdown {
				_, err := io.WriteString(cmd.OutOrStdout(), md)
				return err
			}
			out, err := report.Markdown(md, tc.cfg.Color, 100)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().StringArrayVar(&unusedIn, "unused-in", nil, "validate this manifest and list rules it never used, repeatable")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "print raw markdown")
	return cmd
}
