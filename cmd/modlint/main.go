// Command modlint validates module manifests.
//
// Usage:
//
//	# Validate a manifest against the bundled schema
//	modlint manifest.yml
//
//	# Use a different schema and report as JSON
//	modlint --schema schema.yml --format json manifest.yml
//
//	# Re-validate whenever the manifest changes
//	modlint --watch manifest.yml
//
//	# List the validation rules, and those a set of manifests never triggers
//	modlint rules --unused-in a.yml --unused-in b.yml
//
//	# Show which input layers a set of argument values selects
//	modlint eval manifest.yml --arg year=2020 --output o1
package main

import (
	"errors"
	"fmt"
	"os"
)

// Version is set at build time via ldflags.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errInvalid) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
