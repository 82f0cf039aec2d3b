//go:build ignore

package main

import (
	"fmt"
	"os"

	"github.com/ormasoftchile/modlint/pkg/schema"
)

func main() {
	if err := os.MkdirAll("schemas", 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "mkdir: %v\n", err)
		os.Exit(1)
	}

	src, err := schema.Bundled()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	data, err := src.StructuralJSON()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile("schemas/manifest-structural.json", data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("wrote schemas/manifest-structural.json")

	modelData, err := schema.GenerateManifestJSONSchema()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error generating model schema: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile("schemas/manifest-v1.json", modelData, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("wrote schemas/manifest-v1.json")
}
