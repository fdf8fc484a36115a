// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PromptDeck Contributors

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/promptdeck/promptdeck/internal/plugin"
)

// NewValidateCmd creates the validate subcommand.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate PACKAGE",
		Short: "Validate a plugin package's manifest",
		Long: `Validate the manifest of a .ai archive or an extracted package
directory against the manifest schema and semantic rules.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := validatePackage(args[0])
			if err != nil {
				return err
			}
			cmd.Printf("%s %s by %s: manifest valid (%d parameters)\n",
				manifest.Name, manifest.Version, manifest.Author, len(manifest.Parameters))
			return nil
		},
	}
}

// validatePackage reads and validates a package's manifest without
// instantiating its entry module.
func validatePackage(path string) (*plugin.Manifest, error) {
	dir := path
	if filepath.Ext(path) == plugin.PackageExt {
		tmpDir, err := os.MkdirTemp("", "promptdeck-validate-*")
		if err != nil {
			return nil, fmt.Errorf("create temp dir: %w", err)
		}
		defer os.RemoveAll(tmpDir)

		dir, err = plugin.ExtractPackage(path, tmpDir)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, plugin.ManifestFileName)) //nolint:gosec // path supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	if err := plugin.ValidateSchema(data); err != nil {
		return nil, fmt.Errorf("schema: %s", plugin.FormatSchemaError(err))
	}
	return plugin.ParseManifest(data)
}
