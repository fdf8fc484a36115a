// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PromptDeck Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/promptdeck/promptdeck/internal/config"
	"github.com/promptdeck/promptdeck/internal/plugin"
	"github.com/promptdeck/promptdeck/internal/plugin/lua"
)

// NewListCmd creates the list subcommand.
func NewListCmd() *cobra.Command {
	var pluginsDir string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List plugin packages in the plugins directory",
		Long: `Scan the plugins directory for .ai archives and extracted package
directories and print each package's manifest summary.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, nil)
			if err != nil {
				return err
			}
			if pluginsDir != "" {
				cfg.PluginsDir = pluginsDir
			}

			svc := plugin.NewService(lua.NewHost(), cfg.PluginsDir)
			paths, err := svc.Discover(cmd.Context())
			if err != nil {
				return err
			}

			for _, path := range paths {
				manifest, err := validatePackage(path)
				if err != nil {
					cmd.PrintErrf("%s\tinvalid: %v\n", path, err)
					continue
				}
				cmd.Printf("%s\t%s\t%s\t%s\n",
					manifest.Name, manifest.Version, manifest.Author, path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&pluginsDir, "plugins-dir", "", "directory scanned for .ai packages")

	return cmd
}
