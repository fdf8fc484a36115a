// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PromptDeck Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/promptdeck/promptdeck/internal/config"
	"github.com/promptdeck/promptdeck/internal/logging"
	"github.com/promptdeck/promptdeck/internal/plugin"
	"github.com/promptdeck/promptdeck/internal/plugin/lua"
)

// NewModelsCmd creates the models subcommand.
func NewModelsCmd() *cobra.Command {
	var setFlags []string

	cmd := &cobra.Command{
		Use:   "models PACKAGE",
		Short: "List the models a plugin package supports",
		Long: `Load a .ai archive or extracted package directory in-process and
print its model catalog, with the default model promoted to the front.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile, nil)
			if err != nil {
				return err
			}
			logging.SetDefault("promptdeck", version, cfg.LogFormat)

			userValues, err := parseSetFlags(setFlags)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			svc := plugin.NewService(lua.NewHost(), cfg.PluginsDir,
				plugin.WithPromptTimeout(cfg.PromptTimeout))
			defer svc.Close(ctx) //nolint:errcheck // best-effort teardown on exit

			lp, err := svc.LoadPlugin(ctx, args[0])
			if err != nil {
				return err
			}
			if err := lp.SetSettings(userValues); err != nil {
				return err
			}

			catalog, err := svc.ListModels(ctx, lp.Manifest().Name)
			if err != nil {
				return err
			}

			for _, m := range catalog {
				cmd.Printf("%s\t%s\n", m.ID, m.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&setFlags, "set", nil, "parameter value as id=value (repeatable)")

	return cmd
}

// parseSetFlags converts repeated id=value flags to a settings map.
func parseSetFlags(flags []string) (map[string]string, error) {
	values := make(map[string]string, len(flags))
	for _, f := range flags {
		id, value, ok := strings.Cut(f, "=")
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid --set %q, want id=value", f)
		}
		values[id] = value
	}
	return values, nil
}
