package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the PromptDeck CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "promptdeck",
		Short: "PromptDeck - AI provider plugin host",
		Long: `PromptDeck loads, validates, and safely invokes third-party AI
provider plugins packaged as .ai archives.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewHostCmd())
	cmd.AddCommand(NewValidateCmd())
	cmd.AddCommand(NewModelsCmd())
	cmd.AddCommand(NewListCmd())

	return cmd
}
