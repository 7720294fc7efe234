// Package cmd implements the modelctl commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/polymerwire/modelhub/common/config"
	"github.com/polymerwire/modelhub/ingest/internal/cli/client"
)

var (
	cfgFile string
	cfg     *config.CLIConfig
)

var rootCmd = &cobra.Command{
	Use:   "modelctl",
	Short: "modelhub CLI",
	Long: `modelctl is the command-line interface for the modelhub ingest service.

Stamp model names, validate documents offline, submit models and follow
their checkpoint status from your terminal.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.modelctl/config.yaml)")
	rootCmd.PersistentFlags().String("profile", "", "profile to use (default: current profile)")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "output format: table, json, yaml")
}

func initConfig() {
	var err error
	cfg, err = config.LoadCLI(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		cfg = config.DefaultCLI()
	}
}

// apiClient builds a client for the selected profile.
func apiClient(cmd *cobra.Command) *client.Client {
	profile, _ := cmd.Flags().GetString("profile")
	p := cfg.Resolve(profile)
	return client.New(p.IngestURL, p.Token)
}

func outputFormat(cmd *cobra.Command) string {
	format, _ := cmd.Flags().GetString("output")
	return format
}
