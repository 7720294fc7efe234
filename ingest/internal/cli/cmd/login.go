package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/polymerwire/modelhub/common/config"
	"github.com/polymerwire/modelhub/ingest/internal/cli/output"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Save an ingest URL and bearer token",
	Long: `Store a profile pointing at an ingest deployment. Tokens are issued by the
service operator with "ingest -issue-token SUBJECT".`,
	Example: `  modelctl login --token eyJ... --url https://models.example.com`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		token, _ := cmd.Flags().GetString("token")
		url, _ := cmd.Flags().GetString("url")
		if token == "" {
			return errors.New("token is required")
		}

		profile, _ := cmd.Flags().GetString("profile")
		if profile == "" {
			profile = cfg.CurrentProfile
		}
		if url == "" {
			url = cfg.Resolve(profile).IngestURL
		}

		if err := cfg.SaveProfile(profile, &config.Profile{IngestURL: url, Token: token}); err != nil {
			return fmt.Errorf("failed to save profile: %w", err)
		}

		output.Success(cmd.OutOrStdout(), "Profile '%s' saved to %s", profile, cfg.Path())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().String("token", "", "bearer token")
	loginCmd.Flags().String("url", "", "ingest service URL")
}
