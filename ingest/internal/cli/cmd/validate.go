package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/polymerwire/modelhub/ingest/internal/classifier"
	"github.com/polymerwire/modelhub/ingest/internal/cli/output"
	"github.com/polymerwire/modelhub/ingest/internal/models"
	"github.com/polymerwire/modelhub/ingest/internal/status"
	"github.com/polymerwire/modelhub/ingest/internal/validator"
)

var validateCmd = &cobra.Command{
	Use:   "validate FILE",
	Short: "Validate and classify a model document offline",
	Long: `Run the ingest validators and classifier over FILE without contacting the
service. The uniqueness check is skipped. On success the classified document
is printed; on failure the rejection message is printed and modelctl exits 1.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}

		sub, err := models.DecodeSubmission(data)
		if err != nil {
			return fmt.Errorf("model could not be parsed: %w", err)
		}

		verbose, _ := cmd.Flags().GetBool("verbose")
		report := func(_ context.Context, state, detail string) {
			if verbose {
				output.Info(cmd.ErrOrStderr(), "%s", status.Message(state, detail))
			}
		}
		if err := validator.Default().Validate(cmd.Context(), sub, report); err != nil {
			return err
		}
		c := classifier.Apply(sub)

		doc, err := json.Marshal(sub)
		if err != nil {
			return err
		}
		var v map[string]any
		if err := json.Unmarshal(doc, &v); err != nil {
			return err
		}

		return output.Render(cmd.OutOrStdout(), outputFormat(cmd), v, func() {
			output.Success(cmd.OutOrStdout(), "%s is valid", sub.Name())
			table := output.NewTable("GROUP", "ELEMENTS")
			table.AddRow("linear", fmt.Sprint(len(c.LinearElements)))
			table.AddRow("planar", fmt.Sprint(len(c.PlanarElements)))
			table.Render(cmd.OutOrStdout())
			if len(c.PlanarElements) > 0 {
				output.Warn(cmd.OutOrStdout(), "planar elements present: the model will be staged for tessellation")
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().BoolP("verbose", "v", false, "print each checkpoint to stderr")
}
