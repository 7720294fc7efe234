package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/polymerwire/modelhub/ingest/internal/cli/output"
	"github.com/polymerwire/modelhub/ingest/internal/models"
)

var submitCmd = &cobra.Command{
	Use:   "submit FILE",
	Short: "Submit a model document to the ingest service",
	Example: `  modelctl submit bridge.json
  modelctl submit bridge.json --stamp    # append the current timestamp to the name first`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}

		stamp, _ := cmd.Flags().GetBool("stamp")
		if stamp {
			if data, err = stampName(data); err != nil {
				return err
			}
		}

		result, err := apiClient(cmd).Submit(cmd.Context(), data)
		if err != nil {
			return fmt.Errorf("submit failed: %w", err)
		}

		return output.Render(cmd.OutOrStdout(), outputFormat(cmd), result, func() {
			w := cmd.OutOrStdout()
			switch {
			case result.Error != "":
				output.Error(w, "rejected (%d): %s", result.StatusCode, result.Error)
			case result.Staged():
				output.Success(w, "model staged for tessellation")
			case result.StatusCode == http.StatusOK:
				output.Success(w, "model uploaded")
			default:
				output.Error(w, "model could not be stored (%d)", result.StatusCode)
			}
		})
	},
}

// stampName rewrites modelInformation.name with a fresh timestamp suffix.
func stampName(data []byte) ([]byte, error) {
	sub, err := models.DecodeSubmission(data)
	if err != nil {
		return nil, fmt.Errorf("model could not be parsed: %w", err)
	}
	name := sub.Name()
	if name == "" {
		return nil, errors.New("--stamp requires modelInformation.name")
	}
	sub.ModelInformation[models.InfoName] = restamp(name)
	return json.Marshal(sub)
}

func init() {
	rootCmd.AddCommand(submitCmd)
	submitCmd.Flags().Bool("stamp", false, "append the current UTC timestamp to modelInformation.name")
}
