package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/polymerwire/modelhub/ingest/internal/cli/output"
)

var statusCmd = &cobra.Command{
	Use:   "status NAME",
	Short: "Show the latest checkpoint of a model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := apiClient(cmd).GetStatus(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return output.Render(cmd.OutOrStdout(), outputFormat(cmd), st, func() {
			table := output.NewTable("NAME", "STATUS", "MESSAGE")
			table.AddRow(st.Name, fmt.Sprint(st.LatestStatus), st.LatestLogMessage)
			table.Render(cmd.OutOrStdout())
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
