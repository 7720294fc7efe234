package cmd

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/polymerwire/modelhub/ingest/internal/cli/output"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models in the site bucket",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := apiClient(cmd).ListModels(cmd.Context())
		if err != nil {
			return err
		}
		return output.Render(cmd.OutOrStdout(), outputFormat(cmd), list, func() {
			table := output.NewTable("MODEL", "UPLOADED", "TAGS")
			for _, m := range list {
				var tags []string
				for k, v := range m.S3Attributes {
					if k != "uploadTime" {
						tags = append(tags, k+"="+v)
					}
				}
				sort.Strings(tags)
				table.AddRow(m.Model, m.S3Attributes["uploadTime"], strings.Join(tags, ","))
			}
			table.Render(cmd.OutOrStdout())
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get NAME",
	Short: "Print a stored model document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := apiClient(cmd).GetModel(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return err
		}
		format := outputFormat(cmd)
		if format == output.FormatTable {
			format = output.FormatJSON
		}
		return output.Render(cmd.OutOrStdout(), format, doc, nil)
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(getCmd)
}
