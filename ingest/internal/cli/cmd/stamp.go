package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/polymerwire/modelhub/ingest/internal/timestamp"
)

var stampCmd = &cobra.Command{
	Use:   "stamp NAME",
	Short: "Append the current UTC timestamp to a model name",
	Long: `Append the current UTC timestamp to a model name. A name that already
carries a timestamp is re-stamped. With --parse the existing timestamp is
printed instead.`,
	Example: `  modelctl stamp bridge                        # bridge_240101_120000
  modelctl stamp bridge_240101_120000          # bridge_240102_093000
  modelctl stamp --parse bridge_240101_120000  # 2024-01-01T12:00:00Z`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if parse, _ := cmd.Flags().GetBool("parse"); parse {
			t, err := timestamp.Parse(args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Format(time.RFC3339))
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), restamp(args[0]))
		return nil
	},
}

// restamp replaces an existing suffix rather than stacking a second one.
func restamp(name string) string {
	if base, err := timestamp.Base(name); err == nil {
		name = base
	}
	return timestamp.Generate(name)
}

func init() {
	rootCmd.AddCommand(stampCmd)
	stampCmd.Flags().Bool("parse", false, "print the timestamp encoded in NAME")
}
