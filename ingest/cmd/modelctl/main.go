package main

import (
	"os"

	"github.com/polymerwire/modelhub/ingest/internal/cli/cmd"
	"github.com/polymerwire/modelhub/ingest/internal/cli/output"
)

func main() {
	if err := cmd.Execute(); err != nil {
		output.Error(os.Stderr, "%v", err)
		os.Exit(1)
	}
}
