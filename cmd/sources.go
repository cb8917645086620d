package main

import (
	"github.com/spf13/cobra"

	"github.com/reson-group/lead-radar/internal/fetch"
	"github.com/reson-group/lead-radar/internal/source"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List available source adapters",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := source.DefaultRegistry(fetch.NewClient(cfg.Fetch))
		return printJSON(registry.Names())
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
