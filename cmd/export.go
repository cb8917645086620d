package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reson-group/lead-radar/internal/export"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export leads to csv, jsonl, md, or xlsx",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		format, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		filter := leadsFilter()
		if filter.Limit <= 0 {
			filter.Limit = 10000
		}
		leads, err := env.store.ListLeads(ctx, filter)
		if err != nil {
			return err
		}

		if exportOut == "" || exportOut == "-" {
			return export.Export(os.Stdout, leads, format)
		}
		if err := export.ExportFile(exportOut, leads, format); err != nil {
			return err
		}
		zap.L().Info("export written",
			zap.String("path", exportOut),
			zap.String("format", string(format)),
			zap.Int("leads", len(leads)))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format (csv|jsonl|md|xlsx)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
	exportCmd.Flags().StringVar(&leadsBand, "band", "", "filter by priority band (HOT|WARM|COLD)")
	exportCmd.Flags().StringVar(&leadsCountry, "country", "", "filter by ISO-2 country code")
	exportCmd.Flags().StringVar(&leadsTag, "tag", "", "filter by canonical tag")
	exportCmd.Flags().IntVar(&leadsMinScore, "min-score", 0, "minimum score")
	rootCmd.AddCommand(exportCmd)
}
