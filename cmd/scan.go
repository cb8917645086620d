package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reson-group/lead-radar/internal/model"
)

var (
	scanSources      []string
	scanCountries    []string
	scanMaxPerSource int
	scanSinceMonths  int
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a scan across source directories",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		job, err := env.orch.Submit(ctx, model.ScanParams{
			Sources:      scanSources,
			Countries:    scanCountries,
			MaxPerSource: scanMaxPerSource,
			SinceMonths:  scanSinceMonths,
		})
		if err != nil {
			return err
		}

		zap.L().Info("scan submitted, waiting", zap.String("job_id", job.JobID))
		final, err := env.orch.Wait(ctx, job.JobID)
		if err != nil {
			return err
		}
		return printJSON(final)
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	scanCmd.Flags().StringSliceVar(&scanSources, "sources", nil, "sources to scan (default all)")
	scanCmd.Flags().StringSliceVar(&scanCountries, "countries", nil, "ISO-2 codes or region tokens (EU, DACH, NORDICS, ...)")
	scanCmd.Flags().IntVar(&scanMaxPerSource, "max-per-source", 0, "cap records per source (default from config)")
	scanCmd.Flags().IntVar(&scanSinceMonths, "since-months", 0, "recency hint for sources that support it")
	rootCmd.AddCommand(scanCmd)
}
