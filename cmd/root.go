package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reson-group/lead-radar/internal/config"
)

var (
	cfg      *config.Config
	tagsFile string
)

var rootCmd = &cobra.Command{
	Use:   "lead-radar",
	Short: "Industrial automation lead discovery pipeline",
	Long:  "Scans vendor and consortium directories for automation companies, deduplicates them into leads, enriches from their websites, and scores them for outreach.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if tagsFile != "" {
			if err := config.ApplyTagFile(cfg, tagsFile); err != nil {
				return fmt.Errorf("load tags file: %w", err)
			}
		}

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&tagsFile, "tags-file", "", "YAML file overriding the tag vocabulary and weights")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
