package main

import (
	"github.com/spf13/cobra"

	"github.com/reson-group/lead-radar/internal/model"
)

var (
	leadsBand     string
	leadsCountry  string
	leadsTag      string
	leadsMinScore int
	leadsLimit    int
	leadsOffset   int
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "List stored leads",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		leads, err := env.store.ListLeads(ctx, leadsFilter())
		if err != nil {
			return err
		}
		return printJSON(leads)
	},
}

func leadsFilter() model.LeadFilter {
	return model.LeadFilter{
		Band:     model.PriorityBand(leadsBand),
		Country:  leadsCountry,
		Tag:      leadsTag,
		MinScore: leadsMinScore,
		Limit:    leadsLimit,
		Offset:   leadsOffset,
	}
}

func init() {
	leadsCmd.Flags().StringVar(&leadsBand, "band", "", "filter by priority band (HOT|WARM|COLD)")
	leadsCmd.Flags().StringVar(&leadsCountry, "country", "", "filter by ISO-2 country code")
	leadsCmd.Flags().StringVar(&leadsTag, "tag", "", "filter by canonical tag")
	leadsCmd.Flags().IntVar(&leadsMinScore, "min-score", 0, "minimum score")
	leadsCmd.Flags().IntVar(&leadsLimit, "limit", 50, "maximum leads to list")
	leadsCmd.Flags().IntVar(&leadsOffset, "offset", 0, "pagination offset")
	rootCmd.AddCommand(leadsCmd)
}
