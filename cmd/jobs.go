package main

import (
	"github.com/spf13/cobra"

	"github.com/reson-group/lead-radar/internal/model"
	"github.com/reson-group/lead-radar/internal/store"
)

var (
	jobsState string
	jobsLimit int
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List scan jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		jobs, err := env.store.ListJobs(ctx, store.JobFilter{
			State: model.JobState(jobsState),
			Limit: jobsLimit,
		})
		if err != nil {
			return err
		}
		return printJSON(jobs)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show one scan job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		job, err := env.store.GetJob(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(job)
	},
}

func init() {
	jobsCmd.Flags().StringVar(&jobsState, "state", "", "filter by state (pending|running|done|failed)")
	jobsCmd.Flags().IntVar(&jobsLimit, "limit", 20, "maximum jobs to list")
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(statusCmd)
}
