package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/lexis/internal/quota"
)

var resetCountersCmd = &cobra.Command{
	Use:   "reset-counters",
	Short: "Archive today's round counters and reset them",
	Long: "Reset-counters stores each user's day counter as progress for the " +
		"given day and sets the counter back to zero. Run it once a day from cron, " +
		"shortly before midnight.",
	RunE: func(cmd *cobra.Command, args []string) error {
		dateFlag, _ := cmd.Flags().GetString("date")

		day := time.Now()
		if dateFlag != "" {
			t, err := time.Parse(time.DateOnly, dateFlag)
			if err != nil {
				return fmt.Errorf("invalid --date %q: %w", dateFlag, err)
			}
			day = t
		}

		d, err := setup(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		n, err := quota.NewRollover(d.backend.Users(), d.backend.Progress(), d.logger.Named("rollover")).
			Run(cmd.Context(), day)
		fmt.Printf("Rolled over %d users for %s\n", n, day.Format(time.DateOnly))
		return err
	},
}

func init() {
	resetCountersCmd.Flags().String("date", "", "Day to archive the counters under (YYYY-MM-DD, default today)")
}
