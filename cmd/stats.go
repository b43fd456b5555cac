package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/lexis/internal/quota"
	"github.com/abhisek/lexis/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show a user's daily rounds",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		userID, _ := cmd.Flags().GetInt64("user")
		days, _ := cmd.Flags().GetInt("days")

		d, err := setup(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		history, err := quota.History(ctx, d.backend.Users(), d.backend.Progress(), userID, days, time.Now())
		if err != nil {
			return err
		}
		tier, err := d.backend.Users().Tier(ctx, userID)
		if err != nil {
			return err
		}

		var total, best int
		fmt.Printf("%-10s  %6s\n", "Date", "Rounds")
		fmt.Println(strings.Repeat("─", 18))
		for _, h := range history {
			fmt.Printf("%-10s  %6d\n", h.Date.Format(time.DateOnly), h.Score)
			total += h.Score
			best = max(best, h.Score)
		}
		fmt.Println(strings.Repeat("─", 18))
		fmt.Printf("%-10s  %6d\n", "Total", total)
		fmt.Printf("%-10s  %6d\n", "Best day", best)

		limit := fmt.Sprintf("%d rounds a day", d.cfg.DailyLimit)
		if d.cfg.IsAdmin(userID) || tier != store.TierFree {
			limit = "unlimited"
		}
		fmt.Printf("\nTier: %s (%s)\n", tier, limit)
		return nil
	},
}

func init() {
	statsCmd.Flags().Int64P("user", "u", 1, "User id")
	statsCmd.Flags().IntP("days", "d", 7, "Number of days to show, today included")
}
