package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/lexis/internal/quota"
	"github.com/abhisek/lexis/internal/review"
	"github.com/abhisek/lexis/internal/screens/practice"
	"github.com/abhisek/lexis/internal/store"
)

var practiceCmd = &cobra.Command{
	Use:   "practice",
	Short: "Review a user's phrases in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		userID, _ := cmd.Flags().GetInt64("user")

		d, err := setup(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		users := d.backend.Users()
		if err := d.localUser(ctx, userID); err != nil {
			return err
		}
		own, shared, err := d.backend.Categories().Reviewable(ctx, userID)
		if err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		today, err := users.DayCounter(ctx, userID)
		if err != nil {
			return err
		}
		tier, err := users.Tier(ctx, userID)
		if err != nil {
			return err
		}
		limit := d.cfg.DailyLimit
		if d.cfg.IsAdmin(userID) || tier != store.TierFree {
			limit = 0
		}

		// Logs would draw over the screen.
		gate := quota.NewGate(users, nil, quota.Config{
			Limit:  d.cfg.DailyLimit,
			Admins: d.cfg.AdminIDs,
		}, zap.NewNop())
		rs := review.NewService(d.backend.Phrases(), d.backend.Categories(), gate, review.Config{
			Location: d.cfg.Location,
			Logger:   zap.NewNop(),
		})

		return practice.Run(practice.Options{
			Reviewer:   rs,
			UserID:     userID,
			Categories: append(own, shared...),
			Today:      today,
			Limit:      limit,
		})
	},
}

func init() {
	practiceCmd.Flags().Int64P("user", "u", 1, "User id to review as")
}
