package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/lexis/internal/phrase"
)

var addCmd = &cobra.Command{
	Use:   "add <phrase>",
	Short: "Add a phrase to a user's category",
	Long: "Add enriches and saves a phrase. Audio is not uploaded from the " +
		"command line, so the phrase is saved without a voice message.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		userID, _ := cmd.Flags().GetInt64("user")
		category, _ := cmd.Flags().GetString("category")
		comment, _ := cmd.Flags().GetString("comment")

		d, err := setup(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		if err := d.localUser(ctx, userID); err != nil {
			return err
		}
		pipeline, err := d.pipeline(ctx)
		if err != nil {
			return err
		}
		svc := phrase.NewService(d.backend.Phrases(), d.backend.Categories(), pipeline, phrase.Config{
			MaxLen: d.cfg.PhraseMaxLen,
			Logger: d.logger.Named("phrase"),
		})

		p, err := svc.Add(ctx, userID, category, strings.Join(args, " "))
		if errors.Is(err, phrase.ErrDuplicatePhrase) {
			return fmt.Errorf("not added: %w", err)
		}
		if err != nil {
			return err
		}
		if comment != "" {
			if p, err = svc.SetComment(ctx, userID, p.ID, comment); err != nil {
				return err
			}
		}

		fmt.Printf("Added phrase %d to %q\n", p.ID, category)
		fmt.Printf("  %s\n  %s\n", p.SpacedPhrase, p.Translation)
		return nil
	},
}

func init() {
	addCmd.Flags().Int64P("user", "u", 1, "Owner user id")
	addCmd.Flags().StringP("category", "c", "General", "Category name, created when missing")
	addCmd.Flags().String("comment", "", "Free-text comment to attach")
}
