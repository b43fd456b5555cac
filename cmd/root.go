package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lexis",
	Short: "Phrase review bot",
	Long: "Lexis saves phrases with their translation and pronunciation and " +
		"quizzes learners on them as gap-fill exercises over Telegram.",
	SilenceUsage: true,
}

// Execute runs the command line with ctx as the root context.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("db", "", "Path to the SQLite database (overrides LEXIS_DB; ignored when LEXIS_DATABASE_URL is set)")
	pf.String("env-file", "", "Load environment variables from this file (default .env when present)")
	pf.String("log-level", "", "Log level: debug, info, warn, error (overrides LEXIS_LOG_LEVEL)")

	rootCmd.AddCommand(botCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(practiceCmd)
	rootCmd.AddCommand(enrichCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(resetCountersCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}
