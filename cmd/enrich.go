package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/lexis/internal/cloze"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich <phrase>",
	Short: "Segment, translate and voice a phrase without saving it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out, _ := cmd.Flags().GetString("audio-out")
		text := strings.Join(args, " ")

		d, err := setup(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		pipeline, err := d.pipeline(ctx)
		if err != nil {
			return err
		}
		res := pipeline.Enrich(ctx, text)

		fmt.Printf("Text:         %s\n", text)
		fmt.Printf("Segmented:    %s\n", res.Spaced)
		fmt.Printf("Translation:  %s\n", res.Translation)
		fmt.Printf("Gap-fill:     %s\n", cloze.New(d.cfg.Location, nil).Gap(res.Spaced).Text)

		if res.Audio == nil {
			fmt.Println("Audio:        (none)")
			return nil
		}
		fmt.Printf("Audio:        %s, %d bytes\n", res.Audio.MIME, len(res.Audio.Data))
		if out != "" {
			if err := os.WriteFile(out, res.Audio.Data, 0o644); err != nil {
				return fmt.Errorf("write audio: %w", err)
			}
			fmt.Printf("Wrote %s\n", out)
		}
		return nil
	},
}

func init() {
	enrichCmd.Flags().StringP("audio-out", "o", "", "Write the synthesized audio to this file")
}
