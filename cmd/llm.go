package cmd

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/lexis/internal/llm"
	"github.com/abhisek/lexis/internal/store"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect segmentation and translation requests",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent LLM events",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")

		d, err := setup(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		events, err := d.backend.Events().QueryLLMEvents(cmd.Context(), store.QueryOpts{Limit: limit})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		if len(events) == 0 {
			fmt.Println("No LLM events found.")
			return nil
		}

		fmt.Printf("%-5s  %-19s  %-10s  %-28s  %-6s  %-6s  %-7s  %s\n",
			"ID", "Timestamp", "Purpose", "Model", "In", "Out", "Ms", "OK")
		fmt.Println(strings.Repeat("─", 96))
		for _, e := range events {
			if purpose != "" && e.Purpose != purpose {
				continue
			}
			ok := "✓"
			if !e.Success {
				ok = "✗"
			}
			fmt.Printf("%-5d  %-19s  %-10s  %-28s  %-6d  %-6d  %-7d  %s\n",
				e.ID, e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Purpose,
				truncate(e.Model, 28), e.InputTokens, e.OutputTokens, e.LatencyMs, ok)
		}
		return nil
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "View the full request and response of an LLM event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
		}

		d, err := setup(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		e, err := d.backend.Events().GetLLMEvent(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if e == nil {
			return fmt.Errorf("event %d not found", id)
		}

		sep := strings.Repeat("─", 60)
		fmt.Printf("ID:        %d\n", e.ID)
		fmt.Printf("Time:      %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("Provider:  %s\n", e.Provider)
		fmt.Printf("Model:     %s\n", e.Model)
		fmt.Printf("Purpose:   %s\n", e.Purpose)
		fmt.Printf("Tokens:    %d in / %d out\n", e.InputTokens, e.OutputTokens)
		fmt.Printf("Latency:   %dms\n", e.LatencyMs)
		fmt.Printf("Success:   %v\n", e.Success)
		if e.ErrorMessage != "" {
			fmt.Printf("Error:     %s\n", e.ErrorMessage)
		}

		for _, part := range []struct{ title, body string }{
			{"REQUEST", e.RequestBody},
			{"RESPONSE", e.ResponseBody},
		} {
			fmt.Println()
			fmt.Println(sep)
			fmt.Println(part.title)
			fmt.Println(sep)
			if part.body == "" {
				fmt.Println("(not captured)")
				continue
			}
			fmt.Println(part.body)
		}
		return nil
	},
}

type usage struct {
	name     string
	calls    int
	in, out  int
	latency  int64
	failures int
	events   []store.LLMEvent
}

// groupUsage totals events per key, sorted by key.
func groupUsage(events []store.LLMEvent, key func(store.LLMEvent) string) []*usage {
	byKey := map[string]*usage{}
	for _, e := range events {
		k := key(e)
		u, ok := byKey[k]
		if !ok {
			u = &usage{name: k}
			byKey[k] = u
		}
		u.calls++
		u.in += e.InputTokens
		u.out += e.OutputTokens
		u.latency += e.LatencyMs
		if !e.Success {
			u.failures++
		}
		u.events = append(u.events, e)
	}
	out := make([]*usage, 0, len(byKey))
	for _, u := range byKey {
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b *usage) int { return strings.Compare(a.name, b.name) })
	return out
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregated token usage and estimated cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := setup(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		events, err := d.backend.Events().QueryLLMEvents(cmd.Context(), store.QueryOpts{})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		if len(events) == 0 {
			fmt.Println("No LLM usage recorded yet.")
			return nil
		}

		fmt.Println("Usage by Purpose")
		fmt.Println(strings.Repeat("─", 72))
		fmt.Printf("%-12s  %6s  %6s  %10s  %10s  %8s\n",
			"Purpose", "Calls", "Failed", "Input", "Output", "Avg Ms")
		fmt.Println(strings.Repeat("─", 72))
		var calls, in, out int
		for _, u := range groupUsage(events, func(e store.LLMEvent) string { return e.Purpose }) {
			fmt.Printf("%-12s  %6d  %6d  %10d  %10d  %8d\n",
				u.name, u.calls, u.failures, u.in, u.out, u.latency/int64(u.calls))
			calls += u.calls
			in += u.in
			out += u.out
		}
		fmt.Println(strings.Repeat("─", 72))
		fmt.Printf("%-12s  %6d  %6s  %10d  %10d\n", "TOTAL", calls, "", in, out)

		fmt.Println()
		fmt.Println("Estimated Cost (USD)")
		fmt.Println(strings.Repeat("─", 72))
		fmt.Printf("%-32s  %6s  %10s  %10s  %10s\n", "Model", "Calls", "Input", "Output", "Cost")
		fmt.Println(strings.Repeat("─", 72))
		var unknown []string
		for _, u := range groupUsage(events, func(e store.LLMEvent) string { return e.Model }) {
			cost := "?"
			if usd, unpriced := llm.Spend(u.events); unpriced == 0 {
				cost = formatCost(usd)
			} else {
				unknown = append(unknown, u.name)
			}
			fmt.Printf("%-32s  %6d  %10d  %10d  %10s\n", truncate(u.name, 32), u.calls, u.in, u.out, cost)
		}
		total, _ := llm.Spend(events)
		label := "TOTAL"
		if len(unknown) > 0 {
			label = "TOTAL (partial)"
		}
		fmt.Println(strings.Repeat("─", 72))
		fmt.Printf("%-32s  %6s  %10s  %10s  %10s\n", label, "", "", "", formatCost(total))
		if len(unknown) > 0 {
			fmt.Printf("\nPricing unavailable for: %s\n", strings.Join(unknown, ", "))
		}
		return nil
	},
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Filter by purpose (segment, translate)")

	llmCmd.AddCommand(llmListCmd, llmViewCmd, llmStatsCmd)
}
