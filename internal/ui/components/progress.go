package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/lexis/internal/ui/theme"
)

// QuotaBar shows how much of the daily round allowance has been used.
type QuotaBar struct {
	Used  int
	Limit int // zero or less means unlimited
	Width int
}

func (q QuotaBar) View() string {
	if q.Limit <= 0 {
		return theme.Hint.Render(fmt.Sprintf("%d rounds today", q.Used))
	}

	label := fmt.Sprintf("  %d/%d today", q.Used, q.Limit)
	barWidth := max(q.Width-lipgloss.Width(label), 4)
	filled := min(max(barWidth*q.Used/q.Limit, 0), barWidth)

	return theme.QuotaUsed.Render(strings.Repeat(" ", filled)) +
		theme.QuotaFree.Render(strings.Repeat(" ", barWidth-filled)) +
		theme.Hint.Render(label)
}
