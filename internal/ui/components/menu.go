package components

import (
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/lexis/internal/ui/theme"
)

// MenuItem is one choice in a Menu. Value identifies it to the caller.
type MenuItem struct {
	Label string
	Value int
}

// Menu is a vertical list with one selected item.
type Menu struct {
	Items    []MenuItem
	Selected int
}

func NewMenu(items []MenuItem) Menu {
	return Menu{Items: items}
}

// Update moves the selection with the arrow or j/k keys.
func (m Menu) Update(msg tea.Msg) Menu {
	kmsg, ok := msg.(tea.KeyPressMsg)
	if !ok || len(m.Items) == 0 {
		return m
	}
	switch kmsg.String() {
	case "up", "k":
		m.Selected = max(m.Selected-1, 0)
	case "down", "j":
		m.Selected = min(m.Selected+1, len(m.Items)-1)
	}
	return m
}

// Current returns the selected item, or false when the menu is empty.
func (m Menu) Current() (MenuItem, bool) {
	if m.Selected < 0 || m.Selected >= len(m.Items) {
		return MenuItem{}, false
	}
	return m.Items[m.Selected], true
}

func (m Menu) View() string {
	var b strings.Builder
	for i, item := range m.Items {
		if i == m.Selected {
			b.WriteString(theme.Selected.Render("  ▸ " + item.Label))
		} else {
			b.WriteString(theme.Unselected.Render("    " + item.Label))
		}
		b.WriteString("\n")
	}
	return b.String()
}
