package components

import (
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/lexis/internal/ui/theme"
)

// AnswerInput is a focused single-line input that can show a verdict mark.
type AnswerInput struct {
	Model textinput.Model

	marked  bool
	correct bool
}

func NewAnswerInput(placeholder string, limit int) AnswerInput {
	ti := textinput.New()
	ti.Placeholder = placeholder
	if limit > 0 {
		ti.CharLimit = limit
	}
	ti.Focus()
	return AnswerInput{Model: ti}
}

func (a AnswerInput) Init() tea.Cmd {
	return a.Model.Focus()
}

func (a AnswerInput) Update(msg tea.Msg) (AnswerInput, tea.Cmd) {
	var cmd tea.Cmd
	a.Model, cmd = a.Model.Update(msg)
	return a, cmd
}

func (a AnswerInput) View() string {
	view := a.Model.View()
	if a.marked {
		if a.correct {
			view += " " + theme.Correct.Render("✓")
		} else {
			view += " " + theme.Incorrect.Render("✗")
		}
	}
	return view
}

func (a AnswerInput) Value() string {
	return a.Model.Value()
}

// Mark shows whether the submitted value was correct.
func (a *AnswerInput) Mark(correct bool) {
	a.marked = true
	a.correct = correct
}

// Reset clears the value and the mark.
func (a *AnswerInput) Reset() {
	a.Model.Reset()
	a.marked = false
}
