// Package practice is a terminal screen for reviewing phrases locally.
package practice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/lexis/internal/cloze"
	"github.com/abhisek/lexis/internal/review"
	"github.com/abhisek/lexis/internal/store"
	"github.com/abhisek/lexis/internal/ui/components"
	"github.com/abhisek/lexis/internal/ui/layout"
	"github.com/abhisek/lexis/internal/ui/theme"
)

// Reviewer runs review rounds. *review.Service implements it.
type Reviewer interface {
	Start(ctx context.Context, key review.Key, categoryID int) (review.Session, error)
	Submit(ctx context.Context, key review.Key, answer string) (review.Verdict, error)
	Advance(ctx context.Context, key review.Key) (review.Session, error)
	Exit(key review.Key) bool
}

// Options configures the screen.
type Options struct {
	Reviewer   Reviewer
	UserID     int64
	Categories []store.Category

	// Today is the user's day counter at launch. Limit is zero for users
	// without a daily ceiling.
	Today int
	Limit int
}

type phase int

const (
	phasePick     phase = iota // choosing a category
	phaseQuestion              // waiting for an answer
	phaseAnswered              // round over
)

type sessionMsg struct {
	session review.Session
	err     error
}

type verdictMsg struct {
	verdict review.Verdict
	err     error
}

// Model is the root Bubble Tea model of the practice screen.
type Model struct {
	opts  Options
	key   review.Key
	phase phase

	menu    components.Menu
	input   components.AnswerInput
	session review.Session
	verdict *review.Verdict
	status  string
	used    int

	width, height int
}

func New(opts Options) Model {
	items := make([]components.MenuItem, len(opts.Categories))
	for i, c := range opts.Categories {
		items[i] = components.MenuItem{Label: c.Name, Value: c.ID}
	}
	return Model{
		opts:  opts,
		key:   review.Key{UserID: opts.UserID, ChatID: opts.UserID},
		menu:  components.NewMenu(items),
		input: components.NewAnswerInput("Type the whole phrase...", 0),
		used:  opts.Today,
	}
}

func (m Model) Init() tea.Cmd {
	return m.input.Init()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case sessionMsg:
		return m.onSession(msg), nil

	case verdictMsg:
		return m.onVerdict(msg), nil

	case tea.KeyPressMsg:
		if msg.String() == "ctrl+c" {
			m.opts.Reviewer.Exit(m.key)
			return m, tea.Quit
		}
		return m.onKey(msg)
	}
	return m, nil
}

func (m Model) onKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch m.phase {
	case phasePick:
		if msg.String() == "enter" {
			item, ok := m.menu.Current()
			if !ok {
				return m, nil
			}
			return m, m.start(item.Value)
		}
		m.menu = m.menu.Update(msg)
		return m, nil

	case phaseQuestion:
		switch msg.String() {
		case "esc":
			return m.exit(), nil
		case "enter":
			answer := strings.TrimSpace(m.input.Value())
			if answer == "" {
				return m, nil
			}
			return m, m.submit(answer)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case phaseAnswered:
		switch msg.String() {
		case "esc", "q":
			return m.exit(), nil
		case "enter", "n":
			return m, m.advance()
		}
	}
	return m, nil
}

func (m Model) start(categoryID int) tea.Cmd {
	r, key := m.opts.Reviewer, m.key
	return func() tea.Msg {
		s, err := r.Start(context.Background(), key, categoryID)
		return sessionMsg{session: s, err: err}
	}
}

func (m Model) submit(answer string) tea.Cmd {
	r, key := m.opts.Reviewer, m.key
	return func() tea.Msg {
		v, err := r.Submit(context.Background(), key, answer)
		return verdictMsg{verdict: v, err: err}
	}
}

func (m Model) advance() tea.Cmd {
	r, key := m.opts.Reviewer, m.key
	return func() tea.Msg {
		s, err := r.Advance(context.Background(), key)
		return sessionMsg{session: s, err: err}
	}
}

func (m Model) onSession(msg sessionMsg) Model {
	if msg.err != nil {
		m.status = describe(msg.err)
		return m
	}
	m.session = msg.session
	m.phase = phaseQuestion
	m.verdict = nil
	m.status = ""
	m.used++
	m.input.Reset()
	return m
}

func (m Model) onVerdict(msg verdictMsg) Model {
	if msg.err != nil {
		m.status = describe(msg.err)
		return m
	}
	v := msg.verdict
	m.session = v.Session
	m.input.Mark(v.Correct)
	if v.State == review.RoundAnswered {
		m.phase = phaseAnswered
		m.verdict = &v
		return m
	}
	m.status = "Not quite. One more try."
	m.input.Reset()
	return m
}

func (m Model) exit() Model {
	m.opts.Reviewer.Exit(m.key)
	m.phase = phasePick
	m.session = review.Session{}
	m.verdict = nil
	m.status = ""
	return m
}

func describe(err error) string {
	var denied *review.QuotaDeniedError
	switch {
	case errors.Is(err, review.ErrNoContent):
		return "This category has no phrases yet."
	case errors.As(err, &denied):
		return fmt.Sprintf("Daily limit of %d rounds reached. Come back tomorrow.", denied.Limit)
	default:
		return "Error: " + err.Error()
	}
}

func (m Model) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true
	if m.width == 0 || m.height == 0 {
		return v
	}
	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	title := "Choose a category"
	if m.phase != phasePick {
		title = fmt.Sprintf("%s · round %d", m.session.CategoryName, m.session.Round)
	}
	header := layout.RenderHeader(title, "", m.width)
	footer := layout.RenderFooter(m.hints(), m.width)
	v.SetContent(layout.RenderFrame(header, m.body(), footer, m.width, m.height))
	return v
}

func (m Model) body() string {
	var b strings.Builder
	b.WriteString("\n")

	switch m.phase {
	case phasePick:
		if len(m.menu.Items) == 0 {
			b.WriteString(theme.Hint.Render("  No categories to review. Add a phrase first."))
		} else {
			b.WriteString(m.menu.View())
		}

	default:
		q := m.session.Question
		card := renderPrompt(q.Prompt()) + "\n" + theme.Hint.Render(q.Translation)
		b.WriteString(theme.Card.Render(card))
		b.WriteString("\n\n")
		b.WriteString(m.input.View())

		if m.verdict != nil {
			b.WriteString("\n\n")
			if m.verdict.Correct {
				b.WriteString(theme.Correct.Render("Correct!"))
			} else {
				b.WriteString(theme.Incorrect.Render("The answer was: ") + theme.Body.Render(m.verdict.Revealed))
			}
		}
	}

	if m.status != "" {
		b.WriteString("\n\n" + theme.Hint.Render(m.status))
	}

	b.WriteString("\n\n")
	b.WriteString(components.QuotaBar{Used: m.used, Limit: m.opts.Limit, Width: min(m.width-4, 50)}.View())
	return lipgloss.NewStyle().PaddingLeft(2).Render(b.String())
}

// renderPrompt highlights the gaps of a prompt.
func renderPrompt(prompt string) string {
	parts := strings.Split(prompt, cloze.Mask)
	for i, p := range parts {
		parts[i] = theme.Prompt.Render(p)
	}
	return strings.Join(parts, theme.Mask.Render(cloze.Mask))
}

func (m Model) hints() []layout.KeyHint {
	switch m.phase {
	case phasePick:
		return []layout.KeyHint{
			{Key: "↑↓", Description: "Navigate"},
			{Key: "Enter", Description: "Start"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	case phaseQuestion:
		return []layout.KeyHint{
			{Key: "Enter", Description: "Answer"},
			{Key: "Esc", Description: "Stop"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	default:
		return []layout.KeyHint{
			{Key: "Enter", Description: "Next"},
			{Key: "Esc", Description: "Stop"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	}
}

// Run starts the screen and blocks until the user quits.
func Run(opts Options) error {
	_, err := tea.NewProgram(New(opts)).Run()
	return err
}
