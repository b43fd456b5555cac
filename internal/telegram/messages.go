package telegram

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/abhisek/lexis/internal/quota"
	"github.com/abhisek/lexis/internal/review"
	"github.com/abhisek/lexis/internal/store"
)

const (
	msgHelp = "Save phrases and practise them as gap-fill quizzes.\n\n" +
		"/add <category> | <phrase> - save a phrase\n" +
		"/phrases <category id> - list a category's phrases\n" +
		"/phrase <id> - show a phrase\n" +
		"/edit <id> text|translation|comment <value> - change a phrase\n" +
		"/voice <id> - record the voice again (reply to a voice message to use it instead)\n" +
		"/image <id> - draw a picture (reply to a photo to use it instead)\n" +
		"/categories - categories you can review\n" +
		"/review <category id> - start a review\n" +
		"/next - next question\n" +
		"/stop - stop reviewing\n" +
		"/stats - rounds played this week"
	msgAddUsage     = "Usage: /add <category> | <phrase>"
	msgReviewUsage  = "Usage: /review <category id>. See /categories."
	msgNoCategories = "You have no phrases yet. Add one with /add."
	msgNoContent    = "There are no phrases to review in this category."
	msgDuplicate    = "You have already saved this phrase."
	msgEmpty        = "The phrase is empty."
	msgNoSession    = "You are not reviewing right now. Start with /review."
	msgAnswerFirst  = "Answer the current question first."
	msgStopped      = "Review stopped."
	msgFailed       = "Something went wrong. Please try again."
	msgUnknown      = "Unknown command. Send /start for help."
	msgCorrect      = "✅ Correct!"
	msgTryAgain     = "❌ Not quite. One more try."
	msgNextHint     = "Send /next for another question or /stop to finish."

	msgPhrasesUsage = "Usage: /phrases <category id>. See /categories."
	msgPhraseUsage  = "Usage: /phrase <id>"
	msgEditUsage    = "Usage: /edit <id> text|translation|comment <value>"
	msgVoiceUsage   = "Usage: /voice <id>"
	msgImageUsage   = "Usage: /image <id>"
	msgNoPhrase     = "You have no phrase with that id."
	msgNoAudio      = "Could not record the phrase. Please try again later."
	msgNoImages     = "Pictures are not available."
	msgUpdated      = "Updated."
	msgVoiceUpdated = "Voice updated."
	msgImageUpdated = "Picture updated."
)

func tooLong(limit int) string {
	return fmt.Sprintf("The phrase is too long. Keep it under %d characters.", limit)
}

func renderCategories(own, shared []store.Category) string {
	var b strings.Builder
	b.WriteString("Your categories:\n")
	for _, c := range own {
		fmt.Fprintf(&b, "%d. %s\n", c.ID, c.Name)
	}
	if len(shared) > 0 {
		b.WriteString("\nShared categories:\n")
		for _, c := range shared {
			fmt.Fprintf(&b, "%d. %s\n", c.ID, c.Name)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderSaved(p *store.Phrase, category string) string {
	return fmt.Sprintf("Saved to <b>%s</b> as #%d:\n%s\n<i>%s</i>",
		html.EscapeString(category), p.ID, html.EscapeString(p.SpacedPhrase), html.EscapeString(p.Translation))
}

func renderPhraseList(category string, ps []store.Phrase) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:\n", category)
	for _, p := range ps {
		fmt.Fprintf(&b, "#%d %s\n", p.ID, p.TextPhrase)
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderPhrase is the HTML card of one phrase.
func renderPhrase(p *store.Phrase) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>#%d</b> %s\n<i>%s</i>", p.ID, html.EscapeString(p.TextPhrase), html.EscapeString(p.Translation))
	if p.Comment != "" {
		fmt.Fprintf(&b, "\n%s", html.EscapeString(p.Comment))
	}
	var media []string
	if p.AudioID != "" {
		media = append(media, "🔊 voice")
	}
	if p.ImageID != "" {
		media = append(media, "🖼 picture")
	}
	if len(media) > 0 {
		fmt.Fprintf(&b, "\n%s", strings.Join(media, ", "))
	}
	return b.String()
}

// renderQuestion is the text of a question, or the caption of its voice
// message. The first question of a session carries instructions.
func renderQuestion(s review.Session) string {
	var b strings.Builder
	if s.FirstOpen {
		fmt.Fprintf(&b, "Reviewing %s. Type the whole phrase with the gaps filled in.\n\n", s.CategoryName)
	}
	fmt.Fprintf(&b, "%d. %s\n%s", s.Round, s.Question.Prompt(), s.Question.Translation)
	return b.String()
}

func renderVerdict(v review.Verdict) string {
	switch {
	case v.Correct:
		return msgCorrect + "\n" + msgNextHint
	case v.State == review.AwaitingSecondAnswer:
		return msgTryAgain
	default:
		return "❌ The answer was: " + v.Revealed + "\n" + msgNextHint
	}
}

func renderStats(days []quota.DayScore, limit int, unlimited bool) string {
	var b strings.Builder
	b.WriteString("Rounds played:\n")
	for _, d := range days {
		fmt.Fprintf(&b, "%s  %3d\n", d.Date.Format(time.DateOnly), d.Score)
	}
	if !unlimited && len(days) > 0 {
		today := days[len(days)-1].Score
		fmt.Fprintf(&b, "\nToday: %d of %d", today, limit)
	}
	return strings.TrimRight(b.String(), "\n")
}
