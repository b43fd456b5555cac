// Package cloze turns a segmented phrase into a gap-fill prompt.
package cloze

import (
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/abhisek/lexis/internal/locale"
)

// Mask replaces each hidden token.
const Mask = "___"

// Cloze is one gapped rendering of a phrase.
type Cloze struct {
	// Tokens are the words of the phrase in order.
	Tokens []string

	// Masked holds the hidden token indices in increasing order.
	Masked []int

	// Text is the rendered prompt.
	Text string

	sep string
}

// Answers returns the hidden tokens in order.
func (c Cloze) Answers() []string {
	out := make([]string, len(c.Masked))
	for i, idx := range c.Masked {
		out[i] = c.Tokens[idx]
	}
	return out
}

// Fill replaces the masks with fills in order and joins the result.
// Masks without a corresponding fill are left in place.
func (c Cloze) Fill(fills []string) string {
	words := make([]string, len(c.Tokens))
	copy(words, c.Tokens)
	for i, idx := range c.Masked {
		words[idx] = Mask
		if i < len(fills) {
			words[idx] = fills[i]
		}
	}
	return strings.Join(words, c.sep)
}

// Reveal returns the phrase with every gap filled.
func (c Cloze) Reveal() string {
	return strings.Join(c.Tokens, c.sep)
}

// Generator picks mask positions. It is safe for concurrent use.
type Generator struct {
	sep string

	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a Generator joining tokens the way location writes words.
// A nil src seeds from the runtime.
func New(location string, src rand.Source) *Generator {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Generator{sep: locale.Separator(location), rng: rand.New(src)}
}

// Gap masks one token of phrases with up to three tokens and two
// non-adjacent tokens of longer phrases. Tokens are split on whitespace.
// An empty phrase yields an empty Cloze with nothing masked.
func (g *Generator) Gap(spaced string) Cloze {
	tokens := strings.Fields(spaced)
	c := Cloze{Tokens: tokens, sep: g.sep}

	n := len(tokens)
	switch {
	case n == 0:
		return c
	case n <= 3:
		c.Masked = []int{g.intN(n)}
	default:
		// first in [0, n-3], second in [first+2, n-1]
		first := g.intN(n - 2)
		second := first + 2 + g.intN(n-first-2)
		c.Masked = []int{first, second}
	}

	c.Text = c.Fill(nil)
	return c
}

func (g *Generator) intN(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.IntN(n)
}
