// Package enrich augments a raw phrase with its segmented form, a
// translation and synthesized speech.
package enrich

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

// Segmenter inserts spaces between the words of a phrase.
type Segmenter interface {
	Segment(ctx context.Context, text string) (string, error)
}

// Translator translates a phrase into the learner's language.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// Synthesizer renders a phrase as speech. A nil Audio with a nil error
// means the provider had nothing to say.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*Audio, error)
}

// Audio is synthesized speech ready for upload.
type Audio struct {
	Data     []byte
	FileName string
	MIME     string
}

// Result is an enriched phrase. Spaced and Translation are always set;
// Audio is nil when synthesis failed. AudioID stays empty until the audio
// has been uploaded to the delivery channel.
type Result struct {
	Spaced      string
	Translation string
	Audio       *Audio
	AudioID     string
}

// DefaultTimeout bounds each producer.
const DefaultTimeout = 15 * time.Second

// Pipeline runs the three producers concurrently.
type Pipeline struct {
	segmenter   Segmenter
	translator  Translator
	synthesizer Synthesizer
	timeout     time.Duration
	logger      *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTimeout sets the per-producer timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger sets the logger producer failures are reported to.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// New builds a Pipeline. A nil segmenter passes text through, a nil
// translator echoes it, and a nil synthesizer yields no audio.
func New(seg Segmenter, tr Translator, tts Synthesizer, opts ...Option) *Pipeline {
	p := &Pipeline{
		segmenter:   seg,
		translator:  tr,
		synthesizer: tts,
		timeout:     DefaultTimeout,
		logger:      zap.NewNop(),
	}
	if p.segmenter == nil {
		p.segmenter = Passthrough{}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Enrich runs segmentation, translation and synthesis in parallel and
// returns once all three have settled. It never fails: a failed or timed
// out producer is replaced by its fallback.
func (p *Pipeline) Enrich(ctx context.Context, text string) Result {
	res := Result{Spaced: text, Translation: text}

	var wg sync.WaitGroup
	wg.Go(func() {
		if s, ok := p.run(ctx, "segment", func(ctx context.Context) (string, error) {
			return p.segmenter.Segment(ctx, text)
		}); ok {
			res.Spaced = s
		}
	})
	if p.translator != nil {
		wg.Go(func() {
			if s, ok := p.run(ctx, "translate", func(ctx context.Context) (string, error) {
				return p.translator.Translate(ctx, text)
			}); ok {
				res.Translation = s
			}
		})
	}
	if p.synthesizer != nil {
		wg.Go(func() {
			res.Audio = p.Voice(ctx, text)
		})
	}
	wg.Wait()

	return res
}

// Segment runs only the segmenter, with the same fallback as Enrich.
func (p *Pipeline) Segment(ctx context.Context, text string) string {
	if s, ok := p.run(ctx, "segment", func(ctx context.Context) (string, error) {
		return p.segmenter.Segment(ctx, text)
	}); ok {
		return s
	}
	return text
}

// Voice runs only the synthesizer. It returns nil when there is no
// synthesizer or synthesis failed.
func (p *Pipeline) Voice(ctx context.Context, text string) *Audio {
	if p.synthesizer == nil {
		return nil
	}

	var audio *Audio
	err := p.guard(ctx, "synthesize", func(ctx context.Context) error {
		a, err := p.synthesizer.Synthesize(ctx, text)
		if err != nil {
			return err
		}
		if a != nil && len(a.Data) > 0 {
			if a.FileName == "" {
				a.FileName = AudioFileName(text, ".ogg")
			}
			audio = a
		}
		return nil
	})
	if err != nil {
		return nil
	}
	return audio
}

// run calls a text producer and reports whether its output is usable.
// Blank output counts as a failure.
func (p *Pipeline) run(ctx context.Context, name string, fn func(context.Context) (string, error)) (string, bool) {
	var out string
	err := p.guard(ctx, name, func(ctx context.Context) error {
		s, err := fn(ctx)
		if err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("empty %s result", name)
		}
		out = strings.TrimSpace(s)
		return nil
	})
	return out, err == nil
}

// guard runs fn under the producer timeout, converting panics into
// errors and logging failures.
func (p *Pipeline) guard(ctx context.Context, name string, fn func(context.Context) error) (err error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", name, r)
		}
		if err != nil {
			p.logger.Error("enrichment producer failed", zap.String("producer", name), zap.Error(err))
		}
	}()

	return fn(ctx)
}

// AudioFileName derives an upload file name from a phrase.
func AudioFileName(text, ext string) string {
	name := slug.Make(text)
	if len(name) > 40 {
		name = strings.TrimRight(name[:40], "-")
	}
	if name == "" {
		name = "voice"
	}
	return name + ext
}
