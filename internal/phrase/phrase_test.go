package phrase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/lexis/internal/enrich"
	"github.com/abhisek/lexis/internal/imagegen"
	"github.com/abhisek/lexis/internal/store"
)

type upperTranslator struct{}

func (upperTranslator) Translate(_ context.Context, text string) (string, error) {
	return strings.ToUpper(text), nil
}

type spaceSegmenter struct{}

func (spaceSegmenter) Segment(_ context.Context, text string) (string, error) {
	return strings.Join(strings.Split(text, ""), " "), nil
}

type voice struct{ fail bool }

func (v voice) Synthesize(_ context.Context, text string) (*enrich.Audio, error) {
	if v.fail {
		return nil, errors.New("tts down")
	}
	return &enrich.Audio{Data: []byte("ogg:" + text), MIME: "audio/ogg"}, nil
}

type fakeUploader struct {
	fail   bool
	voices []string
	photos []string
}

func (u *fakeUploader) UploadVoice(_ context.Context, _ int64, a *enrich.Audio, caption string) (string, error) {
	if u.fail {
		return "", errors.New("telegram down")
	}
	u.voices = append(u.voices, caption)
	return fmt.Sprintf("voice-%d", len(u.voices)), nil
}

func (u *fakeUploader) UploadPhoto(_ context.Context, _ int64, img *imagegen.Image, caption string) (string, error) {
	if u.fail {
		return "", errors.New("telegram down")
	}
	u.photos = append(u.photos, caption)
	return fmt.Sprintf("photo-%d", len(u.photos)), nil
}

type fakeImager struct{ prompts []string }

func (f *fakeImager) Generate(_ context.Context, prompt string) (*imagegen.Image, error) {
	f.prompts = append(f.prompts, prompt)
	return &imagegen.Image{Data: []byte("png"), MIME: "image/png"}, nil
}

type fixture struct {
	store    *store.Store
	svc      *Service
	uploader *fakeUploader
	images   *fakeImager
}

func setup(t *testing.T, seg enrich.Segmenter, tts enrich.Synthesizer) *fixture {
	t.Helper()
	s, err := store.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Users().Ensure(context.Background(), &store.User{ID: 1, FirstName: "Ann"}))
	require.NoError(t, s.Users().Ensure(context.Background(), &store.User{ID: 2, FirstName: "Bob"}))

	f := &fixture{store: s, uploader: &fakeUploader{}, images: &fakeImager{}}
	pipeline := enrich.New(seg, upperTranslator{}, tts)
	f.svc = NewService(s.Phrases(), s.Categories(), pipeline, Config{
		Uploader: f.uploader,
		Images:   f.images,
	})
	return f
}

func TestAdd(t *testing.T) {
	f := setup(t, nil, voice{})
	ctx := context.Background()

	p, err := f.svc.Add(ctx, 1, "Greetings", "Good morning")
	require.NoError(t, err)

	assert.NotZero(t, p.ID)
	assert.Equal(t, "Good morning", p.TextPhrase)
	assert.Equal(t, "Good morning", p.SpacedPhrase)
	assert.Equal(t, "GOOD MORNING", p.Translation)
	assert.Equal(t, "voice-1", p.AudioID)

	cat, err := f.store.Categories().FindByName(ctx, 1, "Greetings")
	require.NoError(t, err)
	require.NotNil(t, cat)
	assert.Equal(t, cat.ID, p.CategoryID)

	// The category is reused.
	q, err := f.svc.Add(ctx, 1, "Greetings", "Good night")
	require.NoError(t, err)
	assert.Equal(t, cat.ID, q.CategoryID)
}

func TestAddSegmentsSpacelessText(t *testing.T) {
	f := setup(t, spaceSegmenter{}, nil)
	p, err := f.svc.Add(context.Background(), 1, "日本語", "学生")
	require.NoError(t, err)
	assert.Equal(t, "学 生", p.SpacedPhrase)
	assert.Empty(t, p.AudioID)
}

func TestAddDuplicateIsCaseInsensitive(t *testing.T) {
	f := setup(t, nil, nil)
	ctx := context.Background()

	_, err := f.svc.Add(ctx, 1, "Greetings", "hello")
	require.NoError(t, err)

	_, err = f.svc.Add(ctx, 1, "Greetings", "Hello")
	assert.ErrorIs(t, err, ErrDuplicatePhrase)

	// Another user may save the same text.
	_, err = f.svc.Add(ctx, 2, "Greetings", "Hello")
	assert.NoError(t, err)
}

func TestSaveRechecksDuplicate(t *testing.T) {
	f := setup(t, nil, nil)
	ctx := context.Background()

	d, err := f.svc.Prepare(ctx, 1, "See you")
	require.NoError(t, err)
	_, err = f.svc.Add(ctx, 1, "Greetings", "see you")
	require.NoError(t, err)

	_, err = f.svc.Save(ctx, d, "Greetings")
	assert.ErrorIs(t, err, ErrDuplicatePhrase)
}

// heldUploader keeps every voice upload waiting until n uploads are in flight.
type heldUploader struct {
	fakeUploader
	inFlight sync.WaitGroup
}

func (u *heldUploader) UploadVoice(_ context.Context, _ int64, _ *enrich.Audio, caption string) (string, error) {
	u.inFlight.Done()
	u.inFlight.Wait()
	return "voice-" + caption, nil
}

func TestConcurrentAddsKeepOneCopy(t *testing.T) {
	f := setup(t, nil, voice{})
	ctx := context.Background()

	require.NoError(t, f.store.Categories().Create(ctx, &store.Category{UserID: 1, Name: "Basics"}))
	up := &heldUploader{}
	up.inFlight.Add(2)
	f.svc.uploader = up

	// Both adds pass the duplicate check before either inserts.
	texts := []string{"Hello", "hello"}
	errs := make([]error, len(texts))
	var wg sync.WaitGroup
	for i, text := range texts {
		wg.Go(func() {
			_, errs[i] = f.svc.Add(ctx, 1, "Basics", text)
		})
	}
	wg.Wait()

	var saved, dups int
	for _, err := range errs {
		switch {
		case err == nil:
			saved++
		case errors.Is(err, ErrDuplicatePhrase):
			dups++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, saved)
	assert.Equal(t, 1, dups)

	var rows int
	require.NoError(t, f.store.DB().QueryRow("SELECT count(*) FROM phrases WHERE user_id = 1").Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestValidate(t *testing.T) {
	f := setup(t, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		in   string
		want string
		err  error
	}{
		{"plain", "  Good morning ", "Good morning", nil},
		{"markup", "<b>Good</b> <script>x()</script>night", "Good night", nil},
		{"apostrophe", "I'm fine & you?", "I'm fine & you?", nil},
		{"empty", "   ", "", ErrEmpty},
		{"only markup", "<i></i>", "", ErrEmpty},
		{"max minus one", strings.Repeat("a", DefaultMaxLen-1), strings.Repeat("a", DefaultMaxLen-1), nil},
		{"at max", strings.Repeat("a", DefaultMaxLen), "", ErrTooLong},
		{"runes", strings.Repeat("я", DefaultMaxLen-1), strings.Repeat("я", DefaultMaxLen-1), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.Validate(ctx, 1, tt.in)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAddWithoutAudioWhenSynthesisFails(t *testing.T) {
	f := setup(t, nil, voice{fail: true})
	p, err := f.svc.Add(context.Background(), 1, "Greetings", "Good morning")
	require.NoError(t, err)
	assert.Empty(t, p.AudioID)
	assert.Empty(t, f.uploader.voices)
}

func TestAddWithoutAudioWhenUploadFails(t *testing.T) {
	f := setup(t, nil, voice{})
	f.uploader.fail = true
	p, err := f.svc.Add(context.Background(), 1, "Greetings", "Good morning")
	require.NoError(t, err)
	assert.Empty(t, p.AudioID)
}

func TestEdits(t *testing.T) {
	f := setup(t, spaceSegmenter{}, voice{})
	ctx := context.Background()

	p, err := f.svc.Add(ctx, 1, "Words", "ab")
	require.NoError(t, err)
	_, err = f.svc.Add(ctx, 1, "Words", "cd")
	require.NoError(t, err)

	p, err = f.svc.ChangeText(ctx, 1, p.ID, "xyz")
	require.NoError(t, err)
	assert.Equal(t, "xyz", p.TextPhrase)
	assert.Equal(t, "x y z", p.SpacedPhrase)
	assert.Equal(t, "AB", p.Translation, "translation kept")

	_, err = f.svc.ChangeText(ctx, 1, p.ID, "CD")
	assert.ErrorIs(t, err, ErrDuplicatePhrase)

	p, err = f.svc.ChangeText(ctx, 1, p.ID, "XYZ")
	require.NoError(t, err, "case change of the same phrase")
	assert.Equal(t, "XYZ", p.TextPhrase)

	p, err = f.svc.ChangeTranslation(ctx, 1, p.ID, "икс")
	require.NoError(t, err)
	assert.Equal(t, "икс", p.Translation)

	p, err = f.svc.SetAudio(ctx, 1, p.ID, "file-7")
	require.NoError(t, err)
	assert.Equal(t, "file-7", p.AudioID)

	p, err = f.svc.Revoice(ctx, 1, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "voice-3", p.AudioID)

	p, err = f.svc.GenerateImage(ctx, 1, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "photo-1", p.ImageID)
	assert.Equal(t, []string{imagegen.Prompt("икс")}, f.images.prompts)

	p, err = f.svc.SetImage(ctx, 1, p.ID, "photo-x")
	require.NoError(t, err)
	assert.Equal(t, "photo-x", p.ImageID)

	p, err = f.svc.SetComment(ctx, 1, p.ID, "informal")
	require.NoError(t, err)
	assert.Equal(t, "informal", p.Comment)

	got, err := f.store.Phrases().Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.TextPhrase, got.TextPhrase)
	assert.Equal(t, "photo-x", got.ImageID)
	assert.Equal(t, "informal", got.Comment)
}

func TestEditRequiresOwner(t *testing.T) {
	f := setup(t, nil, nil)
	ctx := context.Background()
	p, err := f.svc.Add(ctx, 1, "Greetings", "Hi")
	require.NoError(t, err)

	_, err = f.svc.SetComment(ctx, 2, p.ID, "mine now")
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = f.svc.SetComment(ctx, 1, 999, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRevoiceWithoutSynthesizer(t *testing.T) {
	f := setup(t, nil, nil)
	ctx := context.Background()
	p, err := f.svc.Add(ctx, 1, "Greetings", "Hi")
	require.NoError(t, err)

	_, err = f.svc.Revoice(ctx, 1, p.ID)
	assert.ErrorIs(t, err, ErrNoAudio)
}

func TestGenerateImageNotConfigured(t *testing.T) {
	f := setup(t, nil, nil)
	f.svc.images = nil
	_, err := f.svc.GenerateImage(context.Background(), 1, 1)
	assert.ErrorIs(t, err, ErrNoImages)
}
