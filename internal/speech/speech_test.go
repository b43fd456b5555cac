package speech

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeGoogle struct {
	req   *texttospeechpb.SynthesizeSpeechRequest
	audio []byte
	err   error
}

func (f *fakeGoogle) SynthesizeSpeech(_ context.Context, req *texttospeechpb.SynthesizeSpeechRequest, _ ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &texttospeechpb.SynthesizeSpeechResponse{AudioContent: f.audio}, nil
}

func (f *fakeGoogle) Close() error { return nil }

func TestGoogleSynthesize(t *testing.T) {
	fake := &fakeGoogle{audio: []byte("OggS-opus")}
	g := newGoogle(fake, GoogleConfig{Language: "ja-JP"})

	audio, err := g.Synthesize(context.Background(), "おはようございます")
	require.NoError(t, err)
	require.NotNil(t, audio)
	assert.Equal(t, []byte("OggS-opus"), audio.Data)
	assert.Equal(t, "audio/ogg", audio.MIME)
	assert.True(t, strings.HasSuffix(audio.FileName, ".ogg"))

	assert.Equal(t, texttospeechpb.AudioEncoding_OGG_OPUS, fake.req.GetAudioConfig().GetAudioEncoding())
	assert.Equal(t, 0.85, fake.req.GetAudioConfig().GetSpeakingRate())
	assert.Equal(t, "ja-JP", fake.req.GetVoice().GetLanguageCode())
	assert.Equal(t, "おはようございます", fake.req.GetInput().GetText())
}

func TestGoogleSynthesizeErrors(t *testing.T) {
	g := newGoogle(&fakeGoogle{err: errors.New("quota")}, GoogleConfig{Language: "en-US"})
	_, err := g.Synthesize(context.Background(), "hello")
	assert.ErrorContains(t, err, "quota")

	_, err = g.Synthesize(context.Background(), "")
	assert.Error(t, err)

	_, err = g.Synthesize(context.Background(), strings.Repeat("a", maxInputBytes+1))
	assert.Error(t, err)

	audio, err := newGoogle(&fakeGoogle{}, GoogleConfig{}).Synthesize(context.Background(), "hello")
	require.NoError(t, err)
	assert.Nil(t, audio, "empty audio content means no audio")
}

func TestGoogleClassifiesAPIErrors(t *testing.T) {
	g := newGoogle(&fakeGoogle{err: status.Error(codes.InvalidArgument, "voice ja-JP-Nope does not exist")}, GoogleConfig{Language: "ja-JP"})
	_, err := g.Synthesize(context.Background(), "こんにちは")
	require.ErrorIs(t, err, ErrRejected)
	assert.ErrorContains(t, err, "InvalidArgument")
	assert.ErrorContains(t, err, "does not exist")

	g = newGoogle(&fakeGoogle{err: status.Error(codes.Unavailable, "try later")}, GoogleConfig{Language: "ja-JP"})
	_, err = g.Synthesize(context.Background(), "こんにちは")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRejected)
	assert.ErrorContains(t, err, "Unavailable")
	assert.Equal(t, codes.Unavailable, status.Code(err))

	g = newGoogle(&fakeGoogle{err: errors.New("quota")}, GoogleConfig{Language: "ja-JP"})
	_, err = g.Synthesize(context.Background(), "こんにちは")
	assert.NotErrorIs(t, err, ErrRejected)
}

func TestOpenAISynthesize(t *testing.T) {
	var got openai.CreateSpeechRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/speech", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "audio/ogg")
		w.Write([]byte("opus-bytes"))
	}))
	t.Cleanup(server.Close)

	o, err := NewOpenAI("test-key", server.URL+"/v1")
	require.NoError(t, err)

	audio, err := o.Synthesize(context.Background(), "Good morning")
	require.NoError(t, err)
	require.NotNil(t, audio)
	assert.Equal(t, []byte("opus-bytes"), audio.Data)
	assert.Equal(t, "good-morning.ogg", audio.FileName)

	assert.Equal(t, openai.TTSModel1HD, got.Model)
	assert.Equal(t, openai.VoiceNova, got.Voice)
	assert.Equal(t, openai.SpeechResponseFormatOpus, got.ResponseFormat)
	assert.InDelta(t, 0.85, got.Speed, 1e-9)
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	_, err := NewOpenAI("", "")
	assert.Error(t, err)
}
