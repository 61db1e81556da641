package transcribe_test

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/model"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/service/transcribe"
	"github.com/m-mizutani/gt"
	"github.com/sashabaranov/go-openai"
)

func TestTranscribe(t *testing.T) {
	var got openai.AudioRequest
	var body string
	svc := transcribe.NewWithAPI(func(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error) {
		got = req
		b, err := io.ReadAll(req.Reader)
		gt.NoError(t, err)
		body = string(b)
		return openai.AudioResponse{Text: "  Paciente: Juan Pérez, edad 40.  "}, nil
	})

	text, err := svc.Transcribe(context.Background(), "/tmp/consulta.MP3", strings.NewReader("audio-bytes"))
	gt.NoError(t, err).Required()
	gt.Value(t, text).Equal("Paciente: Juan Pérez, edad 40.")
	gt.Value(t, got.Model).Equal(openai.Whisper1)
	gt.Value(t, got.Language).Equal("es")
	gt.Value(t, got.FilePath).Equal("consulta.MP3")
	gt.Value(t, body).Equal("audio-bytes")
}

func TestTranscribeErrors(t *testing.T) {
	svc := transcribe.NewWithAPI(func(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error) {
		return openai.AudioResponse{}, errors.New("503 service unavailable")
	})

	_, err := svc.Transcribe(context.Background(), "consulta.wav", strings.NewReader("x"))
	gt.Error(t, err).Is(model.ErrUpstream)

	_, err = svc.Transcribe(context.Background(), "foto.png", strings.NewReader("x"))
	gt.Error(t, err).Is(model.ErrUnsupportedMedia)
}

func TestNewRequiresKey(t *testing.T) {
	_, err := transcribe.New("", "")
	gt.Value(t, err).NotNil()
}

func TestTranscribe_WithRealOpenAI(t *testing.T) {
	apiKey := os.Getenv("TEST_OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("TEST_OPENAI_API_KEY not set")
	}
	audioPath := os.Getenv("TEST_TRANSCRIBE_AUDIO_FILE")
	if audioPath == "" {
		t.Skip("TEST_TRANSCRIBE_AUDIO_FILE not set")
	}

	f, err := os.Open(audioPath)
	gt.NoError(t, err).Required()
	defer func() { _ = f.Close() }()

	svc, err := transcribe.New(apiKey, "")
	gt.NoError(t, err).Required()

	text, err := svc.Transcribe(context.Background(), audioPath, f)
	gt.NoError(t, err).Required()
	gt.String(t, text).NotEqual("")
}
