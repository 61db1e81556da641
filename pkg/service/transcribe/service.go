package transcribe

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/sashabaranov/go-openai"
)

const (
	DefaultModel    = openai.Whisper1
	DefaultLanguage = "es"
	DefaultTimeout  = 120 * time.Second
)

// SupportedExtensions lists the audio containers accepted for transcription
var SupportedExtensions = map[string]bool{
	".mp3": true, ".wav": true, ".m4a": true, ".ogg": true, ".webm": true,
}

// Service converts recorded audio into text
type Service interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

// audioTranscriber is the subset of the OpenAI client used here
type audioTranscriber interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
}

type client struct {
	api      audioTranscriber
	model    string
	language string
	timeout  time.Duration
}

// Option is a functional option for client configuration
type Option func(*client)

func WithModel(model string) Option {
	return func(c *client) {
		if model != "" {
			c.model = model
		}
	}
}

func WithLanguage(language string) Option {
	return func(c *client) {
		c.language = language
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// New creates a Whisper transcription service. baseURL may point at an
// OpenAI compatible endpoint; empty uses the public API.
func New(apiKey, baseURL string, opts ...Option) (Service, error) {
	if apiKey == "" {
		return nil, goerr.New("OpenAI API key is required for transcription")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return newWithAPI(openai.NewClientWithConfig(cfg), opts...), nil
}

func newWithAPI(api audioTranscriber, opts ...Option) *client {
	c := &client{
		api:      api,
		model:    DefaultModel,
		language: DefaultLanguage,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *client) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !SupportedExtensions[ext] {
		return "", goerr.Wrap(model.ErrUnsupportedMedia, "unsupported audio format",
			goerr.V("filename", filename), goerr.V("ext", ext))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.model,
		FilePath: filepath.Base(filename),
		Reader:   audio,
		Language: c.language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", goerr.Wrap(model.ErrUpstream, "transcription failed",
			goerr.V("filename", filename), goerr.V("cause", err.Error()))
	}

	return strings.TrimSpace(resp.Text), nil
}
