package config

import (
	"log/slog"
	"time"

	"github.com/jacespedes2019/ElSol-Challenge/pkg/service/transcribe"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Transcriber configures Whisper transcription of uploaded audio
type Transcriber struct {
	apiKey   string `masq:"secret"`
	baseURL  string
	model    string
	language string
	timeout  time.Duration
}

func (x *Transcriber) Flags() []cli.Flag {
	category := "Transcription"
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "whisper-api-key",
			Category:    category,
			Usage:       "API key for transcription. Defaults to --openai-api-key",
			Sources:     cli.EnvVars("ELSOL_WHISPER_API_KEY"),
			Destination: &x.apiKey,
		},
		&cli.StringFlag{
			Name:        "whisper-base-url",
			Category:    category,
			Usage:       "Base URL of an OpenAI compatible transcription API",
			Sources:     cli.EnvVars("ELSOL_WHISPER_BASE_URL"),
			Destination: &x.baseURL,
		},
		&cli.StringFlag{
			Name:        "whisper-model",
			Category:    category,
			Usage:       "Transcription model",
			Value:       transcribe.DefaultModel,
			Sources:     cli.EnvVars("ELSOL_WHISPER_MODEL"),
			Destination: &x.model,
		},
		&cli.StringFlag{
			Name:        "whisper-language",
			Category:    category,
			Usage:       "Spoken language hint (ISO-639-1)",
			Value:       transcribe.DefaultLanguage,
			Sources:     cli.EnvVars("ELSOL_WHISPER_LANGUAGE"),
			Destination: &x.language,
		},
		&cli.DurationFlag{
			Name:        "whisper-timeout",
			Category:    category,
			Usage:       "Deadline of one transcription",
			Value:       transcribe.DefaultTimeout,
			Sources:     cli.EnvVars("ELSOL_WHISPER_TIMEOUT"),
			Destination: &x.timeout,
		},
	}
}

func (x *Transcriber) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("model", x.model),
		slog.String("language", x.language),
		slog.String("base_url", x.baseURL),
		slog.Duration("timeout", x.timeout),
	}
}

// Configure returns the transcription service, or nil when neither its own
// key nor fallbackKey is set. Audio uploads then answer 503.
func (x *Transcriber) Configure(fallbackKey string) (transcribe.Service, error) {
	key := x.apiKey
	if key == "" {
		key = fallbackKey
	}
	if key == "" {
		return nil, nil
	}

	svc, err := transcribe.New(key, x.baseURL,
		transcribe.WithModel(x.model),
		transcribe.WithLanguage(x.language),
		transcribe.WithTimeout(x.timeout),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to configure transcription")
	}
	return svc, nil
}
