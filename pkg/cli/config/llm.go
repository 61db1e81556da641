package config

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/m-mizutani/gollem/llm/openai"
	"github.com/urfave/cli/v3"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	DefaultOpenAIModel          = "gpt-4o-mini"
	DefaultOpenAIEmbeddingModel = "text-embedding-3-small"
	DefaultGeminiModel          = "gemini-2.5-flash"
	DefaultGeminiEmbeddingModel = "text-embedding-004"
	DefaultEmbeddingDimension   = 768
)

// LLM holds configuration of the language and embedding models
type LLM struct {
	provider           string
	embeddingDimension int

	openaiAPIKey         string `masq:"secret"`
	openaiModel          string
	openaiEmbeddingModel string

	geminiProject        string
	geminiLocation       string
	geminiModel          string
	geminiEmbeddingModel string
}

// Flags returns CLI flags for the LLM configuration
func (x *LLM) Flags() []cli.Flag {
	category := "LLM"
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "llm-provider",
			Category:    category,
			Usage:       "LLM provider [openai|gemini]. Empty picks the one that has credentials",
			Sources:     cli.EnvVars("ELSOL_LLM_PROVIDER"),
			Destination: &x.provider,
		},
		&cli.IntFlag{
			Name:        "embedding-dimension",
			Category:    category,
			Usage:       "Dimension of embedding vectors",
			Value:       DefaultEmbeddingDimension,
			Sources:     cli.EnvVars("ELSOL_EMBEDDING_DIMENSION"),
			Destination: &x.embeddingDimension,
		},
		&cli.StringFlag{
			Name:        "openai-api-key",
			Category:    category,
			Usage:       "OpenAI API key",
			Sources:     cli.EnvVars("ELSOL_OPENAI_API_KEY", "OPENAI_API_KEY"),
			Destination: &x.openaiAPIKey,
		},
		&cli.StringFlag{
			Name:        "openai-model",
			Category:    category,
			Usage:       "OpenAI chat model",
			Value:       DefaultOpenAIModel,
			Sources:     cli.EnvVars("ELSOL_OPENAI_MODEL"),
			Destination: &x.openaiModel,
		},
		&cli.StringFlag{
			Name:        "openai-embedding-model",
			Category:    category,
			Usage:       "OpenAI embedding model",
			Value:       DefaultOpenAIEmbeddingModel,
			Sources:     cli.EnvVars("ELSOL_OPENAI_EMBEDDING_MODEL"),
			Destination: &x.openaiEmbeddingModel,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Category:    category,
			Usage:       "Google Cloud project ID for Gemini API",
			Sources:     cli.EnvVars("ELSOL_GEMINI_PROJECT"),
			Destination: &x.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Category:    category,
			Usage:       "Google Cloud location for Gemini API",
			Value:       "us-central1",
			Sources:     cli.EnvVars("ELSOL_GEMINI_LOCATION"),
			Destination: &x.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Category:    category,
			Usage:       "Gemini chat model",
			Value:       DefaultGeminiModel,
			Sources:     cli.EnvVars("ELSOL_GEMINI_MODEL"),
			Destination: &x.geminiModel,
		},
		&cli.StringFlag{
			Name:        "gemini-embedding-model",
			Category:    category,
			Usage:       "Gemini embedding model",
			Value:       DefaultGeminiEmbeddingModel,
			Sources:     cli.EnvVars("ELSOL_GEMINI_EMBEDDING_MODEL"),
			Destination: &x.geminiEmbeddingModel,
		},
	}
}

// Provider resolves the provider to use. An explicit choice wins; otherwise
// OpenAI is picked when it has an API key, then Gemini when it has a project.
func (x *LLM) Provider() string {
	switch {
	case x.provider != "":
		return x.provider
	case x.openaiAPIKey != "":
		return ProviderOpenAI
	case x.geminiProject != "":
		return ProviderGemini
	default:
		return ""
	}
}

// EmbeddingModelID identifies the embedding space of stored chunks as
// "<provider>/<model>@<dimension>". Chunks are only compared with queries
// embedded under the same ID.
func (x *LLM) EmbeddingModelID() string {
	var name string
	switch x.Provider() {
	case ProviderOpenAI:
		name = ProviderOpenAI + "/" + x.openaiEmbeddingModel
	case ProviderGemini:
		name = ProviderGemini + "/" + x.geminiEmbeddingModel
	default:
		return ""
	}
	return name + "@" + strconv.Itoa(x.embeddingDimension)
}

func (x *LLM) EmbeddingDimension() int {
	return x.embeddingDimension
}

// OpenAIAPIKey is shared with the transcriber when it has no key of its own
func (x *LLM) OpenAIAPIKey() string {
	return x.openaiAPIKey
}

// LogAttrs returns log attributes for the LLM configuration
func (x *LLM) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("provider", x.Provider()),
		slog.String("embedding_model", x.EmbeddingModelID()),
		slog.Int("embedding_dimension", x.embeddingDimension),
	}
	switch x.Provider() {
	case ProviderOpenAI:
		attrs = append(attrs, slog.String("model", x.openaiModel))
	case ProviderGemini:
		attrs = append(attrs,
			slog.String("model", x.geminiModel),
			slog.String("project_id", x.geminiProject),
			slog.String("location", x.geminiLocation),
		)
	}
	return attrs
}

// Configure creates the LLM client of the resolved provider. Returns
// ErrMissingLLM when no provider has credentials.
func (x *LLM) Configure(ctx context.Context) (gollem.LLMClient, error) {
	if x.embeddingDimension <= 0 {
		return nil, goerr.Wrap(ErrInvalidConfig, "embedding dimension must be positive",
			goerr.V(FieldKey, "embedding-dimension"), goerr.V(ValueKey, x.embeddingDimension))
	}

	switch provider := x.Provider(); provider {
	case ProviderOpenAI:
		if x.openaiAPIKey == "" {
			return nil, goerr.Wrap(ErrInvalidConfig, "openai-api-key is required for openai provider")
		}
		client, err := openai.New(ctx, x.openaiAPIKey,
			openai.WithModel(x.openaiModel),
			openai.WithEmbeddingModel(x.openaiEmbeddingModel),
		)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create OpenAI client")
		}
		return client, nil

	case ProviderGemini:
		if x.geminiProject == "" {
			return nil, goerr.Wrap(ErrInvalidConfig, "gemini-project is required for gemini provider")
		}
		client, err := gemini.New(ctx, x.geminiProject, x.geminiLocation,
			gemini.WithModel(x.geminiModel),
			gemini.WithEmbeddingModel(x.geminiEmbeddingModel),
		)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create Gemini client")
		}
		return client, nil

	case "":
		return nil, goerr.Wrap(ErrMissingLLM, "set --openai-api-key or --gemini-project")

	default:
		return nil, goerr.Wrap(ErrInvalidConfig, "unknown LLM provider", goerr.V(ValueKey, provider))
	}
}
