package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/jacespedes2019/ElSol-Challenge/pkg/service/embedding"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/service/extract"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// ragFile is the TOML layout of --rag-config
//
//	chunk_size = 900
//	chunk_overlap = 120
//	default_k = 6
//	context_budget = 6000
//	llm_timeout = "60s"
//
//	[embedding]
//	batch_size = 64
//	timeout = "30s"
//
//	[extract]
//	use_llm = true
//	symptoms = ["fiebre", "tos"]
type ragFile struct {
	ChunkSize     *int    `toml:"chunk_size"`
	ChunkOverlap  *int    `toml:"chunk_overlap"`
	DefaultK      *int    `toml:"default_k"`
	MaxK          *int    `toml:"max_k"`
	ContextBudget *int    `toml:"context_budget"`
	MinDocChars   *int    `toml:"min_doc_chars"`
	LLMTimeout    *string `toml:"llm_timeout"`

	Embedding struct {
		BatchSize   *int    `toml:"batch_size"`
		Concurrency *int    `toml:"concurrency"`
		Timeout     *string `toml:"timeout"`
	} `toml:"embedding"`

	Extract struct {
		UseLLM   *bool    `toml:"use_llm"`
		Symptoms []string `toml:"symptoms"`
	} `toml:"extract"`
}

// RAG holds retrieval, embedding and extraction tuning. Values come from
// defaults, then the TOML file, then flags that were set explicitly.
type RAG struct {
	path string

	chunkSize      int
	chunkOverlap   int
	defaultK       int
	contextBudget  int
	llmTimeout     time.Duration
	batchSize      int
	embedTimeout   time.Duration
	extractWithLLM bool

	resolved       usecase.RAGConfig
	batch          int
	concurrency    int
	embedDeadline  time.Duration
	useLLMExtract  bool
	symptomLexicon []string
}

func (x *RAG) Flags() []cli.Flag {
	category := "Retrieval"
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "rag-config",
			Category:    category,
			Usage:       "TOML file with retrieval tuning",
			Sources:     cli.EnvVars("ELSOL_RAG_CONFIG"),
			Destination: &x.path,
		},
		&cli.IntFlag{
			Name:        "chunk-size",
			Category:    category,
			Usage:       "Characters per chunk (default 900)",
			Sources:     cli.EnvVars("ELSOL_CHUNK_SIZE"),
			Destination: &x.chunkSize,
		},
		&cli.IntFlag{
			Name:        "chunk-overlap",
			Category:    category,
			Usage:       "Characters shared by consecutive chunks (default 120)",
			Sources:     cli.EnvVars("ELSOL_CHUNK_OVERLAP"),
			Destination: &x.chunkOverlap,
		},
		&cli.IntFlag{
			Name:        "default-k",
			Category:    category,
			Usage:       "Chunks retrieved per question (default 6)",
			Sources:     cli.EnvVars("ELSOL_DEFAULT_K"),
			Destination: &x.defaultK,
		},
		&cli.IntFlag{
			Name:        "context-budget",
			Category:    category,
			Usage:       "Characters of context sent to the language model (default 6000)",
			Sources:     cli.EnvVars("ELSOL_CONTEXT_BUDGET"),
			Destination: &x.contextBudget,
		},
		&cli.DurationFlag{
			Name:        "llm-timeout",
			Category:    category,
			Usage:       "Deadline of answer generation (default 60s)",
			Sources:     cli.EnvVars("ELSOL_LLM_TIMEOUT"),
			Destination: &x.llmTimeout,
		},
		&cli.IntFlag{
			Name:        "embedding-batch-size",
			Category:    category,
			Usage:       "Texts per embedding request",
			Sources:     cli.EnvVars("ELSOL_EMBEDDING_BATCH_SIZE"),
			Destination: &x.batchSize,
		},
		&cli.DurationFlag{
			Name:        "embedding-timeout",
			Category:    category,
			Usage:       "Deadline of one embedding request (default 30s)",
			Sources:     cli.EnvVars("ELSOL_EMBEDDING_TIMEOUT"),
			Destination: &x.embedTimeout,
		},
		&cli.BoolFlag{
			Name:        "extract-with-llm",
			Category:    category,
			Usage:       "Complete rule-based metadata extraction with the language model",
			Sources:     cli.EnvVars("ELSOL_EXTRACT_WITH_LLM"),
			Destination: &x.extractWithLLM,
		},
	}
}

// Configure resolves the settings. c reports which flags were set explicitly.
func (x *RAG) Configure(c *cli.Command) error {
	cfg := usecase.DefaultRAGConfig()
	var file ragFile
	if x.path != "" {
		loaded, err := loadRAGFile(x.path)
		if err != nil {
			return err
		}
		file = *loaded
	}

	setInt(&cfg.ChunkSize, file.ChunkSize)
	setInt(&cfg.ChunkOverlap, file.ChunkOverlap)
	setInt(&cfg.DefaultK, file.DefaultK)
	setInt(&cfg.MaxK, file.MaxK)
	setInt(&cfg.ContextBudget, file.ContextBudget)
	setInt(&cfg.MinDocChars, file.MinDocChars)
	if err := setDuration(&cfg.LLMTimeout, file.LLMTimeout, "llm_timeout"); err != nil {
		return err
	}

	x.batch, x.concurrency, x.embedDeadline = 0, 0, 0
	setInt(&x.batch, file.Embedding.BatchSize)
	setInt(&x.concurrency, file.Embedding.Concurrency)
	if err := setDuration(&x.embedDeadline, file.Embedding.Timeout, "embedding.timeout"); err != nil {
		return err
	}
	x.useLLMExtract = file.Extract.UseLLM != nil && *file.Extract.UseLLM
	x.symptomLexicon = extract.DefaultSymptoms
	if len(file.Extract.Symptoms) > 0 {
		x.symptomLexicon = file.Extract.Symptoms
	}

	if c != nil {
		if c.IsSet("chunk-size") {
			cfg.ChunkSize = x.chunkSize
		}
		if c.IsSet("chunk-overlap") {
			cfg.ChunkOverlap = x.chunkOverlap
		}
		if c.IsSet("default-k") {
			cfg.DefaultK = x.defaultK
		}
		if c.IsSet("context-budget") {
			cfg.ContextBudget = x.contextBudget
		}
		if c.IsSet("llm-timeout") {
			cfg.LLMTimeout = x.llmTimeout
		}
		if c.IsSet("embedding-batch-size") {
			x.batch = x.batchSize
		}
		if c.IsSet("embedding-timeout") {
			x.embedDeadline = x.embedTimeout
		}
		if c.IsSet("extract-with-llm") {
			x.useLLMExtract = x.extractWithLLM
		}
	}

	if err := cfg.Validate(); err != nil {
		return goerr.Wrap(ErrInvalidConfig, "invalid retrieval configuration",
			goerr.V(ConfigPathKey, x.path), goerr.V("cause", err.Error()))
	}
	x.resolved = cfg
	return nil
}

func loadRAGFile(path string) (*ragFile, error) {
	// #nosec G304 - path is provided by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrConfigNotFound, "retrieval config file not found", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read retrieval config file", goerr.V(ConfigPathKey, path))
	}

	var file ragFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse TOML config",
			goerr.V(ConfigPathKey, path), goerr.V("cause", err.Error()))
	}
	return &file, nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string, field string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return goerr.Wrap(ErrInvalidConfig, "invalid duration", goerr.V(FieldKey, field), goerr.V(ValueKey, *v))
	}
	*dst = d
	return nil
}

// RAGConfig returns the resolved use case tuning. Configure must run first.
func (x *RAG) RAGConfig() usecase.RAGConfig {
	return x.resolved
}

// EmbeddingOptions returns options for embedding.New
func (x *RAG) EmbeddingOptions() []embedding.Option {
	var opts []embedding.Option
	if x.batch > 0 {
		opts = append(opts, embedding.WithBatchSize(x.batch))
	}
	if x.concurrency > 0 {
		opts = append(opts, embedding.WithConcurrency(x.concurrency))
	}
	if x.embedDeadline > 0 {
		opts = append(opts, embedding.WithTimeout(x.embedDeadline))
	}
	return opts
}

func (x *RAG) ExtractWithLLM() bool {
	return x.useLLMExtract
}

func (x *RAG) Symptoms() []string {
	return x.symptomLexicon
}

func (x *RAG) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("config", x.path),
		slog.Int("chunk_size", x.resolved.ChunkSize),
		slog.Int("chunk_overlap", x.resolved.ChunkOverlap),
		slog.Int("default_k", x.resolved.DefaultK),
		slog.Int("context_budget", x.resolved.ContextBudget),
		slog.Duration("llm_timeout", x.resolved.LLMTimeout),
		slog.Bool("extract_with_llm", x.useLLMExtract),
	}
}
