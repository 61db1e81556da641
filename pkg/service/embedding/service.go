package embedding

import (
	"context"
	"time"

	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBatchSize   = 32
	DefaultConcurrency = 4
	DefaultTimeout     = 30 * time.Second
)

// client implements Service on top of a gollem LLM client
type client struct {
	llmClient   gollem.LLMClient
	modelID     string
	dimension   int
	batchSize   int
	concurrency int
	timeout     time.Duration
}

// Option is a functional option for client configuration
type Option func(*client)

// WithBatchSize sets how many texts are sent per embedding request
func WithBatchSize(n int) Option {
	return func(c *client) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithConcurrency bounds the number of batches in flight
func WithConcurrency(n int) Option {
	return func(c *client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithTimeout sets the deadline of each batch request
func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// New creates an embedding service. modelID must name the provider model,
// e.g. "openai/text-embedding-3-small".
func New(llmClient gollem.LLMClient, modelID string, dimension int, opts ...Option) (Service, error) {
	if llmClient == nil {
		return nil, goerr.New("LLM client is required")
	}
	if modelID == "" {
		return nil, goerr.New("embedding model ID is required")
	}
	if dimension <= 0 {
		return nil, goerr.New("embedding dimension must be positive", goerr.V("dimension", dimension))
	}

	c := &client{
		llmClient:   llmClient,
		modelID:     modelID,
		dimension:   dimension,
		batchSize:   DefaultBatchSize,
		concurrency: DefaultConcurrency,
		timeout:     DefaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *client) ModelID() string { return c.modelID }

func (c *client) Dimension() int { return c.dimension }

func (c *client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(c.concurrency)

	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))

		eg.Go(func() error {
			vectors, err := c.embedBatch(ctx, texts[start:end])
			if err != nil {
				return goerr.Wrap(err, "failed to embed batch", goerr.V("offset", start), goerr.V("size", end-start))
			}
			copy(results[start:end], vectors)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *client) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	embeddings, err := c.llmClient.GenerateEmbedding(ctx, c.dimension, batch)
	if err != nil {
		return nil, goerr.Wrap(model.ErrUpstream, "embedding request failed",
			goerr.V("model", c.modelID), goerr.V("cause", err.Error()))
	}
	if len(embeddings) != len(batch) {
		return nil, goerr.Wrap(model.ErrUpstream, "embedding count mismatch",
			goerr.V("model", c.modelID), goerr.V("expected", len(batch)), goerr.V("actual", len(embeddings)))
	}

	vectors := make([][]float32, len(embeddings))
	for i, emb := range embeddings {
		if len(emb) != c.dimension {
			return nil, goerr.Wrap(model.ErrUpstream, "embedding dimension mismatch",
				goerr.V("model", c.modelID), goerr.V("expected", c.dimension), goerr.V("actual", len(emb)))
		}
		v := make([]float32, len(emb))
		for j, f := range emb {
			v[j] = float32(f)
		}
		vectors[i] = v
	}
	return vectors, nil
}
