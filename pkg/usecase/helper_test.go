package usecase_test

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
)

const testDimension = 64

// fakeEmbedder hashes words into a bag-of-words vector, so texts sharing
// words are similar
type fakeEmbedder struct {
	modelID   string
	dimension int    // testDimension when zero
	failOn    string // any text containing this fails the call

	mu    sync.Mutex
	calls int
}

func newFakeEmbedder(modelID string) *fakeEmbedder {
	return &fakeEmbedder{modelID: modelID}
}

func (x *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	x.mu.Lock()
	x.calls++
	x.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, text := range texts {
		if x.failOn != "" && strings.Contains(text, x.failOn) {
			return nil, goerr.Wrap(model.ErrUpstream, "embedding failed")
		}
		out[i] = bagOfWords(text, x.Dimension())
	}
	return out, nil
}

func (x *fakeEmbedder) ModelID() string { return x.modelID }

func (x *fakeEmbedder) Dimension() int {
	if x.dimension > 0 {
		return x.dimension
	}
	return testDimension
}

func (x *fakeEmbedder) Calls() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.calls
}

func bagOfWords(text string, dim int) []float32 {
	v := make([]float32, dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%uint32(dim)]++
	}
	return v
}

// mockLLMSession is a mock gollem Session for testing
type mockLLMSession struct {
	generateFn func(ctx context.Context, input []gollem.Input) (*gollem.Response, error)
}

func (s *mockLLMSession) Generate(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (*gollem.Response, error) {
	if s.generateFn != nil {
		return s.generateFn(ctx, input)
	}
	return &gollem.Response{
		Texts: []string{"Respuesta de prueba."},
	}, nil
}

func (s *mockLLMSession) Stream(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockLLMSession) GenerateContent(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
	return s.Generate(ctx, input)
}

func (s *mockLLMSession) GenerateStream(ctx context.Context, input ...gollem.Input) (<-chan *gollem.Response, error) {
	return s.Stream(ctx, input)
}

func (s *mockLLMSession) History() (*gollem.History, error) {
	return nil, nil
}

func (s *mockLLMSession) AppendHistory(*gollem.History) error {
	return nil
}

func (s *mockLLMSession) CountToken(ctx context.Context, input ...gollem.Input) (int, error) {
	return 0, nil
}

// mockLLMClient is a mock gollem LLMClient for testing. It records the
// prompts it receives.
type mockLLMClient struct {
	answer string
	err    error

	mu      sync.Mutex
	prompts []string
}

func (c *mockLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	return &mockLLMSession{
		generateFn: func(ctx context.Context, input []gollem.Input) (*gollem.Response, error) {
			c.mu.Lock()
			for _, in := range input {
				if text, ok := in.(gollem.Text); ok {
					c.prompts = append(c.prompts, string(text))
				}
			}
			c.mu.Unlock()

			if c.err != nil {
				return nil, c.err
			}
			answer := c.answer
			if answer == "" {
				answer = "Respuesta de prueba."
			}
			return &gollem.Response{Texts: []string{answer}}, nil
		},
	}, nil
}

func (c *mockLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	return nil, errors.New("not used")
}

func (c *mockLLMClient) Prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.prompts...)
}

func fixedClock() time.Time {
	return time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)
}
