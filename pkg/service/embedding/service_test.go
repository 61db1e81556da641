package embedding_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/model"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/service/embedding"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"
)

// mockLLMClient is a mock gollem LLMClient for testing
type mockLLMClient struct {
	generateEmbeddingFn func(ctx context.Context, dimension int, input []string) ([][]float64, error)
}

func (c *mockLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	return nil, errors.New("not implemented")
}

func (c *mockLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	return c.generateEmbeddingFn(ctx, dimension, input)
}

// lengthEmbedding encodes each text length in the first component
func lengthEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	out := make([][]float64, len(input))
	for i, s := range input {
		v := make([]float64, dimension)
		v[0] = float64(len(s))
		out[i] = v
	}
	return out, nil
}

func TestNew(t *testing.T) {
	_, err := embedding.New(nil, "m", 3)
	gt.Value(t, err).NotNil()

	_, err = embedding.New(&mockLLMClient{}, "", 3)
	gt.Value(t, err).NotNil()

	_, err = embedding.New(&mockLLMClient{}, "m", 0)
	gt.Value(t, err).NotNil()

	svc, err := embedding.New(&mockLLMClient{}, "openai/test", 3)
	gt.NoError(t, err).Required()
	gt.Value(t, svc.ModelID()).Equal("openai/test")
	gt.Value(t, svc.Dimension()).Equal(3)
}

func TestEmbedBatchesKeepOrder(t *testing.T) {
	var mu sync.Mutex
	var batchSizes []int
	llm := &mockLLMClient{
		generateEmbeddingFn: func(ctx context.Context, dimension int, input []string) ([][]float64, error) {
			mu.Lock()
			batchSizes = append(batchSizes, len(input))
			mu.Unlock()
			return lengthEmbedding(ctx, dimension, input)
		},
	}

	svc, err := embedding.New(llm, "m", 2, embedding.WithBatchSize(3), embedding.WithConcurrency(2))
	gt.NoError(t, err).Required()

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee", "ffffff", "ggggggg"}
	vectors, err := svc.Embed(context.Background(), texts)
	gt.NoError(t, err).Required()
	gt.Array(t, vectors).Length(len(texts))
	for i, v := range vectors {
		gt.Array(t, v).Length(2)
		gt.Value(t, v[0]).Equal(float32(len(texts[i])))
	}

	total := 0
	for _, n := range batchSizes {
		gt.Number(t, n).LessOrEqual(3)
		total += n
	}
	gt.Array(t, batchSizes).Length(3)
	gt.Value(t, total).Equal(len(texts))
}

func TestEmbedEmpty(t *testing.T) {
	var calls atomic.Int32
	llm := &mockLLMClient{
		generateEmbeddingFn: func(ctx context.Context, dimension int, input []string) ([][]float64, error) {
			calls.Add(1)
			return lengthEmbedding(ctx, dimension, input)
		},
	}
	svc, err := embedding.New(llm, "m", 2)
	gt.NoError(t, err).Required()

	vectors, err := svc.Embed(context.Background(), nil)
	gt.NoError(t, err)
	gt.Array(t, vectors).Length(0)
	gt.Value(t, calls.Load()).Equal(int32(0))
}

func TestEmbedFailures(t *testing.T) {
	testCases := []struct {
		name string
		fn   func(ctx context.Context, dimension int, input []string) ([][]float64, error)
	}{
		{
			name: "provider error on one batch",
			fn: func(ctx context.Context, dimension int, input []string) ([][]float64, error) {
				if input[0] == "c" {
					return nil, errors.New("rate limited")
				}
				return lengthEmbedding(ctx, dimension, input)
			},
		},
		{
			name: "wrong dimension",
			fn: func(ctx context.Context, dimension int, input []string) ([][]float64, error) {
				return lengthEmbedding(ctx, dimension+1, input)
			},
		},
		{
			name: "missing vectors",
			fn: func(ctx context.Context, dimension int, input []string) ([][]float64, error) {
				v, _ := lengthEmbedding(ctx, dimension, input)
				return v[:len(v)-1], nil
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, err := embedding.New(&mockLLMClient{generateEmbeddingFn: tc.fn}, "m", 2, embedding.WithBatchSize(2))
			gt.NoError(t, err).Required()

			vectors, err := svc.Embed(context.Background(), []string{"a", "b", "c", "d"})
			gt.Value(t, vectors).Nil()
			gt.Error(t, err).Is(model.ErrUpstream)
		})
	}
}
