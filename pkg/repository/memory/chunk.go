package memory

import (
	"context"

	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/model"
)

type chunkRepository struct {
	store *store
}

func (r *chunkRepository) ListBySourceID(ctx context.Context, sourceID model.SourceID) ([]*model.Chunk, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	chunks := r.store.chunks[sourceID]
	result := make([]*model.Chunk, 0, len(chunks))
	for _, c := range chunks {
		result = append(result, model.CopyChunk(c))
	}
	return result, nil
}

// FindNearest scans every chunk. Filter, model identity and vector length
// are checked before scoring.
func (r *chunkRepository) FindNearest(ctx context.Context, q model.VectorQuery) ([]*model.ScoredChunk, error) {
	if q.K <= 0 {
		return []*model.ScoredChunk{}, nil
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var hits []*model.ScoredChunk
	for _, chunks := range r.store.chunks {
		for _, c := range chunks {
			if c.EmbeddingModel != q.EmbeddingModel || len(c.Embedding) != len(q.Vector) {
				continue
			}
			if !model.MatchFilter(q.Filter, c.Metadata) {
				continue
			}
			hits = append(hits, &model.ScoredChunk{
				Chunk: model.CopyChunk(c),
				Score: model.CosineSimilarity(q.Vector, c.Embedding),
			})
		}
	}

	if hits == nil {
		return []*model.ScoredChunk{}, nil
	}
	return model.TopK(hits, q.K), nil
}
