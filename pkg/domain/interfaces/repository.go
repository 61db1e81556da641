package interfaces

import (
	"context"

	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/model"
)

// Repository is the handle to the index store. It is opened by the caller
// and must be released with Close.
type Repository interface {
	Source() SourceRepository
	Chunk() ChunkRepository

	Close() error
}

// SourceRepository persists source documents together with their chunks
type SourceRepository interface {
	// Commit stores a source and all of its chunks atomically: readers see
	// either none or all of them.
	Commit(ctx context.Context, source *model.SourceDocument, chunks []*model.Chunk) error

	// Get retrieves a source by ID. Returns model.ErrNotFound if missing.
	Get(ctx context.Context, id model.SourceID) (*model.SourceDocument, error)

	// List returns sources newest first, and the total count
	List(ctx context.Context, limit, offset int) ([]*model.SourceDocument, int, error)

	// Delete removes a source and its chunks
	Delete(ctx context.Context, id model.SourceID) error
}

// ChunkRepository reads indexed chunks
type ChunkRepository interface {
	// ListBySourceID returns the chunks of a source ordered by index
	ListBySourceID(ctx context.Context, sourceID model.SourceID) ([]*model.Chunk, error)

	// FindNearest returns up to q.K chunks most similar to q.Vector among
	// those produced by q.EmbeddingModel and satisfying q.Filter, best first.
	FindNearest(ctx context.Context, q model.VectorQuery) ([]*model.ScoredChunk, error)
}
