package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

type sourceRepository struct {
	store *store
}

func copySource(s *model.SourceDocument) *model.SourceDocument {
	copied := *s
	copied.Metadata = s.Metadata.Clone()
	return &copied
}

func (r *sourceRepository) Commit(ctx context.Context, source *model.SourceDocument, chunks []*model.Chunk) error {
	if source.ID == "" {
		return goerr.Wrap(model.ErrValidation, "source ID is required")
	}

	stored := copySource(source)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	storedChunks := make([]*model.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if c.SourceID != source.ID {
			return goerr.Wrap(model.ErrValidation, "chunk belongs to another source",
				goerr.V("source_id", source.ID), goerr.V("chunk_id", c.ID))
		}
		storedChunks = append(storedChunks, model.CopyChunk(c))
	}
	sort.Slice(storedChunks, func(i, j int) bool { return storedChunks[i].Index < storedChunks[j].Index })

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.sources[source.ID]; exists {
		return goerr.New("source already exists", goerr.V("source_id", source.ID))
	}
	r.store.sources[source.ID] = stored
	r.store.chunks[source.ID] = storedChunks
	return nil
}

func (r *sourceRepository) Get(ctx context.Context, id model.SourceID) (*model.SourceDocument, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	source, exists := r.store.sources[id]
	if !exists {
		return nil, goerr.Wrap(model.ErrNotFound, "source not found", goerr.V("source_id", id))
	}
	return copySource(source), nil
}

func (r *sourceRepository) List(ctx context.Context, limit, offset int) ([]*model.SourceDocument, int, error) {
	r.store.mu.RLock()
	all := make([]*model.SourceDocument, 0, len(r.store.sources))
	for _, s := range r.store.sources {
		all = append(all, copySource(s))
	}
	r.store.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})

	total := len(all)
	if offset >= total {
		return []*model.SourceDocument{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r *sourceRepository) Delete(ctx context.Context, id model.SourceID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.sources[id]; !exists {
		return goerr.Wrap(model.ErrNotFound, "source not found", goerr.V("source_id", id))
	}
	delete(r.store.sources, id)
	delete(r.store.chunks, id)
	return nil
}
