package usecase

import (
	"context"

	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/interfaces"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/model"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// SourceDetail is a source with its chunks
type SourceDetail struct {
	Source *model.SourceDocument
	Chunks []*model.Chunk
}

type SourceUseCase struct {
	repo interfaces.Repository
}

func NewSourceUseCase(repo interfaces.Repository) *SourceUseCase {
	return &SourceUseCase{repo: repo}
}

// List returns sources newest first and the total count
func (uc *SourceUseCase) List(ctx context.Context, limit, offset int) ([]*model.SourceDocument, int, error) {
	if limit == 0 {
		limit = DefaultListLimit
	}
	if limit < 0 || limit > MaxListLimit {
		return nil, 0, goerr.Wrap(model.ErrValidation, "limit out of range", goerr.V("limit", limit))
	}
	if offset < 0 {
		return nil, 0, goerr.Wrap(model.ErrValidation, "offset must not be negative", goerr.V("offset", offset))
	}

	sources, total, err := uc.repo.Source().List(ctx, limit, offset)
	if err != nil {
		return nil, 0, goerr.Wrap(err, "failed to list sources")
	}
	return sources, total, nil
}

func (uc *SourceUseCase) Get(ctx context.Context, id model.SourceID) (*SourceDetail, error) {
	source, err := uc.repo.Source().Get(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get source", goerr.V("source_id", id))
	}
	chunks, err := uc.repo.Chunk().ListBySourceID(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list chunks", goerr.V("source_id", id))
	}
	return &SourceDetail{Source: source, Chunks: chunks}, nil
}

// Delete removes a source and its chunks
func (uc *SourceUseCase) Delete(ctx context.Context, id model.SourceID) error {
	if err := uc.repo.Source().Delete(ctx, id); err != nil {
		return goerr.Wrap(err, "failed to delete source", goerr.V("source_id", id))
	}
	logging.From(ctx).Info("source deleted", "source_id", id)
	return nil
}
