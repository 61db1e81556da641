package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/interfaces"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/model"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/service/embedding"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/service/extract"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// IngestInput is one text to index
type IngestInput struct {
	Text       string
	OriginType model.OriginType
	Filename   string

	// SourceID is set by callers that must know the ID before indexing,
	// e.g. to archive the upload under it. Empty generates a new one.
	SourceID model.SourceID
	RawURI   string
}

type IngestResult struct {
	SourceID      model.SourceID
	ChunksIndexed int
	Metadata      model.Metadata
}

type IngestUseCase struct {
	repo      interfaces.Repository
	embedder  embedding.Service
	extractor extract.Service
	cfg       RAGConfig
	now       func() time.Time
}

func NewIngestUseCase(repo interfaces.Repository, embedder embedding.Service, extractor extract.Service, cfg RAGConfig, now func() time.Time) *IngestUseCase {
	return &IngestUseCase{
		repo:      repo,
		embedder:  embedder,
		extractor: extractor,
		cfg:       cfg,
		now:       now,
	}
}

// Ingest normalizes metadata, chunks and embeds the text and commits the
// source with all its chunks at once. Nothing is stored if any step fails.
func (uc *IngestUseCase) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	if err := input.OriginType.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Text) == "" {
		return nil, goerr.Wrap(model.ErrValidation, "text is empty")
	}

	texts := ChunkText(input.Text, uc.cfg.ChunkSize, uc.cfg.ChunkOverlap)
	if len(texts) == 0 {
		return nil, goerr.Wrap(model.ErrValidation, "text produced no chunks")
	}

	now := uc.now()
	md := uc.extractor.Extract(ctx, input.Text, now)

	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed chunks", goerr.V("chunks", len(texts)))
	}

	sourceID := input.SourceID
	if sourceID == "" {
		sourceID = model.NewSourceID()
	}
	embeddingModel := uc.embedder.ModelID()

	chunks := make([]*model.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = &model.Chunk{
			ID:             model.NewChunkID(sourceID, i),
			SourceID:       sourceID,
			Index:          i,
			Text:           text,
			Embedding:      vectors[i],
			EmbeddingModel: embeddingModel,
			Metadata:       md.Clone(),
		}
	}

	source := &model.SourceDocument{
		ID:             sourceID,
		OriginType:     input.OriginType,
		RawText:        input.Text,
		Metadata:       md,
		ChunkCount:     len(chunks),
		EmbeddingModel: embeddingModel,
		Filename:       input.Filename,
		RawURI:         input.RawURI,
		CreatedAt:      now,
	}

	if err := uc.repo.Source().Commit(ctx, source, chunks); err != nil {
		return nil, goerr.Wrap(err, "failed to store source", goerr.V("source_id", sourceID))
	}

	logging.From(ctx).Info("source indexed",
		"source_id", sourceID,
		"origin_type", input.OriginType,
		"chunks", len(chunks),
		"patient_name", md.PatientName,
		"date", md.Date,
	)

	return &IngestResult{
		SourceID:      sourceID,
		ChunksIndexed: len(chunks),
		Metadata:      md,
	}, nil
}
