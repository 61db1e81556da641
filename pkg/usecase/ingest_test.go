package usecase_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/model"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/repository/memory"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/usecase"
	"github.com/m-mizutani/gt"
)

func TestIngest(t *testing.T) {
	t.Run("indexes chunks with identical metadata", func(t *testing.T) {
		repo := memory.New()
		ctx := context.Background()
		uc := usecase.New(repo, newFakeEmbedder("fake/v1"), usecase.WithClock(fixedClock))

		text := "Paciente: Juan Pérez, edad 40, fecha 2025-07-10. " + strings.Repeat("Refiere fiebre alta y tos persistente. ", 60)
		result, err := uc.Ingest.Ingest(ctx, usecase.IngestInput{Text: text, OriginType: model.OriginAudio})
		gt.NoError(t, err).Required()
		gt.Number(t, result.ChunksIndexed).Greater(1)

		chunks, err := repo.Chunk().ListBySourceID(ctx, result.SourceID)
		gt.NoError(t, err).Required()
		gt.Array(t, chunks).Length(result.ChunksIndexed)

		source, err := repo.Source().Get(ctx, result.SourceID)
		gt.NoError(t, err).Required()
		gt.Value(t, source.ChunkCount).Equal(result.ChunksIndexed)
		gt.Value(t, source.Metadata.PatientName).Equal("Juan Pérez")
		gt.Value(t, source.Metadata.Date).Equal("2025-07-10")
		gt.Value(t, *source.Metadata.Age).Equal(40)
		gt.Value(t, source.EmbeddingModel).Equal("fake/v1")

		for i, c := range chunks {
			gt.Value(t, c.ID).Equal(model.NewChunkID(result.SourceID, i))
			gt.Bool(t, c.Metadata.Equal(source.Metadata)).True()
			gt.Value(t, c.EmbeddingModel).Equal("fake/v1")
			gt.Array(t, c.Embedding).Length(testDimension)
		}
	})

	t.Run("unresolved metadata falls back to defaults", func(t *testing.T) {
		repo := memory.New()
		ctx := context.Background()
		uc := usecase.New(repo, newFakeEmbedder("fake/v1"), usecase.WithClock(fixedClock))

		result, err := uc.Ingest.Ingest(ctx, usecase.IngestInput{Text: "Consulta por dolor de garganta.", OriginType: model.OriginDocument})
		gt.NoError(t, err).Required()
		gt.Value(t, result.Metadata.PatientName).Equal(model.UnknownPatient)
		gt.Value(t, result.Metadata.Date).Equal("2025-08-01")
		gt.Value(t, result.Metadata.Age).Nil()
	})

	t.Run("each call gets a fresh source id", func(t *testing.T) {
		uc := usecase.New(memory.New(), newFakeEmbedder("fake/v1"))
		ctx := context.Background()

		r1, err := uc.Ingest.Ingest(ctx, usecase.IngestInput{Text: "misma nota", OriginType: model.OriginDocument})
		gt.NoError(t, err).Required()
		r2, err := uc.Ingest.Ingest(ctx, usecase.IngestInput{Text: "misma nota", OriginType: model.OriginDocument})
		gt.NoError(t, err).Required()
		gt.Value(t, r1.SourceID).NotEqual(r2.SourceID)
	})

	t.Run("rejects invalid input before embedding", func(t *testing.T) {
		embedder := newFakeEmbedder("fake/v1")
		uc := usecase.New(memory.New(), embedder)
		ctx := context.Background()

		_, err := uc.Ingest.Ingest(ctx, usecase.IngestInput{Text: "   \n", OriginType: model.OriginAudio})
		gt.Error(t, err).Is(model.ErrValidation)

		_, err = uc.Ingest.Ingest(ctx, usecase.IngestInput{Text: "texto", OriginType: "video"})
		gt.Error(t, err).Is(model.ErrValidation)

		gt.Value(t, embedder.Calls()).Equal(0)
	})

	t.Run("embedding failure stores nothing", func(t *testing.T) {
		repo := memory.New()
		ctx := context.Background()
		embedder := newFakeEmbedder("fake/v1")
		embedder.failOn = "FALLA"
		uc := usecase.New(repo, embedder, usecase.WithRAGConfig(usecase.RAGConfig{
			ChunkSize: 50, ChunkOverlap: 5, DefaultK: 6, MaxK: 50, ContextBudget: 500, MinDocChars: 5, LLMTimeout: time.Minute,
		}))

		text := strings.Repeat("texto clínico normal ", 10) + "FALLA " + strings.Repeat("más texto ", 10)
		_, err := uc.Ingest.Ingest(ctx, usecase.IngestInput{Text: text, OriginType: model.OriginDocument})
		gt.Error(t, err).Is(model.ErrUpstream)

		sources, total, err := repo.Source().List(ctx, 10, 0)
		gt.NoError(t, err)
		gt.Value(t, total).Equal(0)
		gt.Array(t, sources).Length(0)
	})
}
