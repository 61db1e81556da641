package cli

import (
	"context"
	"log/slog"

	"github.com/jacespedes2019/ElSol-Challenge/pkg/cli/config"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/service/embedding"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/service/extract"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/usecase"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// runtimeConfig gathers the settings every command that touches the index needs
type runtimeConfig struct {
	repo        config.Repository
	llm         config.LLM
	rag         config.RAG
	transcriber config.Transcriber
	archive     config.Archive

	// uploads enables transcription and archiving; set by uploadFlags
	uploads bool
}

func (x *runtimeConfig) Flags() []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, x.repo.Flags()...)
	flags = append(flags, x.llm.Flags()...)
	flags = append(flags, x.rag.Flags()...)
	return flags
}

// uploadFlags are only needed by commands that accept files
func (x *runtimeConfig) uploadFlags() []cli.Flag {
	x.uploads = true
	var flags []cli.Flag
	flags = append(flags, x.transcriber.Flags()...)
	flags = append(flags, x.archive.Flags()...)
	return flags
}

// build wires repository, models and services into use cases. The returned
// function releases them.
func (x *runtimeConfig) build(ctx context.Context, c *cli.Command) (*usecase.UseCases, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if err := x.rag.Configure(c); err != nil {
		return nil, cleanup, goerr.Wrap(err, "failed to configure retrieval")
	}

	repo, err := x.repo.Configure(ctx)
	if err != nil {
		return nil, cleanup, goerr.Wrap(err, "failed to initialize repository")
	}
	closers = append(closers, func() {
		if err := repo.Close(); err != nil {
			logging.Default().Error("failed to close repository", "error", err.Error())
		}
	})

	llmClient, err := x.llm.Configure(ctx)
	if err != nil {
		cleanup()
		return nil, func() {}, goerr.Wrap(err, "failed to configure LLM")
	}

	embedder, err := embedding.New(llmClient, x.llm.EmbeddingModelID(), x.llm.EmbeddingDimension(), x.rag.EmbeddingOptions()...)
	if err != nil {
		cleanup()
		return nil, func() {}, goerr.Wrap(err, "failed to configure embedding")
	}

	ragCfg := x.rag.RAGConfig()
	extractOpts := []extract.Option{extract.WithSymptoms(x.rag.Symptoms())}
	if x.rag.ExtractWithLLM() {
		extractOpts = append(extractOpts, extract.WithLLM(llmClient, ragCfg.LLMTimeout))
	}

	opts := []usecase.Option{
		usecase.WithLLM(llmClient),
		usecase.WithRAGConfig(ragCfg),
		usecase.WithExtractor(extract.New(extractOpts...)),
	}

	var transcription, archiving bool
	if x.uploads {
		transcriber, err := x.transcriber.Configure(x.llm.OpenAIAPIKey())
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		if transcriber != nil {
			opts = append(opts, usecase.WithTranscriber(transcriber))
			transcription = true
		}

		archiveSvc, closeArchive, err := x.archive.Configure(ctx)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		closers = append(closers, closeArchive)
		if archiveSvc != nil {
			opts = append(opts, usecase.WithArchive(archiveSvc))
			archiving = true
		}
	}

	logging.Default().Info("Runtime configured",
		slog.Attr{Key: "repository", Value: slog.GroupValue(x.repo.LogAttrs()...)},
		slog.Attr{Key: "llm", Value: slog.GroupValue(x.llm.LogAttrs()...)},
		slog.Attr{Key: "rag", Value: slog.GroupValue(x.rag.LogAttrs()...)},
		"transcription", transcription,
		"archive", archiving,
	)

	return usecase.New(repo, embedder, opts...), cleanup, nil
}
