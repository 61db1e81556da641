package usecase

import (
	"time"

	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/interfaces"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/service/archive"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/service/document"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/service/embedding"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/service/extract"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/service/transcribe"
	"github.com/m-mizutani/gollem"
)

type UseCases struct {
	repo        interfaces.Repository
	embedder    embedding.Service
	extractor   extract.Service
	llmClient   gollem.LLMClient
	transcriber transcribe.Service
	documents   document.Service
	archive     archive.Service
	ragConfig   RAGConfig
	now         func() time.Time

	Ingest *IngestUseCase
	Chat   *ChatUseCase
	Upload *UploadUseCase
	Source *SourceUseCase
}

type Option func(*UseCases)

// WithLLM sets the language model used for answers. Without it chat
// requests with matching chunks fail with model.ErrUnavailable.
func WithLLM(llmClient gollem.LLMClient) Option {
	return func(uc *UseCases) {
		uc.llmClient = llmClient
	}
}

// WithExtractor replaces the rule-based metadata extractor
func WithExtractor(extractor extract.Service) Option {
	return func(uc *UseCases) {
		uc.extractor = extractor
	}
}

func WithTranscriber(transcriber transcribe.Service) Option {
	return func(uc *UseCases) {
		uc.transcriber = transcriber
	}
}

func WithDocumentExtractor(documents document.Service) Option {
	return func(uc *UseCases) {
		uc.documents = documents
	}
}

// WithArchive keeps raw uploads. Without it uploads are only indexed.
func WithArchive(a archive.Service) Option {
	return func(uc *UseCases) {
		uc.archive = a
	}
}

func WithRAGConfig(cfg RAGConfig) Option {
	return func(uc *UseCases) {
		uc.ragConfig = cfg
	}
}

// WithClock overrides the ingestion time source
func WithClock(now func() time.Time) Option {
	return func(uc *UseCases) {
		uc.now = now
	}
}

func New(repo interfaces.Repository, embedder embedding.Service, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:      repo,
		embedder:  embedder,
		extractor: extract.New(),
		documents: document.New(),
		ragConfig: DefaultRAGConfig(),
		now:       func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.Ingest = NewIngestUseCase(repo, embedder, uc.extractor, uc.ragConfig, uc.now)
	uc.Chat = NewChatUseCase(repo, embedder, uc.llmClient, uc.ragConfig)
	uc.Upload = NewUploadUseCase(uc.Ingest, uc.transcriber, uc.documents, uc.archive, uc.ragConfig)
	uc.Source = NewSourceUseCase(repo)

	return uc
}
