package usecase

import (
	"bytes"
	"context"
	_ "embed"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/interfaces"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/model"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/service/embedding"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
)

//go:embed prompt/chat_system.md
var chatSystemPrompt string

//go:embed prompt/chat_user.md
var chatUserPromptTmpl string

var chatUserPrompt = template.Must(template.New("chat_user").Funcs(template.FuncMap{
	"deref": func(v *int) int { return *v },
}).Parse(chatUserPromptTmpl))

// ChatInput is a question with an optional metadata filter.
// K zero means the configured default.
type ChatInput struct {
	Query  string
	Filter model.Filter
	K      int
}

type ChatUseCase struct {
	repo      interfaces.Repository
	embedder  embedding.Service
	llmClient gollem.LLMClient
	cfg       RAGConfig
}

func NewChatUseCase(repo interfaces.Repository, embedder embedding.Service, llmClient gollem.LLMClient, cfg RAGConfig) *ChatUseCase {
	return &ChatUseCase{
		repo:      repo,
		embedder:  embedder,
		llmClient: llmClient,
		cfg:       cfg,
	}
}

// Retrieve returns up to k chunks most similar to query that satisfy
// filter, best first. Validation happens before any remote call.
func (uc *ChatUseCase) Retrieve(ctx context.Context, query string, filter model.Filter, k int) ([]*model.ScoredChunk, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, goerr.Wrap(model.ErrValidation, "query is empty")
	}
	if filter != nil {
		if err := filter.Validate(); err != nil {
			return nil, err
		}
	}
	if k == 0 {
		k = uc.cfg.DefaultK
	}
	if k < 0 || k > uc.cfg.MaxK {
		return nil, goerr.Wrap(model.ErrValidation, "k out of range", goerr.V("k", k), goerr.V("max_k", uc.cfg.MaxK))
	}

	vectors, err := uc.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed query")
	}

	hits, err := uc.repo.Chunk().FindNearest(ctx, model.VectorQuery{
		Vector:         vectors[0],
		Filter:         filter,
		K:              k,
		EmbeddingModel: uc.embedder.ModelID(),
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search chunks")
	}
	return hits, nil
}

// Chat answers the question from retrieved chunks only. With no matching
// chunk it returns a no-match result without calling the language model.
func (uc *ChatUseCase) Chat(ctx context.Context, input ChatInput) (*model.ChatResult, error) {
	hits, err := uc.Retrieve(ctx, input.Query, input.Filter, input.K)
	if err != nil {
		return nil, err
	}

	if len(hits) == 0 {
		logging.From(ctx).Info("no chunk matched the question")
		return &model.ChatResult{
			Answer:    model.NoInformationAnswer,
			Citations: []model.SourceID{},
			Status:    model.ChatStatusNoMatch,
		}, nil
	}

	if uc.llmClient == nil {
		return nil, goerr.Wrap(model.ErrUnavailable, "language model is not configured")
	}

	selected := selectContext(hits, uc.cfg.ContextBudget)
	citations := collectCitations(selected)

	userPrompt, err := buildUserPrompt(strings.TrimSpace(input.Query), selected)
	if err != nil {
		return nil, err
	}

	answer, err := uc.generate(ctx, userPrompt)
	if err != nil {
		return nil, err
	}

	logging.From(ctx).Info("question answered",
		"retrieved", len(hits),
		"context_chunks", len(selected),
		"citations", len(citations),
	)

	return &model.ChatResult{
		Answer:    answer,
		Citations: citations,
		Status:    model.ChatStatusAnswered,
	}, nil
}

// Warmup embeds a short text so the first real request does not pay the
// model cold start.
func (uc *ChatUseCase) Warmup(ctx context.Context) error {
	if _, err := uc.embedder.Embed(ctx, []string{"warmup"}); err != nil {
		return goerr.Wrap(err, "warm-up embedding failed")
	}
	return nil
}

func (uc *ChatUseCase) generate(ctx context.Context, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.cfg.LLMTimeout)
	defer cancel()

	session, err := uc.llmClient.NewSession(ctx, gollem.WithSessionSystemPrompt(chatSystemPrompt))
	if err != nil {
		return "", goerr.Wrap(model.ErrUpstream, "failed to create LLM session", goerr.V("cause", err.Error()))
	}

	resp, err := session.Generate(ctx, []gollem.Input{gollem.Text(userPrompt)})
	if err != nil {
		return "", goerr.Wrap(model.ErrUpstream, "failed to generate answer", goerr.V("cause", err.Error()))
	}
	if resp == nil || len(resp.Texts) == 0 {
		return "", goerr.Wrap(model.ErrUpstream, "empty answer from LLM")
	}

	answer := strings.TrimSpace(strings.Join(resp.Texts, ""))
	if answer == "" {
		return "", goerr.Wrap(model.ErrUpstream, "empty answer from LLM")
	}
	return answer, nil
}

// selectContext keeps chunks in rank order while their text fits in budget
// runes. A chunk that does not fit is skipped; a later, smaller one may still fit.
func selectContext(hits []*model.ScoredChunk, budget int) []*model.Chunk {
	var selected []*model.Chunk
	used := 0
	for _, h := range hits {
		n := utf8.RuneCountInString(h.Chunk.Text)
		if used+n > budget {
			continue
		}
		used += n
		selected = append(selected, h.Chunk)
	}
	return selected
}

// collectCitations returns distinct source IDs in first-seen order
func collectCitations(chunks []*model.Chunk) []model.SourceID {
	seen := make(map[model.SourceID]bool)
	citations := make([]model.SourceID, 0, len(chunks))
	for _, c := range chunks {
		if seen[c.SourceID] {
			continue
		}
		seen[c.SourceID] = true
		citations = append(citations, c.SourceID)
	}
	return citations
}

type chatPromptData struct {
	Query  string
	Chunks []*model.Chunk
}

func buildUserPrompt(query string, chunks []*model.Chunk) (string, error) {
	var buf bytes.Buffer
	if err := chatUserPrompt.Execute(&buf, chatPromptData{Query: query, Chunks: chunks}); err != nil {
		return "", goerr.Wrap(err, "failed to execute chat prompt template")
	}
	return buf.String(), nil
}
