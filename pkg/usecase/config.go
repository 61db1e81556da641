package usecase

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// RAGConfig holds retrieval and synthesis tuning
type RAGConfig struct {
	ChunkSize     int           // runes per chunk
	ChunkOverlap  int           // runes shared by consecutive chunks
	DefaultK      int           // chunks retrieved when the request has no k
	MaxK          int           // largest k a request may ask for
	ContextBudget int           // runes of chunk text sent to the language model
	MinDocChars   int           // non-space characters an uploaded document must yield
	LLMTimeout    time.Duration // deadline of the answer generation call
}

func DefaultRAGConfig() RAGConfig {
	return RAGConfig{
		ChunkSize:     900,
		ChunkOverlap:  120,
		DefaultK:      6,
		MaxK:          50,
		ContextBudget: 6000,
		MinDocChars:   5,
		LLMTimeout:    60 * time.Second,
	}
}

// Validate checks the configuration is usable. The context budget must hold
// at least one full chunk so a non-empty retrieval always yields context.
func (x RAGConfig) Validate() error {
	if x.ChunkSize <= 0 {
		return goerr.New("chunk size must be positive", goerr.V("chunk_size", x.ChunkSize))
	}
	if x.ChunkOverlap < 0 || x.ChunkOverlap >= x.ChunkSize {
		return goerr.New("chunk overlap must be in [0, chunk size)",
			goerr.V("chunk_overlap", x.ChunkOverlap), goerr.V("chunk_size", x.ChunkSize))
	}
	if x.MaxK <= 0 {
		return goerr.New("max k must be positive", goerr.V("max_k", x.MaxK))
	}
	if x.DefaultK <= 0 || x.DefaultK > x.MaxK {
		return goerr.New("default k must be in [1, max k]", goerr.V("default_k", x.DefaultK), goerr.V("max_k", x.MaxK))
	}
	if x.ContextBudget < x.ChunkSize {
		return goerr.New("context budget must hold at least one chunk",
			goerr.V("context_budget", x.ContextBudget), goerr.V("chunk_size", x.ChunkSize))
	}
	if x.LLMTimeout <= 0 {
		return goerr.New("LLM timeout must be positive", goerr.V("llm_timeout", x.LLMTimeout))
	}
	return nil
}
