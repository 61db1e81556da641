package model

import "fmt"

// ChunkID identifies a chunk. It is derived from the owning source and the chunk position.
type ChunkID string

// NewChunkID builds the ID of the n-th chunk of a source
func NewChunkID(sourceID SourceID, n int) ChunkID {
	return ChunkID(fmt.Sprintf("%s::chunk%d", sourceID, n))
}

// Chunk is a bounded segment of a source's text with its own embedding and a
// copy of the source metadata.
type Chunk struct {
	ID             ChunkID
	SourceID       SourceID
	Index          int
	Text           string
	Embedding      []float32
	EmbeddingModel string
	Metadata       Metadata
}

// ScoredChunk is a retrieval hit
type ScoredChunk struct {
	Chunk *Chunk
	Score float64
}

// CopyChunk returns a deep copy of c
func CopyChunk(c *Chunk) *Chunk {
	copied := *c
	if c.Embedding != nil {
		copied.Embedding = make([]float32, len(c.Embedding))
		copy(copied.Embedding, c.Embedding)
	}
	copied.Metadata = c.Metadata.Clone()
	return &copied
}

// VectorQuery is a similarity search restricted by a metadata filter
type VectorQuery struct {
	Vector         []float32
	Filter         Filter
	K              int
	EmbeddingModel string
}
