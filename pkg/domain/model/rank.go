package model

import (
	"math"
	"sort"
)

// CosineSimilarity returns the cosine of the angle between a and b, or 0
// when either vector is zero or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// SortScoredChunks orders hits best first. Equal scores fall back to the
// newer metadata date, then source ID, then chunk index, so ranking is
// deterministic across backends.
func SortScoredChunks(hits []*ScoredChunk) {
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Chunk.Metadata.Date != b.Chunk.Metadata.Date {
			return a.Chunk.Metadata.Date > b.Chunk.Metadata.Date
		}
		if a.Chunk.SourceID != b.Chunk.SourceID {
			return a.Chunk.SourceID < b.Chunk.SourceID
		}
		return a.Chunk.Index < b.Chunk.Index
	})
}

// TopK sorts hits and keeps at most k of them
func TopK(hits []*ScoredChunk, k int) []*ScoredChunk {
	SortScoredChunks(hits)
	if k >= 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits
}
