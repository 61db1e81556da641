package memory

import (
	"sync"

	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/interfaces"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/model"
)

// Memory keeps the whole index in process. Sources and chunks share one
// lock so a committed source becomes visible together with its chunks.
type Memory struct {
	store  *store
	source *sourceRepository
	chunk  *chunkRepository
}

var _ interfaces.Repository = &Memory{}

type store struct {
	mu      sync.RWMutex
	sources map[model.SourceID]*model.SourceDocument
	chunks  map[model.SourceID][]*model.Chunk
}

func New() *Memory {
	s := &store{
		sources: make(map[model.SourceID]*model.SourceDocument),
		chunks:  make(map[model.SourceID][]*model.Chunk),
	}
	return &Memory{
		store:  s,
		source: &sourceRepository{store: s},
		chunk:  &chunkRepository{store: s},
	}
}

func (m *Memory) Source() interfaces.SourceRepository {
	return m.source
}

func (m *Memory) Chunk() interfaces.ChunkRepository {
	return m.chunk
}

func (m *Memory) Close() error {
	return nil
}
