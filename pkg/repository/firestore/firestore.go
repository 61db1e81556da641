package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/interfaces"
	"github.com/m-mizutani/goerr/v2"
)

const (
	// CollectionSources holds one document per ingested source
	CollectionSources = "sources"
	// CollectionChunks holds one document per chunk, with its embedding vector
	CollectionChunks = "chunks"

	// maxTransactionWrites is the Firestore write limit of a single transaction
	maxTransactionWrites = 500
)

type Firestore struct {
	client *firestore.Client
	source *sourceRepository
	chunk  *chunkRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix prefixes collection names, e.g. "test" gives "test_chunks"
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.source.names.prefix = prefix
		f.chunk.names.prefix = prefix
	}
}

func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID), goerr.V("databaseID", databaseID))
	}

	f := &Firestore{
		client: client,
		source: &sourceRepository{client: client},
		chunk:  &chunkRepository{client: client},
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) Source() interfaces.SourceRepository {
	return f.source
}

func (f *Firestore) Chunk() interfaces.ChunkRepository {
	return f.chunk
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

type collectionNames struct {
	prefix string
}

func (x collectionNames) name(base string) string {
	return CollectionName(x.prefix, base)
}

// CollectionName returns the collection name used for base under prefix
func CollectionName(prefix, base string) string {
	if prefix != "" {
		return prefix + "_" + base
	}
	return base
}

// FilterFields are the chunk fields FindNearest may pre-filter on besides
// EmbeddingModel, which is always part of the query
var FilterFields = []string{"PatientName", "Date", "Age"}

const (
	// EmbeddingField holds the chunk vector
	EmbeddingField = "Embedding"
	// EmbeddingModelField is the equality pre-filter of every vector query
	EmbeddingModelField = "EmbeddingModel"
)
