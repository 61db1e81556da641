package firestore

import (
	"context"
	"sort"

	"cloud.google.com/go/firestore"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
)

// distanceField receives the cosine distance computed by FindNearest
const distanceField = "VectorDistance"

// chunkDoc is the Firestore document representation of model.Chunk. Metadata
// fields are flattened so vector search can pre-filter on them, and
// Embedding is stored as firestore.Vector32 so that FindNearest works.
type chunkDoc struct {
	ID             string             `firestore:"ID"`
	SourceID       string             `firestore:"SourceID"`
	Index          int                `firestore:"Index"`
	Text           string             `firestore:"Text"`
	Embedding      firestore.Vector32 `firestore:"Embedding"`
	EmbeddingModel string             `firestore:"EmbeddingModel"`
	PatientName    string             `firestore:"PatientName"`
	Date           string             `firestore:"Date"`
	Age            *int64             `firestore:"Age,omitempty"`
	Symptoms       []string           `firestore:"Symptoms,omitempty"`
}

func toChunkDoc(c *model.Chunk) *chunkDoc {
	return &chunkDoc{
		ID:             string(c.ID),
		SourceID:       string(c.SourceID),
		Index:          c.Index,
		Text:           c.Text,
		Embedding:      firestore.Vector32(c.Embedding),
		EmbeddingModel: c.EmbeddingModel,
		PatientName:    c.Metadata.PatientName,
		Date:           c.Metadata.Date,
		Age:            toAge(c.Metadata.Age),
		Symptoms:       c.Metadata.Symptoms,
	}
}

func docToChunk(doc *firestore.DocumentSnapshot) (*model.Chunk, error) {
	var d chunkDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, err
	}
	return &model.Chunk{
		ID:             model.ChunkID(d.ID),
		SourceID:       model.SourceID(d.SourceID),
		Index:          d.Index,
		Text:           d.Text,
		Embedding:      []float32(d.Embedding),
		EmbeddingModel: d.EmbeddingModel,
		Metadata: model.Metadata{
			PatientName: d.PatientName,
			Date:        d.Date,
			Age:         fromAge(d.Age),
			Symptoms:    d.Symptoms,
		},
	}, nil
}

type chunkRepository struct {
	client *firestore.Client
	names  collectionNames
}

func (r *chunkRepository) chunks() *firestore.CollectionRef {
	return r.client.Collection(r.names.name(CollectionChunks))
}

func (r *chunkRepository) ListBySourceID(ctx context.Context, sourceID model.SourceID) ([]*model.Chunk, error) {
	iter := r.chunks().Where("SourceID", "==", string(sourceID)).Documents(ctx)
	defer iter.Stop()

	chunks := make([]*model.Chunk, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate chunks", goerr.V("source_id", sourceID))
		}
		c, err := docToChunk(doc)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal chunk", goerr.V("doc_id", doc.Ref.ID))
		}
		chunks = append(chunks, c)
	}

	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })
	return chunks, nil
}

// filterQuery builds the pre-filter for vector search. The composite
// indexes it needs are declared by the migrate command.
func filterQuery(base firestore.Query, embeddingModel string, c model.Conditions) firestore.Query {
	filters := []firestore.EntityFilter{
		firestore.PropertyFilter{Path: EmbeddingModelField, Operator: "==", Value: embeddingModel},
	}
	if c.PatientName != nil {
		filters = append(filters, firestore.PropertyFilter{Path: "PatientName", Operator: "==", Value: *c.PatientName})
	}
	if c.DateFrom != "" {
		filters = append(filters, firestore.PropertyFilter{Path: "Date", Operator: ">=", Value: c.DateFrom})
	}
	if c.DateTo != "" {
		filters = append(filters, firestore.PropertyFilter{Path: "Date", Operator: "<=", Value: c.DateTo})
	}
	if c.RequireAge {
		// Documents without Age never satisfy an inequality, which matches
		// the unknown-age rule. A bound is always present here.
		lo, hi := 0, maxAgeBound
		if c.AgeMin != nil {
			lo = *c.AgeMin
		}
		if c.AgeMax != nil {
			hi = *c.AgeMax
		}
		filters = append(filters,
			firestore.PropertyFilter{Path: "Age", Operator: ">=", Value: int64(lo)},
			firestore.PropertyFilter{Path: "Age", Operator: "<=", Value: int64(hi)},
		)
	}

	if len(filters) == 1 {
		return base.WhereEntity(filters[0])
	}
	return base.WhereEntity(firestore.AndFilter{Filters: filters})
}

// maxAgeBound closes an open-ended age range
const maxAgeBound = 1 << 30

func (r *chunkRepository) FindNearest(ctx context.Context, q model.VectorQuery) ([]*model.ScoredChunk, error) {
	cond := model.Flatten(q.Filter)
	if q.K <= 0 || cond.Impossible {
		return []*model.ScoredChunk{}, nil
	}

	vq := filterQuery(r.chunks().Query, q.EmbeddingModel, cond).
		FindNearest(EmbeddingField, firestore.Vector32(q.Vector), q.K, firestore.DistanceMeasureCosine,
			&firestore.FindNearestOptions{DistanceResultField: distanceField})

	iter := vq.Documents(ctx)
	defer iter.Stop()

	hits := make([]*model.ScoredChunk, 0, q.K)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate vector search results")
		}

		c, err := docToChunk(doc)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal chunk from vector search", goerr.V("doc_id", doc.Ref.ID))
		}

		score := model.CosineSimilarity(q.Vector, c.Embedding)
		if v, err := doc.DataAt(distanceField); err == nil {
			if distance, ok := v.(float64); ok {
				score = 1 - distance
			}
		}
		hits = append(hits, &model.ScoredChunk{Chunk: c, Score: score})
	}

	return model.TopK(hits, q.K), nil
}
