package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// sourceDoc is the Firestore document representation of model.SourceDocument
type sourceDoc struct {
	ID             string    `firestore:"ID"`
	OriginType     string    `firestore:"OriginType"`
	RawText        string    `firestore:"RawText"`
	PatientName    string    `firestore:"PatientName"`
	Date           string    `firestore:"Date"`
	Age            *int64    `firestore:"Age,omitempty"`
	Symptoms       []string  `firestore:"Symptoms,omitempty"`
	ChunkCount     int       `firestore:"ChunkCount"`
	EmbeddingModel string    `firestore:"EmbeddingModel"`
	Filename       string    `firestore:"Filename,omitempty"`
	RawURI         string    `firestore:"RawURI,omitempty"`
	CreatedAt      time.Time `firestore:"CreatedAt"`
}

func toAge(age *int) *int64 {
	if age == nil {
		return nil
	}
	v := int64(*age)
	return &v
}

func fromAge(age *int64) *int {
	if age == nil {
		return nil
	}
	v := int(*age)
	return &v
}

func toSourceDoc(s *model.SourceDocument) *sourceDoc {
	return &sourceDoc{
		ID:             string(s.ID),
		OriginType:     string(s.OriginType),
		RawText:        s.RawText,
		PatientName:    s.Metadata.PatientName,
		Date:           s.Metadata.Date,
		Age:            toAge(s.Metadata.Age),
		Symptoms:       s.Metadata.Symptoms,
		ChunkCount:     s.ChunkCount,
		EmbeddingModel: s.EmbeddingModel,
		Filename:       s.Filename,
		RawURI:         s.RawURI,
		CreatedAt:      s.CreatedAt,
	}
}

func docToSource(doc *firestore.DocumentSnapshot) (*model.SourceDocument, error) {
	var d sourceDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, err
	}
	return &model.SourceDocument{
		ID:         model.SourceID(d.ID),
		OriginType: model.OriginType(d.OriginType),
		RawText:    d.RawText,
		Metadata: model.Metadata{
			PatientName: d.PatientName,
			Date:        d.Date,
			Age:         fromAge(d.Age),
			Symptoms:    d.Symptoms,
		},
		ChunkCount:     d.ChunkCount,
		EmbeddingModel: d.EmbeddingModel,
		Filename:       d.Filename,
		RawURI:         d.RawURI,
		CreatedAt:      d.CreatedAt.UTC(),
	}, nil
}

type sourceRepository struct {
	client *firestore.Client
	names  collectionNames
}

func (r *sourceRepository) sources() *firestore.CollectionRef {
	return r.client.Collection(r.names.name(CollectionSources))
}

func (r *sourceRepository) chunks() *firestore.CollectionRef {
	return r.client.Collection(r.names.name(CollectionChunks))
}

func (r *sourceRepository) Commit(ctx context.Context, source *model.SourceDocument, chunks []*model.Chunk) error {
	if source.ID == "" {
		return goerr.Wrap(model.ErrValidation, "source ID is required")
	}
	if len(chunks)+1 > maxTransactionWrites {
		return goerr.Wrap(model.ErrValidation, "too many chunks for one transaction",
			goerr.V("source_id", source.ID), goerr.V("chunks", len(chunks)))
	}
	for _, c := range chunks {
		if c.SourceID != source.ID {
			return goerr.Wrap(model.ErrValidation, "chunk belongs to another source",
				goerr.V("source_id", source.ID), goerr.V("chunk_id", c.ID))
		}
	}

	stored := *source
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(r.sources().Doc(string(stored.ID)), toSourceDoc(&stored)); err != nil {
			return goerr.Wrap(err, "failed to create source")
		}
		for _, c := range chunks {
			if err := tx.Create(r.chunks().Doc(string(c.ID)), toChunkDoc(c)); err != nil {
				return goerr.Wrap(err, "failed to create chunk", goerr.V("chunk_id", c.ID))
			}
		}
		return nil
	})
	if err != nil {
		return goerr.Wrap(err, "failed to commit source", goerr.V("source_id", source.ID))
	}
	return nil
}

func (r *sourceRepository) Get(ctx context.Context, id model.SourceID) (*model.SourceDocument, error) {
	doc, err := r.sources().Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrNotFound, "source not found", goerr.V("source_id", id))
		}
		return nil, goerr.Wrap(err, "failed to get source", goerr.V("source_id", id))
	}

	s, err := docToSource(doc)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal source", goerr.V("source_id", id))
	}
	return s, nil
}

func (r *sourceRepository) List(ctx context.Context, limit, offset int) ([]*model.SourceDocument, int, error) {
	refs, err := r.sources().Select().Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, goerr.Wrap(err, "failed to count sources")
	}
	total := len(refs)

	query := r.sources().OrderBy("CreatedAt", firestore.Desc).Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	sources := make([]*model.SourceDocument, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, 0, goerr.Wrap(err, "failed to iterate sources")
		}
		s, err := docToSource(doc)
		if err != nil {
			return nil, 0, goerr.Wrap(err, "failed to unmarshal source", goerr.V("doc_id", doc.Ref.ID))
		}
		sources = append(sources, s)
	}
	return sources, total, nil
}

func (r *sourceRepository) Delete(ctx context.Context, id model.SourceID) error {
	sourceRef := r.sources().Doc(string(id))

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(sourceRef); err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(model.ErrNotFound, "source not found", goerr.V("source_id", id))
			}
			return goerr.Wrap(err, "failed to get source", goerr.V("source_id", id))
		}

		chunkDocs, err := tx.Documents(r.chunks().Where("SourceID", "==", string(id))).GetAll()
		if err != nil {
			return goerr.Wrap(err, "failed to list chunks", goerr.V("source_id", id))
		}

		for _, doc := range chunkDocs {
			if err := tx.Delete(doc.Ref); err != nil {
				return goerr.Wrap(err, "failed to delete chunk", goerr.V("chunk_id", doc.Ref.ID))
			}
		}
		return tx.Delete(sourceRef)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to delete source", goerr.V("source_id", id))
	}
	return nil
}
