package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

type chunkRepository struct {
	db *sql.DB
}

const chunkColumns = `id, source_id, idx, text, embedding, embedding_model, patient_name, date, age, symptoms`

func scanChunk(row rowScanner) (*model.Chunk, error) {
	var (
		c         model.Chunk
		id        string
		sourceID  string
		embedding []byte
		age       sql.NullInt64
		symptoms  string
	)
	if err := row.Scan(&id, &sourceID, &c.Index, &c.Text, &embedding, &c.EmbeddingModel,
		&c.Metadata.PatientName, &c.Metadata.Date, &age, &symptoms); err != nil {
		return nil, err
	}
	decoded, err := decodeSymptoms(symptoms)
	if err != nil {
		return nil, err
	}

	c.ID = model.ChunkID(id)
	c.SourceID = model.SourceID(sourceID)
	c.Embedding = decodeVector(embedding)
	c.Metadata.Age = agePtr(age)
	c.Metadata.Symptoms = decoded
	return &c, nil
}

func (r *chunkRepository) ListBySourceID(ctx context.Context, sourceID model.SourceID) ([]*model.Chunk, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks WHERE source_id = ? ORDER BY idx`, string(sourceID))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list chunks", goerr.V("source_id", sourceID))
	}
	defer func() { _ = rows.Close() }()

	chunks := make([]*model.Chunk, 0)
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan chunk", goerr.V("source_id", sourceID))
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate chunks", goerr.V("source_id", sourceID))
	}
	return chunks, nil
}

// buildWhere translates flattened filter conditions into a WHERE clause
func buildWhere(embeddingModel string, c model.Conditions) (string, []any) {
	clauses := []string{"embedding_model = ?"}
	args := []any{embeddingModel}

	if c.PatientName != nil {
		clauses = append(clauses, "patient_name = ?")
		args = append(args, *c.PatientName)
	}
	if c.DateFrom != "" {
		clauses = append(clauses, "date >= ?")
		args = append(args, c.DateFrom)
	}
	if c.DateTo != "" {
		clauses = append(clauses, "date <= ?")
		args = append(args, c.DateTo)
	}
	if c.RequireAge {
		clauses = append(clauses, "age IS NOT NULL")
		if c.AgeMin != nil {
			clauses = append(clauses, "age >= ?")
			args = append(args, *c.AgeMin)
		}
		if c.AgeMax != nil {
			clauses = append(clauses, "age <= ?")
			args = append(args, *c.AgeMax)
		}
	}

	return strings.Join(clauses, " AND "), args
}

// FindNearest pushes the filter down to SQL and scores the candidates in
// process with cosine similarity.
func (r *chunkRepository) FindNearest(ctx context.Context, q model.VectorQuery) ([]*model.ScoredChunk, error) {
	cond := model.Flatten(q.Filter)
	if q.K <= 0 || cond.Impossible {
		return []*model.ScoredChunk{}, nil
	}

	where, args := buildWhere(q.EmbeddingModel, cond)
	rows, err := r.db.QueryContext(ctx, `SELECT `+chunkColumns+` FROM chunks WHERE `+where, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query chunks", goerr.V("where", where))
	}
	defer func() { _ = rows.Close() }()

	hits := make([]*model.ScoredChunk, 0)
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan chunk")
		}
		if len(c.Embedding) != len(q.Vector) {
			continue
		}
		hits = append(hits, &model.ScoredChunk{
			Chunk: c,
			Score: model.CosineSimilarity(q.Vector, c.Embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate chunks")
	}

	return model.TopK(hits, q.K), nil
}
