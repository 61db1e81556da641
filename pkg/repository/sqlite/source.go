package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

type sourceRepository struct {
	db *sql.DB
}

const sourceColumns = `id, origin_type, raw_text, patient_name, date, age, symptoms, chunk_count, embedding_model, filename, raw_uri, created_at`

func encodeSymptoms(symptoms []string) (string, error) {
	if symptoms == nil {
		symptoms = []string{}
	}
	raw, err := json.Marshal(symptoms)
	if err != nil {
		return "", goerr.Wrap(err, "failed to encode symptoms")
	}
	return string(raw), nil
}

func decodeSymptoms(raw string) ([]string, error) {
	var symptoms []string
	if err := json.Unmarshal([]byte(raw), &symptoms); err != nil {
		return nil, goerr.Wrap(err, "failed to decode symptoms")
	}
	if len(symptoms) == 0 {
		return nil, nil
	}
	return symptoms, nil
}

func ageValue(age *int) sql.NullInt64 {
	if age == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*age), Valid: true}
}

func agePtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	age := int(v.Int64)
	return &age
}

func (r *sourceRepository) Commit(ctx context.Context, source *model.SourceDocument, chunks []*model.Chunk) error {
	if source.ID == "" {
		return goerr.Wrap(model.ErrValidation, "source ID is required")
	}
	createdAt := source.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	symptoms, err := encodeSymptoms(source.Metadata.Symptoms)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction", goerr.V("source_id", source.ID))
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO sources (`+sourceColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(source.ID), string(source.OriginType), source.RawText,
		source.Metadata.PatientName, source.Metadata.Date, ageValue(source.Metadata.Age), symptoms,
		source.ChunkCount, source.EmbeddingModel, source.Filename, source.RawURI, createdAt.UnixNano(),
	); err != nil {
		return goerr.Wrap(err, "failed to insert source", goerr.V("source_id", source.ID))
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks
		(id, source_id, idx, text, embedding, embedding_model, patient_name, date, age, symptoms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return goerr.Wrap(err, "failed to prepare chunk insert")
	}
	defer func() { _ = stmt.Close() }()

	for _, c := range chunks {
		if c.SourceID != source.ID {
			return goerr.Wrap(model.ErrValidation, "chunk belongs to another source",
				goerr.V("source_id", source.ID), goerr.V("chunk_id", c.ID))
		}
		chunkSymptoms, err := encodeSymptoms(c.Metadata.Symptoms)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			string(c.ID), string(c.SourceID), c.Index, c.Text, encodeVector(c.Embedding), c.EmbeddingModel,
			c.Metadata.PatientName, c.Metadata.Date, ageValue(c.Metadata.Age), chunkSymptoms,
		); err != nil {
			return goerr.Wrap(err, "failed to insert chunk", goerr.V("chunk_id", c.ID))
		}
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit source", goerr.V("source_id", source.ID))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (*model.SourceDocument, error) {
	var (
		s         model.SourceDocument
		id        string
		origin    string
		age       sql.NullInt64
		symptoms  string
		createdAt int64
	)
	if err := row.Scan(&id, &origin, &s.RawText, &s.Metadata.PatientName, &s.Metadata.Date, &age, &symptoms,
		&s.ChunkCount, &s.EmbeddingModel, &s.Filename, &s.RawURI, &createdAt); err != nil {
		return nil, err
	}

	decoded, err := decodeSymptoms(symptoms)
	if err != nil {
		return nil, err
	}
	s.ID = model.SourceID(id)
	s.OriginType = model.OriginType(origin)
	s.Metadata.Age = agePtr(age)
	s.Metadata.Symptoms = decoded
	s.CreatedAt = time.Unix(0, createdAt).UTC()
	return &s, nil
}

func (r *sourceRepository) Get(ctx context.Context, id model.SourceID) (*model.SourceDocument, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sourceColumns+` FROM sources WHERE id = ?`, string(id))
	s, err := scanSource(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(model.ErrNotFound, "source not found", goerr.V("source_id", id))
		}
		return nil, goerr.Wrap(err, "failed to get source", goerr.V("source_id", id))
	}
	return s, nil
}

func (r *sourceRepository) List(ctx context.Context, limit, offset int) ([]*model.SourceDocument, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sources`).Scan(&total); err != nil {
		return nil, 0, goerr.Wrap(err, "failed to count sources")
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sourceColumns+` FROM sources ORDER BY created_at DESC, id ASC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, goerr.Wrap(err, "failed to list sources")
	}
	defer func() { _ = rows.Close() }()

	sources := make([]*model.SourceDocument, 0)
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, 0, goerr.Wrap(err, "failed to scan source")
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, goerr.Wrap(err, "failed to iterate sources")
	}
	return sources, total, nil
}

func (r *sourceRepository) Delete(ctx context.Context, id model.SourceID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction", goerr.V("source_id", id))
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE source_id = ?`, string(id)); err != nil {
		return goerr.Wrap(err, "failed to delete chunks", goerr.V("source_id", id))
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, string(id))
	if err != nil {
		return goerr.Wrap(err, "failed to delete source", goerr.V("source_id", id))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return goerr.Wrap(err, "failed to get affected rows", goerr.V("source_id", id))
	}
	if n == 0 {
		return goerr.Wrap(model.ErrNotFound, "source not found", goerr.V("source_id", id))
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit delete", goerr.V("source_id", id))
	}
	return nil
}
