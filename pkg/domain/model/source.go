package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// SourceID identifies one ingestion. A fresh UUID v4 is generated per call.
type SourceID string

// NewSourceID generates a new UUID v4 SourceID
func NewSourceID() SourceID {
	return SourceID(uuid.New().String())
}

func (x SourceID) String() string { return string(x) }

// OriginType tells where the raw text came from
type OriginType string

const (
	OriginAudio    OriginType = "audio"
	OriginDocument OriginType = "document"
)

// Validate checks that the origin type is one of the known values
func (x OriginType) Validate() error {
	switch x {
	case OriginAudio, OriginDocument:
		return nil
	default:
		return goerr.Wrap(ErrValidation, "unknown origin type", goerr.V("origin_type", string(x)))
	}
}

// SourceDocument is an ingested text. It is immutable; corrections are made by
// ingesting again under a new SourceID.
type SourceDocument struct {
	ID             SourceID
	OriginType     OriginType
	RawText        string
	Metadata       Metadata
	ChunkCount     int
	EmbeddingModel string
	Filename       string // original upload name, if any
	RawURI         string // archived upload location, if any
	CreatedAt      time.Time
}
