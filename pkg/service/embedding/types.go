package embedding

import "context"

// Service turns texts into embedding vectors with one fixed model
type Service interface {
	// Embed returns one vector per input text, in input order. Any failed
	// batch fails the whole call with model.ErrUpstream.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// ModelID identifies the model and dimension. Chunks embedded under a
	// different identity are never compared with this service's vectors.
	ModelID() string

	Dimension() int
}
