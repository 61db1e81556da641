package model_test

import (
	"errors"
	"testing"

	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/model"
	"github.com/m-mizutani/gt"
)

func TestNewSourceID(t *testing.T) {
	id1 := model.NewSourceID()
	id2 := model.NewSourceID()

	gt.Number(t, len(id1.String())).Equal(36)
	gt.Value(t, id1).NotEqual(id2)
}

func TestNewChunkID(t *testing.T) {
	gt.Value(t, model.NewChunkID("abc", 3)).Equal(model.ChunkID("abc::chunk3"))
}

func TestOriginTypeValidate(t *testing.T) {
	gt.NoError(t, model.OriginAudio.Validate())
	gt.NoError(t, model.OriginDocument.Validate())

	err := model.OriginType("video").Validate()
	gt.Bool(t, errors.Is(err, model.ErrValidation)).True()
}

func TestCopyChunk(t *testing.T) {
	age := 40
	c := &model.Chunk{
		ID:        "s::chunk0",
		Embedding: []float32{1, 2},
		Metadata:  model.Metadata{PatientName: "Juan Pérez", Age: &age, Symptoms: []string{"tos"}},
	}
	copied := model.CopyChunk(c)
	copied.Embedding[0] = 9
	*copied.Metadata.Age = 41
	copied.Metadata.Symptoms[0] = "fiebre"

	gt.Value(t, c.Embedding[0]).Equal(float32(1))
	gt.Value(t, *c.Metadata.Age).Equal(40)
	gt.Value(t, c.Metadata.Symptoms[0]).Equal("tos")
}
