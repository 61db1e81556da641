package extract

import (
	"context"
	"time"

	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/model"
)

// Service derives structured metadata from clinical text. It never fails:
// fields it cannot resolve fall back to their defaults.
type Service interface {
	Extract(ctx context.Context, text string, ingestedAt time.Time) model.Metadata
}

// DefaultSymptoms is the symptom lexicon matched against the text
var DefaultSymptoms = []string{
	"fiebre", "tos", "dolor de cabeza", "dolor de garganta", "dolor muscular",
	"fatiga", "náusea", "nausea", "vómito", "vomito", "diarrea",
	"dificultad para respirar", "disnea", "congestión", "congestion",
}

// llmResponse is the structured output requested from the language model
type llmResponse struct {
	PatientName string   `json:"patient_name"`
	Age         *int     `json:"age"`
	Date        string   `json:"date"`
	Symptoms    []string `json:"symptoms"`
}
