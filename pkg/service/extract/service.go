package extract

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/model"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
)

const DefaultLLMTimeout = 60 * time.Second

// client implements Service with pattern rules and, optionally, a language model
type client struct {
	symptoms   []string
	llmClient  gollem.LLMClient
	llmTimeout time.Duration
}

// Option is a functional option for client configuration
type Option func(*client)

// WithSymptoms replaces the symptom lexicon
func WithSymptoms(symptoms []string) Option {
	return func(c *client) {
		if len(symptoms) > 0 {
			c.symptoms = symptoms
		}
	}
}

// WithLLM enables model-based extraction. Rule-based results fill every field
// the model leaves empty, and any model failure falls back to the rules.
func WithLLM(llmClient gollem.LLMClient, timeout time.Duration) Option {
	return func(c *client) {
		c.llmClient = llmClient
		if timeout > 0 {
			c.llmTimeout = timeout
		}
	}
}

// New creates a metadata extraction service
func New(opts ...Option) Service {
	c := &client{
		symptoms:   DefaultSymptoms,
		llmTimeout: DefaultLLMTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *client) Extract(ctx context.Context, text string, ingestedAt time.Time) model.Metadata {
	md := c.extractByRules(text, ingestedAt)
	if c.llmClient == nil {
		return md
	}

	resp, err := c.extractByLLM(ctx, text)
	if err != nil {
		logging.From(ctx).Warn("LLM metadata extraction failed, using rule-based result", "error", err)
		return md
	}
	return merge(md, resp)
}

func (c *client) extractByRules(text string, ingestedAt time.Time) model.Metadata {
	md := model.Metadata{
		PatientName: extractName(text),
		Date:        extractDate(text),
		Age:         extractAge(text),
		Symptoms:    extractSymptoms(text, c.symptoms),
	}
	if md.Date == "" {
		md.Date = model.IngestionDate(ingestedAt)
	}
	return md
}

// merge lets valid model output override rule results field by field
func merge(md model.Metadata, resp *llmResponse) model.Metadata {
	if name := strings.TrimSpace(resp.PatientName); name != "" {
		if normalized := model.NormalizePatientName(name); normalized != model.UnknownPatient {
			md.PatientName = normalized
		}
	}
	if model.IsValidDate(resp.Date) {
		md.Date = resp.Date
	}
	if resp.Age != nil && *resp.Age >= 0 && *resp.Age <= maxAge {
		age := *resp.Age
		md.Age = &age
	}
	if len(resp.Symptoms) > 0 {
		seen := make(map[string]bool)
		var symptoms []string
		for _, s := range append(append([]string{}, md.Symptoms...), resp.Symptoms...) {
			s = strings.ToLower(strings.TrimSpace(s))
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			symptoms = append(symptoms, s)
		}
		md.Symptoms = symptoms
	}
	return md
}

func (c *client) extractByLLM(ctx context.Context, text string) (*llmResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.llmTimeout)
	defer cancel()

	session, err := c.llmClient.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionResponseSchema(responseSchema()),
		gollem.WithSessionSystemPrompt(systemPrompt),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create LLM session")
	}

	resp, err := session.Generate(ctx, []gollem.Input{gollem.Text(text)})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate content from LLM")
	}
	if resp == nil || len(resp.Texts) == 0 {
		return nil, goerr.New("empty LLM response")
	}

	var out llmResponse
	if err := json.Unmarshal([]byte(resp.Texts[0]), &out); err != nil {
		return nil, goerr.Wrap(err, "failed to parse LLM response", goerr.V("response", resp.Texts[0]))
	}
	return &out, nil
}

const systemPrompt = `Eres un extractor de información clínica. A partir del texto de una consulta médica devuelve SOLO JSON con las claves:
- patient_name: nombre completo del paciente, o "" si no aparece
- age: edad en años como entero, o null si no aparece
- date: fecha de la consulta en formato YYYY-MM-DD, o "" si no aparece
- symptoms: lista de síntomas mencionados en minúsculas
No inventes datos que no estén en el texto.`

func responseSchema() *gollem.Parameter {
	return &gollem.Parameter{
		Title:       "ClinicalMetadata",
		Description: "Structured metadata extracted from a clinical text",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"patient_name": {
				Type:        gollem.TypeString,
				Description: "Full name of the patient, empty if absent",
				Required:    true,
			},
			"age": {
				Type:        gollem.TypeInteger,
				Description: "Age in years, null if absent",
			},
			"date": {
				Type:        gollem.TypeString,
				Description: "Consultation date as YYYY-MM-DD, empty if absent",
				Required:    true,
			},
			"symptoms": {
				Type:        gollem.TypeArray,
				Description: "Symptoms mentioned in the text",
				Required:    true,
				Items:       &gollem.Parameter{Type: gollem.TypeString},
			},
		},
	}
}
