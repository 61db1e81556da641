package extract_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/model"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/service/extract"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"
)

func intPtr(v int) *int { return &v }

var ingestedAt = time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

func TestExtractByRules(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		wantName string
		wantDate string
		wantAge  *int
		symptoms []string
	}{
		{
			name:     "labeled fields",
			text:     "Paciente: Juan Pérez, edad 40, fecha 2025-07-10. Refiere fiebre y tos.",
			wantName: "Juan Pérez",
			wantDate: "2025-07-10",
			wantAge:  intPtr(40),
			symptoms: []string{"fiebre", "tos"},
		},
		{
			name:     "lower case name with stop word",
			text:     "nombre - maría lópez edad: 33 fecha: 05/07/2025",
			wantName: "María López",
			wantDate: "2025-07-05",
			wantAge:  intPtr(33),
		},
		{
			name:     "spanish long date and years",
			text:     "La paciente se llama Ana Ruiz, tiene 72 años. Consulta del 10 de julio de 2025 por dolor de cabeza.",
			wantName: "Ana Ruiz",
			wantDate: "2025-07-10",
			wantAge:  intPtr(72),
			symptoms: []string{"dolor de cabeza"},
		},
		{
			name:     "nothing resolvable",
			text:     "Consulta general sin datos de identificación. Síntomas desde hace 3 años.",
			wantName: model.UnknownPatient,
			wantDate: "2025-08-01",
		},
		{
			name:     "invalid calendar date is ignored",
			text:     "Paciente: Luis Gómez. Fecha: 2025-02-30. Control 2025-03-01.",
			wantName: "Luis Gómez",
			wantDate: "2025-03-01",
		},
		{
			name:     "out of range age is ignored",
			text:     "Paciente: Luis Gómez, edad: 200",
			wantName: "Luis Gómez",
			wantDate: "2025-08-01",
		},
		{
			name:     "symptom inside another word does not match",
			text:     "Se revisaron los costos del tratamiento.",
			wantName: model.UnknownPatient,
			wantDate: "2025-08-01",
		},
	}

	svc := extract.New()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			md := svc.Extract(context.Background(), tc.text, ingestedAt)
			gt.Value(t, md.PatientName).Equal(tc.wantName)
			gt.Value(t, md.Date).Equal(tc.wantDate)
			if tc.wantAge == nil {
				gt.Value(t, md.Age).Nil()
			} else {
				gt.Value(t, md.Age).NotNil()
				gt.Value(t, *md.Age).Equal(*tc.wantAge)
			}
			gt.Number(t, len(md.Symptoms)).Equal(len(tc.symptoms))
			for i, s := range tc.symptoms {
				gt.Value(t, md.Symptoms[i]).Equal(s)
			}
		})
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	svc := extract.New()
	text := "Paciente: Juan Pérez, edad 40. Presenta fiebre, náusea y congestión el 10 de julio de 2025."

	first := svc.Extract(context.Background(), text, ingestedAt)
	second := svc.Extract(context.Background(), text, ingestedAt)
	gt.Bool(t, first.Equal(second)).True()

	// normalizing a name twice changes nothing
	gt.Value(t, model.NormalizePatientName(first.PatientName)).Equal(first.PatientName)
}

func TestExtractCustomLexicon(t *testing.T) {
	svc := extract.New(extract.WithSymptoms([]string{"mareo"}))
	md := svc.Extract(context.Background(), "Refiere mareo y fiebre", ingestedAt)
	gt.Array(t, md.Symptoms).Length(1)
	gt.Value(t, md.Symptoms[0]).Equal("mareo")
}

// mockLLMSession is a mock gollem Session for testing
type mockLLMSession struct {
	generateFn func(ctx context.Context, input []gollem.Input) (*gollem.Response, error)
}

func (s *mockLLMSession) Generate(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (*gollem.Response, error) {
	return s.generateFn(ctx, input)
}

func (s *mockLLMSession) Stream(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockLLMSession) GenerateContent(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
	return s.Generate(ctx, input)
}

func (s *mockLLMSession) GenerateStream(ctx context.Context, input ...gollem.Input) (<-chan *gollem.Response, error) {
	return s.Stream(ctx, input)
}

func (s *mockLLMSession) History() (*gollem.History, error) {
	return nil, nil
}

func (s *mockLLMSession) AppendHistory(*gollem.History) error {
	return nil
}

func (s *mockLLMSession) CountToken(ctx context.Context, input ...gollem.Input) (int, error) {
	return 0, nil
}

// mockLLMClient is a mock gollem LLMClient for testing
type mockLLMClient struct {
	session *mockLLMSession
	err     error
}

func (c *mockLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.session, nil
}

func (c *mockLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	return nil, nil
}

func respondWith(text string) *mockLLMClient {
	return &mockLLMClient{session: &mockLLMSession{
		generateFn: func(ctx context.Context, input []gollem.Input) (*gollem.Response, error) {
			return &gollem.Response{Texts: []string{text}}, nil
		},
	}}
}

func TestExtractWithLLM(t *testing.T) {
	text := "Paciente: Juan Pérez, edad 40. Refiere tos."

	t.Run("model output fills and overrides fields", func(t *testing.T) {
		llm := respondWith(`{"patient_name":"juan pérez gómez","age":41,"date":"2025-07-10","symptoms":["tos","fatiga"]}`)
		md := extract.New(extract.WithLLM(llm, time.Second)).Extract(context.Background(), text, ingestedAt)

		gt.Value(t, md.PatientName).Equal("Juan Pérez Gómez")
		gt.Value(t, *md.Age).Equal(41)
		gt.Value(t, md.Date).Equal("2025-07-10")
		gt.Array(t, md.Symptoms).Length(2)
	})

	t.Run("empty model fields keep rule results", func(t *testing.T) {
		llm := respondWith(`{"patient_name":"","age":null,"date":"10/07/2025","symptoms":[]}`)
		md := extract.New(extract.WithLLM(llm, time.Second)).Extract(context.Background(), text, ingestedAt)

		gt.Value(t, md.PatientName).Equal("Juan Pérez")
		gt.Value(t, *md.Age).Equal(40)
		gt.Value(t, md.Date).Equal("2025-08-01")
		gt.Array(t, md.Symptoms).Length(1)
	})

	t.Run("model failure falls back to rules", func(t *testing.T) {
		rules := extract.New().Extract(context.Background(), text, ingestedAt)

		for _, llm := range []*mockLLMClient{
			{err: errors.New("quota exceeded")},
			respondWith("not json"),
		} {
			md := extract.New(extract.WithLLM(llm, time.Second)).Extract(context.Background(), text, ingestedAt)
			gt.Bool(t, md.Equal(rules)).True()
		}
	})
}

func TestResponseSchema(t *testing.T) {
	schema := extract.ResponseSchema()
	gt.NoError(t, schema.Validate())

	for _, name := range []string{"patient_name", "date", "symptoms"} {
		prop, ok := schema.Properties[name]
		gt.True(t, ok)
		gt.True(t, prop.Required)
	}
	gt.False(t, schema.Properties["age"].Required)
}
