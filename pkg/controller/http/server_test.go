package http_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	httpctrl "github.com/jacespedes2019/ElSol-Challenge/pkg/controller/http"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/repository/memory"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/usecase"
	"github.com/m-mizutani/gt"
)

func newTestServer(t *testing.T, llm *mockLLMClient, opts ...httpctrl.Options) *httpctrl.Server {
	t.Helper()
	var ucOpts []usecase.Option
	if llm != nil {
		ucOpts = append(ucOpts, usecase.WithLLM(llm))
	}
	uc := usecase.New(memory.New(), fakeEmbedder{}, ucOpts...)
	return httpctrl.New(uc, opts...)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(v)
	default:
		data, err := json.Marshal(v)
		gt.NoError(t, err).Required()
		r = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func doUpload(t *testing.T, h http.Handler, path, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	gt.NoError(t, err).Required()
	_, err = fw.Write(data)
	gt.NoError(t, err).Required()
	gt.NoError(t, mw.Close()).Required()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &v)).Required()
	return v
}

type ingestResp struct {
	OK            bool   `json:"ok"`
	SourceID      string `json:"source_id"`
	ChunksIndexed int    `json:"chunks_indexed"`
}

type chatResp struct {
	Answer    string   `json:"answer"`
	Citations []string `json:"citations"`
	Status    string   `json:"status"`
}

type listResp struct {
	Sources []map[string]any `json:"sources"`
	Total   int              `json:"total"`
	Limit   int              `json:"limit"`
}

type errorResp struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	Retryable bool   `json:"retryable"`
}

func ingest(t *testing.T, h http.Handler, text string) ingestResp {
	t.Helper()
	w := doJSON(t, h, http.MethodPost, "/ingest", map[string]string{"text": text, "origin_type": "audio"})
	gt.Value(t, w.Code).Equal(http.StatusCreated)
	return decode[ingestResp](t, w)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil, httpctrl.WithHealthInfo("repository", "memory"))
	w := doJSON(t, srv, http.MethodGet, "/health", nil)
	gt.Value(t, w.Code).Equal(http.StatusOK)

	resp := decode[map[string]string](t, w)
	gt.Value(t, resp["status"]).Equal("ok")
	gt.Value(t, resp["repository"]).Equal("memory")
}

func TestIngestAndChat(t *testing.T) {
	srv := newTestServer(t, &mockLLMClient{answer: "Juan Pérez tuvo fiebre alta."})

	july := ingest(t, srv, "Paciente: Juan Pérez, edad 40, fecha 2025-07-10. Fiebre alta y dolor de cabeza.")
	gt.Bool(t, july.OK).True()
	gt.Value(t, july.ChunksIndexed).Equal(1)
	ingest(t, srv, "Paciente: Juan Pérez, edad 40, fecha 2025-06-02. Control de presión arterial.")
	ingest(t, srv, "Paciente: María López, edad 33, fecha 2025-07-15. Fiebre y tos seca.")

	t.Run("operator filter", func(t *testing.T) {
		body := `{"query":"¿Qué tenía?","filters":{"$and":[{"patient_name":{"$eq":"Juan Pérez"}},{"date":{"$gte":"2025-07-01","$lte":"2025-07-31"}}]}}`
		w := doJSON(t, srv, http.MethodPost, "/chat", body)
		gt.Value(t, w.Code).Equal(http.StatusOK)

		resp := decode[chatResp](t, w)
		gt.Value(t, resp.Status).Equal("answered")
		gt.Value(t, resp.Answer).Equal("Juan Pérez tuvo fiebre alta.")
		gt.Value(t, resp.Citations).Equal([]string{july.SourceID})
	})

	t.Run("legacy date range and shorthand", func(t *testing.T) {
		body := `{"query":"fiebre","filters":{"patient_name":"juan pérez","date_range":["2025-07-01","2025-07-31"]},"k":3}`
		w := doJSON(t, srv, http.MethodPost, "/chat", body)
		gt.Value(t, w.Code).Equal(http.StatusOK)
		gt.Value(t, decode[chatResp](t, w).Citations).Equal([]string{july.SourceID})
	})

	t.Run("no match is not an error", func(t *testing.T) {
		body := `{"query":"fiebre","filters":{"patient_name":"Pedro Gómez"}}`
		w := doJSON(t, srv, http.MethodPost, "/chat", body)
		gt.Value(t, w.Code).Equal(http.StatusOK)

		resp := decode[chatResp](t, w)
		gt.Value(t, resp.Status).Equal("no_match")
		gt.Array(t, resp.Citations).Length(0)
	})

	t.Run("invalid requests", func(t *testing.T) {
		bodies := []string{
			`{"query":"fiebre","filters":{"diagnosis":"gripe"}}`,
			`{"query":"fiebre","filters":{"age":{"$gt":18}}}`,
			`{"query":"fiebre","filters":{"date":{"$gte":"julio"}}}`,
			`{"query":"fiebre","k":0}`,
			`{"query":""}`,
			`{"query":`,
		}
		for _, body := range bodies {
			w := doJSON(t, srv, http.MethodPost, "/chat", body)
			gt.Value(t, w.Code).Equal(http.StatusBadRequest)
			gt.Value(t, decode[errorResp](t, w).Kind).Equal("validation")
		}
	})
}

func TestChatUpstreamFailure(t *testing.T) {
	srv := newTestServer(t, &mockLLMClient{err: errors.New("rate limited")})
	ingest(t, srv, "Paciente: Ana Ruiz. Fiebre.")

	w := doJSON(t, srv, http.MethodPost, "/chat", map[string]string{"query": "fiebre"})
	gt.Value(t, w.Code).Equal(http.StatusBadGateway)

	resp := decode[errorResp](t, w)
	gt.Value(t, resp.Kind).Equal("upstream")
	gt.Bool(t, resp.Retryable).True()
}

func TestIngestValidation(t *testing.T) {
	srv := newTestServer(t, nil)

	w := doJSON(t, srv, http.MethodPost, "/ingest", map[string]string{"text": "  ", "origin_type": "audio"})
	gt.Value(t, w.Code).Equal(http.StatusBadRequest)

	w = doJSON(t, srv, http.MethodPost, "/ingest", map[string]string{"text": "hola", "origin_type": "fax"})
	gt.Value(t, w.Code).Equal(http.StatusBadRequest)

	w = doJSON(t, srv, http.MethodPost, "/ingest", "not json")
	gt.Value(t, w.Code).Equal(http.StatusBadRequest)
}

func TestUpload(t *testing.T) {
	t.Run("text document", func(t *testing.T) {
		srv := newTestServer(t, nil)
		w := doUpload(t, srv, "/upload_doc", "nota.txt", []byte("Paciente: Rosa Díaz. Dolor lumbar."))
		gt.Value(t, w.Code).Equal(http.StatusCreated)
		gt.Value(t, decode[ingestResp](t, w).ChunksIndexed).Equal(1)
	})

	t.Run("image document", func(t *testing.T) {
		srv := newTestServer(t, nil)
		w := doUpload(t, srv, "/upload_doc", "receta.png", []byte{0x89, 'P', 'N', 'G'})
		gt.Value(t, w.Code).Equal(http.StatusUnsupportedMediaType)
	})

	t.Run("document without text", func(t *testing.T) {
		srv := newTestServer(t, nil)
		w := doUpload(t, srv, "/upload_doc", "nota.txt", []byte("  ab "))
		gt.Value(t, w.Code).Equal(http.StatusBadRequest)
	})

	t.Run("audio without transcriber", func(t *testing.T) {
		srv := newTestServer(t, nil)
		w := doUpload(t, srv, "/upload_audio", "consulta.mp3", []byte("ID3"))
		gt.Value(t, w.Code).Equal(http.StatusServiceUnavailable)
	})

	t.Run("file too large", func(t *testing.T) {
		srv := newTestServer(t, nil, httpctrl.WithMaxUploadSize(16))
		w := doUpload(t, srv, "/upload_doc", "nota.txt", bytes.Repeat([]byte("a"), 64))
		gt.Value(t, w.Code).Equal(http.StatusRequestEntityTooLarge)
	})

	t.Run("missing file field", func(t *testing.T) {
		srv := newTestServer(t, nil)
		w := doJSON(t, srv, http.MethodPost, "/upload_doc", `{}`)
		gt.Value(t, w.Code).Equal(http.StatusBadRequest)
	})
}

func TestSources(t *testing.T) {
	srv := newTestServer(t, nil)
	first := ingest(t, srv, "Paciente: Juan Pérez, edad 40. Fiebre.")
	ingest(t, srv, "Paciente: María López. Tos.")

	t.Run("list", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodGet, "/sources?limit=1", nil)
		gt.Value(t, w.Code).Equal(http.StatusOK)

		resp := decode[listResp](t, w)
		gt.Value(t, resp.Total).Equal(2)
		gt.Value(t, resp.Limit).Equal(1)
		gt.Array(t, resp.Sources).Length(1)
	})

	t.Run("bad paging", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodGet, "/sources?limit=abc", nil)
		gt.Value(t, w.Code).Equal(http.StatusBadRequest)
	})

	t.Run("get", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodGet, "/sources/"+first.SourceID, nil)
		gt.Value(t, w.Code).Equal(http.StatusOK)

		var resp struct {
			ID       string `json:"id"`
			Metadata struct {
				PatientName string `json:"patient_name"`
				Age         *int   `json:"age"`
			} `json:"metadata"`
			Chunks []struct {
				ID string `json:"id"`
			} `json:"chunks"`
		}
		gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp)).Required()
		gt.Value(t, resp.ID).Equal(first.SourceID)
		gt.Value(t, resp.Metadata.PatientName).Equal("Juan Pérez")
		gt.Value(t, *resp.Metadata.Age).Equal(40)
		gt.Array(t, resp.Chunks).Length(first.ChunksIndexed)
	})

	t.Run("delete", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodDelete, "/sources/"+first.SourceID, nil)
		gt.Value(t, w.Code).Equal(http.StatusNoContent)

		w = doJSON(t, srv, http.MethodGet, "/sources/"+first.SourceID, nil)
		gt.Value(t, w.Code).Equal(http.StatusNotFound)

		w = doJSON(t, srv, http.MethodDelete, "/sources/"+first.SourceID, nil)
		gt.Value(t, w.Code).Equal(http.StatusNotFound)
	})
}
