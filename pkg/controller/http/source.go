package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/model"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/usecase"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/utils/errutil"
	"github.com/m-mizutani/goerr/v2"
)

type metadataResponse struct {
	PatientName string   `json:"patient_name"`
	Date        string   `json:"date"`
	Age         *int     `json:"age"`
	Symptoms    []string `json:"symptoms"`
}

type sourceResponse struct {
	ID             model.SourceID   `json:"id"`
	OriginType     model.OriginType `json:"origin_type"`
	Filename       string           `json:"filename,omitempty"`
	Metadata       metadataResponse `json:"metadata"`
	ChunkCount     int              `json:"chunk_count"`
	EmbeddingModel string           `json:"embedding_model"`
	RawURI         string           `json:"raw_uri,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

type chunkResponse struct {
	ID    model.ChunkID `json:"id"`
	Index int           `json:"index"`
	Text  string        `json:"text"`
}

type sourceDetailResponse struct {
	sourceResponse
	RawText string          `json:"raw_text"`
	Chunks  []chunkResponse `json:"chunks"`
}

type listSourcesResponse struct {
	Sources []sourceResponse `json:"sources"`
	Total   int              `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

func toSourceResponse(src *model.SourceDocument) sourceResponse {
	symptoms := src.Metadata.Symptoms
	if symptoms == nil {
		symptoms = []string{}
	}
	return sourceResponse{
		ID:         src.ID,
		OriginType: src.OriginType,
		Filename:   src.Filename,
		Metadata: metadataResponse{
			PatientName: src.Metadata.PatientName,
			Date:        src.Metadata.Date,
			Age:         src.Metadata.Age,
			Symptoms:    symptoms,
		},
		ChunkCount:     src.ChunkCount,
		EmbeddingModel: src.EmbeddingModel,
		RawURI:         src.RawURI,
		CreatedAt:      src.CreatedAt,
	}
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, goerr.Wrap(model.ErrValidation, "query parameter must be an integer", goerr.V("key", key), goerr.V("value", v))
	}
	return n, nil
}

func (s *Server) listSourcesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, err := queryInt(r, "limit")
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, 0)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, 0)
		return
	}

	if limit == 0 {
		limit = usecase.DefaultListLimit
	}

	sources, total, err := s.uc.Source.List(ctx, limit, offset)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, 0)
		return
	}

	resp := listSourcesResponse{
		Sources: make([]sourceResponse, len(sources)),
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	}
	for i, src := range sources {
		resp.Sources[i] = toSourceResponse(src)
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) getSourceHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := model.SourceID(chi.URLParam(r, "id"))

	detail, err := s.uc.Source.Get(ctx, id)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, 0)
		return
	}

	resp := sourceDetailResponse{
		sourceResponse: toSourceResponse(detail.Source),
		RawText:        detail.Source.RawText,
		Chunks:         make([]chunkResponse, len(detail.Chunks)),
	}
	for i, c := range detail.Chunks {
		resp.Chunks[i] = chunkResponse{ID: c.ID, Index: c.Index, Text: c.Text}
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) deleteSourceHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := model.SourceID(chi.URLParam(r, "id"))

	if err := s.uc.Source.Delete(ctx, id); err != nil {
		errutil.HandleHTTP(ctx, w, err, 0)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
