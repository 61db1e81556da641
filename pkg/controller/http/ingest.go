package http

import (
	"encoding/json"
	"net/http"

	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/model"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/usecase"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/utils/errutil"
	"github.com/m-mizutani/goerr/v2"
)

type ingestRequest struct {
	Text       string `json:"text"`
	OriginType string `json:"origin_type"`
	Filename   string `json:"filename,omitempty"`
}

type ingestResponse struct {
	OK            bool           `json:"ok"`
	SourceID      model.SourceID `json:"source_id"`
	ChunksIndexed int            `json:"chunks_indexed"`
}

// decodeJSONBody reads a JSON request body into v. Malformed bodies are
// validation errors.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return goerr.Wrap(model.ErrValidation, "invalid JSON body", goerr.V("error", err.Error()))
	}
	return nil
}

func (s *Server) ingestHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ingestRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		errutil.HandleHTTP(ctx, w, err, 0)
		return
	}

	result, err := s.uc.Ingest.Ingest(ctx, usecase.IngestInput{
		Text:       req.Text,
		OriginType: model.OriginType(req.OriginType),
		Filename:   req.Filename,
	})
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, 0)
		return
	}

	writeJSON(w, r, http.StatusCreated, ingestResponse{
		OK:            true,
		SourceID:      result.SourceID,
		ChunksIndexed: result.ChunksIndexed,
	})
}
