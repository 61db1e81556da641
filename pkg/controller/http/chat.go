package http

import (
	"encoding/json"
	"net/http"

	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/model"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/usecase"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/utils/errutil"
	"github.com/m-mizutani/goerr/v2"
)

type chatRequest struct {
	Query   string          `json:"query"`
	Filters json.RawMessage `json:"filters,omitempty"`
	K       *int            `json:"k,omitempty"`
}

type chatResponse struct {
	Answer    string           `json:"answer"`
	Citations []model.SourceID `json:"citations"`
	Status    model.ChatStatus `json:"status"`
}

func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req chatRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		errutil.HandleHTTP(ctx, w, err, 0)
		return
	}

	filter, err := model.ParseFilter(req.Filters)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, 0)
		return
	}

	var k int
	if req.K != nil {
		if *req.K <= 0 {
			errutil.HandleHTTP(ctx, w, goerr.Wrap(model.ErrValidation, "k must be positive", goerr.V("k", *req.K)), 0)
			return
		}
		k = *req.K
	}

	result, err := s.uc.Chat.Chat(ctx, usecase.ChatInput{
		Query:  req.Query,
		Filter: filter,
		K:      k,
	})
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, 0)
		return
	}

	writeJSON(w, r, http.StatusOK, chatResponse{
		Answer:    result.Answer,
		Citations: result.Citations,
		Status:    result.Status,
	})
}
