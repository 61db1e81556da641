package errutil_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/model"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/utils/errutil"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

func TestStatusCode(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", goerr.Wrap(model.ErrValidation, "bad filter"), http.StatusBadRequest},
		{"not found", goerr.Wrap(model.ErrNotFound, "no source"), http.StatusNotFound},
		{"upstream", goerr.Wrap(model.ErrUpstream, "llm down"), http.StatusBadGateway},
		{"unavailable", goerr.Wrap(model.ErrUnavailable, "no transcriber"), http.StatusServiceUnavailable},
		{"unsupported media", goerr.Wrap(model.ErrUnsupportedMedia, "png"), http.StatusUnsupportedMediaType},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"other", goerr.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gt.Value(t, errutil.StatusCode(tc.err)).Equal(tc.want)
		})
	}
}

func TestHandleHTTP(t *testing.T) {
	w := httptest.NewRecorder()
	errutil.HandleHTTP(context.Background(), w, goerr.Wrap(model.ErrUpstream, "embedding failed"), 0)

	gt.Value(t, w.Code).Equal(http.StatusBadGateway)

	var body struct {
		Error     string `json:"error"`
		Kind      string `json:"kind"`
		Retryable bool   `json:"retryable"`
	}
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &body)).Required()
	gt.Value(t, body.Kind).Equal("upstream")
	gt.Bool(t, body.Retryable).True()
	gt.String(t, body.Error).Contains("embedding failed")
}
