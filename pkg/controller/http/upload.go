package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/model"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/usecase"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/utils/errutil"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/utils/safe"
	"github.com/m-mizutani/goerr/v2"
)

const (
	uploadField = "file"
	// room for multipart boundaries and headers around the file part
	multipartOverhead = 1 << 20
	// parts beyond this are spooled to disk by the multipart reader
	multipartMemory = 8 << 20
)

type uploadFunc func(ctx context.Context, input usecase.UploadInput) (*usecase.IngestResult, error)

func (s *Server) uploadAudioHandler(w http.ResponseWriter, r *http.Request) {
	s.handleUpload(w, r, s.uc.Upload.UploadAudio)
}

func (s *Server) uploadDocumentHandler(w http.ResponseWriter, r *http.Request) {
	s.handleUpload(w, r, s.uc.Upload.UploadDocument)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, upload uploadFunc) {
	ctx := r.Context()

	input, err := s.readUpload(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			errutil.HandleHTTP(ctx, w, err, http.StatusRequestEntityTooLarge)
			return
		}
		errutil.HandleHTTP(ctx, w, err, 0)
		return
	}

	result, err := upload(ctx, *input)
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

func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*usecase.UploadInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, goerr.Wrap(err, "upload is too large", goerr.V("max_bytes", s.maxUploadSize))
		}
		return nil, goerr.Wrap(model.ErrValidation, "invalid multipart body", goerr.V("error", err.Error()))
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		return nil, goerr.Wrap(model.ErrValidation, "multipart field is missing", goerr.V("field", uploadField))
	}
	defer safe.Close(r.Context(), file)

	data, truncated, err := safe.ReadAll(file, s.maxUploadSize)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read upload", goerr.V("filename", header.Filename))
	}
	if truncated {
		return nil, goerr.Wrap(&http.MaxBytesError{Limit: s.maxUploadSize}, "upload is too large",
			goerr.V("filename", header.Filename), goerr.V("max_bytes", s.maxUploadSize))
	}

	return &usecase.UploadInput{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
