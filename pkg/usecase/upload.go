package usecase

import (
	"bytes"
	"context"
	"strings"
	"unicode"

	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/model"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/service/archive"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/service/document"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/service/transcribe"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/utils/errutil"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// UploadInput is a file received from a client
type UploadInput struct {
	Filename    string
	ContentType string
	Data        []byte
}

// UploadUseCase turns uploaded audio and documents into text and indexes it
type UploadUseCase struct {
	ingest      *IngestUseCase
	transcriber transcribe.Service
	documents   document.Service
	archive     archive.Service
	cfg         RAGConfig
}

func NewUploadUseCase(ingest *IngestUseCase, transcriber transcribe.Service, documents document.Service, a archive.Service, cfg RAGConfig) *UploadUseCase {
	return &UploadUseCase{
		ingest:      ingest,
		transcriber: transcriber,
		documents:   documents,
		archive:     a,
		cfg:         cfg,
	}
}

func (uc *UploadUseCase) UploadAudio(ctx context.Context, input UploadInput) (*IngestResult, error) {
	if uc.transcriber == nil {
		return nil, goerr.Wrap(model.ErrUnavailable, "transcription is not configured")
	}
	if len(input.Data) == 0 {
		return nil, goerr.Wrap(model.ErrValidation, "uploaded file is empty", goerr.V("filename", input.Filename))
	}

	text, err := uc.transcriber.Transcribe(ctx, input.Filename, bytes.NewReader(input.Data))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to transcribe audio", goerr.V("filename", input.Filename))
	}
	logging.From(ctx).Info("audio transcribed", "filename", input.Filename, "chars", len(text))

	if strings.TrimSpace(text) == "" {
		return nil, goerr.Wrap(model.ErrValidation, "transcription is empty", goerr.V("filename", input.Filename))
	}

	return uc.index(ctx, input, text, model.OriginAudio)
}

func (uc *UploadUseCase) UploadDocument(ctx context.Context, input UploadInput) (*IngestResult, error) {
	if uc.documents == nil {
		return nil, goerr.Wrap(model.ErrUnavailable, "document extraction is not configured")
	}
	if len(input.Data) == 0 {
		return nil, goerr.Wrap(model.ErrValidation, "uploaded file is empty", goerr.V("filename", input.Filename))
	}

	text, err := uc.documents.ExtractText(ctx, input.Filename, input.Data)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to extract document text", goerr.V("filename", input.Filename))
	}
	if countNonSpace(text) < uc.cfg.MinDocChars {
		return nil, goerr.Wrap(model.ErrValidation, "could not extract text from document",
			goerr.V("filename", input.Filename), goerr.V("chars", countNonSpace(text)))
	}

	return uc.index(ctx, input, text, model.OriginDocument)
}

// index archives the raw upload under a fresh source ID, then ingests text
// under the same ID. The archived file is removed when ingestion fails.
func (uc *UploadUseCase) index(ctx context.Context, input UploadInput, text string, origin model.OriginType) (*IngestResult, error) {
	sourceID := model.NewSourceID()

	var rawURI string
	if uc.archive != nil {
		uri, err := uc.archive.Put(ctx, sourceID, input.Filename, input.ContentType, bytes.NewReader(input.Data))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to archive upload", goerr.V("filename", input.Filename))
		}
		rawURI = uri
	}

	result, err := uc.ingest.Ingest(ctx, IngestInput{
		Text:       text,
		OriginType: origin,
		Filename:   input.Filename,
		SourceID:   sourceID,
		RawURI:     rawURI,
	})
	if err != nil {
		if rawURI != "" {
			if delErr := uc.archive.Delete(ctx, sourceID, input.Filename); delErr != nil {
				errutil.Handle(ctx, delErr, "failed to remove archived upload of a failed ingest")
			}
		}
		return nil, err
	}
	return result, nil
}

func countNonSpace(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
