package transcribe

import (
	"context"

	"github.com/sashabaranov/go-openai"
)

// TranscriptionFunc adapts a function to the OpenAI transcription call
type TranscriptionFunc func(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)

func (f TranscriptionFunc) CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error) {
	return f(ctx, req)
}

func NewWithAPI(api TranscriptionFunc, opts ...Option) Service {
	return newWithAPI(api, opts...)
}
