package config

import "time"

// NewLLMForTest creates an LLM config for testing purposes
func NewLLMForTest(provider, openaiAPIKey, geminiProject string, dimension int) *LLM {
	return &LLM{
		provider:             provider,
		embeddingDimension:   dimension,
		openaiAPIKey:         openaiAPIKey,
		openaiModel:          DefaultOpenAIModel,
		openaiEmbeddingModel: DefaultOpenAIEmbeddingModel,
		geminiProject:        geminiProject,
		geminiLocation:       "us-central1",
		geminiModel:          DefaultGeminiModel,
		geminiEmbeddingModel: DefaultGeminiEmbeddingModel,
	}
}

// NewRAGForTest creates a retrieval config reading path
func NewRAGForTest(path string) *RAG {
	return &RAG{path: path}
}

// NewRepositoryForTest creates a repository config for testing purposes
func NewRepositoryForTest(backend, sqlitePath string) *Repository {
	return &Repository{backend: backend, sqlitePath: sqlitePath}
}

func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{level: level, format: format, output: output}
}

func NewTranscriberForTest(apiKey string) *Transcriber {
	return &Transcriber{apiKey: apiKey, model: "whisper-1", language: "es", timeout: time.Minute}
}

func NewArchiveForTest(dir string) *Archive {
	return &Archive{dir: dir}
}
