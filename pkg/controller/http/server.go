package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/usecase"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/utils/errutil"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultMaxUploadSize = 25 << 20
	maxJSONBodySize      = 8 << 20
)

type Server struct {
	router        *chi.Mux
	uc            *usecase.UseCases
	maxUploadSize int64
	health        map[string]string
}

type Options func(*Server)

// WithMaxUploadSize limits the size of files accepted by the upload endpoints
func WithMaxUploadSize(size int64) Options {
	return func(s *Server) {
		if size > 0 {
			s.maxUploadSize = size
		}
	}
}

// WithHealthInfo adds static fields to the /health response, e.g. the
// repository backend and embedding model in use
func WithHealthInfo(key, value string) Options {
	return func(s *Server) {
		s.health[key] = value
	}
}

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:        r,
		uc:            uc,
		maxUploadSize: DefaultMaxUploadSize,
		health:        map[string]string{},
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)
	r.Use(requestContext)

	r.Get("/health", s.healthHandler)

	r.Post("/ingest", s.ingestHandler)
	r.Post("/chat", s.chatHandler)
	r.Post("/upload_audio", s.uploadAudioHandler)
	r.Post("/upload_doc", s.uploadDocumentHandler)

	r.Route("/sources", func(r chi.Router) {
		r.Get("/", s.listSourcesHandler)
		r.Get("/{id}", s.getSourceHandler)
		r.Delete("/{id}", s.deleteSourceHandler)
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok"}
	for k, v := range s.health {
		resp[k] = v
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data) //nolint:errcheck // header already committed
}
