package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"blueprint-chat/internal/domain/ports/repository"
	"blueprint-chat/internal/infra/logging"
	"blueprint-chat/internal/usecase"
)

type Server struct {
	sessionUC usecase.SessionUseCase
	docs      repository.DocumentRepository
	auth      *AuthManager
	log       *zerolog.Logger
}

func NewServer(
	sessionUC usecase.SessionUseCase,
	docs repository.DocumentRepository,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		sessionUC: sessionUC,
		docs:      docs,
		auth:      auth,
		log:       logger,
	}
}

// Router builds the full route tree.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(s.traceMiddleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Route("/chat/sessions", func(r chi.Router) {
			r.Post("/", s.handleInitSession)
			r.Get("/", s.handleListSessions)
			r.Get("/{id}/messages", s.handleHistory)
			r.Post("/{id}/messages", s.handleSendMessage)
			r.Delete("/{id}", s.handleCleanupSession)
		})

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", s.handleRegisterDocument)
			r.Get("/", s.handleListDocuments)
		})
	})
	return r
}

// authMiddleware resolves the owner identity from the bearer token and puts
// it on the request context. Every downstream query filters by this identity.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := s.auth.ParseFromRequest(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}
		ctx := withOwner(r.Context(), ownerID)
		ctx = logging.WithOwnerID(ctx, ownerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := ulid.Make().String()
		ctx := logging.WithTraceID(r.Context(), traceID)
		w.Header().Set("X-Trace-Id", traceID)

		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))
		logging.With(ctx, s.log).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("request handled")
	})
}
