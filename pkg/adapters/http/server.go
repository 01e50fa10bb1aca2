// Package http exposes a Kitchen over a JSON API with a server-sent event stream.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aretw0/mise"
	"github.com/aretw0/mise/internal/logging"
	"github.com/aretw0/mise/pkg/catalog"
	"github.com/aretw0/mise/pkg/domain"
	"github.com/aretw0/mise/pkg/view"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Kitchen is the part of mise.Kitchen the API drives.
type Kitchen interface {
	Subscribe(fn func(domain.SessionEvent)) func()

	Start(ctx context.Context, recipeID string) (domain.Session, error)
	Pause(recipeID string) (domain.Session, error)
	Resume(recipeID string) (domain.Session, error)
	Toggle(recipeID string) (domain.Session, error)
	SkipStep(recipeID string) (domain.Session, error)
	Focus(recipeID string) (domain.Session, error)
	End() bool
	EndSession(recipeID string) error

	Session(recipeID string) (domain.Session, bool)
	Sessions() []domain.Session
	Progress(ctx context.Context, recipeID string) (view.Progress, error)
	MiniPlayer(ctx context.Context) (view.MiniPlayer, bool, error)

	GetRecipe(ctx context.Context, id string) (domain.Recipe, error)
	ListRecipes(ctx context.Context, q catalog.Query) ([]domain.Recipe, error)
	SaveRecipe(ctx context.Context, recipe domain.Recipe) (domain.Recipe, error)
	ImportRecipes(ctx context.Context, list []domain.Recipe) (int, error)
	DeleteRecipe(ctx context.Context, id string) error
	ToggleFavorite(ctx context.Context, id string) (domain.Recipe, error)
}

var _ Kitchen = (*mise.Kitchen)(nil)

// Server routes API requests to a Kitchen.
type Server struct {
	kitchen Kitchen
	streams *StreamManager
	logger  *slog.Logger
	router  chi.Router

	unsubscribe func()
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request and stream logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRoutes mounts extra handlers, such as /metrics, on the router.
func WithRoutes(fn func(r chi.Router)) Option {
	return func(s *Server) {
		fn(s.router)
	}
}

// NewServer creates the API and starts forwarding Kitchen events to SSE clients.
// Call Close to detach it.
func NewServer(kitchen Kitchen, opts ...Option) *Server {
	s := &Server{
		kitchen: kitchen,
		logger:  logging.NewNop(),
		router:  chi.NewRouter(),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(enableCORS)

	for _, opt := range opts {
		opt(s)
	}
	s.streams = NewStreamManager(s.logger)
	s.routes()

	s.unsubscribe = kitchen.Subscribe(s.streams.Publish)
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Get("/health", s.getHealth)
	r.Get("/info", s.getInfo)
	r.Get("/openapi.yaml", s.getSpec)
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerHTML))
	})

	r.Route("/recipes", func(r chi.Router) {
		r.Get("/", s.listRecipes)
		r.Post("/", s.createRecipe)
		r.Post("/import", s.importRecipes)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getRecipe)
			r.Put("/", s.updateRecipe)
			r.Delete("/", s.deleteRecipe)
			r.Post("/favorite", s.toggleFavorite)
			r.Get("/progress", s.getProgress)
			r.Get("/graph", s.getGraph)
		})
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.listSessions)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Post("/", s.startSession)
			r.Delete("/", s.endSession)
			r.Post("/{action}", s.controlSession)
		})
	})

	r.Get("/active", s.getMiniPlayer)
	r.Delete("/active", s.endActive)
	r.Get("/events", s.subscribeEvents)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Streams exposes the SSE fan-out.
func (s *Server) Streams() *StreamManager {
	return s.streams
}

// Close stops forwarding events and ends open streams.
func (s *Server) Close() {
	s.unsubscribe()
	s.streams.Close()
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>mise API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if doc, err := GetSpec(); err == nil && doc.Info != nil {
		apiVersion = doc.Info.Version
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "mise-http",
		"version":     mise.Version,
		"api_version": apiVersion,
	})
}

func (s *Server) getSpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(rawSpec)
}

// -- Helpers --

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrRecipeNotFound), errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRecipeInUse):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNoSteps):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeError(w, status, err.Error())
}
