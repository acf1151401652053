// Package server exposes the pipeline and hosted canvases over HTTP.
//
// # Stateless endpoints
//
//	GET  /healthz
//	GET  /v1/catalog
//	POST /v1/layout?direction=LR&smart=true      flow in, positioned flow out
//	POST /v1/render?format=svg&engine=native     flow in, artifact out
//	POST /v1/validate                            flow in, issues out
//
// # Canvas sessions
//
// A canvas is a flow loaded into a [canvas.Controller] that lives between
// requests. Events from the rendered SVG are posted back and applied in
// arrival order; each session serializes its own requests.
//
//	POST   /v1/canvases                          load a flow, returns {id}
//	GET    /v1/canvases/{id}                     flow plus selection state
//	DELETE /v1/canvases/{id}
//	POST   /v1/canvases/{id}/events              {kind, id}
//	POST   /v1/canvases/{id}/relayout?selection=true
//	PATCH  /v1/canvases/{id}/nodes/{nodeID}      {name, properties, hasError}
//	GET    /v1/canvases/{id}/svg
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/procflow/pkg/layout"
	"github.com/matzehuels/procflow/pkg/pipeline"
	"github.com/matzehuels/procflow/pkg/session"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 4 << 20

// Server serves the HTTP API.
type Server struct {
	runner     *pipeline.Runner
	sessions   session.Store
	logger     *log.Logger
	sessionTTL time.Duration
	direction  layout.Direction
	smart      bool
	router     chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSessionStore replaces the default in-memory session store.
func WithSessionStore(st session.Store) Option {
	return func(s *Server) {
		if st != nil {
			s.sessions = st
		}
	}
}

// WithSessionTTL sets the idle lifetime of canvas sessions. Zero disables
// expiry.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Server) { s.sessionTTL = ttl }
}

// WithLayoutDefaults sets the direction and tier selection used when a
// request does not name them.
func WithLayoutDefaults(dir layout.Direction, smart bool) Option {
	return func(s *Server) {
		s.direction = dir
		s.smart = smart
	}
}

// New creates a server backed by runner.
func New(runner *pipeline.Runner, opts ...Option) *Server {
	s := &Server{
		runner:     runner,
		sessions:   session.NewMemoryStore(),
		logger:     log.NewWithOptions(io.Discard, log.Options{}),
		sessionTTL: session.DefaultTTL,
		direction:  layout.TopBottom,
		smart:      true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/catalog", s.handleCatalog)
		r.Post("/layout", s.handleLayout)
		r.Post("/render", s.handleRender)
		r.Post("/validate", s.handleValidate)

		r.Route("/canvases", func(r chi.Router) {
			r.Post("/", s.handleCreateCanvas)
			r.Route("/{canvasID}", func(r chi.Router) {
				r.Get("/", s.handleGetCanvas)
				r.Delete("/", s.handleDeleteCanvas)
				r.Post("/events", s.handleCanvasEvent)
				r.Post("/relayout", s.handleCanvasRelayout)
				r.Patch("/nodes/{nodeID}", s.handleCanvasPatchNode)
				r.Get("/svg", s.handleCanvasSVG)
			})
		})
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. Expired canvas sessions are swept in the background.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.sessionTTL > 0 {
		go session.RunCleanup(ctx, s.sessions, s.sessionTTL/4+time.Second, func(n int) {
			s.logger.Debug("expired canvas sessions removed", "count", n)
		})
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
