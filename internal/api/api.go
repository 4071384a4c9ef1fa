// Package api exposes archive processing, statement lookup, and report
// generation over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sells-group/cvm-report/internal/cvm"
	"github.com/sells-group/cvm-report/internal/report"
)

// WelcomeMessage is returned by GET /.
const WelcomeMessage = "Bem-vindo à API de Análise Fundamentalista CVM!"

// StatementResolver resolves a company's statements for a filing period.
type StatementResolver interface {
	Resolve(ctx context.Context, docType string, year int, companyID string, statements []string) *cvm.Resolution
}

// ReportGenerator writes an analyst report from resolved statements.
type ReportGenerator interface {
	Generate(ctx context.Context, subject report.Subject, set cvm.ResolvedStatementSet) (*report.Report, error)
}

// Deps are the collaborators behind the HTTP handlers.
type Deps struct {
	Finder       cvm.ArchiveFinder
	Materializer cvm.ArchiveMaterializer
	Resolver     StatementResolver
	// Reports may be nil when no LLM provider is configured; report
	// generation then answers 503.
	Reports     ReportGenerator
	CORSOrigins []string
}

// Server holds the handlers' dependencies.
type Server struct {
	deps Deps
}

// New creates a Server.
func New(deps Deps) *Server {
	if len(deps.CORSOrigins) == 0 {
		deps.CORSOrigins = []string{"*"}
	}
	return &Server{deps: deps}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.deps.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/documents/process/{doc_type}/{year}", s.handleProcess)
		r.Get("/companies/{cnpj}/statements/{doc_type}/{year}", s.handleStatements)
		r.Post("/reports/generate", s.handleGenerateReport)
		r.Post("/reports/chart", s.handleChart)
	})
	return r
}
