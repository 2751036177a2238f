// Package server assembles the HTTP API.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/rpattn/ctedash/internal/auth"
	"github.com/rpattn/ctedash/internal/export"
	"github.com/rpattn/ctedash/internal/ingestion"
	"github.com/rpattn/ctedash/internal/middleware"
	"github.com/rpattn/ctedash/internal/query"
	"github.com/rpattn/ctedash/internal/repository"
	"github.com/rpattn/ctedash/internal/respond"
)

// Dependencies are the services the API is built from.
type Dependencies struct {
	Auth           *auth.Service
	Ingestion      *ingestion.Service
	Query          *query.Service
	Export         *export.Service
	Ledger         repository.LedgerRepository
	Logger         zerolog.Logger
	AllowedOrigins []string
}

// NewRouter wires every route. Everything except /healthz requires basic auth.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.LoggingMiddleware(deps.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
	}).Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.BasicAuth(deps.Auth))
		r.Use(middleware.DataLoaderMiddleware(deps.Ledger))

		ingest := ingestion.NewHTTPHandler(deps.Ingestion)
		r.Post("/api/ingest", ingest.ServeHTTP)
		r.Get("/api/ingest/logs", ingest.ServeHTTP)

		query.NewHTTPHandler(deps.Query).Routes(r)
		export.NewHTTPHandler(deps.Export).Routes(r)
		r.Route("/api/admin/users", auth.NewUsersHandler(deps.Auth).Routes)
	})

	return r
}
