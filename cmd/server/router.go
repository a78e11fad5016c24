package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/qbank-api/internal/api"
	"github.com/phrazzld/qbank-api/internal/api/middleware"
	"github.com/phrazzld/qbank-api/internal/api/shared"
)

// setupRouter builds the chi router with the global middleware stack, the
// API routes and a health probe.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewTraceMiddleware(app.logger))

	api.Routes{
		Responses:    api.NewResponseHandler(app.logger),
		Reviews:      api.NewReviewHandler(app.reviewService, app.logger),
		Authenticate: middleware.NewAuthMiddleware(app.jwtService).Authenticate,
		Session:      middleware.NewSessionMiddleware(app.sessions).Attach,
	}.Mount(r)

	r.Get("/health", healthHandler)
	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
