package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes groups the handlers and middleware served under /api.
type Routes struct {
	Responses *ResponseHandler
	Reviews   *ReviewHandler
	// Authenticate resolves the optional bearer token.
	Authenticate func(http.Handler) http.Handler
	// Session attaches the session ledger; it runs after Authenticate.
	Session func(http.Handler) http.Handler
}

// Mount registers every /api route on r.
func (rt Routes) Mount(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(rt.Authenticate)
		r.Use(rt.Session)

		r.Route("/responses", func(r chi.Router) {
			r.Get("/", rt.Responses.ListResponses)
			r.Post("/", rt.Responses.RecordResponse)
			r.Delete("/", rt.Responses.ResetAll)
			r.Get("/summary", rt.Responses.Summaries)
			r.Get("/{questionID}", rt.Responses.GetResponse)
		})

		r.Route("/sections/{sectionID}/subsections/{subsectionID}", func(r chi.Router) {
			r.Get("/stats", rt.Responses.GetStats)
			r.Get("/incorrect", rt.Responses.GetIncorrect)
			r.Post("/unanswered", rt.Responses.GetUnanswered)
			r.Delete("/responses", rt.Responses.ResetSubsection)
		})

		r.Post("/reviews", rt.Reviews.UpdateSchedule)
		r.Get("/reviews/due", rt.Reviews.GetDueQuestions)

		r.Get("/sync", rt.Responses.SyncStatus)
	})
}
