package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/EmpoweredVote/address-holidays/internal/middleware"
)

// SetupRoutes mounts the API. tokenHash gates everything but /healthz when set.
func SetupRoutes(h *Handler, origins []string, tokenHash string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.CORS(origins))

	r.Get("/healthz", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerToken(tokenHash))

		r.Get("/lookup", h.GetLookup)
		r.Post("/lookup", h.PostLookup)

		r.Post("/batch/jobs", h.StartBatch)
		r.Get("/batch/jobs/{jobID}", h.GetBatch)
		r.Get("/batch/jobs/{jobID}/results", h.GetBatchResults)
	})

	return r
}
