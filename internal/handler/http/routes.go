package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.withTraceID)
	router.Use(h.withLogging)

	// routes without authorization
	router.Group(func(r chi.Router) {
		r.Post("/api/device/register", h.register)
		r.Post("/api/device/login", h.login)
	})

	// object API, bearer token required
	router.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Get("/api/objects/", h.listObjects)
		r.Get("/api/objects/*", h.getObject)
		r.Put("/api/objects/*", h.putObject)
		r.Delete("/api/objects/*", h.deleteObject)
	})

	return router
}
