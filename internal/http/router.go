package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterConfig wires handlers into the router. Nil handlers leave their
// routes unregistered.
type RouterConfig struct {
	Equipment   *EquipmentHandler
	Maintenance *MaintenanceHandler
	Stock       *StockHandler
	Field       *FieldHandler
	Operations  *OperationsHandler
	Middleware  []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	for _, mw := range cfg.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	if h := cfg.Operations; h != nil {
		r.Get("/healthz", h.Health)
		r.Get("/notifications", h.ListNotifications)
		r.Delete("/notifications/{id}", h.DismissNotification)
		r.Post("/sweeps/{name}", h.Sweep)
	}

	if h := cfg.Equipment; h != nil {
		r.Route("/equipment", func(r chi.Router) {
			r.Get("/", h.List)
			r.Post("/", h.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.Get)
				r.Patch("/", h.Update)
				r.Delete("/", h.Delete)
				r.Get("/readings", h.ListReadings)
				r.Post("/readings", h.IngestReading)
			})
		})
	}

	if h := cfg.Maintenance; h != nil {
		r.Route("/maintenance", func(r chi.Router) {
			r.Get("/", h.List)
			r.Post("/", h.Schedule)
			r.Get("/{id}", h.Get)
			r.Post("/{id}/complete", h.Complete)
		})
	}

	if h := cfg.Stock; h != nil {
		r.Route("/stock", func(r chi.Router) {
			r.Get("/", h.List)
			r.Post("/", h.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.Get)
				r.Delete("/", h.Delete)
				r.Put("/quantity", h.SetQuantity)
				r.Post("/consume", h.Consume)
			})
		})
	}

	if h := cfg.Field; h != nil {
		r.Get("/technicians", h.ListTechnicians)
		r.Post("/technicians", h.CreateTechnician)
		r.Route("/interventions", func(r chi.Router) {
			r.Get("/", h.ListInterventions)
			r.Post("/", h.CreateIntervention)
			r.Put("/{id}/assignee", h.Assign)
			r.Delete("/{id}/assignee", h.Unassign)
		})
	}

	return r
}
