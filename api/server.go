/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.

MIDDLEWARE STACK:
  1. Logger:     request logging
  2. Recoverer:  panic recovery (500 instead of crash)
  3. RequestID:  unique id per request for tracing
  4. CORS:       cross-origin requests for the admin frontend

ROUTE GROUPS:
  /api/employees/*     employee records
  /api/calculations/*  EOS, vacation valuation, aggregated report
  /api/leave/*         balance list, adjust, recalculate
  /api/deductions/*    deduction CRUD

SECURITY NOTE:
  No authentication middleware; auth is explicitly out of scope and is
  expected to be terminated upstream.
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Get("/{id}", h.GetEmployee)
			r.Put("/{id}", h.UpdateEmployee)
		})

		r.Route("/calculations", func(r chi.Router) {
			r.Get("/eos/{id}", h.CalculateEOS)
			r.Get("/vacation/{id}", h.CalculateVacation)
			r.Get("/aggregated", h.AggregatedEntitlements)
			r.Get("/aggregated/pdf", h.AggregatedEntitlementsPDF)
		})

		r.Route("/leave", func(r chi.Router) {
			r.Get("/balances", h.ListLeaveBalances)
			r.Post("/adjust", h.AdjustLeaveBalance)
			r.Post("/recalculate/{id}", h.RecalculateLeave)
		})

		r.Route("/deductions", func(r chi.Router) {
			r.Get("/", h.ListDeductions)
			r.Post("/", h.CreateDeduction)
			r.Put("/{id}", h.UpdateDeduction)
			r.Delete("/{id}", h.DeleteDeduction)
		})
	})

	return r
}
