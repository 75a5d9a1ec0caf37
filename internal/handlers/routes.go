package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/aawaaz/ticket-server/internal/lifecycle"
	"github.com/aawaaz/ticket-server/internal/middleware"
)

// API groups the handlers mounted under /api/v1.
type API struct {
	Health        *HealthHandler
	Tickets       *TicketHandler
	Admin         *AdminHandler
	Notifications *NotificationHandler
	Status        *StatusHandler
	Realtime      *RealtimeHandler

	// Authenticate resolves the caller for every route except health.
	Authenticate func(http.Handler) http.Handler
	// RequestTimeout bounds non-streaming requests; zero disables it.
	RequestTimeout time.Duration
}

// Routes registers the API on r.
func (a *API) Routes(r chi.Router) {
	r.Get("/health", a.Health.Check)
	r.Get("/health/ready", a.Health.Ready)

	r.Group(func(r chi.Router) {
		r.Use(a.Authenticate)

		// Event streams stay open, so they sit outside the request timeout.
		r.Get("/realtime/{table}", a.Realtime.Stream)

		r.Group(func(r chi.Router) {
			if a.RequestTimeout > 0 {
				r.Use(chimw.Timeout(a.RequestTimeout))
			}

			r.Get("/status", a.Status.Current)

			r.Route("/tickets", func(r chi.Router) {
				r.Post("/", a.Tickets.Submit)
				r.Get("/mine", a.Tickets.Mine)
				r.Get("/community", a.Tickets.Community)
				r.Get("/{id}", a.Tickets.Get)
				r.Put("/{id}", a.Tickets.Edit)
				r.Delete("/{id}", a.Tickets.Delete)
				r.Post("/{id}/upvote", a.Tickets.Upvote)
				r.Get("/{id}/attachment", a.Tickets.Attachment)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", a.Notifications.List)
				r.Post("/read-all", a.Notifications.MarkAllRead)
				r.Delete("/read", a.Notifications.ClearRead)
				r.Post("/{id}/read", a.Notifications.MarkRead)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(lifecycle.RoleAdmin))
				r.Get("/tickets", a.Admin.Queue)
				r.Patch("/tickets/{id}", a.Admin.Update)
				r.Put("/status", a.Status.Publish)
				r.Get("/analytics", a.Admin.Analytics)
			})
		})
	})
}
