package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/typeb/familyhub/internal/application"
)

// Handler is the HTTP adapter entrypoint. It depends only on the application
// service to keep adapter boundaries clean.
type Handler struct {
	service       *application.Service
	billingSecret string
}

func NewHandler(service *application.Service, billingSecret string) *Handler {
	return &Handler{service: service, billingSecret: billingSecret}
}

// NewRouter registers all routes and the shared middleware stack.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)
	r.Get("/.well-known/jwks.json", handler.jwks)

	r.Route("/auth/v1", func(r chi.Router) {
		r.Post("/register", handler.register)
		r.Post("/login", handler.login)
		r.Post("/refresh", handler.refresh)

		r.Group(func(r chi.Router) {
			r.Use(handler.authMiddleware)
			r.Post("/logout", handler.logout)
			r.Get("/me", handler.me)
			r.Get("/sessions", handler.listSessions)
			r.Delete("/sessions/{session_id}", handler.revokeSession)
			r.Get("/login-history", handler.loginHistory)
		})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(handler.authMiddleware)

		r.Post("/families", handler.createFamily)
		r.Post("/families/join", handler.joinFamily)
		r.Route("/families/{family_id}", func(r chi.Router) {
			r.Get("/", handler.getFamily)
			r.Post("/leave", handler.leaveFamily)
			r.Delete("/members/{user_id}", handler.removeMember)
			r.Patch("/members/{user_id}/role", handler.changeMemberRole)
			r.Post("/invite-code/rotate", handler.rotateInviteCode)
			r.Get("/activity", handler.listActivity)
			r.Get("/subscription", handler.getSubscription)

			r.Get("/categories", handler.listCategories)
			r.Post("/categories", handler.createCategory)

			r.Route("/tasks", func(r chi.Router) {
				r.Post("/", handler.createTask)
				r.Get("/", handler.listTasks)
				r.Route("/{task_id}", func(r chi.Router) {
					r.Get("/", handler.getTask)
					r.Patch("/", handler.updateTask)
					r.Delete("/", handler.deleteTask)
					r.Post("/complete", handler.completeTask)
					r.Post("/approve", handler.approveTask)
					r.Post("/reject", handler.rejectTask)
				})
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", handler.listNotifications)
			r.Get("/unread-count", handler.unreadCount)
			r.Get("/preferences", handler.getPreferences)
			r.Put("/preferences", handler.updatePreferences)
			r.Post("/{notification_id}/read", handler.markNotificationRead)
			r.Post("/{notification_id}/archive", handler.archiveNotification)
		})
	})

	r.Post("/internal/v1/billing/events", handler.billingWebhook)

	return r
}
