package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/palisadehq/palisade/internal/auth"
	"github.com/palisadehq/palisade/internal/handlers"
	"github.com/palisadehq/palisade/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	deviceHandler *handlers.DeviceHandler,
	formHandler *handlers.FormHandler,
	authHandler *handlers.AuthHandler,
	tokenManager *auth.TokenManager,
) {
	formRateLimit := middleware.DefaultFormRateLimit()
	authRateLimit := middleware.DefaultAuthRateLimit()

	// Ban-status poll: no auth, no per-IP limit; clients hit it frequently
	// and the ban cache absorbs the load.
	router.Post("/device/status", deviceHandler.Status)

	// Public form submissions behind a coarse per-IP throttle; the device
	// guard inside the service layer does the fine-grained work.
	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(formRateLimit))
		r.Post("/forms/contact", formHandler.SubmitContact)
		r.Post("/forms/referral", formHandler.SubmitReferral)
		r.Post("/forms/member", formHandler.SubmitMember)
	})

	router.With(middleware.RateLimitByIP(authRateLimit)).Post("/auth/login", authHandler.Login)

	// Authenticated routes
	router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(tokenManager))
		r.Post("/device/reset", deviceHandler.Reset)
	})
}
