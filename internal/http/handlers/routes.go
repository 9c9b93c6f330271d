package handlers

import (
	"github.com/go-chi/chi/v5"
	"github.com/trailhead-tours/trailhead/internal/domain"
	"github.com/trailhead-tours/trailhead/internal/http/middleware"
)

// UserRoutes mounts the auth and user surface under /api/v1/users.
func UserRoutes(auth *AuthHandler, users *UserHandler, mw *middleware.Auth) chi.Router {
	r := chi.NewRouter()

	r.Post("/signup", auth.Signup)
	r.Post("/login", auth.Login)
	r.Get("/logout", auth.Logout)
	r.Post("/forgot-password", auth.ForgotPassword)
	r.Patch("/reset-password/{token}", auth.ResetPassword)

	// Everything below requires an authenticated session.
	r.Group(func(r chi.Router) {
		r.Use(mw.Protect)

		r.Patch("/update-password", auth.UpdatePassword)
		r.Get("/me", users.GetMe)
		r.Patch("/update-me", users.UpdateMe)
		r.Delete("/delete-me", users.DeleteMe)

		// Admin-only user management.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RestrictTo(domain.RoleAdmin))

			r.Get("/", users.ListUsers)
			r.Get("/{id}", users.GetUser)
			r.Patch("/{id}", users.UpdateUser)
			r.Patch("/{id}/role", users.UpdateUserRole)
			r.Delete("/{id}", users.DeleteUser)
		})
	})

	return r
}
