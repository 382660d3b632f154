// Package accountservice предоставляет маршруты сервиса аккаунтов.
package accountservice

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/pillarmind/account-service/internal/http/handlers/admin/audittrail"
	"github.com/pillarmind/account-service/internal/http/handlers/admin/passwordreset"
	"github.com/pillarmind/account-service/internal/http/handlers/admin/profileedit"
	"github.com/pillarmind/account-service/internal/http/handlers/admin/rolechange"
	"github.com/pillarmind/account-service/internal/http/handlers/admin/statechange"
	"github.com/pillarmind/account-service/internal/http/handlers/admin/userget"
	"github.com/pillarmind/account-service/internal/http/handlers/admin/userlist"
	"github.com/pillarmind/account-service/internal/http/handlers/auth/login"
	"github.com/pillarmind/account-service/internal/http/handlers/auth/refresh"
	"github.com/pillarmind/account-service/internal/http/handlers/auth/register"
	"github.com/pillarmind/account-service/internal/http/handlers/health"
	searchhandler "github.com/pillarmind/account-service/internal/http/handlers/search"
	"github.com/pillarmind/account-service/internal/http/handlers/user/me"
	"github.com/pillarmind/account-service/internal/http/handlers/user/passwordchange"
	"github.com/pillarmind/account-service/internal/http/handlers/user/privacy"
	"github.com/pillarmind/account-service/internal/http/handlers/user/profileupdate"
	"github.com/pillarmind/account-service/internal/http/handlers/user/remove"
	"github.com/pillarmind/account-service/internal/http/middlewarectx"
	accountservice "github.com/pillarmind/account-service/internal/services/account"
	authservice "github.com/pillarmind/account-service/internal/services/auth"
	searchservice "github.com/pillarmind/account-service/internal/services/search"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, authSvc *authservice.AuthService, accountSvc *accountservice.Service, searchSvc *searchservice.Service) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки с ограничением частоты
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(logger, 10, 20))
			r.Post("/register", register.New(logger, authSvc).ServeHTTP)
			r.Post("/login", login.New(logger, authSvc).ServeHTTP)
			r.Post("/refresh", refresh.New(logger, authSvc).ServeHTTP)
		})

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authSvc, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger, 50, 100))

			r.Get("/users/me", me.New(logger, accountSvc).ServeHTTP)
			r.Put("/users/me/profile", profileupdate.New(logger, accountSvc).ServeHTTP)
			r.Patch("/users/me/privacy", privacy.New(logger, accountSvc).ServeHTTP)
			r.Post("/users/me/password", passwordchange.New(logger, authSvc).ServeHTTP)
			r.Delete("/users/me", remove.New(logger, accountSvc).ServeHTTP)

			r.Get("/search", searchhandler.New(logger, searchSvc).ServeHTTP)

			r.Get("/admin/users/{uid}", userget.New(logger, accountSvc).ServeHTTP)
			r.Put("/admin/users/{uid}/profile", profileedit.New(logger, accountSvc).ServeHTTP)
			r.Post("/admin/users/{uid}/state", statechange.New(logger, accountSvc).ServeHTTP)
			r.Post("/admin/users/{uid}/role", rolechange.New(logger, accountSvc).ServeHTTP)
			r.Post("/admin/users/{uid}/password", passwordreset.New(logger, authSvc).ServeHTTP)
			r.Get("/admin/users/{uid}/events", audittrail.New(logger, accountSvc).ServeHTTP)
			r.Get("/admin/users", userlist.New(logger, accountSvc).ServeHTTP)
		})
	})

	r.Get("/healthz", health.New(logger).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
