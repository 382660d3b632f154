// Package passwordreset обрабатывает административный сброс пароля
// учётной записи без знания текущего пароля.
package passwordreset

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/pillarmind/account-service/internal/http/middlewarectx"
	"github.com/pillarmind/account-service/internal/http/response"
	"github.com/pillarmind/account-service/internal/lib/sl"
	"github.com/pillarmind/account-service/internal/models"
)

// Request — новый пароль учётной записи.
type Request struct {
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// Service описывает контракт сервиса аутентификации.
type Service interface {
	ResetPassword(ctx context.Context, principal models.Principal, targetUID, newPassword string) error
}

type Handler struct {
	log      *slog.Logger
	auth     Service
	validate *validator.Validate
}

func New(log *slog.Logger, auth Service) *Handler {
	return &Handler{
		log:      log,
		auth:     auth,
		validate: validator.New(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.passwordreset"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	principal, ok := middlewarectx.PrincipalFromContext(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("authentication required"))
		return
	}
	targetUID := chi.URLParam(r, "uid")

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	if err := h.auth.ResetPassword(r.Context(), principal, targetUID, req.NewPassword); err != nil {
		log.Error("password reset failed", sl.Err(err))
		status, resp := response.FromDomainError(err)
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"message": "password reset successfully",
	}))
}
