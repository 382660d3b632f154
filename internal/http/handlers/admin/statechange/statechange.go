// Package statechange обрабатывает административный перевод учётной
// записи в другое состояние жизненного цикла.
package statechange

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
	"github.com/pillarmind/account-service/internal/http/view"
	"github.com/pillarmind/account-service/internal/lib/sl"
	"github.com/pillarmind/account-service/internal/models"
)

// Request — целевое состояние и причина перехода.
type Request struct {
	State  string `json:"state" validate:"required"`
	Reason string `json:"reason"`
}

// Service описывает контракт сервиса аккаунтов.
type Service interface {
	TransitionState(ctx context.Context, principal models.Principal, targetUID string, to models.State, reason string) (*models.Account, error)
}

type Handler struct {
	log      *slog.Logger
	accounts Service
	validate *validator.Validate
}

func New(log *slog.Logger, accounts Service) *Handler {
	return &Handler{
		log:      log,
		accounts: accounts,
		validate: validator.New(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.statechange"

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

	acc, err := h.accounts.TransitionState(r.Context(), principal, targetUID, models.State(req.State), req.Reason)
	if err != nil {
		log.Error("state transition failed", sl.Err(err))
		status, resp := response.FromDomainError(err)
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}

	render.JSON(w, r, response.StatusOKWithData(view.FromAccount(*acc)))
}
