// Package audittrail возвращает журнал переходов состояния учётной записи.
package audittrail

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/pillarmind/account-service/internal/http/middlewarectx"
	"github.com/pillarmind/account-service/internal/http/response"
	"github.com/pillarmind/account-service/internal/lib/sl"
	"github.com/pillarmind/account-service/internal/models"
)

type Service interface {
	AuditTrail(ctx context.Context, principal models.Principal, targetUID string) ([]*models.StatusEvent, error)
}

type Handler struct {
	log      *slog.Logger
	accounts Service
}

func New(log *slog.Logger, accounts Service) *Handler {
	return &Handler{log: log, accounts: accounts}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.audittrail"

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

	events, err := h.accounts.AuditTrail(r.Context(), principal, targetUID)
	if err != nil {
		log.Error("failed to read audit trail", sl.Err(err))
		status, resp := response.FromDomainError(err)
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}

	render.JSON(w, r, response.StatusOKWithData(events))
}
