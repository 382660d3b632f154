// Package profileedit обрабатывает административное изменение полей
// профиля указанной учётной записи. Тело запроса декодируется строго,
// как и при самостоятельном обновлении профиля: неизменяемые
// и неизвестные поля отклоняются до вызова сервиса.
package profileedit

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/pillarmind/account-service/internal/http/middlewarectx"
	"github.com/pillarmind/account-service/internal/http/response"
	"github.com/pillarmind/account-service/internal/http/view"
	"github.com/pillarmind/account-service/internal/lib/sl"
	"github.com/pillarmind/account-service/internal/models"
)

// Service описывает контракт сервиса аккаунтов.
type Service interface {
	UpdateProfile(ctx context.Context, principal models.Principal, targetUID string, upd models.ProfileUpdate) (*models.Profile, error)
}

type Handler struct {
	log      *slog.Logger
	accounts Service
}

func New(log *slog.Logger, accounts Service) *Handler {
	return &Handler{log: log, accounts: accounts}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.profileedit"

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

	var upd models.ProfileUpdate
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&upd); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body: immutable or unknown fields are not allowed"))
		return
	}

	profile, err := h.accounts.UpdateProfile(r.Context(), principal, targetUID, upd)
	if err != nil {
		log.Error("profile update failed", sl.Err(err))
		status, resp := response.FromDomainError(err)
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}

	render.JSON(w, r, response.StatusOKWithData(view.FromProfile(*profile)))
}
