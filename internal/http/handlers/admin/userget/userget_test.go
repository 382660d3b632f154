package userget

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/pillarmind/account-service/internal/http/middlewarectx"
	"github.com/pillarmind/account-service/internal/models"
)

type AccountServiceMock struct {
	mock.Mock
}

func (m *AccountServiceMock) Get(ctx context.Context, principal models.Principal, targetUID string) (*models.AccountWithProfile, error) {
	args := m.Called(ctx, principal, targetUID)
	pair, _ := args.Get(0).(*models.AccountWithProfile)
	return pair, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestUserGetHandler_ServeHTTP(t *testing.T) {
	admin := models.Principal{UID: "admin-1", Username: "admin", Role: models.RoleAdmin}
	user := models.Principal{UID: "uid-2", Username: "user2", Role: models.RoleUser}

	pair := &models.AccountWithProfile{
		Account: models.Account{UID: "uid-1", Username: "user1", State: models.StateActive},
		Profile: models.Profile{
			AccountUID:    "uid-1",
			PillarWeights: models.DefaultPillarWeights(),
			Privacy:       models.DefaultPrivacySettings(),
		},
	}

	tests := []struct {
		name           string
		principal      models.Principal
		mockPair       *models.AccountWithProfile
		mockErr        error
		wantStatusCode int
		wantError      string
	}{
		{
			name:           "admin reads another account",
			principal:      admin,
			mockPair:       pair,
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "stranger denied",
			principal:      user,
			mockErr:        models.ErrPermissionDenied,
			wantStatusCode: http.StatusForbidden,
			wantError:      "permission denied",
		},
		{
			name:           "unknown account",
			principal:      admin,
			mockErr:        models.ErrNotFound,
			wantStatusCode: http.StatusNotFound,
			wantError:      "not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svcMock := new(AccountServiceMock)
			handler := New(newNoopLogger(), svcMock)

			svcMock.On("Get", mock.Anything, tt.principal, "uid-1").
				Return(tt.mockPair, tt.mockErr).Once()

			req := httptest.NewRequest(http.MethodGet, "/admin/users/uid-1", nil)

			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("uid", "uid-1")
			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
			ctx = context.WithValue(ctx, middleware.RequestIDKey, "reqid123")
			ctx = context.WithValue(ctx, middlewarectx.PrincipalKey, tt.principal)
			req = req.WithContext(ctx)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var got map[string]any
			err := json.NewDecoder(rec.Body).Decode(&got)
			assert.NoError(t, err)
			if tt.wantError != "" {
				assert.Contains(t, got["error"], tt.wantError)
			} else {
				data, ok := got["data"].(map[string]any)
				assert.True(t, ok)
				account, ok := data["account"].(map[string]any)
				assert.True(t, ok)
				assert.Equal(t, "uid-1", account["uid"])
			}

			svcMock.AssertExpectations(t)
		})
	}
}
