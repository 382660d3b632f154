package profileupdate

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/pillarmind/account-service/internal/http/middlewarectx"
	"github.com/pillarmind/account-service/internal/models"
)

type AccountServiceMock struct {
	mock.Mock
}

func (m *AccountServiceMock) UpdateProfile(ctx context.Context, principal models.Principal, targetUID string, upd models.ProfileUpdate) (*models.Profile, error) {
	args := m.Called(ctx, principal, targetUID, upd)
	profile, _ := args.Get(0).(*models.Profile)
	return profile, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestProfileUpdateHandler_ServeHTTP(t *testing.T) {
	principal := models.Principal{UID: "uid-1", Username: "user1", Role: models.RoleUser}
	updated := &models.Profile{
		AccountUID:    "uid-1",
		PillarWeights: models.DefaultPillarWeights(),
		Privacy:       models.DefaultPrivacySettings(),
	}

	tests := []struct {
		name           string
		body           string
		withPrincipal  bool
		mockProfile    *models.Profile
		mockErr        error
		wantStatusCode int
		wantError      string
	}{
		{
			name:           "valid update",
			body:           `{"full_name":"New Name","bio":"hello"}`,
			withPrincipal:  true,
			mockProfile:    updated,
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "immutable field email rejected",
			body:           `{"email":"sneaky@example.com"}`,
			withPrincipal:  true,
			wantStatusCode: http.StatusBadRequest,
			wantError:      "immutable or unknown fields",
		},
		{
			name:           "immutable field role rejected",
			body:           `{"role":"admin"}`,
			withPrincipal:  true,
			wantStatusCode: http.StatusBadRequest,
			wantError:      "immutable or unknown fields",
		},
		{
			name:           "unknown field rejected",
			body:           `{"no_such_field":1}`,
			withPrincipal:  true,
			wantStatusCode: http.StatusBadRequest,
			wantError:      "immutable or unknown fields",
		},
		{
			name:           "missing principal",
			body:           `{"bio":"hello"}`,
			wantStatusCode: http.StatusUnauthorized,
			wantError:      "authentication required",
		},
		{
			name:           "domain validation error",
			body:           `{"primary_pillar_weights":{"health":0.5,"work":0.5,"growth":0.5,"relationships":0.5}}`,
			withPrincipal:  true,
			mockErr:        models.NewValidationError("primary_pillar_weights", "weights must sum to 1.0"),
			wantStatusCode: http.StatusBadRequest,
			wantError:      "weights must sum to 1.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svcMock := new(AccountServiceMock)
			handler := New(newNoopLogger(), svcMock)

			if tt.mockProfile != nil || tt.mockErr != nil {
				svcMock.On("UpdateProfile", mock.Anything, principal, "uid-1", mock.Anything).
					Return(tt.mockProfile, tt.mockErr).Once()
			}

			req := httptest.NewRequest(http.MethodPut, "/users/me/profile", bytes.NewReader([]byte(tt.body)))
			ctx := context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123")
			if tt.withPrincipal {
				ctx = context.WithValue(ctx, middlewarectx.PrincipalKey, principal)
			}
			req = req.WithContext(ctx)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var got map[string]any
			err := json.NewDecoder(rec.Body).Decode(&got)
			assert.NoError(t, err)
			if tt.wantError != "" {
				assert.Contains(t, got["error"], tt.wantError)
			}

			svcMock.AssertExpectations(t)
			if tt.wantError != "" && tt.mockErr == nil {
				svcMock.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}

	// карта весов доходит до сервиса в исходном составе: пропущенные
	// сферы не превращаются в нули при декодировании
	t.Run("partial weights map is passed through intact", func(t *testing.T) {
		svcMock := new(AccountServiceMock)
		handler := New(newNoopLogger(), svcMock)

		svcMock.On("UpdateProfile", mock.Anything, principal, "uid-1",
			mock.MatchedBy(func(upd models.ProfileUpdate) bool {
				return len(upd.PillarWeights) == 1 && upd.PillarWeights["health"] == 1.0
			})).
			Return(nil, models.NewValidationError("primary_pillar_weights",
				"all four pillar weights (health, work, growth, relationships) must be provided")).
			Once()

		body := `{"primary_pillar_weights":{"health":1.0}}`
		req := httptest.NewRequest(http.MethodPut, "/users/me/profile", bytes.NewReader([]byte(body)))
		ctx := context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123")
		ctx = context.WithValue(ctx, middlewarectx.PrincipalKey, principal)
		req = req.WithContext(ctx)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svcMock.AssertExpectations(t)
	})
}
