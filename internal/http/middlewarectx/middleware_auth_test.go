package middlewarectx_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/pillarmind/account-service/internal/http/middlewarectx"
	"github.com/pillarmind/account-service/internal/models"
)

// Мок для TokenValidator
type ValidatorMock struct {
	mock.Mock
}

func (m *ValidatorMock) ValidateToken(ctx context.Context, token string) (*models.Principal, error) {
	args := m.Called(ctx, token)
	principal, _ := args.Get(0).(*models.Principal)
	return principal, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestJWTMiddleware(t *testing.T) {
	principal := &models.Principal{UID: "uid-1", Username: "testuser", Role: models.RoleUser, State: models.StateActive}

	tests := []struct {
		name           string
		authHeader     string
		mockPrincipal  *models.Principal
		mockErr        error
		wantStatusCode int
		wantCalled     bool
	}{
		{
			name:           "missing Authorization header",
			authHeader:     "",
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "invalid Authorization header prefix",
			authHeader:     "Basic sometoken",
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "token validation error",
			authHeader:     "Bearer badtoken",
			mockErr:        models.ErrInvalidToken,
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "valid token",
			authHeader:     "Bearer goodtoken",
			mockPrincipal:  principal,
			wantStatusCode: http.StatusOK,
			wantCalled:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validatorMock := new(ValidatorMock)
			logger := newNoopLogger()

			handlerCalled := false
			nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
				got, ok := middlewarectx.PrincipalFromContext(r.Context())
				assert.True(t, ok)
				assert.Equal(t, "uid-1", got.UID)
				assert.Equal(t, models.RoleUser, got.Role)
				w.WriteHeader(http.StatusOK)
			})

			if tt.mockPrincipal != nil || tt.mockErr != nil {
				validatorMock.On("ValidateToken", mock.Anything, mock.Anything).
					Return(tt.mockPrincipal, tt.mockErr).Once()
			}

			mw := middlewarectx.JWTMiddleware(validatorMock, logger)(nextHandler)

			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			mw.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			assert.Equal(t, tt.wantCalled, handlerCalled)

			validatorMock.AssertExpectations(t)
		})
	}
}

func TestPrincipalFromContext_Missing(t *testing.T) {
	_, ok := middlewarectx.PrincipalFromContext(context.Background())
	assert.False(t, ok)
}
