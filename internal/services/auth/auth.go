// Package auth содержит бизнес-логику регистрации, аутентификации
// и управления паролями, включая политику блокировки после серии
// неудачных попыток входа.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pillarmind/account-service/internal/lib/jwt"
	"github.com/pillarmind/account-service/internal/lib/password"
	"github.com/pillarmind/account-service/internal/lib/sl"
	"github.com/pillarmind/account-service/internal/metrics"
	"github.com/pillarmind/account-service/internal/models"
	"github.com/pillarmind/account-service/internal/validation"
)

// AccountRepository описывает контракт хранилища для операций аутентификации.
type AccountRepository interface {
	// CreateAccountWithProfile атомарно создаёт учётную запись и профиль.
	CreateAccountWithProfile(ctx context.Context, acc models.Account, profile models.Profile) error
	// GetAccountByEmail возвращает учётную запись по почте или ErrNotFound.
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	// GetAccountByUID возвращает учётную запись по uid или ErrNotFound.
	GetAccountByUID(ctx context.Context, uid string) (*models.Account, error)
	// RecordLoginSuccess фиксирует успешный вход.
	RecordLoginSuccess(ctx context.Context, uid string, at time.Time) error
	// RecordLoginFailure фиксирует неудачную попытку и возможную блокировку.
	RecordLoginFailure(ctx context.Context, uid string, attempts int, lockoutUntil *time.Time) error
	// UpdatePasswordHash атомарно заменяет хэш пароля.
	UpdatePasswordHash(ctx context.Context, uid, hash string, changedAt time.Time) error
}

// EventPublisher публикует события жизненного цикла учётных записей.
type EventPublisher interface {
	Publish(routingKey string, event any) error
}

// LockoutPolicy политика блокировки входа.
type LockoutPolicy struct {
	MaxFailedAttempts int           // Порог подряд идущих неудачных попыток
	LockoutWindow     time.Duration // Длительность блокировки
}

// RegisteredEvent событие успешной регистрации. Персональные данные
// в очередь не попадают.
type RegisteredEvent struct {
	AccountUID string    `json:"account_uid"`
	Username   string    `json:"username"`
	At         time.Time `json:"at"`
}

// AuthService отвечает за регистрацию, вход, обновление токенов и смену пароля.
type AuthService struct {
	accounts AccountRepository
	jwtMaker jwt.Maker
	events   EventPublisher
	policy   LockoutPolicy
	log      *slog.Logger
}

// New создает новый экземпляр AuthService.
func New(accounts AccountRepository, jwtMaker jwt.Maker, events EventPublisher, policy LockoutPolicy, log *slog.Logger) *AuthService {
	return &AuthService{
		accounts: accounts,
		jwtMaker: jwtMaker,
		events:   events,
		policy:   policy,
		log:      log,
	}
}

// Register создаёт учётную запись в состоянии active с ролью user
// и пустой профиль с весами по 0.25 и настройками приватности по умолчанию.
// Возвращает ErrConflict, если username, email или телефон уже заняты.
func (s *AuthService) Register(ctx context.Context, username, email, rawPassword string, phone *string) (*models.AccountWithProfile, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(rawPassword); err != nil {
		return nil, err
	}
	if phone != nil {
		if err := validation.ValidatePhone(*phone); err != nil {
			return nil, err
		}
	}

	hashed, err := password.Hash(rawPassword)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	acc := models.Account{
		UID:          uuid.New().String(),
		Username:     username,
		Email:        email,
		Phone:        phone,
		PasswordHash: hashed,
		Role:         models.RoleUser, // дефолтная роль при регистрации
		State:        models.StateActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	profile := models.Profile{
		AccountUID:    acc.UID,
		PillarWeights: models.DefaultPillarWeights(),
		Privacy:       models.DefaultPrivacySettings(),
		UpdatedAt:     now,
	}

	if err = s.accounts.CreateAccountWithProfile(ctx, acc, profile); err != nil {
		return nil, err
	}

	metrics.RegistrationsTotal.Inc()
	s.log.Info("registered new account", slog.String("uid", acc.UID))

	if err = s.events.Publish("account.registered", RegisteredEvent{
		AccountUID: acc.UID,
		Username:   acc.Username,
		At:         now,
	}); err != nil {
		s.log.Warn("failed to publish registration event", sl.Err(err))
	}

	return &models.AccountWithProfile{Account: acc, Profile: profile}, nil
}

// Login проверяет учётные данные и выпускает токены доступа и обновления.
// Вход разрешён только из состояния active; после policy.MaxFailedAttempts
// подряд идущих неудач аккаунт блокируется на policy.LockoutWindow.
func (s *AuthService) Login(ctx context.Context, email, rawPassword string) (*models.Principal, string, string, error) {
	acc, err := s.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			metrics.LoginsTotal.WithLabelValues("failure").Inc()
			return nil, "", "", models.ErrInvalidCredentials
		}
		return nil, "", "", err
	}

	now := time.Now().UTC()
	if acc.LockoutUntil != nil && acc.LockoutUntil.After(now) {
		metrics.LoginsTotal.WithLabelValues("locked").Inc()
		return nil, "", "", models.ErrAccountLocked
	}

	if err = password.Verify(acc.PasswordHash, rawPassword); err != nil {
		attempts := acc.FailedLoginAttempts + 1
		var lockoutUntil *time.Time
		if attempts >= s.policy.MaxFailedAttempts {
			t := now.Add(s.policy.LockoutWindow)
			lockoutUntil = &t
		}
		if err = s.accounts.RecordLoginFailure(ctx, acc.UID, attempts, lockoutUntil); err != nil {
			s.log.Error("failed to record login failure", sl.Err(err))
		}
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, "", "", models.ErrInvalidCredentials
	}

	if acc.State != models.StateActive {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, "", "", models.ErrInvalidCredentials
	}

	if err = s.accounts.RecordLoginSuccess(ctx, acc.UID, now); err != nil {
		s.log.Error("failed to record login success", sl.Err(err))
	}

	token, err := s.jwtMaker.GenerateToken(acc.UID, acc.Username, string(acc.Role))
	if err != nil {
		return nil, "", "", err
	}
	refresh, err := s.jwtMaker.GenerateRefreshToken(acc.UID)
	if err != nil {
		return nil, "", "", err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	principal := &models.Principal{
		UID:      acc.UID,
		Username: acc.Username,
		Role:     acc.Role,
		State:    acc.State,
	}
	return principal, token, refresh, nil
}

// Refresh выпускает новый токен доступа по токену обновления. Токены,
// выпущенные до смены пароля, считаются отозванными.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwtMaker.ParseRefreshToken(refreshToken)
	if err != nil {
		return "", models.ErrInvalidToken
	}

	acc, err := s.accounts.GetAccountByUID(ctx, claims.UserUID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", models.ErrInvalidToken
		}
		return "", err
	}
	if acc.State != models.StateActive {
		return "", models.ErrInvalidToken
	}
	if revoked(acc, claims.IssuedAt.Time) {
		return "", models.ErrInvalidToken
	}

	return s.jwtMaker.GenerateToken(acc.UID, acc.Username, string(acc.Role))
}

// ChangePassword меняет пароль после проверки текущего. Смена пароля
// не меняет состояние учётной записи, но отзывает ранее выпущенные токены.
func (s *AuthService) ChangePassword(ctx context.Context, principal models.Principal, currentPassword, newPassword string) error {
	acc, err := s.accounts.GetAccountByUID(ctx, principal.UID)
	if err != nil {
		return err
	}
	if err = password.Verify(acc.PasswordHash, currentPassword); err != nil {
		return models.ErrInvalidCredentials
	}
	if err = validation.ValidatePassword(newPassword); err != nil {
		return err
	}

	hashed, err := password.Hash(newPassword)
	if err != nil {
		return err
	}
	return s.accounts.UpdatePasswordHash(ctx, acc.UID, hashed, time.Now().UTC())
}

// ResetPassword административный сброс пароля без знания текущего.
// Доступно только администратору; новый пароль сообщается пользователю
// вне системы. Как и смена пароля, отзывает ранее выпущенные токены.
func (s *AuthService) ResetPassword(ctx context.Context, principal models.Principal, targetUID, newPassword string) error {
	if !principal.IsAdmin() {
		return models.ErrPermissionDenied
	}
	if err := validation.ValidatePassword(newPassword); err != nil {
		return err
	}
	if _, err := s.accounts.GetAccountByUID(ctx, targetUID); err != nil {
		return err
	}

	hashed, err := password.Hash(newPassword)
	if err != nil {
		return err
	}
	if err = s.accounts.UpdatePasswordHash(ctx, targetUID, hashed, time.Now().UTC()); err != nil {
		return err
	}

	s.log.Info("password reset by administrator",
		slog.String("uid", targetUID),
		slog.String("actor_uid", principal.UID))
	return nil
}

// ValidateToken проверяет токен доступа и возвращает действующего субъекта.
// Токен отклоняется, если учётная запись не существует, не активна
// или пароль менялся после выпуска токена.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*models.Principal, error) {
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, models.ErrInvalidToken
	}

	acc, err := s.accounts.GetAccountByUID(ctx, claims.UserUID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidToken
		}
		return nil, err
	}
	if acc.State != models.StateActive {
		return nil, models.ErrInvalidToken
	}
	if revoked(acc, claims.IssuedAt.Time) {
		return nil, models.ErrInvalidToken
	}

	return &models.Principal{
		UID:      acc.UID,
		Username: acc.Username,
		Role:     acc.Role,
		State:    acc.State,
	}, nil
}

// revoked сообщает, был ли токен выпущен до последней смены пароля.
func revoked(acc *models.Account, issuedAt time.Time) bool {
	return acc.PasswordChangedAt != nil && issuedAt.Before(*acc.PasswordChangedAt)
}
