// Package account реализует управление жизненным циклом учётной записи:
// машину состояний, проверку прав и валидируемое изменение полей профиля.
// Каждая мутирующая операция применяется целиком либо не применяется вовсе.
package account

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pillarmind/account-service/internal/lib/password"
	"github.com/pillarmind/account-service/internal/lib/sl"
	"github.com/pillarmind/account-service/internal/metrics"
	"github.com/pillarmind/account-service/internal/models"
	"github.com/pillarmind/account-service/internal/validation"
)

// Repository описывает контракт хранилища для операций жизненного цикла.
type Repository interface {
	// GetAccountByUID возвращает учётную запись или ErrNotFound.
	GetAccountByUID(ctx context.Context, uid string) (*models.Account, error)
	// GetProfile возвращает профиль учётной записи или ErrNotFound.
	GetProfile(ctx context.Context, accountUID string) (*models.Profile, error)
	// UpdateProfile перезаписывает изменяемые поля профиля и, если phone
	// не nil, телефон учётной записи в одной транзакции. Нарушение
	// уникальности телефона — ErrConflict.
	UpdateProfile(ctx context.Context, profile models.Profile, phone *string) error
	// UpdatePrivacy сохраняет настройки приватности.
	UpdatePrivacy(ctx context.Context, accountUID string, privacy models.PrivacySettings) error
	// UpdateRole изменяет роль учётной записи.
	UpdateRole(ctx context.Context, uid string, role models.Role) error
	// TransitionState атомарно меняет состояние и дописывает журнал.
	TransitionState(ctx context.Context, event models.StatusEvent) error
	// ListAccounts возвращает учётные записи с пагинацией.
	ListAccounts(ctx context.Context, limit, offset int) ([]*models.Account, error)
	// ListStatusEvents возвращает журнал переходов учётной записи.
	ListStatusEvents(ctx context.Context, accountUID string) ([]*models.StatusEvent, error)
}

// Cache описывает методы кеширования пары аккаунт+профиль.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// EventPublisher публикует события жизненного цикла.
type EventPublisher interface {
	Publish(routingKey string, event any) error
}

// StatusChangedEvent событие перехода состояния учётной записи.
type StatusChangedEvent struct {
	AccountUID string    `json:"account_uid"`
	FromState  string    `json:"from_state"`
	ToState    string    `json:"to_state"`
	Reason     string    `json:"reason,omitempty"`
	At         time.Time `json:"at"`
}

const cacheTTL = time.Hour

// Service реализует операции над учётными записями и профилями.
type Service struct {
	repo   Repository
	cache  Cache
	events EventPublisher
	log    *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, cache Cache, events EventPublisher, log *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  cache,
		events: events,
		log:    log,
	}
}

func cacheKey(uid string) string { return fmt.Sprintf("account:%s", uid) }

// Get возвращает пару аккаунт+профиль, используя кеш или хранилище.
// Чужие записи доступны только ролям с правом read_account.
func (s *Service) Get(ctx context.Context, principal models.Principal, targetUID string) (*models.AccountWithProfile, error) {
	if err := authorize(principal, targetUID, OpReadAccount); err != nil {
		return nil, err
	}

	var cached models.AccountWithProfile
	found, err := s.cache.Get(cacheKey(targetUID), &cached)
	if err != nil {
		s.log.Warn("cache read failed", sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	acc, err := s.repo.GetAccountByUID(ctx, targetUID)
	if err != nil {
		return nil, err
	}
	profile, err := s.repo.GetProfile(ctx, targetUID)
	if err != nil {
		return nil, err
	}

	pair := &models.AccountWithProfile{Account: *acc, Profile: *profile}
	if err = s.cache.Set(cacheKey(targetUID), pair, cacheTTL); err != nil {
		s.log.Warn("failed to cache account", sl.Err(err))
	}
	return pair, nil
}

// UpdateProfile применяет валидированное обновление изменяемых полей
// профиля. Неизменяемые поля учётной записи (uid, username, email, role,
// state, created_at) через этот путь недоступны: их нет в ProfileUpdate,
// а неизвестные поля запроса отклоняет HTTP-слой. Обновление весов
// требует полного набора из четырёх значений с суммой 1.0.
func (s *Service) UpdateProfile(ctx context.Context, principal models.Principal, targetUID string, upd models.ProfileUpdate) (*models.Profile, error) {
	if err := authorize(principal, targetUID, OpUpdateProfile); err != nil {
		return nil, err
	}

	profile, err := s.repo.GetProfile(ctx, targetUID)
	if err != nil {
		return nil, err
	}

	merged, err := mergeProfile(*profile, upd, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if upd.Phone != nil {
		if err = validation.ValidatePhone(*upd.Phone); err != nil {
			return nil, err
		}
	}

	// телефон и профиль пишутся одной транзакцией хранилища:
	// при отказе ни одно из изменений не фиксируется
	if err = s.repo.UpdateProfile(ctx, merged, upd.Phone); err != nil {
		return nil, err
	}

	if err = s.cache.Invalidate(cacheKey(targetUID)); err != nil {
		s.log.Warn("failed to invalidate cache", sl.Err(err))
	}
	s.log.Info("updated profile", slog.String("uid", targetUID))
	return &merged, nil
}

// UpdatePrivacy накладывает частичное обновление переключателей
// приватности и сохраняет результат.
func (s *Service) UpdatePrivacy(ctx context.Context, principal models.Principal, targetUID string, upd models.PrivacyUpdate) (*models.PrivacySettings, error) {
	if err := authorize(principal, targetUID, OpUpdatePrivacy); err != nil {
		return nil, err
	}

	profile, err := s.repo.GetProfile(ctx, targetUID)
	if err != nil {
		return nil, err
	}

	privacy := upd.Apply(profile.Privacy)
	if err = s.repo.UpdatePrivacy(ctx, targetUID, privacy); err != nil {
		return nil, err
	}

	if err = s.cache.Invalidate(cacheKey(targetUID)); err != nil {
		s.log.Warn("failed to invalidate cache", sl.Err(err))
	}
	return &privacy, nil
}

// TransitionState выполняет переход состояния по таблице машины состояний.
// Переход вне таблицы отклоняется с ErrInvalidStateTransition, недостаток
// прав — с ErrPermissionDenied. Каждый переход фиксируется в журнале
// и публикуется как событие account.status_changed.
func (s *Service) TransitionState(ctx context.Context, principal models.Principal, targetUID string, to models.State, reason string) (*models.Account, error) {
	if !to.Valid() {
		return nil, models.NewValidationError("state", "unknown target state")
	}

	acc, err := s.repo.GetAccountByUID(ctx, targetUID)
	if err != nil {
		return nil, err
	}

	rule, ok := lookupTransition(acc.State, to)
	if !ok {
		return nil, models.ErrInvalidStateTransition
	}

	switch {
	case principal.IsAdmin():
		// администратору доступен любой переход из таблицы
	case rule.AllowSelf && principal.IsSelf(targetUID):
		// самообслуживание: сейчас только active -> deactivated
	default:
		return nil, models.ErrPermissionDenied
	}

	if rule.RequireReason && strings.TrimSpace(reason) == "" {
		return nil, models.NewValidationError("reason", "reason is required for this transition")
	}

	now := time.Now().UTC()
	event := models.StatusEvent{
		AccountUID: targetUID,
		ActorUID:   principal.UID,
		FromState:  acc.State,
		ToState:    to,
		Reason:     reason,
		CreatedAt:  now,
	}
	if err = s.repo.TransitionState(ctx, event); err != nil {
		return nil, err
	}

	if err = s.cache.Invalidate(cacheKey(targetUID)); err != nil {
		s.log.Warn("failed to invalidate cache", sl.Err(err))
	}
	metrics.StateTransitionsTotal.WithLabelValues(string(to)).Inc()
	s.log.Info("account state changed",
		slog.String("uid", targetUID),
		slog.String("from", string(acc.State)),
		slog.String("to", string(to)))

	if err = s.events.Publish("account.status_changed", StatusChangedEvent{
		AccountUID: targetUID,
		FromState:  string(acc.State),
		ToState:    string(to),
		Reason:     reason,
		At:         now,
	}); err != nil {
		s.log.Warn("failed to publish status event", sl.Err(err))
	}

	return s.repo.GetAccountByUID(ctx, targetUID)
}

// Deactivate самостоятельная деактивация учётной записи после
// подтверждения паролем.
func (s *Service) Deactivate(ctx context.Context, principal models.Principal, rawPassword string) error {
	acc, err := s.repo.GetAccountByUID(ctx, principal.UID)
	if err != nil {
		return err
	}
	if err = password.Verify(acc.PasswordHash, rawPassword); err != nil {
		return models.ErrInvalidCredentials
	}

	_, err = s.TransitionState(ctx, principal, principal.UID, models.StateDeactivated, "self-service deactivation")
	return err
}

// ChangeRole меняет роль учётной записи. Доступно только администратору.
func (s *Service) ChangeRole(ctx context.Context, principal models.Principal, targetUID string, role models.Role) (*models.Account, error) {
	if !allowed(principal.Role, OpChangeRole) {
		return nil, models.ErrPermissionDenied
	}
	if !role.Valid() {
		return nil, models.NewValidationError("role", "unknown role")
	}

	if _, err := s.repo.GetAccountByUID(ctx, targetUID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateRole(ctx, targetUID, role); err != nil {
		return nil, err
	}
	if err := s.cache.Invalidate(cacheKey(targetUID)); err != nil {
		s.log.Warn("failed to invalidate cache", sl.Err(err))
	}
	return s.repo.GetAccountByUID(ctx, targetUID)
}

// List возвращает учётные записи с пагинацией. Доступно только администратору.
func (s *Service) List(ctx context.Context, principal models.Principal, limit, offset int) ([]*models.Account, error) {
	if !allowed(principal.Role, OpListAccounts) {
		return nil, models.ErrPermissionDenied
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.repo.ListAccounts(ctx, limit, offset)
}

// AuditTrail возвращает журнал переходов учётной записи.
// Доступен администратору и владельцу записи.
func (s *Service) AuditTrail(ctx context.Context, principal models.Principal, targetUID string) ([]*models.StatusEvent, error) {
	if !principal.IsSelf(targetUID) && !allowed(principal.Role, OpReadAuditTrail) {
		return nil, models.ErrPermissionDenied
	}
	return s.repo.ListStatusEvents(ctx, targetUID)
}

// mergeProfile накладывает обновление на профиль, проверяя каждое поле.
// Возвращает первый отказ валидации; профиль при этом не меняется.
func mergeProfile(profile models.Profile, upd models.ProfileUpdate, now time.Time) (models.Profile, error) {
	if upd.DateOfBirth != nil {
		dob, err := time.Parse("2006-01-02", *upd.DateOfBirth)
		if err != nil {
			return profile, models.NewValidationError("date_of_birth", "must be in format YYYY-MM-DD")
		}
		if err = validation.ValidateAge(dob, now); err != nil {
			return profile, err
		}
		profile.DateOfBirth = &dob
	}
	if upd.Bio != nil {
		if err := validation.ValidateBio(*upd.Bio); err != nil {
			return profile, err
		}
		profile.Bio = upd.Bio
	}
	if upd.Medications != nil {
		for _, m := range upd.Medications {
			if err := validation.ValidateMedication(m); err != nil {
				return profile, err
			}
		}
		profile.Medications = upd.Medications
	}
	if upd.PillarWeights != nil {
		weights, err := validation.ValidatePillarWeightsMap(upd.PillarWeights)
		if err != nil {
			return profile, err
		}
		profile.PillarWeights = weights
	}
	if upd.FullName != nil {
		profile.FullName = upd.FullName
	}
	if upd.Gender != nil {
		profile.Gender = upd.Gender
	}
	if upd.Location != nil {
		profile.Location = upd.Location
	}
	if upd.Timezone != nil {
		profile.Timezone = upd.Timezone
	}
	if upd.PreferredLanguage != nil {
		profile.PreferredLanguage = upd.PreferredLanguage
	}
	if upd.CrisisContact != nil {
		profile.CrisisContact = upd.CrisisContact
	}
	if upd.Conditions != nil {
		profile.Conditions = upd.Conditions
	}
	profile.UpdatedAt = now
	return profile, nil
}
