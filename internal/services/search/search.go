// Package search реализует поиск людей с применением настроек приватности:
// записи с show_in_search=false не попадают в чужую выдачу, а каждое поле
// результата скрывается, если соответствующий переключатель выключен.
// Владелец записи и администратор видят её целиком.
package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/pillarmind/account-service/internal/models"
)

// Repository описывает контракт хранилища для поиска.
type Repository interface {
	// SearchProfiles возвращает совпавшие пары аккаунт+профиль,
	// детерминированно по возрастанию uid.
	SearchProfiles(ctx context.Context, queryText string, limit, offset int) ([]*models.AccountWithProfile, error)
}

// Result один результат поиска после применения приватности.
// Скрытые поля опускаются в JSON.
type Result struct {
	UID           string              `json:"uid"`
	Username      string              `json:"username"`
	FullName      *string             `json:"full_name,omitempty"`
	Email         string              `json:"email,omitempty"`
	Phone         *string             `json:"phone,omitempty"`
	Location      *string             `json:"location,omitempty"`
	DateOfBirth   *time.Time          `json:"date_of_birth,omitempty"`
	Bio           *string             `json:"bio,omitempty"`
	AllowMessages bool                `json:"allow_messages"`
	Medications   []models.Medication `json:"medications,omitempty"`
	Conditions    []string            `json:"conditions,omitempty"`
}

// Service выполняет поиск и приватную фильтрацию результатов.
type Service struct {
	repo Repository
	log  *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Search ищет по подстроке в username, full_name и location без учёта
// регистра. Порядок результатов стабилен (по uid). Для каждого результата
// применяется приватная фильтрация относительно запрашивающего субъекта.
func (s *Service) Search(ctx context.Context, principal models.Principal, queryText string, limit, offset int) ([]Result, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	pairs, err := s.repo.SearchProfiles(ctx, queryText, limit, offset)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(pairs))
	for _, pair := range pairs {
		owner := principal.IsSelf(pair.Account.UID)
		admin := principal.IsAdmin()
		if !pair.Profile.Privacy.ShowInSearch && !owner && !admin {
			continue
		}
		results = append(results, redact(pair, owner || admin))
	}
	return results, nil
}

// redact строит результат поиска, скрывая поля по настройкам приватности.
// full=true (владелец или администратор) возвращает запись без изъятий.
func redact(pair *models.AccountWithProfile, full bool) Result {
	r := Result{
		UID:           pair.Account.UID,
		Username:      pair.Account.Username,
		AllowMessages: pair.Profile.Privacy.AllowMessages,
	}
	if full {
		r.FullName = pair.Profile.FullName
		r.Email = pair.Account.Email
		r.Phone = pair.Account.Phone
		r.Location = pair.Profile.Location
		r.DateOfBirth = pair.Profile.DateOfBirth
		r.Bio = pair.Profile.Bio
		r.Medications = pair.Profile.Medications
		r.Conditions = pair.Profile.Conditions
		return r
	}

	privacy := pair.Profile.Privacy
	if privacy.ShowProfile {
		r.FullName = pair.Profile.FullName
		r.Bio = pair.Profile.Bio
	}
	if privacy.ShowEmail {
		r.Email = pair.Account.Email
	}
	if privacy.ShowPhone {
		r.Phone = pair.Account.Phone
	}
	if privacy.ShowLocation {
		r.Location = pair.Profile.Location
	}
	if privacy.ShowBirthday {
		r.DateOfBirth = pair.Profile.DateOfBirth
	}
	// Медицинские данные чужим не видны никогда.
	return r
}
