// Package view содержит внешние представления доменных структур.
// Хэш пароля и служебные счётчики входа наружу не отдаются.
package view

import (
	"time"

	"github.com/pillarmind/account-service/internal/models"
)

// Account внешнее представление учётной записи.
type Account struct {
	UID         string     `json:"uid"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Phone       *string    `json:"phone,omitempty"`
	Role        string     `json:"role"`
	State       string     `json:"state"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// Profile внешнее представление профиля.
type Profile struct {
	FullName          *string                `json:"full_name,omitempty"`
	DateOfBirth       *string                `json:"date_of_birth,omitempty"`
	Gender            *string                `json:"gender,omitempty"`
	Location          *string                `json:"location,omitempty"`
	Timezone          *string                `json:"timezone,omitempty"`
	PreferredLanguage *string                `json:"preferred_language,omitempty"`
	CrisisContact     *string                `json:"crisis_contact,omitempty"`
	Bio               *string                `json:"bio,omitempty"`
	Medications       []models.Medication    `json:"medications"`
	Conditions        []string               `json:"conditions"`
	PillarWeights     models.PillarWeights   `json:"primary_pillar_weights"`
	Privacy           models.PrivacySettings `json:"privacy_settings"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// FromAccount строит представление учётной записи.
func FromAccount(acc models.Account) Account {
	return Account{
		UID:         acc.UID,
		Username:    acc.Username,
		Email:       acc.Email,
		Phone:       acc.Phone,
		Role:        string(acc.Role),
		State:       string(acc.State),
		CreatedAt:   acc.CreatedAt,
		LastLoginAt: acc.LastLoginAt,
	}
}

// FromProfile строит представление профиля.
func FromProfile(p models.Profile) Profile {
	var dob *string
	if p.DateOfBirth != nil {
		s := p.DateOfBirth.Format("2006-01-02")
		dob = &s
	}
	medications := p.Medications
	if medications == nil {
		medications = []models.Medication{}
	}
	conditions := p.Conditions
	if conditions == nil {
		conditions = []string{}
	}
	return Profile{
		FullName:          p.FullName,
		DateOfBirth:       dob,
		Gender:            p.Gender,
		Location:          p.Location,
		Timezone:          p.Timezone,
		PreferredLanguage: p.PreferredLanguage,
		CrisisContact:     p.CrisisContact,
		Bio:               p.Bio,
		Medications:       medications,
		Conditions:        conditions,
		PillarWeights:     p.PillarWeights,
		Privacy:           p.Privacy,
		UpdatedAt:         p.UpdatedAt,
	}
}

// FromPair строит представление пары аккаунт+профиль.
func FromPair(pair models.AccountWithProfile) map[string]any {
	return map[string]any{
		"account": FromAccount(pair.Account),
		"profile": FromProfile(pair.Profile),
	}
}
