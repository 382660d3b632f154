package models

import "time"

// PillarWeights распределение важности по четырём жизненным сферам.
// Фиксированная форма вместо произвольной map: невалидные ключи
// невозможны на уровне типа. Сумма значений всегда равна 1.0 (±0.001).
type PillarWeights struct {
	Health        float64 `json:"health"`
	Work          float64 `json:"work"`
	Growth        float64 `json:"growth"`
	Relationships float64 `json:"relationships"`
}

// Sum возвращает сумму весов.
func (w PillarWeights) Sum() float64 {
	return w.Health + w.Work + w.Growth + w.Relationships
}

// DefaultPillarWeights равномерное распределение, назначается при регистрации.
func DefaultPillarWeights() PillarWeights {
	return PillarWeights{Health: 0.25, Work: 0.25, Growth: 0.25, Relationships: 0.25}
}

// Medication запись о принимаемом препарате.
type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency,omitempty"`
}

// PrivacySettings набор переключателей видимости полей профиля
// для других пользователей. Фиксированная форма вместо произвольной map.
type PrivacySettings struct {
	ShowProfile   bool `json:"show_profile"`
	ShowEmail     bool `json:"show_email"`
	ShowPhone     bool `json:"show_phone"`
	ShowLocation  bool `json:"show_location"`
	ShowBirthday  bool `json:"show_birthday"`
	ShowInSearch  bool `json:"show_in_search"`
	AllowMessages bool `json:"allow_messages"`
}

// DefaultPrivacySettings настройки приватности при регистрации.
func DefaultPrivacySettings() PrivacySettings {
	return PrivacySettings{
		ShowProfile:   true,
		ShowInSearch:  true,
		AllowMessages: true,
	}
}

// Profile расширенные персональные данные, принадлежащие одной учётной записи.
// Создаётся вместе с Account, изменяется только через валидируемые операции.
type Profile struct {
	AccountUID        string
	FullName          *string
	DateOfBirth       *time.Time
	Gender            *string
	Location          *string
	Timezone          *string
	PreferredLanguage *string
	CrisisContact     *string
	Bio               *string
	Medications       []Medication
	Conditions        []string
	PillarWeights     PillarWeights
	Privacy           PrivacySettings
	UpdatedAt         time.Time
}

// ProfileUpdate набор изменяемых полей профиля. Поля-указатели со значением
// nil не затрагиваются. Неизменяемые поля учётной записи (uid, username,
// email, role, state, created_at) сюда не входят и меняются только через
// выделенные привилегированные операции.
//
// Веса принимаются картой, а не PillarWeights: при декодировании в структуру
// пропущенная сфера незаметно стала бы нулём. Карта сохраняет фактический
// состав запроса, полноту набора проверяет валидация.
type ProfileUpdate struct {
	FullName          *string            `json:"full_name"`
	DateOfBirth       *string            `json:"date_of_birth"` // формат 2006-01-02
	Gender            *string            `json:"gender"`
	Location          *string            `json:"location"`
	Timezone          *string            `json:"timezone"`
	PreferredLanguage *string            `json:"preferred_language"`
	CrisisContact     *string            `json:"crisis_contact"`
	Bio               *string            `json:"bio"`
	Medications       []Medication       `json:"medications"`
	Conditions        []string           `json:"conditions"`
	PillarWeights     map[string]float64 `json:"primary_pillar_weights"`
	Phone             *string            `json:"phone"`
}

// PrivacyUpdate частичное обновление настроек приватности: nil означает
// "оставить как есть".
type PrivacyUpdate struct {
	ShowProfile   *bool `json:"show_profile"`
	ShowEmail     *bool `json:"show_email"`
	ShowPhone     *bool `json:"show_phone"`
	ShowLocation  *bool `json:"show_location"`
	ShowBirthday  *bool `json:"show_birthday"`
	ShowInSearch  *bool `json:"show_in_search"`
	AllowMessages *bool `json:"allow_messages"`
}

// Apply накладывает частичное обновление на текущие настройки.
func (u PrivacyUpdate) Apply(p PrivacySettings) PrivacySettings {
	if u.ShowProfile != nil {
		p.ShowProfile = *u.ShowProfile
	}
	if u.ShowEmail != nil {
		p.ShowEmail = *u.ShowEmail
	}
	if u.ShowPhone != nil {
		p.ShowPhone = *u.ShowPhone
	}
	if u.ShowLocation != nil {
		p.ShowLocation = *u.ShowLocation
	}
	if u.ShowBirthday != nil {
		p.ShowBirthday = *u.ShowBirthday
	}
	if u.ShowInSearch != nil {
		p.ShowInSearch = *u.ShowInSearch
	}
	if u.AllowMessages != nil {
		p.AllowMessages = *u.AllowMessages
	}
	return p
}
