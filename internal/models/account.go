// Package models содержит доменную модель сервиса аккаунтов:
// учётную запись пользователя, профиль, роли и состояния жизненного цикла.
// Структуры используются в бизнес‑логике и при работе с хранилищем.
package models

import "time"

// Role роль пользователя в системе. Закрытое множество значений.
type Role string

// Возможные роли.
const (
	RoleUser      Role = "user"
	RoleClinician Role = "clinician"
	RoleAdmin     Role = "admin"
)

// Valid сообщает, входит ли роль в закрытое множество.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleClinician, RoleAdmin:
		return true
	}
	return false
}

// State состояние жизненного цикла учётной записи.
type State string

// Возможные состояния. StateDeleted — терминальное.
const (
	StateActive      State = "active"
	StateSuspended   State = "suspended"
	StateDeactivated State = "deactivated"
	StateDeleted     State = "deleted"
)

// Valid сообщает, входит ли состояние в закрытое множество.
func (s State) Valid() bool {
	switch s {
	case StateActive, StateSuspended, StateDeactivated, StateDeleted:
		return true
	}
	return false
}

// Account представляет учётную запись пользователя.
type Account struct {
	UID                 string     // Уникальный идентификатор (uuid)
	Username            string     // Имя пользователя (уникальное)
	Email               string     // Электронная почта (уникальная)
	Phone               *string    // Телефон, опционален; уникален, если задан
	PasswordHash        string     // bcrypt-хэш пароля, никогда не равен открытому паролю
	Role                Role       // Роль: user, clinician или admin
	State               State      // Состояние жизненного цикла
	CreatedAt           time.Time  // Дата создания
	UpdatedAt           time.Time  // Дата последнего изменения
	LastLoginAt         *time.Time // Дата последнего успешного входа
	FailedLoginAttempts int        // Подряд идущие неудачные попытки входа
	LockoutUntil        *time.Time // Блокировка входа до этого момента
	PasswordChangedAt   *time.Time // Дата последней смены пароля
}

// Principal аутентифицированный субъект, выполняющий операцию.
// Формируется после проверки учётных данных или JWT.
type Principal struct {
	UID      string
	Username string
	Role     Role
	State    State
}

// IsAdmin сообщает, обладает ли субъект правами администратора.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// IsSelf сообщает, действует ли субъект над собственной учётной записью.
func (p Principal) IsSelf(accountUID string) bool { return p.UID == accountUID }

// AccountWithProfile пара учётной записи и её профиля, как она
// возвращается операциями регистрации, чтения и поиска.
type AccountWithProfile struct {
	Account Account
	Profile Profile
}

// StatusEvent запись журнала переходов состояния учётной записи.
// Журнал только дополняется, записи не изменяются.
type StatusEvent struct {
	ID         int64
	AccountUID string
	ActorUID   string
	FromState  State
	ToState    State
	Reason     string
	CreatedAt  time.Time
}
