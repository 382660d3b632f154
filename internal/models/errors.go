package models

import (
	"errors"
	"fmt"
)

// Ошибки доменного уровня. Обработчики HTTP транслируют каждую
// в собственный статус ответа.
var (
	// ErrNotFound целевая учётная запись или профиль не существует.
	ErrNotFound = errors.New("account not found")
	// ErrConflict нарушение уникальности username/email/phone.
	ErrConflict = errors.New("account already exists")
	// ErrInvalidCredentials неверные учётные данные либо вход запрещён
	// текущим состоянием учётной записи.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountLocked вход временно заблокирован после серии неудачных попыток.
	ErrAccountLocked = errors.New("account is temporarily locked")
	// ErrPermissionDenied у субъекта нет права на операцию.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidStateTransition переход отсутствует в таблице состояний.
	ErrInvalidStateTransition = errors.New("invalid state transition")
	// ErrInvalidToken токен не прошёл проверку подписи, срока или отзыва.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// ValidationError ошибка валидации входных данных с привязкой к полю.
type ValidationError struct {
	Field  string // Имя поля, не прошедшего проверку
	Reason string // Причина отказа в человекочитаемом виде
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %s: %s", e.Field, e.Reason)
}

// NewValidationError создаёт ValidationError для поля field с причиной reason.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidationError сообщает, является ли ошибка (или её причина)
// ошибкой валидации.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
