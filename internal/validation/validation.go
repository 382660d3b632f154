// Package validation содержит чистые правила проверки полей профиля
// и учётной записи. Функции не имеют побочных эффектов и возвращают
// либо nil, либо *models.ValidationError с указанием поля и причины.
// Проверка уникальности username/email/phone сюда не входит — её
// окончательным арбитром выступает хранилище.
package validation

import (
	"math"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/pillarmind/account-service/internal/models"
)

const (
	// MinAge минимальный возраст пользователя платформы.
	MinAge = 13
	// MaxAge верхняя граница правдоподобного возраста.
	MaxAge = 120
	// WeightsTolerance допуск на сумму весов жизненных сфер.
	WeightsTolerance = 0.001
	// MaxBioLength предельная длина поля "о себе".
	MaxBioLength = 500
)

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern = regexp.MustCompile(`^\d{10,20}$`)
)

// ValidatePillarWeights проверяет распределение весов: каждое значение
// в диапазоне [0,1], сумма равна 1.0 с допуском ±0.001.
func ValidatePillarWeights(w models.PillarWeights) error {
	for _, v := range []struct {
		name  string
		value float64
	}{
		{"health", w.Health},
		{"work", w.Work},
		{"growth", w.Growth},
		{"relationships", w.Relationships},
	} {
		if v.value < 0 || v.value > 1 {
			return models.NewValidationError("primary_pillar_weights",
				"weight "+v.name+" must be between 0 and 1")
		}
	}
	if math.Abs(w.Sum()-1.0) > WeightsTolerance {
		return models.NewValidationError("primary_pillar_weights",
			"weights must sum to 1.0")
	}
	return nil
}

// ValidatePillarWeightsMap проверяет карту весов из запроса: ровно четыре
// известные сферы, без пропусков и лишних ключей. Частичное обновление
// весов не допускается — пропущенная сфера это ошибка, а не ноль.
// Возвращает типизированные веса после проверки диапазонов и суммы.
func ValidatePillarWeightsMap(m map[string]float64) (models.PillarWeights, error) {
	for key := range m {
		switch key {
		case "health", "work", "growth", "relationships":
		default:
			return models.PillarWeights{}, models.NewValidationError("primary_pillar_weights",
				"unknown pillar "+key)
		}
	}
	if len(m) != 4 {
		return models.PillarWeights{}, models.NewValidationError("primary_pillar_weights",
			"all four pillar weights (health, work, growth, relationships) must be provided")
	}
	w := models.PillarWeights{
		Health:        m["health"],
		Work:          m["work"],
		Growth:        m["growth"],
		Relationships: m["relationships"],
	}
	if err := ValidatePillarWeights(w); err != nil {
		return models.PillarWeights{}, err
	}
	return w, nil
}

// ValidateAge проверяет дату рождения: возраст на момент now
// не меньше MinAge и не больше MaxAge лет.
func ValidateAge(dateOfBirth, now time.Time) error {
	if dateOfBirth.After(now) {
		return models.NewValidationError("date_of_birth", "must be in the past")
	}
	age := now.Year() - dateOfBirth.Year()
	if now.Month() < dateOfBirth.Month() ||
		(now.Month() == dateOfBirth.Month() && now.Day() < dateOfBirth.Day()) {
		age--
	}
	if age < MinAge {
		return models.NewValidationError("date_of_birth", "user must be at least 13 years old")
	}
	if age > MaxAge {
		return models.NewValidationError("date_of_birth", "age is not plausible")
	}
	return nil
}

// ValidateMedication проверяет запись о препарате: имя и дозировка
// обязательны, частота приёма опциональна.
func ValidateMedication(m models.Medication) error {
	if strings.TrimSpace(m.Name) == "" {
		return models.NewValidationError("medications", "medication name must not be empty")
	}
	if strings.TrimSpace(m.Dosage) == "" {
		return models.NewValidationError("medications", "medication dosage must not be empty")
	}
	return nil
}

// ValidateUsername проверяет формат имени пользователя: 3–50 символов.
func ValidateUsername(username string) error {
	if l := len(username); l < 3 || l > 50 {
		return models.NewValidationError("username", "must be between 3 and 50 characters")
	}
	return nil
}

// ValidateEmail проверяет формат адреса электронной почты.
func ValidateEmail(email string) error {
	if email == "" || len(email) > 255 || !emailPattern.MatchString(email) {
		return models.NewValidationError("email", "invalid email address")
	}
	return nil
}

// ValidatePhone проверяет формат телефона: только цифры, 10–20 знаков.
func ValidatePhone(phone string) error {
	if !phonePattern.MatchString(phone) {
		return models.NewValidationError("phone", "must contain 10 to 20 digits")
	}
	return nil
}

// ValidatePassword проверяет политику паролей: не короче 8 символов,
// обязательны цифра, строчная и прописная буквы, спецсимвол.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return models.NewValidationError("password", "must be at least 8 characters")
	}
	var hasDigit, hasUpper, hasLower, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case strings.ContainsRune("!@#$%^&*()_-+=[]{}|;:,.<>?~", r):
			hasSpecial = true
		}
	}
	switch {
	case !hasDigit:
		return models.NewValidationError("password", "must contain at least one number")
	case !hasUpper:
		return models.NewValidationError("password", "must contain at least one uppercase letter")
	case !hasLower:
		return models.NewValidationError("password", "must contain at least one lowercase letter")
	case !hasSpecial:
		return models.NewValidationError("password", "must contain at least one special character")
	}
	return nil
}

// ValidateBio проверяет длину поля "о себе".
func ValidateBio(bio string) error {
	if len(bio) > MaxBioLength {
		return models.NewValidationError("bio", "must be 500 characters or less")
	}
	return nil
}
