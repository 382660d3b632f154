// Package password реализует безопасное хеширование и проверку паролей
// на основе bcrypt. Открытый пароль нигде не сохраняется.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hash возвращает bcrypt-хэш пароля для хранения в базе данных.
func Hash(password string) (string, error) {
	const op = "password.Hash"
	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(digest), nil
}

// Verify сравнивает сохранённый bcrypt-хэш с введённым паролем.
// Возвращает nil при совпадении.
func Verify(digest, password string) error {
	const op = "password.Verify"
	if err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
