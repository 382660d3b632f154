// Package jwt реализует выпуск и проверку JWT токенов доступа и обновления.
//
// Maker определяет интерфейс для работы с токенами; MakerImpl — реализация
// на секретных ключах с настраиваемым временем жизни.
package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims пользовательские данные токена доступа.
type AccessClaims struct {
	UserUID              string `json:"sub_uid"`  // Идентификатор учётной записи
	Username             string `json:"username"` // Имя пользователя
	Role                 string `json:"role"`     // Роль пользователя
	jwt.RegisteredClaims        // Стандартные claims (ExpiresAt, IssuedAt и пр.)
}

// RefreshClaims данные токена обновления. Поле TokenType всегда "refresh",
// токены доступа и обновления не взаимозаменяемы.
type RefreshClaims struct {
	UserUID              string `json:"sub_uid"`
	TokenType            string `json:"type"`
	jwt.RegisteredClaims
}

// Maker описывает интерфейс для выпуска и проверки токенов.
type Maker interface {
	// GenerateToken выпускает токен доступа для учётной записи.
	GenerateToken(userUID, username, role string) (string, error)
	// GenerateRefreshToken выпускает токен обновления.
	GenerateRefreshToken(userUID string) (string, error)
	// ParseToken проверяет токен доступа и возвращает его claims.
	ParseToken(tokenStr string) (*AccessClaims, error)
	// ParseRefreshToken проверяет токен обновления и возвращает его claims.
	ParseRefreshToken(tokenStr string) (*RefreshClaims, error)
}

// MakerImpl реализует Maker на секретных ключах подписи и TTL.
// Для токенов доступа и обновления используются разные ключи.
type MakerImpl struct {
	secretKey        string        // Ключ подписи токенов доступа
	refreshSecretKey string        // Ключ подписи токенов обновления
	tokenTTL         time.Duration // Время жизни токена доступа
	refreshTTL       time.Duration // Время жизни токена обновления
}

// NewMaker создаёт MakerImpl с заданными ключами и временами жизни.
func NewMaker(secretKey, refreshSecretKey string, tokenTTL, refreshTTL time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey:        secretKey,
		refreshSecretKey: refreshSecretKey,
		tokenTTL:         tokenTTL,
		refreshTTL:       refreshTTL,
	}
}
