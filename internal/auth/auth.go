package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"story-server/internal/models"
)

// Validator проверяет JWT, выданные внешним сервисом аутентификации.
// Сервис историй токены не выпускает, только валидирует.
type Validator struct {
	secret []byte
}

// NewValidator создает валидатор с общим HMAC-секретом.
func NewValidator(secret string) *Validator {
	return &Validator{secret: []byte(secret)}
}

// ValidateToken разбирает и проверяет токен, возвращая его claims.
func (v *Validator) ValidateToken(tokenString string) (*models.Claims, error) {
	if tokenString == "" {
		return nil, models.ErrTokenMalformed
	}

	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, models.ErrTokenMalformed
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, models.ErrTokenExpired
		default:
			return nil, models.ErrTokenInvalid
		}
	}
	if !token.Valid {
		return nil, models.ErrTokenInvalid
	}
	return claims, nil
}
