package handler

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"story-server/internal/auth"
	"story-server/internal/models"
)

// Ключи значений запроса, выставляемые AuthMiddleware.
const (
	ctxUserIDKey = "user_id"
	ctxRolesKey  = "user_roles"
)

// RoleAdmin дает доступ к чужим историям.
const RoleAdmin = "admin"

// AuthMiddleware проверяет Bearer-токен и кладет идентичность в контекст.
// Сервис только валидирует токены, их выдает внешний сервис аутентификации.
func AuthMiddleware(validator *auth.Validator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			handleServiceError(c, models.ErrUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			logger.Warn("Invalid Authorization header format")
			handleServiceError(c, models.ErrTokenMalformed)
			return
		}

		claims, err := validator.ValidateToken(parts[1])
		if err != nil {
			logger.Warn("Access token verification failed", zap.Error(err))
			handleServiceError(c, err)
			return
		}

		c.Set(ctxUserIDKey, claims.UserID)
		c.Set(ctxRolesKey, claims.Roles)
		c.Next()
	}
}

// GinZapLogger логирует HTTP-запросы через zap.
func GinZapLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("clientIP", c.ClientIP()),
		)
	}
}

// getUserID возвращает UserID текущего запроса. AuthMiddleware обязателен.
func getUserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(ctxUserIDKey)
	if !exists {
		return uuid.Nil, false
	}
	userID, ok := value.(uuid.UUID)
	return userID, ok
}

// isAdmin сообщает, есть ли у текущего запроса роль администратора.
func isAdmin(c *gin.Context) bool {
	value, exists := c.Get(ctxRolesKey)
	if !exists {
		return false
	}
	roles, ok := value.([]string)
	return ok && models.HasRole(roles, RoleAdmin)
}
