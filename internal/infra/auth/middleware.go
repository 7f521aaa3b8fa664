package auth

import (
	"context"
	"net/http"

	"github.com/xela07ax/site-overview/internal/domain"
	"go.uber.org/zap"
)

// TokenValidator — интерфейс проверки токена (BaseValidator или фейк в тестах)
type TokenValidator interface {
	VerifyToken(tokenStr string) (*domain.CustomClaims, error)
}

// Тип для ключа в контексте (избегаем коллизий)
type ctxKey string

const claimsKey ctxKey = "claims"

// NewMiddleware пропускает только запросы с валидным токеном и нужным scope
func NewMiddleware(v TokenValidator, scope string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := v.VerifyToken(authHeader)
			if err != nil {
				logger.Warn("auth failure", zap.Error(err))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if scope != "" && !claims.HasScope(scope) {
				logger.Warn("missing scope", zap.String("user_id", claims.UserID), zap.String("scope", scope))
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			// Прокидываем данные в контекст
			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext достает проверенные claims, положенные middleware
func ClaimsFromContext(ctx context.Context) (*domain.CustomClaims, bool) {
	c, ok := ctx.Value(claimsKey).(*domain.CustomClaims)
	return c, ok
}
