package domain

import "github.com/golang-jwt/jwt/v5"

// ScopeOverviewRead — право читать обзор сайтов
const ScopeOverviewRead = "overview.read"

// CustomClaims — токен выпускает внешний IdP, мы только проверяем подпись RS256
type CustomClaims struct {
	UserID string          `json:"user_id"`
	Scopes map[string]bool `json:"scopes"` // "admin": true или "overview.read": true
	jwt.RegisteredClaims
}

// HasScope: admin покрывает любые права
func (c *CustomClaims) HasScope(scope string) bool {
	return c.Scopes["admin"] || c.Scopes[scope]
}
