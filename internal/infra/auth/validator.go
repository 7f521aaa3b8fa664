package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/xela07ax/site-overview/internal/domain"
)

var (
	// ErrInvalidToken — токен не прошел проверку подписи, срока или формата
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrNoPublicKey — ключ IdP не задан
	ErrNoPublicKey = errors.New("auth: public key is empty")
)

// BaseValidator проверяет RS256 токены публичным ключом IdP.
// Токены выпускает внешний IdP, сервис только читает их.
type BaseValidator struct {
	publicKey *rsa.PublicKey
	parser    *jwt.Parser
}

func NewBaseValidator(pubKey *rsa.PublicKey) *BaseValidator {
	return &BaseValidator{
		publicKey: pubKey,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

// VerifyToken принимает значение заголовка Authorization ("Bearer <jwt>" или голый jwt)
func (v *BaseValidator) VerifyToken(header string) (*domain.CustomClaims, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if raw == "" {
		return nil, fmt.Errorf("%w: empty bearer", ErrInvalidToken)
	}

	claims := &domain.CustomClaims{}
	if _, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return v.publicKey, nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: user_id claim is missing", ErrInvalidToken)
	}
	return claims, nil
}

// ParseRSAPublicKey читает PEM ключа IdP из конфига
func ParseRSAPublicKey(data []byte) (*rsa.PublicKey, error) {
	if len(data) == 0 {
		return nil, ErrNoPublicKey
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("auth: parse public key: %w", err)
	}
	return key, nil
}
