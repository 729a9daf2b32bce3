package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenManager issues and validates the operator-signed session tokens that
// admit a participant to the training endpoints.
type TokenManager struct {
	secret []byte
	expiry time.Duration
}

// SessionClaims identifies one admitted participant.
type SessionClaims struct {
	Participant string `json:"participant"`
	IsOperator  bool   `json:"isOperator"`
	jwt.RegisteredClaims
}

// NewTokenManager creates a manager for HS256 tokens.
func NewTokenManager(secret string, expiry time.Duration) *TokenManager {
	if secret == "" {
		secret = "dev-secret-change-me"
	}
	if expiry == 0 {
		expiry = 12 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), expiry: expiry}
}

// Issue signs a token admitting the named participant.
func (m *TokenManager) Issue(participant string, operator bool) (string, error) {
	claims := SessionClaims{
		Participant: participant,
		IsOperator:  operator,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Parse validates a token and returns its claims.
func (m *TokenManager) Parse(token string) (*SessionClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := parsed.Claims.(*SessionClaims); ok && parsed.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
