package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Sign issues an HS256 bearer token for an identity. Token issuance lives
// with the auth provider; this exists for tooling and tests.
func Sign(secret string, id Identity, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id": id.UserID,
		"role":    string(id.Role),
		"exp":     time.Now().Add(ttl).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// Parse verifies a token and extracts the identity.
func Parse(secret, token string) (Identity, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}
	m, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	uid, _ := m["user_id"].(string)
	role, _ := m["role"].(string)
	if uid == "" || (Role(role) != RoleUser && Role(role) != RoleAdmin) {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: uid, Role: Role(role)}, nil
}
