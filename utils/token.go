package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// TokenTTL is how long an issued token stays valid.
const TokenTTL = 72 * time.Hour

// TokenClaims are the identity fields carried by an auth token.
type TokenClaims struct {
	UserID string
	Role   string
}

// GenerateToken signs an HS256 token for userID with the given role.
func GenerateToken(secret, userID, role string) (string, error) {
	if secret == "" {
		return "", errors.New("JWT secret is not configured")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(TokenTTL).Unix(),
	})
	return token.SignedString([]byte(secret))
}

// ParseToken verifies tokenString and returns its claims.
func ParseToken(secret, tokenString string) (TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return TokenClaims{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return TokenClaims{}, errors.New("invalid token claims")
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return TokenClaims{}, errors.New("token has no user_id")
	}
	role, _ := claims["role"].(string)
	return TokenClaims{UserID: userID, Role: role}, nil
}
