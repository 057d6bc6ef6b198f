package middlewares

import (
	"errors"
	"time"

	"battleserver/auth"
	"battleserver/models"

	jwt "github.com/dgrijalva/jwt-go"
)

// GenerateVoiceToken は音声アシスタント連携に渡すトークンを発行する
func GenerateVoiceToken(integration string, ttl time.Duration) (string, error) {
	if integration == "" {
		return "", errors.New("integration name is required")
	}
	if len(auth.JwtKey) == 0 {
		return "", auth.ErrNoSigningKey
	}

	now := time.Now()
	claims := &models.VoiceClaims{
		Integration: integration,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(auth.JwtKey)
}
