package auth

import (
	"errors"
	"fmt"

	"battleserver/models"

	jwt "github.com/dgrijalva/jwt-go"
)

// JwtKey は音声連携トークンの署名鍵。起動時に SetJwtKey で設定する
var JwtKey []byte

var ErrNoSigningKey = errors.New("jwt signing key is not configured")

func SetJwtKey(secret string) {
	JwtKey = []byte(secret)
}

// ParseVoiceToken はHS256で署名されたトークンを検証してクレームを返す
func ParseVoiceToken(tokenString string) (*models.VoiceClaims, error) {
	if len(JwtKey) == 0 {
		return nil, ErrNoSigningKey
	}
	claims := &models.VoiceClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return JwtKey, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
