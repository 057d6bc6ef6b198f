package models

import (
	jwt "github.com/dgrijalva/jwt-go"
)

// VoiceClaims は音声アシスタント連携用JWTのクレームです。
type VoiceClaims struct {
	Integration string `json:"integration"`
	jwt.StandardClaims
}
