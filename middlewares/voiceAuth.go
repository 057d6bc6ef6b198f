package middlewares

import (
	"net/http"
	"strings"

	"battleserver/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IntegrationKey はコンテキストに保存する連携名のキー
const IntegrationKey = "integration"

// VoiceAuth は Authorization: Bearer <token> を検証するミドルウェア
func VoiceAuth(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader("Authorization")
		if !strings.HasPrefix(tokenString, "Bearer ") {
			logger.Warn("認証失敗: トークンがありません", zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")

		claims, err := auth.ParseVoiceToken(tokenString)
		if err != nil || claims.Integration == "" {
			logger.Warn("認証失敗", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set(IntegrationKey, claims.Integration)
		c.Next()
	}
}
