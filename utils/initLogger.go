package utils

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ロガーを初期化。GIN_MODE=debug の場合は開発用の出力にする
func InitLogger() (*zap.Logger, error) {
	if gin.Mode() == gin.DebugMode {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Gin のミドルウェア用関数で、リクエストのログを取得します。
// 5xx は Error、4xx は Warn で記録します。
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.String("clientIP", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		}
		switch {
		case status >= 500:
			logger.Error("request", fields...)
		case status >= 400:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}
