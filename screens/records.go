package screens

import (
	"context"
	"net/http"
	"strconv"

	"battleserver/models"

	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

// RecordLister は終了したマッチの記録を新しい順に返す
type RecordLister interface {
	Recent(ctx context.Context, limit int) ([]models.MatchRecord, error)
}

// 終了したマッチの記録一覧
func RecordsHandler(c *gin.Context, records RecordLister, logger *zap.Logger) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "invalid_limit", "error": "limit must be a number"})
			return
		}
		limit = n
	}

	list, err := records.Recent(c.Request.Context(), limit)
	if err != nil {
		logger.Error("Failed to fetch match records", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "records_error", "error": "failed to fetch records"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": list})
}
