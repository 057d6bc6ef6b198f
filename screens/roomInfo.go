package screens

import (
	"net/http"

	"battleserver/battleship/engine"

	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

// ルームの状態（盤面サイズ、艦隊構成、プレイヤー名、手番）を返すハンドラー
func RoomInfoHandler(c *gin.Context, registry *engine.Registry, logger *zap.Logger) {
	matchID := c.Param("id")
	match, ok := registry.LookupByID(matchID)
	if !ok {
		logger.Info("Room not found", zap.String("matchId", matchID))
		c.JSON(http.StatusNotFound, gin.H{
			"status": "room_not_found",
			"error":  engine.ErrUnknownMatch.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, match.Snapshot())
}
