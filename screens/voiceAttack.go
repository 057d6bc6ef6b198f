package screens

import (
	"errors"
	"net/http"

	"battleserver/battleship/actions"
	battledb "battleserver/battleship/database"
	"battleserver/battleship/engine"

	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

type voiceAttackRequest struct {
	Code       string             `json:"code" binding:"required"`
	Coordinate *engine.Coordinate `json:"coordinate" binding:"required"`
}

// 音声アシスタントからの攻撃。ペアリングコードでマッチとスロットを特定する
func VoiceAttackHandler(c *gin.Context, dispatcher *actions.Dispatcher, logger *zap.Logger) {
	var req voiceAttackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid voice attack request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"status": "invalid_request", "error": err.Error()})
		return
	}

	res := dispatcher.VoiceAttack(c.Request.Context(), req.Code, *req.Coordinate)
	if res.Err != nil {
		c.JSON(StatusFor(res.Err), gin.H{
			"status": string(engine.Classify(res.Err)),
			"error":  res.Err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// StatusFor はゲームのエラーをHTTPステータスに変換する
func StatusFor(err error) int {
	switch {
	case errors.Is(err, battledb.ErrCodeNotFound), errors.Is(err, engine.ErrUnknownMatch):
		return http.StatusNotFound
	case errors.Is(err, actions.ErrVoiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, actions.ErrBadRequest), errors.Is(err, engine.ErrInvalidSlot):
		return http.StatusBadRequest
	}
	switch engine.Classify(err) {
	case engine.ClassValidity:
		return http.StatusBadRequest
	case engine.ClassState, engine.ClassExclusivity, engine.ClassMembership:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
