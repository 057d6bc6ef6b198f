package screens

import (
	"net/http"

	"battleserver/battleship/engine"

	"github.com/gin-gonic/gin"
)

// 死活監視用
func HealthHandler(c *gin.Context, registry *engine.Registry) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"matches": registry.Count(),
	})
}
