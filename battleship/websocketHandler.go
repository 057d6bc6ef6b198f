package battleship

import (
	"context"
	"net/http"

	"battleserver/battleship/actions"
	"battleserver/battleship/broadcast"
	"battleserver/battleship/connection"
	"battleserver/models"

	"go.uber.org/zap"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// HandleConnections はWebSocket接続へアップグレードし、切断されるまで読み取りを続ける
func HandleConnections(ctx context.Context, w http.ResponseWriter, r *http.Request, hub *broadcast.Hub, dispatcher *actions.Dispatcher, upgrader websocket.Upgrader, logger *zap.Logger) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade がHTTPエラーを書き込み済み
		logger.Error("Error upgrading WebSocket", zap.Error(err))
		return
	}

	client := models.NewClient(uuid.New().String(), conn)
	hub.Register(client)
	logger.Info("New client added", zap.String("connId", client.ID), zap.String("remoteAddr", r.RemoteAddr))

	// Ping/Pongを管理するゴルーチンを起動
	done := make(chan struct{})
	go connection.MaintainWebSocketConnection(client, done, logger)
	defer close(done)

	// 切断されるまでこのゴルーチンで読み取る
	connection.HandleClient(ctx, client, conn, dispatcher, logger)
}
