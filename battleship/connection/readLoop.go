package connection

import (
	"context"
	"time"

	"battleserver/models"

	"go.uber.org/zap"

	"github.com/gorilla/websocket"
)

const (
	pingPeriod = 10 * time.Second // 10秒ごとにPingを送信
	pongWait   = 60 * time.Second // 60秒の読み取りデッドライン
)

// ReadConn は読み取りループが使う *websocket.Conn の操作
type ReadConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
}

// MessageHandler は受信したフレームと切断を処理する（actions.Dispatcher）
type MessageHandler interface {
	Handle(ctx context.Context, connID string, message []byte)
	Disconnect(ctx context.Context, connID string)
}

// HandleClient はクライアントごとのメッセージ読み取りループ。
// 読み取りが失敗するまでブロックし、終了時に必ず切断処理を呼ぶ
func HandleClient(ctx context.Context, client *models.Client, conn ReadConn, handler MessageHandler, logger *zap.Logger) {
	defer func() {
		handler.Disconnect(ctx, client.ID)
		client.Close()
		logger.Info("Client removed", zap.String("connId", client.ID))
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	// Pongを受信したら読み取りデッドラインを延長
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Error("WebSocket error", zap.String("connId", client.ID), zap.Error(err))
			}
			return
		}
		handler.Handle(ctx, client.ID, message)
	}
}

// MaintainWebSocketConnection は done が閉じられるか送信に失敗するまで定期的にPingを送る
func MaintainWebSocketConnection(client *models.Client, done <-chan struct{}, logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := client.Ping(); err != nil {
				logger.Error("Error sending ping", zap.String("connId", client.ID), zap.Error(err))
				return
			}
		}
	}
}
