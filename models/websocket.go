package models

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Conn は Client が使う WebSocket 接続の操作。*websocket.Conn がそのまま満たす
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Websocketクライアントを定義
type Client struct {
	ID   string // 接続ごとに払い出すID（uuid）
	Conn Conn

	// gorilla の接続は同時に1つの書き込みしか許さない
	writeMu sync.Mutex
}

func NewClient(id string, conn Conn) *Client {
	return &Client{ID: id, Conn: conn}
}

// Send はテキストフレームを1つ書き込む
func (c *Client) Send(data []byte) error {
	return c.write(websocket.TextMessage, data)
}

// Ping はキープアライブ用のPingを送る
func (c *Client) Ping() error {
	return c.write(websocket.PingMessage, nil)
}

func (c *Client) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

func (c *Client) Close() error {
	return c.Conn.Close()
}
