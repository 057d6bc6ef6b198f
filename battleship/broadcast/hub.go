package broadcast

import (
	"encoding/json"
	"fmt"
	"sync"

	"battleserver/models"

	"go.uber.org/zap"
)

// Hub は接続中のクライアントと、マッチIDごとのルームを管理する
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*models.Client
	rooms   map[string]map[string]bool // マッチID -> 接続IDの集合
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*models.Client),
		rooms:   make(map[string]map[string]bool),
		logger:  logger,
	}
}

func (h *Hub) Register(c *models.Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
}

// Unregister はクライアントを全てのルームから外して削除する
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, connID)
	for matchID, members := range h.rooms {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, matchID)
		}
	}
}

func (h *Hub) Client(connID string) (*models.Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[connID]
	return c, ok
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) JoinRoom(matchID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[matchID]
	if !ok {
		members = make(map[string]bool)
		h.rooms[matchID] = members
	}
	members[connID] = true
}

// CloseRoom はルームを解散する。接続自体は閉じない
func (h *Hub) CloseRoom(matchID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, matchID)
}

// Members はルームに属する接続IDの一覧
func (h *Hub) Members(matchID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.rooms[matchID]))
	for id := range h.rooms[matchID] {
		ids = append(ids, id)
	}
	return ids
}

// SendTo は1つの接続へイベントを送る
func (h *Hub) SendTo(connID, eventType string, payload interface{}) error {
	c, ok := h.Client(connID)
	if !ok {
		return fmt.Errorf("client %s is not connected", connID)
	}
	return h.write(c, Event{Type: eventType, Payload: payload})
}

// SendAck は要求に対する応答を返す
func (h *Hub) SendAck(connID string, ack Ack) error {
	c, ok := h.Client(connID)
	if !ok {
		return fmt.Errorf("client %s is not connected", connID)
	}
	return h.write(c, ack)
}

// BroadcastRoom はルームの全員に同じイベントを送る。個別の送信失敗はログに残すだけ
func (h *Hub) BroadcastRoom(matchID, eventType string, payload interface{}) {
	messageJSON, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		h.logger.Error("Failed to marshal broadcast", zap.String("type", eventType), zap.Error(err))
		return
	}

	h.mu.RLock()
	targets := make([]*models.Client, 0, len(h.rooms[matchID]))
	for id := range h.rooms[matchID] {
		if c, ok := h.clients[id]; ok {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.Send(messageJSON); err != nil {
			h.logger.Error("Failed to broadcast",
				zap.String("type", eventType),
				zap.String("matchId", matchID),
				zap.String("connId", c.ID),
				zap.Error(err))
		}
	}
}

func (h *Hub) write(c *models.Client, v interface{}) error {
	messageJSON, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Send(messageJSON)
}
