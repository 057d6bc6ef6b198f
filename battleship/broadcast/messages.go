package broadcast

import "encoding/json"

// サーバーからクライアントへのイベント名
const (
	EventNotification = "notification"
	EventGameStart    = "gameStart"
	EventAttack       = "attack"
	EventGameOver     = "gameOver"
	EventAck          = "ack"
)

// Envelope はクライアントから届くフレーム
type Envelope struct {
	Type    string          `json:"type"`
	AckID   *int            `json:"ackId,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Event はサーバーから送るフレーム
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Ack は Payload と Error のどちらか一方だけを持つ
type Ack struct {
	Type    string      `json:"type"`
	AckID   int         `json:"ackId"`
	Payload interface{} `json:"payload,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func NewAck(ackID int, payload interface{}, err error) Ack {
	if err != nil {
		return Ack{Type: EventAck, AckID: ackID, Error: err.Error()}
	}
	if payload == nil {
		payload = struct{}{}
	}
	return Ack{Type: EventAck, AckID: ackID, Payload: payload}
}

type Notification struct {
	Text string `json:"text"`
}
