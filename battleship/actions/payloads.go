package actions

import (
	"battleserver/battleship/engine"
	"battleserver/battleship/gesture"
)

type CreateRoomRequest struct {
	MatchConfig engine.MatchConfig `json:"matchConfig"`
	PlayerName  string             `json:"playerName"`
}

type CreateRoomResponse struct {
	MatchConfig engine.MatchConfig `json:"matchConfig"`
}

type JoinRoomRequest struct {
	MatchID    string `json:"matchId"`
	PlayerName string `json:"playerName"`
}

type JoinRoomResponse struct {
	MatchConfig engine.MatchConfig `json:"matchConfig"`
	PlayerSlot  engine.Slot        `json:"playerSlot"`
}

type GameReadyRequest struct {
	ShipPlacements []engine.Placement `json:"shipPlacements"`
}

type AttackRequest struct {
	Coordinate        engine.Coordinate `json:"coordinate"`
	RandomCoordinate  bool              `json:"randomCoordinate,omitempty"`
	RelativeDirection *engine.Direction `json:"relativeDirection,omitempty"`
	InputModality     engine.Modality   `json:"inputModality"`
}

// AlexaAttackRequest は接続ではなくマッチIDとスロットで攻撃者を特定する
type AlexaAttackRequest struct {
	MatchID    string            `json:"matchId"`
	PlayerSlot engine.Slot       `json:"playerSlot"`
	Coordinate engine.Coordinate `json:"coordinate"`
}

type GestureAttackRequest struct {
	Points []gesture.Point `json:"points"`
}

type GestureAttackResponse struct {
	Recognized bool           `json:"recognized"`
	Symbol     gesture.Symbol `json:"symbol"`
	Distance   *float64       `json:"distance,omitempty"` // 認識できなかった場合は省略（+Inf になりうる）
}

type LockRequest struct {
	Locked bool `json:"locked"`
}

// GameStartPayload の playerNames はスロット番号の文字列をキーにする
type GameStartPayload struct {
	PlayerNames map[string]string `json:"playerNames"`
	FirstTurn   engine.Slot       `json:"firstTurn"`
}

type AttackPayload struct {
	Coordinate      engine.Coordinate `json:"coordinate"`
	AttackerSlot    engine.Slot       `json:"attackerSlot"`
	Hit             bool              `json:"hit"`
	SunkenPlacement *engine.Placement `json:"sunkenPlacement,omitempty"`
	RemainingShips  map[int]int       `json:"remainingShips"`
	InputModality   engine.Modality   `json:"inputModality"`
}

// GameOverPayload は切断で終わった場合 WinnerSlot を持たない
type GameOverPayload struct {
	WinnerSlot *engine.Slot `json:"winnerSlot,omitempty"`
}
