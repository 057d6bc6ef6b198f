// Package actions はクライアントから届いたイベントを処理する。
// 各ハンドラは同期的に Result を返し、ackへの変換は Handle だけが行う。
package actions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"battleserver/battleship/broadcast"
	battledb "battleserver/battleship/database"
	"battleserver/battleship/engine"
	"battleserver/battleship/gesture"
	"battleserver/models"

	"go.uber.org/zap"
)

// クライアント→サーバーのイベント名
const (
	EventCreateRoom    = "createRoom"
	EventJoinRoom      = "joinRoom"
	EventGameReady     = "gameReady"
	EventAttack        = "attack"
	EventAlexaAttack   = "alexaAttack"
	EventGestureAttack = "gestureAttack"
	EventLock          = "lock"
)

var (
	ErrBadRequest       = errors.New("malformed payload")
	ErrUnknownEvent     = errors.New("unknown event type")
	ErrVoiceUnavailable = errors.New("voice integration is not configured")
)

// Result はハンドラの結果。Payload と Err のどちらか一方だけを持つ
type Result struct {
	Payload interface{}
	Err     error
}

func success(payload interface{}) Result {
	return Result{Payload: payload}
}

func fail(err error) Result {
	return Result{Err: err}
}

// Recorder は終了したマッチの記録先
type Recorder interface {
	SaveMatch(ctx context.Context, record models.MatchRecord) error
}

// VoiceLinker は音声アシスタント用ペアリングコードの発行と解決を行う
type VoiceLinker interface {
	Issue(ctx context.Context, matchID string, slot int) (string, error)
	Resolve(ctx context.Context, code string) (battledb.VoicePairing, error)
	Revoke(ctx context.Context, matchID string) error
}

type Dispatcher struct {
	registry   *engine.Registry
	hub        *broadcast.Hub
	recognizer *gesture.Recognizer
	recorder   Recorder
	voice      VoiceLinker
	logger     *zap.Logger
	now        func() time.Time
}

type Option func(*Dispatcher)

func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

func WithVoiceLinker(v VoiceLinker) Option {
	return func(d *Dispatcher) { d.voice = v }
}

func WithRecognizer(r *gesture.Recognizer) Option {
	return func(d *Dispatcher) { d.recognizer = r }
}

func NewDispatcher(registry *engine.Registry, hub *broadcast.Hub, logger *zap.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		hub:      hub,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.recognizer == nil {
		d.recognizer = gesture.NewRecognizer()
	}
	return d
}

// Handle は1フレームをデコードして処理し、ackIdがあれば応答を返す
func (d *Dispatcher) Handle(ctx context.Context, connID string, message []byte) {
	var env broadcast.Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		d.logger.Error("Error decoding message", zap.String("connId", connID), zap.Error(err))
		return
	}

	res := d.Dispatch(ctx, connID, env)
	if env.AckID == nil {
		return
	}
	if err := d.hub.SendAck(connID, broadcast.NewAck(*env.AckID, res.Payload, res.Err)); err != nil {
		d.logger.Error("Failed to send ack", zap.String("connId", connID), zap.Error(err))
	}
}

// Dispatch はイベントの種類ごとにハンドラへ振り分ける
func (d *Dispatcher) Dispatch(ctx context.Context, connID string, env broadcast.Envelope) Result {
	switch env.Type {
	case EventCreateRoom:
		var req CreateRoomRequest
		if err := decode(env.Payload, &req); err != nil {
			return fail(err)
		}
		return d.CreateRoom(ctx, connID, req)
	case EventJoinRoom:
		var req JoinRoomRequest
		if err := decode(env.Payload, &req); err != nil {
			return fail(err)
		}
		return d.JoinRoom(ctx, connID, req)
	case EventGameReady:
		var req GameReadyRequest
		if err := decode(env.Payload, &req); err != nil {
			return fail(err)
		}
		return d.GameReady(ctx, connID, req)
	case EventAttack:
		var req AttackRequest
		if err := decode(env.Payload, &req); err != nil {
			return fail(err)
		}
		return d.Attack(ctx, connID, req)
	case EventAlexaAttack:
		var req AlexaAttackRequest
		if err := decode(env.Payload, &req); err != nil {
			return fail(err)
		}
		return d.AlexaAttack(ctx, req)
	case EventGestureAttack:
		var req GestureAttackRequest
		if err := decode(env.Payload, &req); err != nil {
			return fail(err)
		}
		return d.GestureAttack(ctx, connID, req)
	case EventLock:
		var req LockRequest
		if err := decode(env.Payload, &req); err != nil {
			return fail(err)
		}
		return d.Lock(ctx, connID, req)
	}
	d.logger.Info("Received unknown message type", zap.String("type", env.Type), zap.String("connId", connID))
	return fail(fmt.Errorf("%w: %q", ErrUnknownEvent, env.Type))
}

func decode(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing payload", ErrBadRequest)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

// reject は拒否したリクエストをログに残して失敗の Result を返す
func (d *Dispatcher) reject(event, connID, matchID string, err error) Result {
	d.logger.Warn("Request rejected",
		zap.String("event", event),
		zap.String("connId", connID),
		zap.String("matchId", matchID),
		zap.String("class", string(engine.Classify(err))),
		zap.Error(err))
	return fail(err)
}

func (d *Dispatcher) notify(matchID, text string) {
	d.hub.BroadcastRoom(matchID, broadcast.EventNotification, broadcast.Notification{Text: text})
}

func (d *Dispatcher) notifyClient(connID, text string) {
	if err := d.hub.SendTo(connID, broadcast.EventNotification, broadcast.Notification{Text: text}); err != nil {
		d.logger.Error("Failed to send notification", zap.String("connId", connID), zap.Error(err))
	}
}

// participant は接続が参加しているマッチを引く
func (d *Dispatcher) participant(connID string) (*engine.Match, engine.Slot, error) {
	match, slot, found := d.registry.LookupByParticipant(connID)
	if !found {
		return nil, 0, engine.ErrNotInMatch
	}
	return match, slot, nil
}
