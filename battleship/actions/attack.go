package actions

import (
	"context"
	"fmt"

	"battleserver/battleship/broadcast"
	"battleserver/battleship/engine"
	"battleserver/battleship/gesture"
	"battleserver/models"

	"go.uber.org/zap"
)

// Attack は接続に紐づくプレイヤーとして攻撃する
func (d *Dispatcher) Attack(ctx context.Context, connID string, req AttackRequest) Result {
	match, slot, err := d.participant(connID)
	if err != nil {
		return d.reject(EventAttack, connID, "", err)
	}
	modality := req.InputModality
	if modality == "" {
		modality = engine.ModalityPointer
	}
	if !modality.Valid() {
		return d.reject(EventAttack, connID, match.ID(), fmt.Errorf("%w: unknown input modality %q", ErrBadRequest, modality))
	}
	return d.resolveAttack(ctx, EventAttack, match, slot, engine.AttackRequest{
		Coordinate: req.Coordinate,
		Random:     req.RandomCoordinate,
		Relative:   req.RelativeDirection,
		Modality:   modality,
	})
}

// AlexaAttack は音声アシスタントからの攻撃。接続ではなくマッチIDとスロットで攻撃者を決める
func (d *Dispatcher) AlexaAttack(ctx context.Context, req AlexaAttackRequest) Result {
	match, found := d.registry.LookupByID(req.MatchID)
	if !found {
		return d.reject(EventAlexaAttack, "", req.MatchID, engine.ErrUnknownMatch)
	}
	if !req.PlayerSlot.Valid() {
		return d.reject(EventAlexaAttack, "", req.MatchID, engine.ErrInvalidSlot)
	}
	return d.resolveAttack(ctx, EventAlexaAttack, match, req.PlayerSlot, engine.AttackRequest{
		Coordinate: req.Coordinate,
		Modality:   engine.ModalityVoice,
	})
}

// VoiceAttack はペアリングコードを解決してから AlexaAttack と同じ処理を行う
func (d *Dispatcher) VoiceAttack(ctx context.Context, code string, coord engine.Coordinate) Result {
	if d.voice == nil {
		return fail(ErrVoiceUnavailable)
	}
	pairing, err := d.voice.Resolve(ctx, code)
	if err != nil {
		return d.reject(EventAlexaAttack, "", "", err)
	}
	return d.AlexaAttack(ctx, AlexaAttackRequest{
		MatchID:    pairing.MatchID,
		PlayerSlot: engine.Slot(pairing.Slot),
		Coordinate: coord,
	})
}

// GestureAttack は描き終えたストロークを分類し、図形に対応する攻撃を行う
func (d *Dispatcher) GestureAttack(ctx context.Context, connID string, req GestureAttackRequest) Result {
	match, slot, err := d.participant(connID)
	if err != nil {
		return d.reject(EventGestureAttack, connID, "", err)
	}
	// 描画は終わっているのでロックを外してから攻撃する
	if err := match.SetGestureLock(slot, false); err != nil {
		return d.reject(EventGestureAttack, connID, match.ID(), err)
	}

	res := d.recognizer.Classify(req.Points)
	if !d.recognizer.Accept(res) {
		d.logger.Info("Gesture rejected", zap.String("matchId", match.ID()), zap.String("symbol", string(res.Symbol)), zap.Float64("distance", res.Distance))
		d.notifyClient(connID, "Gesture couldn't be recognized with sufficient certainty")
		return success(GestureAttackResponse{Recognized: false, Symbol: res.Symbol})
	}
	d.notifyClient(connID, fmt.Sprintf("Gesture %q was recognized", res.Symbol))

	attack, found := gestureCommand(res.Symbol)
	if !found {
		return d.reject(EventGestureAttack, connID, match.ID(), fmt.Errorf("%w: no command for gesture %q", ErrBadRequest, res.Symbol))
	}
	if r := d.resolveAttack(ctx, EventGestureAttack, match, slot, attack); r.Err != nil {
		return r
	}
	distance := res.Distance
	return success(GestureAttackResponse{Recognized: true, Symbol: res.Symbol, Distance: &distance})
}

// gestureCommand は図形を攻撃要求に変換する。円はランダム、矢印は直前の攻撃からの相対移動
func gestureCommand(symbol gesture.Symbol) (engine.AttackRequest, bool) {
	req := engine.AttackRequest{Modality: engine.ModalityGesture}
	var dir engine.Direction
	switch symbol {
	case gesture.Circle:
		req.Random = true
		return req, true
	case gesture.ArrowUp:
		dir = engine.DirectionUp
	case gesture.ArrowDown:
		dir = engine.DirectionDown
	case gesture.ArrowLeft:
		dir = engine.DirectionLeft
	case gesture.ArrowRight:
		dir = engine.DirectionRight
	default:
		return req, false
	}
	req.Relative = &dir
	return req, true
}

// Lock は呼び出し元スロットのジェスチャーロックを設定・解除する
func (d *Dispatcher) Lock(ctx context.Context, connID string, req LockRequest) Result {
	match, slot, err := d.participant(connID)
	if err != nil {
		return d.reject(EventLock, connID, "", err)
	}
	if err := match.SetGestureLock(slot, req.Locked); err != nil {
		return d.reject(EventLock, connID, match.ID(), err)
	}
	return success(nil)
}

// resolveAttack は全ての攻撃経路が通る共通処理
func (d *Dispatcher) resolveAttack(ctx context.Context, event string, match *engine.Match, slot engine.Slot, req engine.AttackRequest) Result {
	out, err := match.ResolveAttack(slot, req)
	if err != nil {
		return d.reject(event, "", match.ID(), err)
	}
	d.logger.Info("Attack resolved",
		zap.String("matchId", match.ID()),
		zap.Int("slot", int(slot)),
		zap.Stringer("coordinate", out.Coordinate),
		zap.Bool("hit", out.Hit),
		zap.String("modality", string(out.Modality)))

	d.hub.BroadcastRoom(match.ID(), broadcast.EventAttack, AttackPayload{
		Coordinate:      out.Coordinate,
		AttackerSlot:    out.Attacker,
		Hit:             out.Hit,
		SunkenPlacement: out.Sunken,
		RemainingShips:  out.RemainingShips,
		InputModality:   out.Modality,
	})

	if out.Defeated {
		winner := out.Attacker
		d.hub.BroadcastRoom(match.ID(), broadcast.EventGameOver, GameOverPayload{WinnerSlot: &winner})
		d.logger.Info("Game over", zap.String("matchId", match.ID()), zap.Int("winnerSlot", int(winner)))
		d.finish(ctx, match, models.EndReasonDefeat)
	}
	return success(nil)
}
