package actions

import (
	"context"
	"fmt"
	"time"

	"battleserver/battleship/broadcast"
	"battleserver/battleship/engine"
	"battleserver/models"

	"go.uber.org/zap"
)

// Disconnect は接続の切断を処理する。参加中のマッチは相手に通知したうえで無条件に破棄する
func (d *Dispatcher) Disconnect(ctx context.Context, connID string) {
	match, slot, found := d.registry.LookupByParticipant(connID)
	// 切断した本人には送らない
	d.hub.Unregister(connID)
	if !found {
		return
	}

	owner, _ := match.Owner(slot)
	d.logger.Info("Player left the game", zap.String("matchId", match.ID()), zap.String("connId", connID))
	d.notify(match.ID(), fmt.Sprintf("%s left the game", owner.PlayerName))
	d.hub.BroadcastRoom(match.ID(), broadcast.EventGameOver, GameOverPayload{})
	d.finish(ctx, match, models.EndReasonDisconnect)
}

// SweepIdle は開始されないまま maxAge を過ぎたマッチを閉じ、その数を返す
func (d *Dispatcher) SweepIdle(maxAge time.Duration) int {
	swept := d.registry.SweepIdle(maxAge)
	for _, snap := range swept {
		id := snap.Config.MatchID
		d.notify(id, "The match was closed because it did not start in time")
		d.hub.BroadcastRoom(id, broadcast.EventGameOver, GameOverPayload{})
		d.hub.CloseRoom(id)
		d.logger.Info("Idle match closed", zap.String("matchId", id), zap.Time("createdAt", snap.CreatedAt))
	}
	return len(swept)
}

// finish はマッチを破棄し、開始済みだったものは記録する。二重に呼ばれても記録は1回だけ
func (d *Dispatcher) finish(ctx context.Context, match *engine.Match, reason string) {
	snap := match.Snapshot()
	if !d.registry.Destroy(match.ID()) {
		return
	}
	d.hub.CloseRoom(match.ID())

	if d.voice != nil && snap.StartedAt != nil {
		if err := d.voice.Revoke(ctx, match.ID()); err != nil {
			d.logger.Error("Failed to revoke voice pairing codes", zap.String("matchId", match.ID()), zap.Error(err))
		}
	}
	if d.recorder == nil || snap.StartedAt == nil {
		return
	}
	if err := d.recorder.SaveMatch(ctx, NewMatchRecord(snap, reason, d.now())); err != nil {
		d.logger.Error("Failed to save match record", zap.String("matchId", match.ID()), zap.Error(err))
	}
}

// NewMatchRecord はスナップショットを永続化用の記録に変換する
func NewMatchRecord(snap engine.MatchSnapshot, reason string, finishedAt time.Time) models.MatchRecord {
	record := models.MatchRecord{
		MatchID:    snap.Config.MatchID,
		BoardSize:  snap.Config.BoardSize,
		EndReason:  reason,
		Attacks:    snap.Attacks,
		StartedAt:  snap.StartedAt,
		FinishedAt: finishedAt,
	}
	if len(snap.PlayerNames) > 0 {
		record.Player1Name = snap.PlayerNames[0]
	}
	if len(snap.PlayerNames) > 1 {
		record.Player2Name = snap.PlayerNames[1]
	}
	if snap.Winner != nil {
		w := int(*snap.Winner)
		record.WinnerSlot = &w
	}
	return record
}
