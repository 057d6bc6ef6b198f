package actions

import (
	"context"
	"fmt"
	"strconv"

	"battleserver/battleship/broadcast"
	"battleserver/battleship/engine"

	"go.uber.org/zap"
)

// 名前が空のときはスロット番号から付ける
func playerName(name string, slot engine.Slot) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("Player %d", int(slot)+1)
}

// CreateRoom は新しいマッチを作り、作成者をそのルームに入れる
func (d *Dispatcher) CreateRoom(ctx context.Context, connID string, req CreateRoomRequest) Result {
	name := playerName(req.PlayerName, engine.SlotCreator)
	match, err := d.registry.Create(connID, name, req.MatchConfig)
	if err != nil {
		return d.reject(EventCreateRoom, connID, "", err)
	}
	d.hub.JoinRoom(match.ID(), connID)
	d.logger.Info("Match created",
		zap.String("matchId", match.ID()),
		zap.String("connId", connID),
		zap.Int("boardSize", match.Config().BoardSize))

	d.notify(match.ID(), fmt.Sprintf("%s joined the game", name))
	return success(CreateRoomResponse{MatchConfig: match.Config()})
}

// JoinRoom は既存のマッチに2人目として参加する
func (d *Dispatcher) JoinRoom(ctx context.Context, connID string, req JoinRoomRequest) Result {
	name := playerName(req.PlayerName, engine.SlotJoiner)
	match, err := d.registry.Join(req.MatchID, connID, name)
	if err != nil {
		return d.reject(EventJoinRoom, connID, req.MatchID, err)
	}
	d.hub.JoinRoom(match.ID(), connID)
	d.logger.Info("Second player joined the game", zap.String("matchId", match.ID()), zap.String("connId", connID))

	d.notify(match.ID(), fmt.Sprintf("%s joined the game", name))
	return success(JoinRoomResponse{MatchConfig: match.Config(), PlayerSlot: engine.SlotJoiner})
}

// GameReady は船の配置を受け取り、両者が揃ったら gameStart を1回だけ送る
func (d *Dispatcher) GameReady(ctx context.Context, connID string, req GameReadyRequest) Result {
	match, slot, err := d.participant(connID)
	if err != nil {
		return d.reject(EventGameReady, connID, "", err)
	}
	startedNow, err := match.MarkReady(slot, req.ShipPlacements)
	if err != nil {
		return d.reject(EventGameReady, connID, match.ID(), err)
	}

	owner, _ := match.Owner(slot)
	d.notify(match.ID(), fmt.Sprintf("%s is ready to start", owner.PlayerName))
	if startedNow {
		d.startGame(ctx, match)
	}
	return success(nil)
}

func (d *Dispatcher) startGame(ctx context.Context, match *engine.Match) {
	names := make(map[string]string, 2)
	for _, slot := range []engine.Slot{engine.SlotCreator, engine.SlotJoiner} {
		if owner, found := match.Owner(slot); found {
			names[strconv.Itoa(int(slot))] = owner.PlayerName
		}
	}
	firstTurn := match.CurrentTurn()
	d.hub.BroadcastRoom(match.ID(), broadcast.EventGameStart, GameStartPayload{PlayerNames: names, FirstTurn: firstTurn})
	d.logger.Info("Game started", zap.String("matchId", match.ID()), zap.Int("firstTurn", int(firstTurn)))

	d.issueVoiceCodes(ctx, match)
}

// 各プレイヤーに音声アシスタント用のコードを個別に知らせる
func (d *Dispatcher) issueVoiceCodes(ctx context.Context, match *engine.Match) {
	if d.voice == nil {
		return
	}
	for _, slot := range []engine.Slot{engine.SlotCreator, engine.SlotJoiner} {
		owner, found := match.Owner(slot)
		if !found {
			continue
		}
		code, err := d.voice.Issue(ctx, match.ID(), int(slot))
		if err != nil {
			d.logger.Error("Failed to issue voice pairing code", zap.String("matchId", match.ID()), zap.Error(err))
			continue
		}
		d.notifyClient(owner.ConnectionID, fmt.Sprintf("Voice assistant pairing code: %s", code))
	}
}
