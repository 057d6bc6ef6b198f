package actions_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"battleserver/battleship/actions"
	"battleserver/battleship/broadcast"
	battledb "battleserver/battleship/database"
	"battleserver/battleship/engine"
	"battleserver/battleship/gesture"
	"battleserver/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixedRand struct{ v int }

func (f fixedRand) Intn(n int) int { return f.v % n }

type frame struct {
	Type    string          `json:"type"`
	AckID   int             `json:"ackId"`
	Payload json.RawMessage `json:"payload"`
	Error   string          `json:"error"`
}

type fakeConn struct {
	mu     sync.Mutex
	frames []frame
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) all() []frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]frame(nil), c.frames...)
}

func (c *fakeConn) ofType(typ string) []frame {
	var out []frame
	for _, f := range c.all() {
		if f.Type == typ {
			out = append(out, f)
		}
	}
	return out
}

func (c *fakeConn) texts() []string {
	var out []string
	for _, f := range c.ofType(broadcast.EventNotification) {
		var n broadcast.Notification
		_ = json.Unmarshal(f.Payload, &n)
		out = append(out, n.Text)
	}
	return out
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []models.MatchRecord
}

func (r *fakeRecorder) SaveMatch(_ context.Context, record models.MatchRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return nil
}

type fakeVoice struct {
	mu      sync.Mutex
	codes   map[string]battledb.VoicePairing
	revoked []string
}

func (v *fakeVoice) Issue(_ context.Context, matchID string, slot int) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	code := fmt.Sprintf("%s-%d", matchID, slot)
	v.codes[code] = battledb.VoicePairing{MatchID: matchID, Slot: slot}
	return code, nil
}

func (v *fakeVoice) Resolve(_ context.Context, code string) (battledb.VoicePairing, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	p, found := v.codes[code]
	if !found {
		return p, battledb.ErrCodeNotFound
	}
	return p, nil
}

func (v *fakeVoice) Revoke(_ context.Context, matchID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.revoked = append(v.revoked, matchID)
	return nil
}

type harness struct {
	t        *testing.T
	d        *actions.Dispatcher
	reg      *engine.Registry
	hub      *broadcast.Hub
	conns    map[string]*fakeConn
	recorder *fakeRecorder
	voice    *fakeVoice
	now      time.Time
	ackID    int
}

func newHarness(t *testing.T) *harness {
	h := &harness{
		t:        t,
		conns:    make(map[string]*fakeConn),
		recorder: &fakeRecorder{},
		voice:    &fakeVoice{codes: make(map[string]battledb.VoicePairing)},
		now:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	ids := 0
	// 先手は常に作成者（スロット0）
	h.reg = engine.NewRegistry(
		engine.WithRand(fixedRand{v: 0}),
		engine.WithIDGenerator(func() string {
			ids++
			return fmt.Sprintf("M%04d", ids)
		}),
		engine.WithClock(func() time.Time { return h.now }),
	)
	h.hub = broadcast.NewHub(zap.NewNop())
	h.d = actions.NewDispatcher(h.reg, h.hub, zap.NewNop(),
		actions.WithRecorder(h.recorder),
		actions.WithVoiceLinker(h.voice),
		actions.WithRecognizer(gesture.NewRecognizer()),
	)
	return h
}

func (h *harness) connect(id string) *fakeConn {
	conn := &fakeConn{}
	h.conns[id] = conn
	h.hub.Register(models.NewClient(id, conn))
	return conn
}

// send はイベントを1つ処理させ、対応するackを返す
func (h *harness) send(connID, event string, payload interface{}) frame {
	h.t.Helper()
	h.ackID++
	raw, err := json.Marshal(map[string]interface{}{"type": event, "ackId": h.ackID, "payload": payload})
	require.NoError(h.t, err)
	h.d.Handle(context.Background(), connID, raw)

	for _, f := range h.conns[connID].ofType(broadcast.EventAck) {
		if f.AckID == h.ackID {
			return f
		}
	}
	h.t.Fatalf("no ack %d for %s", h.ackID, event)
	return frame{}
}

func (h *harness) mustSucceed(connID, event string, payload interface{}) json.RawMessage {
	h.t.Helper()
	ack := h.send(connID, event, payload)
	require.Empty(h.t, ack.Error, "%s by %s", event, connID)
	return ack.Payload
}

func placement(id, x, y int, orientation string) map[string]interface{} {
	return map[string]interface{}{"placementId": id, "size": 2, "x": x, "y": y, "orientation": orientation}
}

// startMatch は alice(スロット0) と bob(スロット1) の開始済みマッチを作る。
// alice の船は (0,0)-(1,0)、bob の船は (6,6)-(6,7) と (0,7)-(1,7)
func (h *harness) startMatch() string {
	h.t.Helper()
	h.connect("a")
	h.connect("b")
	created := h.mustSucceed("a", actions.EventCreateRoom, map[string]interface{}{
		"matchConfig": map[string]interface{}{"boardSize": 8, "shipDefinitions": []map[string]int{{"size": 2, "count": 2}}},
		"playerName":  "alice",
	})
	var resp actions.CreateRoomResponse
	require.NoError(h.t, json.Unmarshal(created, &resp))
	matchID := resp.MatchConfig.MatchID

	h.mustSucceed("b", actions.EventJoinRoom, map[string]interface{}{"matchId": matchID, "playerName": "bob"})
	h.mustSucceed("a", actions.EventGameReady, map[string]interface{}{
		"shipPlacements": []interface{}{placement(1, 0, 0, "horizontal")},
	})
	h.mustSucceed("b", actions.EventGameReady, map[string]interface{}{
		"shipPlacements": []interface{}{placement(1, 6, 6, "vertical"), placement(2, 0, 7, "horizontal")},
	})
	return matchID
}

func attackAt(x, y int) map[string]interface{} {
	return map[string]interface{}{"coordinate": map[string]int{"x": x, "y": y}, "inputModality": "pointer"}
}

func decodeAttack(t *testing.T, f frame) actions.AttackPayload {
	t.Helper()
	var p actions.AttackPayload
	require.NoError(t, json.Unmarshal(f.Payload, &p))
	return p
}

func TestDispatcher_FullMatch(t *testing.T) {
	h := newHarness(t)
	matchID := h.startMatch()
	a, b := h.conns["a"], h.conns["b"]
	assert.Equal(t, "M0001", matchID)

	for _, conn := range []*fakeConn{a, b} {
		starts := conn.ofType(broadcast.EventGameStart)
		require.Len(t, starts, 1, "gameStart is emitted exactly once")
		var start actions.GameStartPayload
		require.NoError(t, json.Unmarshal(starts[0].Payload, &start))
		assert.Equal(t, engine.SlotCreator, start.FirstTurn)
		assert.Equal(t, map[string]string{"0": "alice", "1": "bob"}, start.PlayerNames)
	}
	assert.Contains(t, a.texts(), "bob joined the game")
	assert.Contains(t, b.texts(), "alice is ready to start")
	assert.Contains(t, a.texts(), "Voice assistant pairing code: M0001-0")
	assert.Contains(t, b.texts(), "Voice assistant pairing code: M0001-1")
	assert.NotContains(t, a.texts(), "Voice assistant pairing code: M0001-1")

	// A の外れ → B の手番
	h.mustSucceed("a", actions.EventAttack, attackAt(3, 3))
	ack := h.send("a", actions.EventAttack, attackAt(4, 4))
	assert.Equal(t, "not your turn", ack.Error)

	h.mustSucceed("b", actions.EventAttack, attackAt(0, 0))
	h.mustSucceed("a", actions.EventAttack, attackAt(4, 4))
	h.mustSucceed("b", actions.EventAttack, attackAt(1, 0))

	attacks := a.ofType(broadcast.EventAttack)
	require.Len(t, attacks, 4)
	miss := decodeAttack(t, attacks[0])
	assert.False(t, miss.Hit)
	assert.Equal(t, engine.SlotCreator, miss.AttackerSlot)

	hit := decodeAttack(t, attacks[1])
	assert.True(t, hit.Hit)
	assert.Nil(t, hit.SunkenPlacement)
	assert.Equal(t, engine.SlotJoiner, hit.AttackerSlot)

	sunk := decodeAttack(t, attacks[3])
	assert.True(t, sunk.Hit)
	require.NotNil(t, sunk.SunkenPlacement)
	assert.Equal(t, 1, sunk.SunkenPlacement.PlacementID)
	assert.Equal(t, map[int]int{2: 0}, sunk.RemainingShips)
	assert.Equal(t, engine.ModalityPointer, sunk.InputModality)

	for _, conn := range []*fakeConn{a, b} {
		overs := conn.ofType(broadcast.EventGameOver)
		require.Len(t, overs, 1)
		assert.JSONEq(t, `{"winnerSlot":1}`, string(overs[0].Payload))
	}

	// 終了したマッチは登録から消える
	assert.Equal(t, 0, h.reg.Count())
	ack = h.send("a", actions.EventAttack, attackAt(5, 5))
	assert.Equal(t, "not in a match", ack.Error)
	ack = h.send("a", actions.EventAlexaAttack, map[string]interface{}{
		"matchId": matchID, "playerSlot": 0, "coordinate": map[string]int{"x": 5, "y": 5},
	})
	assert.Equal(t, "unknown match id", ack.Error)
	assert.Equal(t, engine.ClassMembership, engine.Classify(engine.ErrUnknownMatch))

	require.Len(t, h.recorder.records, 1)
	record := h.recorder.records[0]
	assert.Equal(t, matchID, record.MatchID)
	assert.Equal(t, models.EndReasonDefeat, record.EndReason)
	require.NotNil(t, record.WinnerSlot)
	assert.Equal(t, 1, *record.WinnerSlot)
	assert.Equal(t, 4, record.Attacks)
	assert.Equal(t, "alice", record.Player1Name)
	assert.Equal(t, "bob", record.Player2Name)
	assert.Equal(t, []string{matchID}, h.voice.revoked)
}

func TestDispatcher_DisconnectMidMatch(t *testing.T) {
	h := newHarness(t)
	matchID := h.startMatch()
	a, b := h.conns["a"], h.conns["b"]
	h.mustSucceed("a", actions.EventAttack, attackAt(3, 3))

	before := len(a.all())
	h.d.Disconnect(context.Background(), "a")

	frames := b.all()
	require.GreaterOrEqual(t, len(frames), 2)
	last, prev := frames[len(frames)-1], frames[len(frames)-2]
	assert.Equal(t, broadcast.EventNotification, prev.Type)
	assert.JSONEq(t, `{"text":"alice left the game"}`, string(prev.Payload))
	assert.Equal(t, broadcast.EventGameOver, last.Type)
	assert.JSONEq(t, `{}`, string(last.Payload), "no winner on disconnect")
	assert.Len(t, a.all(), before, "the departing client receives nothing")

	_, found := h.reg.LookupByID(matchID)
	assert.False(t, found)
	ack := h.send("b", actions.EventAttack, attackAt(0, 0))
	assert.Equal(t, "not in a match", ack.Error)
	ack = h.send("b", actions.EventGameReady, map[string]interface{}{"shipPlacements": []interface{}{placement(1, 0, 0, "")}})
	assert.Equal(t, "not in a match", ack.Error)

	require.Len(t, h.recorder.records, 1)
	assert.Equal(t, models.EndReasonDisconnect, h.recorder.records[0].EndReason)
	assert.Nil(t, h.recorder.records[0].WinnerSlot)

	// 参加していない接続の切断は何も起こさない
	h.d.Disconnect(context.Background(), "b")
	h.d.Disconnect(context.Background(), "nobody")
	assert.Len(t, h.recorder.records, 1)
}

func TestDispatcher_DisconnectBeforeStartIsNotRecorded(t *testing.T) {
	h := newHarness(t)
	h.connect("a")
	h.mustSucceed("a", actions.EventCreateRoom, map[string]interface{}{"matchConfig": map[string]interface{}{}, "playerName": "alice"})
	h.d.Disconnect(context.Background(), "a")
	assert.Equal(t, 0, h.reg.Count())
	assert.Empty(t, h.recorder.records)
	assert.Empty(t, h.voice.revoked)
}

func TestDispatcher_GestureLockAndGestureAttack(t *testing.T) {
	h := newHarness(t)
	h.startMatch()
	a, b := h.conns["a"], h.conns["b"]

	h.mustSucceed("a", actions.EventLock, map[string]bool{"locked": true})
	ack := h.send("a", actions.EventAttack, attackAt(3, 3))
	assert.Equal(t, "the gesture input is currently being used", ack.Error)

	// ">" を描くと直前の座標（番兵）から右へ進み、(0,7) を攻撃する
	arrow := map[string]interface{}{"points": []map[string]float64{{"x": 0, "y": 0}, {"x": 100, "y": 50}, {"x": 0, "y": 100}}}
	payload := h.mustSucceed("a", actions.EventGestureAttack, arrow)
	var resp actions.GestureAttackResponse
	require.NoError(t, json.Unmarshal(payload, &resp))
	assert.True(t, resp.Recognized)
	assert.Equal(t, gesture.ArrowRight, resp.Symbol)
	assert.Contains(t, a.texts(), `Gesture "right" was recognized`)

	attacks := b.ofType(broadcast.EventAttack)
	require.Len(t, attacks, 1)
	out := decodeAttack(t, attacks[0])
	assert.Equal(t, engine.Coordinate{X: 0, Y: 7}, out.Coordinate)
	assert.True(t, out.Hit)
	assert.Equal(t, engine.ModalityGesture, out.InputModality)

	// 認識できないストロークは攻撃にならず、手番も変わらない
	line := map[string]interface{}{"points": []map[string]float64{{"x": 0, "y": 0}, {"x": 100, "y": 0}}}
	payload = h.mustSucceed("b", actions.EventGestureAttack, line)
	var rejected actions.GestureAttackResponse
	require.NoError(t, json.Unmarshal(payload, &rejected))
	assert.False(t, rejected.Recognized)
	assert.Nil(t, rejected.Distance)
	assert.Contains(t, b.texts(), "Gesture couldn't be recognized with sufficient certainty")
	assert.NotContains(t, a.texts(), "Gesture couldn't be recognized with sufficient certainty")
	assert.Len(t, b.ofType(broadcast.EventAttack), 1)

	// 円はランダム攻撃
	var circle []map[string]float64
	for _, p := range gesture.DefaultTemplates()[0].Points {
		circle = append(circle, map[string]float64{"x": p.X, "y": p.Y})
	}
	h.mustSucceed("b", actions.EventGestureAttack, map[string]interface{}{"points": circle})
	attacks = a.ofType(broadcast.EventAttack)
	require.Len(t, attacks, 2)
	assert.Equal(t, engine.Coordinate{X: 0, Y: 0}, decodeAttack(t, attacks[1]).Coordinate, "fixed rand picks the first free cell")
}

func TestDispatcher_VoiceAttacks(t *testing.T) {
	h := newHarness(t)
	matchID := h.startMatch()
	b := h.conns["b"]

	h.mustSucceed("b", actions.EventAlexaAttack, map[string]interface{}{
		"matchId": matchID, "playerSlot": 0, "coordinate": map[string]int{"x": 3, "y": 3},
	})
	out := decodeAttack(t, b.ofType(broadcast.EventAttack)[0])
	assert.Equal(t, engine.ModalityVoice, out.InputModality)
	assert.Equal(t, engine.SlotCreator, out.AttackerSlot)

	ack := h.send("b", actions.EventAlexaAttack, map[string]interface{}{
		"matchId": matchID, "playerSlot": 0, "coordinate": map[string]int{"x": 4, "y": 4},
	})
	assert.Equal(t, "not your turn", ack.Error)
	ack = h.send("b", actions.EventAlexaAttack, map[string]interface{}{
		"matchId": matchID, "playerSlot": 5, "coordinate": map[string]int{"x": 4, "y": 4},
	})
	assert.Equal(t, "invalid player slot", ack.Error)

	res := h.d.VoiceAttack(context.Background(), matchID+"-1", engine.Coordinate{X: 0, Y: 0})
	require.NoError(t, res.Err)
	out = decodeAttack(t, b.ofType(broadcast.EventAttack)[1])
	assert.Equal(t, engine.SlotJoiner, out.AttackerSlot)
	assert.True(t, out.Hit)

	res = h.d.VoiceAttack(context.Background(), "000000", engine.Coordinate{X: 0, Y: 0})
	assert.ErrorIs(t, res.Err, battledb.ErrCodeNotFound)
}

func TestDispatcher_MembershipErrors(t *testing.T) {
	h := newHarness(t)
	h.connect("a")
	h.connect("b")

	h.mustSucceed("a", actions.EventCreateRoom, map[string]interface{}{"matchConfig": map[string]interface{}{}, "playerName": "alice"})
	ack := h.send("a", actions.EventCreateRoom, map[string]interface{}{"matchConfig": map[string]interface{}{}, "playerName": "alice"})
	assert.Equal(t, "already in a match", ack.Error)

	ack = h.send("b", actions.EventJoinRoom, map[string]interface{}{"matchId": "NOPE", "playerName": "bob"})
	assert.Equal(t, "unknown match id", ack.Error)

	ack = h.send("b", actions.EventAttack, attackAt(0, 0))
	assert.Equal(t, "not in a match", ack.Error)

	ack = h.send("a", actions.EventAttack, attackAt(0, 0))
	assert.Equal(t, "game has not started yet", ack.Error)
}

func TestDispatcher_MalformedFrames(t *testing.T) {
	h := newHarness(t)
	a := h.connect("a")

	ack := h.send("a", "fly", map[string]interface{}{})
	assert.Contains(t, ack.Error, "unknown event type")

	ack = h.send("a", actions.EventAttack, "not an object")
	assert.Contains(t, ack.Error, "malformed payload")

	ack = h.send("a", actions.EventCreateRoom, map[string]interface{}{"matchConfig": map[string]interface{}{"boardSize": 99}})
	assert.Contains(t, ack.Error, "invalid match config")

	// ackIdのないフレームには応答しない
	before := len(a.all())
	h.d.Handle(context.Background(), "a", []byte(`{"type":"lock","payload":{"locked":true}}`))
	h.d.Handle(context.Background(), "a", []byte(`not json`))
	assert.Len(t, a.all(), before)
}

func TestDispatcher_SweepIdle(t *testing.T) {
	h := newHarness(t)
	a := h.connect("a")
	h.mustSucceed("a", actions.EventCreateRoom, map[string]interface{}{"matchConfig": map[string]interface{}{}, "playerName": "alice"})

	assert.Equal(t, 0, h.d.SweepIdle(10*time.Minute))
	h.now = h.now.Add(11 * time.Minute)
	assert.Equal(t, 1, h.d.SweepIdle(10*time.Minute))

	assert.Contains(t, a.texts(), "The match was closed because it did not start in time")
	assert.Len(t, a.ofType(broadcast.EventGameOver), 1)
	h.mustSucceed("a", actions.EventCreateRoom, map[string]interface{}{"matchConfig": map[string]interface{}{}, "playerName": "alice"})
}

func TestNewMatchRecord(t *testing.T) {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	winner := engine.SlotCreator
	record := actions.NewMatchRecord(engine.MatchSnapshot{
		Config:      engine.MatchConfig{MatchID: "ABCDE", BoardSize: 10},
		PlayerNames: []string{"alice"},
		Winner:      &winner,
		Attacks:     7,
		StartedAt:   &started,
	}, models.EndReasonDefeat, started.Add(time.Minute))

	assert.Equal(t, "ABCDE", record.MatchID)
	assert.Equal(t, 10, record.BoardSize)
	assert.Equal(t, "alice", record.Player1Name)
	assert.Empty(t, record.Player2Name)
	require.NotNil(t, record.WinnerSlot)
	assert.Equal(t, 0, *record.WinnerSlot)
	assert.Equal(t, 7, record.Attacks)
	assert.Equal(t, started.Add(time.Minute), record.FinishedAt)
}
