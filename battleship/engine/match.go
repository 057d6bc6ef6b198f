package engine

import (
	"sync"
	"time"
)

// MatchState はマッチの状態。逆方向への遷移はない
type MatchState string

const (
	StateCreated   MatchState = "created"
	StateFull      MatchState = "full"
	StateStarted   MatchState = "started"
	StateFinished  MatchState = "finished"
	StateDestroyed MatchState = "destroyed"
)

// Match は2人分のボードと手番を持つ1試合（ルーム）。
// 公開メソッドはすべて内部のミューテックスを取るので、複数の接続ゴルーチンから呼んでよい。
type Match struct {
	mu sync.Mutex

	config      MatchConfig
	boards      [2]*Board
	currentTurn Slot
	started     bool
	finished    bool
	destroyed   bool
	winner      *Slot
	gestureLock [2]bool
	attacks     int
	rnd         Rand
	now         func() time.Time

	createdAt time.Time
	startedAt time.Time
}

func newMatch(config MatchConfig, creator *Board, rnd Rand, now func() time.Time) *Match {
	return &Match{
		config:    config,
		boards:    [2]*Board{creator, nil},
		rnd:       rnd,
		now:       now,
		createdAt: now(),
	}
}

func (m *Match) ID() string {
	return m.config.MatchID
}

func (m *Match) Config() MatchConfig {
	return m.config
}

// AttachSecondBoard は参加者のボードを追加する
func (m *Match) AttachSecondBoard(board *Board) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return ErrMatchClosed
	}
	if m.boards[SlotJoiner] != nil {
		return ErrMatchFull
	}
	m.boards[SlotJoiner] = board
	return nil
}

func (m *Match) IsFull() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.boards[SlotJoiner] != nil
}

func (m *Match) IsStarted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// IsOver はボードの状態から毎回求める（キャッシュしない）
func (m *Match) IsOver() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isOver()
}

func (m *Match) isOver() bool {
	for _, b := range m.boards {
		if b != nil && b.IsDefeated() {
			return true
		}
	}
	return false
}

func (m *Match) State() MatchState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state()
}

func (m *Match) state() MatchState {
	switch {
	case m.destroyed:
		return StateDestroyed
	case m.finished:
		return StateFinished
	case m.started:
		return StateStarted
	case m.boards[SlotJoiner] != nil:
		return StateFull
	}
	return StateCreated
}

func (m *Match) ValidateStarted() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.validateStarted()
}

func (m *Match) validateStarted() error {
	switch {
	case m.destroyed:
		return ErrMatchClosed
	case m.finished:
		return ErrMatchOver
	case !m.started:
		return ErrNotStarted
	}
	return nil
}

// ValidateTurn は試合中かつ指定スロットの手番のときだけ nil を返す
func (m *Match) ValidateTurn(slot Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.validateTurn(slot)
}

func (m *Match) validateTurn(slot Slot) error {
	if err := m.validateStarted(); err != nil {
		return err
	}
	if !slot.Valid() {
		return ErrInvalidSlot
	}
	if m.currentTurn != slot {
		return ErrNotYourTurn
	}
	return nil
}

func (m *Match) ValidateCoordinate(c Coordinate) error {
	if c.X < 0 || c.X >= m.config.BoardSize || c.Y < 0 || c.Y >= m.config.BoardSize {
		return ErrOutOfBounds
	}
	return nil
}

// AdvanceTurn は手番を交代する。命中・外れに関係なく受理された攻撃ごとに1回
func (m *Match) AdvanceTurn() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advanceTurn()
}

func (m *Match) advanceTurn() {
	m.currentTurn = m.currentTurn.Opponent()
}

func (m *Match) CurrentTurn() Slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentTurn
}

// Winner は盤面の全滅で決着した場合の勝者
func (m *Match) Winner() (Slot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.winner == nil {
		return 0, false
	}
	return *m.winner, true
}

// Owner は指定スロットのボードの持ち主
func (m *Match) Owner(slot Slot) (Owner, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !slot.Valid() || m.boards[slot] == nil {
		return Owner{}, false
	}
	return m.boards[slot].Owner(), true
}

// MarkReady は船の配置を設定する。両者が揃った瞬間だけ startedNow が true になる
func (m *Match) MarkReady(slot Slot, placements []Placement) (startedNow bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.destroyed {
		return false, ErrMatchClosed
	}
	if !slot.Valid() || m.boards[slot] == nil {
		return false, ErrInvalidSlot
	}
	if err := m.boards[slot].SetShipConfig(placements); err != nil {
		return false, err
	}

	if m.started || m.boards[SlotJoiner] == nil {
		return false, nil
	}
	if !m.boards[SlotCreator].IsReady() || !m.boards[SlotJoiner].IsReady() {
		return false, nil
	}

	// 両者準備完了。ランダムに先手を決定
	m.started = true
	m.startedAt = m.now()
	m.currentTurn = Slot(m.rnd.Intn(2))
	return true, nil
}

// SetGestureLock はジェスチャー入力中フラグをスロット単位で設定する。
// どちらかのスロットが保持している間、このマッチへの攻撃は拒否される
func (m *Match) SetGestureLock(slot Slot, locked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return ErrMatchClosed
	}
	if !slot.Valid() {
		return ErrInvalidSlot
	}
	m.gestureLock[slot] = locked
	return nil
}

func (m *Match) gestureLocked() bool {
	return m.gestureLock[SlotCreator] || m.gestureLock[SlotJoiner]
}

// ResolveAttack は全ての攻撃経路（直接・ランダム・相対・音声）が通る唯一の入口。
// 検証→記録→手番交代→決着判定をロックを保持したまま順に行うので、
// 同じマッチへの別の操作が間に割り込むことはない。
func (m *Match) ResolveAttack(attacker Slot, req AttackRequest) (AttackOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.validateStarted(); err != nil {
		return AttackOutcome{}, err
	}
	if err := m.validateTurn(attacker); err != nil {
		return AttackOutcome{}, err
	}

	target := m.boards[attacker.Opponent()]
	coord := req.Coordinate
	switch {
	case req.Random:
		c, err := target.NextRandomCoordinate(m.rnd)
		if err != nil {
			return AttackOutcome{}, err
		}
		coord = c
	case req.Relative != nil:
		coord = target.NextRelativeCoordinate(*req.Relative)
	}

	if err := m.ValidateCoordinate(coord); err != nil {
		return AttackOutcome{}, err
	}
	if err := target.IsCoordinateAvailable(coord); err != nil {
		return AttackOutcome{}, err
	}
	if m.gestureLocked() {
		return AttackOutcome{}, ErrGestureLocked
	}

	result := target.RecordAttack(coord)
	m.attacks++
	m.advanceTurn()

	outcome := AttackOutcome{
		Attacker:       attacker,
		Coordinate:     coord,
		Hit:            result.Hit,
		Sunken:         result.Sunken,
		RemainingShips: target.ShipsRemaining(),
		Modality:       req.Modality,
		NextTurn:       m.currentTurn,
	}
	if target.IsDefeated() {
		winner := attacker
		m.winner = &winner
		m.finished = true
		outcome.Defeated = true
	}
	return outcome, nil
}

// Close はマッチを破棄済みにする。以降の操作はすべて ErrMatchClosed になる
func (m *Match) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.destroyed = true
	m.gestureLock = [2]bool{}
}

// MatchSnapshot は表示や記録のための読み取り専用ビュー
type MatchSnapshot struct {
	Config      MatchConfig `json:"matchConfig"`
	State       MatchState  `json:"state"`
	PlayerNames []string    `json:"playerNames"`
	CurrentTurn Slot        `json:"currentTurn"`
	Winner      *Slot       `json:"winnerSlot,omitempty"`
	Attacks     int         `json:"attacks"`
	CreatedAt   time.Time   `json:"createdAt"`
	StartedAt   *time.Time  `json:"startedAt,omitempty"`
}

func (m *Match) Snapshot() MatchSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, 2)
	for _, b := range m.boards {
		if b != nil {
			names = append(names, b.Owner().PlayerName)
		}
	}
	snap := MatchSnapshot{
		Config:      m.config,
		State:       m.state(),
		PlayerNames: names,
		CurrentTurn: m.currentTurn,
		Attacks:     m.attacks,
		CreatedAt:   m.createdAt,
	}
	if m.winner != nil {
		w := *m.winner
		snap.Winner = &w
	}
	if m.started {
		t := m.startedAt
		snap.StartedAt = &t
	}
	return snap
}
