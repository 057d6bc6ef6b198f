package engine

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

// 読み間違えやすい文字（0/O, 1/I など）を除いたID用の文字
const matchIDAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const matchIDLength = 5

// Registry はプロセス内の全マッチを管理する。
// 作成・参加・破棄はすべて mu の下で行い、途中状態を外に見せない。
// ロックの順序は Registry → Match
type Registry struct {
	mu           sync.RWMutex
	matches      map[string]*Match
	participants map[string]string // 接続ID -> マッチID

	rnd   Rand
	newID func() string
	now   func() time.Time
}

type RegistryOption func(*Registry)

// WithRand は座標生成や先手決定に使う乱数源を差し替える
func WithRand(rnd Rand) RegistryOption {
	return func(r *Registry) {
		r.rnd = &lockedRand{src: rnd}
	}
}

// 複数のマッチから同時に使われるので排他する
type lockedRand struct {
	mu  sync.Mutex
	src Rand
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Intn(n)
}

// WithIDGenerator はマッチIDの生成方法を差し替える。衝突した場合は再生成される
func WithIDGenerator(gen func() string) RegistryOption {
	return func(r *Registry) {
		r.newID = gen
	}
}

// WithClock は現在時刻の取得方法を差し替える
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.now = now
	}
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		matches:      make(map[string]*Match),
		participants: make(map[string]string),
		rnd:          &lockedRand{src: rand.New(rand.NewSource(time.Now().UnixNano()))},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.newID == nil {
		r.newID = r.randomID
	}
	return r
}

func (r *Registry) randomID() string {
	var sb strings.Builder
	for i := 0; i < matchIDLength; i++ {
		sb.WriteByte(matchIDAlphabet[r.rnd.Intn(len(matchIDAlphabet))])
	}
	return sb.String()
}

// Create は新しいマッチを作成し、作成者のボードを結びつけて登録する
func (r *Registry) Create(connID, playerName string, config MatchConfig) (*Match, error) {
	config, err := config.Normalize()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.rejectIfAlreadyInMatch(connID); err != nil {
		return nil, err
	}

	id := r.newID()
	for r.matches[id] != nil {
		id = r.newID()
	}
	config.MatchID = id

	board := NewBoard(Owner{ConnectionID: connID, PlayerName: playerName}, config)
	match := newMatch(config, board, r.rnd, r.now)
	r.matches[id] = match
	r.participants[connID] = id
	return match, nil
}

// Join は既存のマッチに2人目として参加する
func (r *Registry) Join(matchID, connID, playerName string) (*Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.rejectIfAlreadyInMatch(connID); err != nil {
		return nil, err
	}
	match, ok := r.matches[matchID]
	if !ok {
		return nil, ErrUnknownMatch
	}

	board := NewBoard(Owner{ConnectionID: connID, PlayerName: playerName}, match.Config())
	if err := match.AttachSecondBoard(board); err != nil {
		return nil, err
	}
	r.participants[connID] = matchID
	return match, nil
}

func (r *Registry) LookupByID(id string) (*Match, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	match, ok := r.matches[id]
	return match, ok
}

// LookupByParticipant は接続が参加しているマッチとそのスロットを返す
func (r *Registry) LookupByParticipant(connID string) (*Match, Slot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.participants[connID]
	if !ok {
		return nil, 0, false
	}
	match := r.matches[id]
	for _, slot := range []Slot{SlotCreator, SlotJoiner} {
		if owner, ok := match.Owner(slot); ok && owner.ConnectionID == connID {
			return match, slot, true
		}
	}
	return nil, 0, false
}

func (r *Registry) RejectIfAlreadyInMatch(connID string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rejectIfAlreadyInMatch(connID)
}

func (r *Registry) rejectIfAlreadyInMatch(connID string) error {
	if _, ok := r.participants[connID]; ok {
		return ErrAlreadyInMatch
	}
	return nil
}

// Destroy はマッチを登録から外して破棄する。存在しなければ何もせず false を返す
func (r *Registry) Destroy(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.destroy(id)
}

func (r *Registry) destroy(id string) bool {
	match, ok := r.matches[id]
	if !ok {
		return false
	}
	delete(r.matches, id)
	for connID, matchID := range r.participants {
		if matchID == id {
			delete(r.participants, connID)
		}
	}
	match.Close()
	return true
}

// SweepIdle は maxAge 以上経っても開始されていないマッチを破棄し、そのスナップショットを返す
func (r *Registry) SweepIdle(maxAge time.Duration) []MatchSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-maxAge)
	var swept []MatchSnapshot
	for id, match := range r.matches {
		snap := match.Snapshot()
		if snap.StartedAt != nil || snap.CreatedAt.After(cutoff) {
			continue
		}
		r.destroy(id)
		snap.State = StateDestroyed
		swept = append(swept, snap)
	}
	return swept
}

// Count は生存中のマッチ数
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.matches)
}
