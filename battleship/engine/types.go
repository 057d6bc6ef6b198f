package engine

import "fmt"

const (
	DefaultBoardSize = 8
	MinBoardSize     = 2
	MaxBoardSize     = 26 // ログ表記 "A1" の列文字に収まる範囲
)

// Coordinate は盤面上のマス目。0始まり
type Coordinate struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// String はログ用に "A1" 形式で返す
func (c Coordinate) String() string {
	if c.X < 0 || c.X >= MaxBoardSize || c.Y < 0 {
		return fmt.Sprintf("(%d,%d)", c.X, c.Y)
	}
	return fmt.Sprintf("%c%d", 'A'+c.X, c.Y+1)
}

// 攻撃履歴の先頭に置く番兵。初手から方向ジェスチャーを使えるようにする
var sentinelCoordinate = Coordinate{X: -1, Y: -1}

// Slot はマッチ内のプレイヤー番号（0: 作成者, 1: 参加者）
type Slot int

const (
	SlotCreator Slot = iota
	SlotJoiner
)

func (s Slot) Valid() bool {
	return s == SlotCreator || s == SlotJoiner
}

// Opponent は相手側のスロットを返す
func (s Slot) Opponent() Slot {
	return 1 - s
}

type Orientation string

const (
	Horizontal Orientation = "horizontal"
	Vertical   Orientation = "vertical"
)

// Modality は攻撃座標がどの入力手段で作られたか。表示とログのためだけに運ばれる
type Modality string

const (
	ModalityPointer  Modality = "pointer"
	ModalityVoice    Modality = "voice"
	ModalityGesture  Modality = "gesture"
	ModalityKeyboard Modality = "keyboard"
)

func (m Modality) Valid() bool {
	switch m {
	case ModalityPointer, ModalityVoice, ModalityGesture, ModalityKeyboard:
		return true
	}
	return false
}

// ShipDefinition は船のテンプレート。サイズとマッチあたりの利用可能数
type ShipDefinition struct {
	Size  int `json:"size"`
	Count int `json:"count"`
}

// MatchConfig はマッチ作成時に決まる設定
type MatchConfig struct {
	MatchID         string           `json:"matchId,omitempty"`
	BoardSize       int              `json:"boardSize"`
	ShipDefinitions []ShipDefinition `json:"shipDefinitions"`
}

// DefaultShipDefinitions は元のクライアントが配置していた艦隊構成
func DefaultShipDefinitions() []ShipDefinition {
	return []ShipDefinition{
		{Size: 1, Count: 2},
		{Size: 2, Count: 2},
		{Size: 3, Count: 2},
		{Size: 4, Count: 1},
	}
}

// Normalize は未指定の項目をデフォルトで埋めたうえで設定を検証する
func (c MatchConfig) Normalize() (MatchConfig, error) {
	if c.BoardSize == 0 {
		c.BoardSize = DefaultBoardSize
	}
	if c.BoardSize < MinBoardSize || c.BoardSize > MaxBoardSize {
		return c, fmt.Errorf("%w: board size %d must be between %d and %d", ErrInvalidConfig, c.BoardSize, MinBoardSize, MaxBoardSize)
	}
	if len(c.ShipDefinitions) == 0 {
		c.ShipDefinitions = DefaultShipDefinitions()
	} else {
		c.ShipDefinitions = append([]ShipDefinition(nil), c.ShipDefinitions...)
	}

	seen := make(map[int]bool, len(c.ShipDefinitions))
	for _, def := range c.ShipDefinitions {
		if def.Size < 1 || def.Size > c.BoardSize {
			return c, fmt.Errorf("%w: ship size %d does not fit a %dx%d board", ErrInvalidConfig, def.Size, c.BoardSize, c.BoardSize)
		}
		if def.Count < 0 {
			return c, fmt.Errorf("%w: negative count for ship size %d", ErrInvalidConfig, def.Size)
		}
		if seen[def.Size] {
			return c, fmt.Errorf("%w: ship size %d defined twice", ErrInvalidConfig, def.Size)
		}
		seen[def.Size] = true
	}
	return c, nil
}

func (c MatchConfig) availability() map[int]int {
	counts := make(map[int]int, len(c.ShipDefinitions))
	for _, def := range c.ShipDefinitions {
		counts[def.Size] = def.Count
	}
	return counts
}

// Placement はクライアントから送られる1隻分の配置
type Placement struct {
	PlacementID int         `json:"placementId"`
	Size        int         `json:"size"`
	X           int         `json:"x"`
	Y           int         `json:"y"`
	Orientation Orientation `json:"orientation,omitempty"`
}

// Anchor は配置の基準座標
func (p Placement) Anchor() Coordinate {
	return Coordinate{X: p.X, Y: p.Y}
}

// Direction は相対移動量。Up が正なら上（y が減る方向）、Right が正なら右
type Direction struct {
	Up    int `json:"verticalDelta"`
	Right int `json:"horizontalDelta"`
}

var (
	DirectionUp    = Direction{Up: 1}
	DirectionDown  = Direction{Up: -1}
	DirectionLeft  = Direction{Right: -1}
	DirectionRight = Direction{Right: 1}
)

// AttackResult は Board.RecordAttack の結果
type AttackResult struct {
	Hit    bool
	Sunken *Placement
}

// AttackRequest は ResolveAttack に渡す攻撃要求。Random と Relative は Coordinate より優先される
type AttackRequest struct {
	Coordinate Coordinate
	Random     bool
	Relative   *Direction
	Modality   Modality
}

// AttackOutcome は受理された攻撃の結果
type AttackOutcome struct {
	Attacker       Slot
	Coordinate     Coordinate
	Hit            bool
	Sunken         *Placement
	RemainingShips map[int]int
	Modality       Modality
	Defeated       bool // 相手の船が全て沈んだ
	NextTurn       Slot
}

// Rand は座標生成や先手決定に使う乱数源。*rand.Rand がそのまま使える
type Rand interface {
	Intn(n int) int
}
