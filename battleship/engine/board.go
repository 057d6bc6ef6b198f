package engine

import (
	"fmt"
)

// Owner はボードの持ち主（接続単位）
type Owner struct {
	ConnectionID string
	PlayerName   string
}

// 配置された船。occupied は被弾するたびに縮む
type ship struct {
	placement Placement
	occupied  []Coordinate
}

// Board は1人のプレイヤーの船の配置と、そのボードに対する攻撃履歴を持つ。
// 自身ではロックを持たないので、Match のロック下で操作すること。
type Board struct {
	owner  Owner
	size   int
	config MatchConfig
	ships  []*ship
	ready  bool
	// 攻撃された座標の履歴（追記のみ）。先頭は番兵
	history  []Coordinate
	attacked map[Coordinate]bool
}

func NewBoard(owner Owner, config MatchConfig) *Board {
	return &Board{
		owner:    owner,
		size:     config.BoardSize,
		config:   config,
		history:  []Coordinate{sentinelCoordinate},
		attacked: make(map[Coordinate]bool),
	}
}

func (b *Board) Owner() Owner {
	return b.owner
}

// SetShipConfig は船の配置を一度だけ設定する。範囲外・重なり・定義外のサイズは拒否する
func (b *Board) SetShipConfig(placements []Placement) error {
	if b.ready {
		return ErrAlreadyReady
	}
	if len(placements) == 0 {
		return fmt.Errorf("%w: no ships placed", ErrInvalidPlacement)
	}

	available := b.config.availability()
	used := make(map[int]int)
	ids := make(map[int]bool, len(placements))
	cells := make(map[Coordinate]int) // 座標 -> 占有している placementId

	ships := make([]*ship, 0, len(placements))
	for _, p := range placements {
		if ids[p.PlacementID] {
			return fmt.Errorf("%w: duplicate placement id %d", ErrInvalidPlacement, p.PlacementID)
		}
		ids[p.PlacementID] = true

		limit, ok := available[p.Size]
		if !ok {
			return fmt.Errorf("%w: ship size %d is not part of this match", ErrInvalidPlacement, p.Size)
		}
		used[p.Size]++
		if used[p.Size] > limit {
			return fmt.Errorf("%w: too many ships of size %d (max %d)", ErrInvalidPlacement, p.Size, limit)
		}

		occupied, err := b.occupiedCoordinates(p)
		if err != nil {
			return err
		}
		for _, c := range occupied {
			if other, taken := cells[c]; taken {
				return fmt.Errorf("%w: ship %d overlaps ship %d at %s", ErrInvalidPlacement, p.PlacementID, other, c)
			}
			cells[c] = p.PlacementID
		}
		ships = append(ships, &ship{placement: p, occupied: occupied})
	}

	b.ships = ships
	b.ready = true
	return nil
}

// 基準座標と向きから占有マスを求める
func (b *Board) occupiedCoordinates(p Placement) ([]Coordinate, error) {
	dx, dy := 0, 1
	switch p.Orientation {
	case Horizontal:
		dx, dy = 1, 0
	case Vertical, "":
	default:
		return nil, fmt.Errorf("%w: unknown orientation %q for ship %d", ErrInvalidPlacement, p.Orientation, p.PlacementID)
	}

	occupied := make([]Coordinate, 0, p.Size)
	for i := 0; i < p.Size; i++ {
		c := Coordinate{X: p.X + dx*i, Y: p.Y + dy*i}
		if !b.inBounds(c) {
			return nil, fmt.Errorf("%w: ship %d leaves the board at %s", ErrInvalidPlacement, p.PlacementID, c)
		}
		occupied = append(occupied, c)
	}
	return occupied, nil
}

func (b *Board) inBounds(c Coordinate) bool {
	return c.X >= 0 && c.X < b.size && c.Y >= 0 && c.Y < b.size
}

func (b *Board) IsReady() bool {
	return b.ready
}

// IsDefeated は全ての船の占有マスが空になったら true
func (b *Board) IsDefeated() bool {
	if !b.ready {
		return false
	}
	for _, s := range b.ships {
		if len(s.occupied) > 0 {
			return false
		}
	}
	return true
}

// NextRandomCoordinate はまだ攻撃されていない座標から一様に1つ選ぶ。
// 全マス攻撃済みなら ErrBoardExhausted を返し、無限ループしない。
func (b *Board) NextRandomCoordinate(rnd Rand) (Coordinate, error) {
	free := make([]Coordinate, 0, b.size*b.size-len(b.attacked))
	for y := 0; y < b.size; y++ {
		for x := 0; x < b.size; x++ {
			c := Coordinate{X: x, Y: y}
			if !b.attacked[c] {
				free = append(free, c)
			}
		}
	}
	if len(free) == 0 {
		return Coordinate{}, ErrBoardExhausted
	}
	return free[rnd.Intn(len(free))], nil
}

// NextRelativeCoordinate は直前の攻撃座標から1マス動かした座標を返す。盤端はトーラス状に折り返す
func (b *Board) NextRelativeCoordinate(d Direction) Coordinate {
	current := b.history[len(b.history)-1]
	return Coordinate{
		X: wrap(current.X+d.Right, b.size),
		Y: wrap(current.Y-d.Up, b.size),
	}
}

func wrap(v, n int) int {
	return ((v % n) + n) % n
}

// RecordAttack は攻撃を履歴に追加し、命中した船の占有マスを減らす。
// 呼び出し前に IsCoordinateAvailable を確認すること。
func (b *Board) RecordAttack(c Coordinate) AttackResult {
	b.history = append(b.history, c)
	b.attacked[c] = true
	for _, s := range b.ships {
		for i, occ := range s.occupied {
			if occ != c {
				continue
			}
			s.occupied = append(s.occupied[:i], s.occupied[i+1:]...)
			if len(s.occupied) == 0 {
				sunken := s.placement
				return AttackResult{Hit: true, Sunken: &sunken}
			}
			return AttackResult{Hit: true}
		}
	}
	return AttackResult{Hit: false}
}

func (b *Board) IsCoordinateAvailable(c Coordinate) error {
	if b.attacked[c] {
		return ErrAlreadyAttacked
	}
	return nil
}

// ShipsRemaining はサイズごとの沈んでいない船の数
func (b *Board) ShipsRemaining() map[int]int {
	remaining := make(map[int]int, len(b.config.ShipDefinitions))
	for _, def := range b.config.ShipDefinitions {
		remaining[def.Size] = 0
	}
	for _, s := range b.ships {
		if len(s.occupied) > 0 {
			remaining[s.placement.Size]++
		}
	}
	return remaining
}

// History は番兵を除いた攻撃履歴のコピー
func (b *Board) History() []Coordinate {
	return append([]Coordinate(nil), b.history[1:]...)
}
