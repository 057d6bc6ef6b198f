package battleship

import (
	"math/rand"
	"time"

	"battleserver/battleship/engine"
)

// 乱数は先攻後攻の決定やランダム攻撃の座標の決定に使用
func createLocalRandGenerator() *rand.Rand {
	source := rand.NewSource(time.Now().UnixNano())
	return rand.New(source)
}

// NewRegistry はプロセス全体で共有するマッチの登録簿を作る
func NewRegistry() *engine.Registry {
	return engine.NewRegistry(engine.WithRand(createLocalRandGenerator()))
}
