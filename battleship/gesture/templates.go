package gesture

import "math"

// Symbol は認識可能な図形
type Symbol string

const (
	Unknown    Symbol = "unknown"
	Circle     Symbol = "circle"
	ArrowUp    Symbol = "up"
	ArrowDown  Symbol = "down"
	ArrowRight Symbol = "right"
	ArrowLeft  Symbol = "left"
)

// Template は正規化前の図形の見本
type Template struct {
	Symbol Symbol
	Points []Point
}

// DefaultTemplates は円と4方向の矢印。
// 座標は画面座標系（y は下向き）で、矢印はどれも左→右または上→下に一筆で描く
func DefaultTemplates() []Template {
	return []Template{
		{Symbol: Circle, Points: circlePoints(50, 50, 50, 33)},
		{Symbol: ArrowUp, Points: []Point{{0, 100}, {50, 0}, {100, 100}}},
		{Symbol: ArrowDown, Points: []Point{{0, 0}, {50, 100}, {100, 0}}},
		{Symbol: ArrowRight, Points: []Point{{0, 0}, {100, 50}, {0, 100}}},
		{Symbol: ArrowLeft, Points: []Point{{100, 0}, {0, 50}, {100, 100}}},
	}
}

// 真上から時計回り（画面座標）に一周する閉曲線。始点と終点は一致する
func circlePoints(cx, cy, r float64, k int) []Point {
	pts := make([]Point, k)
	for i := 0; i < k; i++ {
		a := -math.Pi/2 + 2*math.Pi*float64(i)/float64(k-1)
		pts[i] = Point{X: cx + r*math.Cos(a), Y: cy + r*math.Sin(a)}
	}
	return pts
}
