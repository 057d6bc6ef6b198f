// Package gesture はフリーハンドのストロークを少数の図形に分類する。
// 分類は参考値であり、採否は呼び出し側が Accept で判断する。
package gesture

import (
	"math"
)

const (
	// SampleCount は正規化後の点数
	SampleCount = 64
	// BoxSize は正規化後のバウンディングボックスの長辺
	BoxSize = 250.0
	// DefaultThreshold を超える距離は認識失敗として扱う
	DefaultThreshold = 1000.0
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Result は最も近いテンプレートとその距離。入力が退化している場合は Unknown と +Inf
type Result struct {
	Symbol   Symbol  `json:"symbol"`
	Distance float64 `json:"distance"`
}

type normalizedTemplate struct {
	symbol Symbol
	points []Point
}

// Recognizer は状態を持たないので複数のゴルーチンから共有してよい
type Recognizer struct {
	templates []normalizedTemplate
	threshold float64
}

type Option func(*Recognizer)

// WithThreshold は認識失敗とみなす距離を変更する（0以下は無視）
func WithThreshold(threshold float64) Option {
	return func(r *Recognizer) {
		if threshold > 0 {
			r.threshold = threshold
		}
	}
}

// WithTemplates はテンプレート一式を差し替える
func WithTemplates(templates []Template) Option {
	return func(r *Recognizer) {
		r.templates = normalizeTemplates(templates)
	}
}

func NewRecognizer(opts ...Option) *Recognizer {
	r := &Recognizer{
		templates: normalizeTemplates(DefaultTemplates()),
		threshold: DefaultThreshold,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func normalizeTemplates(templates []Template) []normalizedTemplate {
	out := make([]normalizedTemplate, 0, len(templates))
	for _, t := range templates {
		pts, ok := normalize(t.Points)
		if !ok {
			continue
		}
		out = append(out, normalizedTemplate{symbol: t.Symbol, points: pts})
	}
	return out
}

func (r *Recognizer) Threshold() float64 {
	return r.threshold
}

// Classify はストロークを正規化し、距離が最小のテンプレートを返す
func (r *Recognizer) Classify(stroke []Point) Result {
	best := Result{Symbol: Unknown, Distance: math.Inf(1)}
	pts, ok := normalize(stroke)
	if !ok {
		return best
	}
	for _, t := range r.templates {
		if d := distance(pts, t.points); d < best.Distance {
			best = Result{Symbol: t.symbol, Distance: d}
		}
	}
	return best
}

// Accept は分類結果を採用してよいか（距離がしきい値以下か）
func (r *Recognizer) Accept(res Result) bool {
	return res.Symbol != Unknown && res.Distance <= r.threshold
}

// 2点未満・長さ0・大きさ0のストロークは正規化できない
func normalize(stroke []Point) ([]Point, bool) {
	if len(stroke) < 2 || pathLength(stroke) == 0 {
		return nil, false
	}
	pts := resample(stroke, SampleCount)

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	side := math.Max(maxX-minX, maxY-minY)
	if side == 0 {
		return nil, false
	}

	// 縦横比を保ったまま拡大し、重心を原点へ
	scale := BoxSize / side
	var cx, cy float64
	for i := range pts {
		pts[i].X *= scale
		pts[i].Y *= scale
		cx += pts[i].X
		cy += pts[i].Y
	}
	cx /= float64(len(pts))
	cy /= float64(len(pts))
	for i := range pts {
		pts[i].X -= cx
		pts[i].Y -= cy
	}
	return pts, true
}

func pathLength(pts []Point) float64 {
	var total float64
	for i := 1; i < len(pts); i++ {
		total += dist(pts[i-1], pts[i])
	}
	return total
}

// resample は経路を等間隔の n 点に並べ直す
func resample(stroke []Point, n int) []Point {
	interval := pathLength(stroke) / float64(n-1)
	out := make([]Point, 0, n)
	out = append(out, stroke[0])

	prev := stroke[0]
	var acc float64
	for i := 1; i < len(stroke) && len(out) < n; {
		cur := stroke[i]
		d := dist(prev, cur)
		if d > 0 && acc+d >= interval {
			t := (interval - acc) / d
			q := Point{X: prev.X + t*(cur.X-prev.X), Y: prev.Y + t*(cur.Y-prev.Y)}
			out = append(out, q)
			prev = q
			acc = 0
			continue
		}
		acc += d
		prev = cur
		i++
	}
	// 浮動小数点の誤差で足りない分は終点で埋める
	last := stroke[len(stroke)-1]
	for len(out) < n {
		out = append(out, last)
	}
	return out
}

func distance(a, b []Point) float64 {
	var total float64
	for i := range a {
		total += dist(a[i], b[i])
	}
	return total
}

func dist(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
