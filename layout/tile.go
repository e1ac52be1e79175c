package layout

import (
	"math"
	"sort"
)

const (
	guideWidth = 0.1
	tickWidth  = 0.2
	maxTick    = 3.0
)

// Tile 按行优先把卡片面排到页面上：
// column = i mod columns，row = floor(i/columns) mod rows，i != 0 且回到 (0,0) 时另起一页。
// faces 为空时返回零页。
func Tile(faces []*CardFace, cfg Config) []Page {
	if len(faces) == 0 {
		return nil
	}
	g := cfg.Geometry()
	var pages []Page
	for i, f := range faces {
		col := i % g.Columns
		row := (i / g.Columns) % g.Rows
		if i == 0 || (col == 0 && row == 0) {
			pages = append(pages, Page{
				Number:     len(pages) + 1,
				Width:      cfg.PageWidth,
				Height:     cfg.PageHeight,
				Kind:       f.Kind,
				Placements: make([]Placement, 0, g.Capacity()),
			})
		}
		cur := &pages[len(pages)-1]

		placeCol := col
		if cfg.MirrorBacks && f.Kind == FaceBack {
			placeCol = g.Columns - 1 - col
		}
		x, y := g.CellOrigin(cfg.Margin, row, placeCol)
		// 卡片小于单元格时居中
		x += (g.CellWidth - f.Width) / 2
		y += (g.CellHeight - f.Height) / 2
		cur.Placements = append(cur.Placements, Placement{Row: row, Column: placeCol, X: x, Y: y, Face: f})
	}
	if cfg.Guides {
		guides, ticks := CutGuides(cfg)
		for i := range pages {
			pages[i].Guides = guides
			pages[i].Ticks = ticks
		}
	}
	return pages
}

// CutGuides 计算贯穿整页的裁切线：每条线都落在卡片边缘上（不会穿过卡片内部），
// 并在与页面边缘相交处向内画短刻度。与 Tile 使用同一组几何参数。
func CutGuides(cfg Config) (guides, ticks []Line) {
	g := cfg.Geometry()
	dx, dy := g.CardOffset()
	var xs, ys []float64
	for c := 0; c < g.Columns; c++ {
		x, _ := g.CellOrigin(cfg.Margin, 0, c)
		xs = append(xs, x+dx, x+dx+g.CardWidth)
	}
	for r := 0; r < g.Rows; r++ {
		_, y := g.CellOrigin(cfg.Margin, r, 0)
		ys = append(ys, y+dy, y+dy+g.CardHeight)
	}
	xs = uniqueSorted(xs)
	ys = uniqueSorted(ys)

	guideColor := Color{R: 120, G: 120, B: 120}
	tick := math.Min(maxTick, cfg.Margin)
	for _, x := range xs {
		guides = append(guides, Line{X1: x, Y1: 0, X2: x, Y2: cfg.PageHeight, Color: guideColor, Width: guideWidth, Opacity: 0.6, Dash: []float64{1, 1}})
		if tick > 0 {
			ticks = append(ticks,
				Line{X1: x, Y1: 0, X2: x, Y2: tick, Color: cfg.Ink, Width: tickWidth},
				Line{X1: x, Y1: cfg.PageHeight - tick, X2: x, Y2: cfg.PageHeight, Color: cfg.Ink, Width: tickWidth},
			)
		}
	}
	for _, y := range ys {
		guides = append(guides, Line{X1: 0, Y1: y, X2: cfg.PageWidth, Y2: y, Color: guideColor, Width: guideWidth, Opacity: 0.6, Dash: []float64{1, 1}})
		if tick > 0 {
			ticks = append(ticks,
				Line{X1: 0, Y1: y, X2: tick, Y2: y, Color: cfg.Ink, Width: tickWidth},
				Line{X1: cfg.PageWidth - tick, Y1: y, X2: cfg.PageWidth, Y2: y, Color: cfg.Ink, Width: tickWidth},
			)
		}
	}
	return guides, ticks
}

func uniqueSorted(vs []float64) []float64 {
	sort.Float64s(vs)
	out := vs[:0]
	for _, v := range vs {
		if len(out) > 0 && math.Abs(v-out[len(out)-1]) <= 1e-9 {
			continue
		}
		out = append(out, v)
	}
	return out
}
