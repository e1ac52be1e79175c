package layout

import (
	"fmt"
	"math"
	"strings"
)

// Theme 是卡片背面的视觉风格（封闭集合）。
type Theme string

const (
	ThemeClassic   Theme = "classic"
	ThemeMinimal   Theme = "minimal"
	ThemeContrast  Theme = "contrast"
	ThemeDotGrid   Theme = "dotgrid"
	ThemeVinyl     Theme = "vinyl"
	ThemeWaveform  Theme = "waveform"
	ThemeHatch     Theme = "hatch"
	ThemeTicket    Theme = "ticket"
	ThemeBrackets  Theme = "brackets"
	ThemeFade      Theme = "fade"
	ThemeEqualizer Theme = "equalizer"
	ThemeCassette  Theme = "cassette"
)

// ThemeInfo 用于 themes 命令列出可选风格。
type ThemeInfo struct {
	Theme       Theme
	Description string
}

var themes = []ThemeInfo{
	{ThemeClassic, "细外框 + 浅色圆角内框"},
	{ThemeMinimal, "仅有浅色外框"},
	{ThemeContrast, "粗黑外框与内框"},
	{ThemeDotGrid, "点阵底纹"},
	{ThemeVinyl, "黑胶唱片同心圆"},
	{ThemeWaveform, "横向波形曲线"},
	{ThemeHatch, "45° 斜线底纹"},
	{ThemeTicket, "左右两侧票根打孔虚线"},
	{ThemeBrackets, "四角括号"},
	{ThemeFade, "上下渐隐色带"},
	{ThemeEqualizer, "底部均衡器柱"},
	{ThemeCassette, "磁带双卷轴"},
}

// Themes 返回全部风格（顺序固定）。
func Themes() []ThemeInfo {
	out := make([]ThemeInfo, len(themes))
	copy(out, themes)
	return out
}

// ParseTheme 解析风格名称，兼容 bw- 前缀与 halftone 旧名；空串为 classic。
func ParseTheme(s string) (Theme, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.TrimPrefix(name, "bw-")
	switch name {
	case "":
		return ThemeClassic, nil
	case "halftone":
		return ThemeVinyl, nil
	case "light":
		return ThemeMinimal, nil
	}
	for _, info := range themes {
		if string(info.Theme) == name {
			return info.Theme, nil
		}
	}
	return "", fmt.Errorf("未知的风格：%q", s)
}

// IntensityScale 把 0-100 的装饰强度线性映射为 0.5-1.5 的系数。
func IntensityScale(intensity float64) float64 {
	return 0.5 + clamp(intensity, 0, 100)/100
}

func scaledOpacity(base, intensity float64) float64 {
	return clamp(base*IntensityScale(intensity), 0.01, 1)
}

func scaledStroke(base, intensity float64) float64 {
	return base * IntensityScale(intensity)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// frameStyle 描述外框与背面内框的线宽与不透明度。
type frameStyle struct {
	OuterWidth   float64
	OuterOpacity float64
	InnerWidth   float64 // 0 表示不画内框
	InnerOpacity float64
}

func (t Theme) frame() frameStyle {
	switch t {
	case ThemeMinimal:
		return frameStyle{OuterWidth: 0.3, OuterOpacity: 0.6}
	case ThemeContrast:
		return frameStyle{OuterWidth: 0.7, OuterOpacity: 1, InnerWidth: 0.4, InnerOpacity: 1}
	default:
		return frameStyle{OuterWidth: 0.45, OuterOpacity: 0.98, InnerWidth: 0.25, InnerOpacity: 0.35}
	}
}

// decoration 是风格生成的背景图元。
type decoration struct {
	Rects   []Rect
	Circles []Circle
	Lines   []Line
	Paths   []Path
}

// decorate 生成背面背景图案，只依赖卡片尺寸、强度与墨色。
func (t Theme) decorate(w, h, intensity float64, ink Color) decoration {
	side := math.Min(w, h)
	var d decoration
	switch t {
	case ThemeDotGrid:
		spacing := side / 11.5
		r := scaledStroke(0.16, intensity)
		op := scaledOpacity(0.12, intensity)
		for y := spacing / 2; y < h-0.5; y += spacing {
			for x := spacing / 2; x < w-0.5; x += spacing {
				c := ink
				d.Circles = append(d.Circles, Circle{CX: x, CY: y, R: r, FillColor: &c, Opacity: op})
			}
		}
	case ThemeVinyl:
		cx, cy := w/2, h/2
		sw := scaledStroke(0.15, intensity)
		op := scaledOpacity(0.10, intensity)
		for _, f := range []float64{0.10, 0.175, 0.25, 0.325, 0.40} {
			d.Circles = append(d.Circles, Circle{CX: cx, CY: cy, R: side * f, StrokeColor: ink, StrokeWidth: sw, Opacity: op})
		}
		hub := ink
		d.Circles = append(d.Circles, Circle{CX: cx, CY: cy, R: side * 0.03, FillColor: &hub, Opacity: scaledOpacity(0.12, intensity)})
	case ThemeWaveform:
		bandW := w * 0.92
		x0 := (w - bandW) / 2
		amp := h * 0.4 / 3
		for _, base := range []struct{ dy, width, opacity float64 }{{0, 0.3, 0.18}, {h * 0.033, 0.2, 0.10}} {
			d.Paths = append(d.Paths, Path{
				Segments:    waveSegments(x0, h/2+base.dy, bandW, amp, 4),
				StrokeColor: ink,
				StrokeWidth: scaledStroke(base.width, intensity),
				Opacity:     scaledOpacity(base.opacity, intensity),
			})
		}
	case ThemeHatch:
		inset := 1.4
		d.Lines = hatchLines(inset, inset, w-inset, h-inset, side/14, ink, scaledStroke(0.12, intensity), scaledOpacity(0.08, intensity))
	case ThemeTicket:
		sw := scaledStroke(0.4, intensity)
		op := scaledOpacity(0.38, intensity)
		for _, x := range []float64{1.6, w - 1.6} {
			d.Lines = append(d.Lines, Line{X1: x, Y1: 2, X2: x, Y2: h - 2, Color: ink, Width: sw, Opacity: op, Dash: []float64{0.6, 0.6}})
		}
	case ThemeBrackets:
		inset := 2.4
		arm := side * 0.12
		sw := scaledStroke(0.35, intensity)
		op := scaledOpacity(0.5, intensity)
		corners := [][4]float64{
			{inset, inset, 1, 1},
			{w - inset, inset, -1, 1},
			{inset, h - inset, 1, -1},
			{w - inset, h - inset, -1, -1},
		}
		for _, c := range corners {
			d.Paths = append(d.Paths, Path{
				Segments: []PathSegment{
					{Op: "M", Points: []float64{c[0] + c[2]*arm, c[1]}},
					{Op: "L", Points: []float64{c[0], c[1]}},
					{Op: "L", Points: []float64{c[0], c[1] + c[3]*arm}},
				},
				StrokeColor: ink,
				StrokeWidth: sw,
				Opacity:     op,
			})
		}
	case ThemeFade:
		const strips = 8
		band := h * 0.15
		stripH := band / strips
		for i := 0; i < strips; i++ {
			op := scaledOpacity(0.10*float64(strips-i)/strips, intensity)
			top, bottom := ink, ink
			d.Rects = append(d.Rects,
				Rect{X: 0, Y: float64(i) * stripH, Width: w, Height: stripH, FillColor: &top, Opacity: op},
				Rect{X: 0, Y: h - float64(i+1)*stripH, Width: w, Height: stripH, FillColor: &bottom, Opacity: op},
			)
		}
	case ThemeEqualizer:
		levels := []float64{0.3, 0.6, 0.45, 0.8, 0.55, 0.9, 0.4, 0.7, 0.35}
		span := w * 0.6
		barW := span / (float64(len(levels)) * 1.5)
		x := (w - span) / 2
		floor := h - 2.4
		op := scaledOpacity(0.14, intensity)
		for _, lv := range levels {
			barH := lv * h * 0.12
			c := ink
			d.Rects = append(d.Rects, Rect{X: x, Y: floor - barH, Width: barW, Height: barH, FillColor: &c, Opacity: op})
			x += barW * 1.5
		}
	case ThemeCassette:
		sw := scaledStroke(0.25, intensity)
		op := scaledOpacity(0.16, intensity)
		winH := side * 0.32
		d.Rects = append(d.Rects, Rect{X: w * 0.18, Y: h/2 - winH/2, Width: w * 0.64, Height: winH, Radius: winH / 2, StrokeColor: ink, StrokeWidth: sw, Opacity: op})
		for _, cx := range []float64{w * 0.3, w * 0.7} {
			d.Circles = append(d.Circles,
				Circle{CX: cx, CY: h / 2, R: side * 0.12, StrokeColor: ink, StrokeWidth: sw, Opacity: op},
				Circle{CX: cx, CY: h / 2, R: side * 0.05, StrokeColor: ink, StrokeWidth: sw, Opacity: op},
			)
		}
	}
	return d
}

// waveSegments 生成 periods 个周期的波形曲线（每个周期一段三次贝塞尔）。
func waveSegments(x0, midY, width, amp float64, periods int) []PathSegment {
	segs := []PathSegment{{Op: "M", Points: []float64{x0, midY}}}
	step := width / float64(periods)
	for i := 0; i < periods; i++ {
		sx := x0 + float64(i)*step
		segs = append(segs, PathSegment{Op: "C", Points: []float64{
			sx + step*0.3, midY - amp,
			sx + step*0.7, midY + amp,
			sx + step, midY,
		}})
	}
	return segs
}

// hatchLines 生成裁剪到矩形内的 45° 斜线。
func hatchLines(x0, y0, x1, y1, spacing float64, ink Color, width, opacity float64) []Line {
	var out []Line
	// 直线 y = x + c
	for c := y0 - x1 + spacing; c < y1-x0; c += spacing {
		sx := math.Max(x0, y0-c)
		ex := math.Min(x1, y1-c)
		if ex-sx <= 1e-9 {
			continue
		}
		out = append(out, Line{X1: sx, Y1: sx + c, X2: ex, Y2: ex + c, Color: ink, Width: width, Opacity: opacity})
	}
	return out
}
