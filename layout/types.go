package layout

import (
	"fmt"
	"strings"
)

// 该文件定义卡片面、页面与文档的几何描述，供布局计算、渲染与调试 JSON 共用。
// 所有坐标与尺寸均以毫米为单位，原点位于左上角，y 轴向下。

// FaceKind 区分卡片的正面（二维码）与背面（歌曲信息）。
type FaceKind string

const (
	FaceFront FaceKind = "front"
	FaceBack  FaceKind = "back"
)

// ParseFaceKind 接受 front/back 以及别名 code/qr/metadata/info。
func ParseFaceKind(s string) (FaceKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "front", "code", "qr":
		return FaceFront, nil
	case "back", "metadata", "info":
		return FaceBack, nil
	}
	return "", fmt.Errorf("未知的卡片面：%q（可选 front/back）", s)
}

// FontResource 描述字体资源，src 可以是文件路径或内置 embed:* 形式。
type FontResource struct {
	Name     string `json:"name" yaml:"name"`
	Src      string `json:"src" yaml:"src"`
	Style    string `json:"style,omitempty" yaml:"style,omitempty"`
	Family   string `json:"family,omitempty" yaml:"family,omitempty"` // 渲染器使用的 Family 名称
	Fallback string `json:"fallback,omitempty" yaml:"fallback,omitempty"`
}

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

var (
	Black = Color{}
	White = Color{R: 255, G: 255, B: 255}
)

// CardFace 是一张卡片某一面的完整矢量描述，坐标相对于卡片左上角。
// 渲染器按 Rects、Circles、Lines、Paths、Codes、Texts 的顺序绘制。
type CardFace struct {
	TrackID string   `json:"trackId"`
	Index   int      `json:"index"`
	Kind    FaceKind `json:"kind"`
	Width   float64  `json:"width"`
	Height  float64  `json:"height"`
	Theme   string   `json:"theme"`

	Rects   []Rect    `json:"rects,omitempty"`
	Circles []Circle  `json:"circles,omitempty"`
	Lines   []Line    `json:"lines,omitempty"`
	Paths   []Path    `json:"paths,omitempty"`
	Codes   []CodeBox `json:"codes,omitempty"`
	Texts   []TextBox `json:"texts,omitempty"`

	// 正面实际编码的内容与纠错级别（可能因容量不足而降级）
	Payload         string `json:"payload,omitempty"`
	ErrorCorrection string `json:"errorCorrection,omitempty"`
}

// TextBox 表示一个已经排好坐标的文本块。X/Width 为水平范围，行按 Align 在其中对齐。
type TextBox struct {
	Role        string     `json:"role"`
	Content     string     `json:"content"`
	X           float64    `json:"x"`
	Y           float64    `json:"y"`
	Width       float64    `json:"width"`
	Height      float64    `json:"height"`
	LineHeight  float64    `json:"lineHeight"`
	Font        string     `json:"font"`
	FontSize    float64    `json:"fontSize"` // mm
	Color       Color      `json:"color"`
	Opacity     float64    `json:"opacity,omitempty"`
	Align       string     `json:"align,omitempty"` // left/center/right（默认 left）
	Lines       []TextLine `json:"lines"`
	Placeholder bool       `json:"placeholder,omitempty"`
	Overflow    bool       `json:"overflow,omitempty"`
}

// TextLine 表示排版后的一行文本；Baseline 为该行基线的 y 坐标。
type TextLine struct {
	Content  string  `json:"content"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Baseline float64 `json:"baseline"`
}

// 基本图形：直线、矩形、圆形、路径（单位均为 mm）。
// Opacity <= 0 视为不透明。

// Line 表示一条线段。
type Line struct {
	X1      float64   `json:"x1"`
	Y1      float64   `json:"y1"`
	X2      float64   `json:"x2"`
	Y2      float64   `json:"y2"`
	Color   Color     `json:"color"`
	Width   float64   `json:"width"` // 线宽（mm），<=0 时由渲染器给默认值
	Opacity float64   `json:"opacity,omitempty"`
	Dash    []float64 `json:"dash,omitempty"`
}

// Rect 表示一个矩形，Radius > 0 时为圆角矩形。
type Rect struct {
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	Width       float64   `json:"width"`
	Height      float64   `json:"height"`
	Radius      float64   `json:"radius,omitempty"`
	StrokeColor Color     `json:"strokeColor"`
	StrokeWidth float64   `json:"strokeWidth"`         // mm，0 表示不描边
	FillColor   *Color    `json:"fillColor,omitempty"` // 为空表示不填充
	Opacity     float64   `json:"opacity,omitempty"`
	Dash        []float64 `json:"dash,omitempty"`
}

// Circle 表示一个圆。
type Circle struct {
	CX          float64 `json:"cx"`
	CY          float64 `json:"cy"`
	R           float64 `json:"r"`
	StrokeColor Color   `json:"strokeColor"`
	StrokeWidth float64 `json:"strokeWidth"` // mm
	FillColor   *Color  `json:"fillColor,omitempty"`
	Opacity     float64 `json:"opacity,omitempty"`
}

// PathSegment 是路径中的一段：M/L 带一个点，C 带三个点（控制点 1、控制点 2、终点），Z 无点。
type PathSegment struct {
	Op     string    `json:"op"`
	Points []float64 `json:"points,omitempty"`
}

// Path 表示由直线与三次贝塞尔曲线组成的路径。
type Path struct {
	Segments    []PathSegment `json:"segments"`
	StrokeColor Color         `json:"strokeColor"`
	StrokeWidth float64       `json:"strokeWidth"`
	FillColor   *Color        `json:"fillColor,omitempty"`
	Opacity     float64       `json:"opacity,omitempty"`
}

// CodeBox 是已经缩放好的二维码：Side 为含静区的可用边长，
// 满足 ModuleSize*(Modules+2*QuietZone) == Side。
type CodeBox struct {
	X          float64     `json:"x"`
	Y          float64     `json:"y"`
	Side       float64     `json:"side"`
	ModuleSize float64     `json:"moduleSize"`
	QuietZone  int         `json:"quietZone"`
	Modules    int         `json:"modules"`
	Color      Color       `json:"color"`
	Runs       []ModuleRun `json:"runs"`
}

// ModuleRun 是同一行中连续的深色模块。
type ModuleRun struct {
	Row int `json:"row"`
	Col int `json:"col"`
	Len int `json:"len"`
}

// ModuleRect returns the rectangle covered by a run, in face coordinates.
func (c CodeBox) ModuleRect(r ModuleRun) (x, y, w, h float64) {
	x = c.X + float64(c.QuietZone+r.Col)*c.ModuleSize
	y = c.Y + float64(c.QuietZone+r.Row)*c.ModuleSize
	return x, y, float64(r.Len) * c.ModuleSize, c.ModuleSize
}

// Placement 是卡片面在页面上的位置（左上角，页面坐标）。
type Placement struct {
	Row    int       `json:"row"`
	Column int       `json:"column"`
	X      float64   `json:"x"`
	Y      float64   `json:"y"`
	Face   *CardFace `json:"face"`
}

// Page 记录页面尺寸、卡片摆放与裁切参考线。
type Page struct {
	Number     int         `json:"number"`
	Width      float64     `json:"width"`
	Height     float64     `json:"height"`
	Kind       FaceKind    `json:"kind"`
	Placements []Placement `json:"placements"`
	Guides     []Line      `json:"guides,omitempty"`
	Ticks      []Line      `json:"ticks,omitempty"`
}

// Document 是一次导出的完整输入：同一种卡片面的全部页面。
type Document struct {
	Kind     FaceKind                `json:"kind"`
	Columns  int                     `json:"columns"`
	Pages    []Page                  `json:"pages"`
	Fonts    map[string]FontResource `json:"fonts"`
	Meta     DocumentMeta            `json:"meta"`
	Filename string                  `json:"filename"`
}

// DocumentMeta 保存 PDF 元信息。
type DocumentMeta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Subject  string   `json:"subject"`
	Creator  string   `json:"creator"`
	Keywords []string `json:"keywords"`
}

// EffectiveOpacity 返回渲染时使用的不透明度。
func EffectiveOpacity(v float64) float64 {
	if v <= 0 || v > 1 {
		return 1
	}
	return v
}
