package layout

import (
	"errors"
	"fmt"
	"math"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"github.com/SlawomirKedra/qr-song-card/binding"
	"github.com/SlawomirKedra/qr-song-card/qrcode"
	"github.com/SlawomirKedra/qr-song-card/track"
)

// 背面版式比例，均相对于卡片宽高。
const (
	contentPad    = 0.10
	artistBandTop = 0.10
	artistBandEnd = 0.38
	titleBandTop  = 0.62
	titleBandEnd  = 0.90
	blockGap      = 0.03

	// 基线位于行内字号的 80% 处
	baselineRatio      = 0.8
	placeholderOpacity = 0.5

	// 正面二维码外框占卡片边长的比例
	codeFraction  = 0.98
	codeFrameLine = 0.5
	outerInset    = 0.4
	innerInset    = 1.4
)

// 基础字号下限（mm），卡片较小时不再继续缩小。
const (
	minArtistSize = 3.175
	minTitleSize  = 2.910
	minYearSize   = 7.937
)

var (
	artistLineHeight = Factor(1.10)
	titleLineHeight  = Factor(1.15)
	yearLineHeight   = Factor(1.0)
)

// RenderFace 生成一首歌某一面的矢量几何，是 (歌曲字段, 面, 配置) 的纯函数。
func RenderFace(t track.Track, kind FaceKind, cfg Config, opts BuildOptions) (*CardFace, error) {
	g := cfg.Geometry()
	face := &CardFace{
		TrackID: t.ID,
		Kind:    kind,
		Width:   g.CardWidth,
		Height:  g.CardHeight,
		Theme:   string(cfg.Theme),
	}
	if t.IsEmpty() {
		opts.logger().WithFields(log.Fields{"track": t.ID, "face": kind}).Debug("歌曲信息为空，全部使用占位内容")
	}
	frame := cfg.Theme.frame()
	paper := White
	face.Rects = append(face.Rects, Rect{
		X:           outerInset,
		Y:           outerInset,
		Width:       face.Width - 2*outerInset,
		Height:      face.Height - 2*outerInset,
		StrokeColor: cfg.Ink,
		StrokeWidth: frame.OuterWidth,
		FillColor:   &paper,
		Opacity:     frame.OuterOpacity,
	})

	var err error
	switch kind {
	case FaceFront:
		err = renderFront(face, t, cfg, opts)
	case FaceBack:
		err = renderBack(face, t, cfg, opts)
	default:
		err = fmt.Errorf("未知的卡片面：%q", kind)
	}
	if err != nil {
		return nil, err
	}
	return face, nil
}

// FrontPayload 返回二维码内容与回退内容：优先使用 URL，否则按占位模板插值（例如 " - "）。
func FrontPayload(t track.Track, ph Placeholders) (payload, fallback string) {
	fallback = binding.Interpolate(ph.Payload, t.Fields())
	if fallback == "" {
		fallback = " - "
	}
	return t.URL, fallback
}

func renderFront(face *CardFace, t track.Track, cfg Config, opts BuildOptions) error {
	side := math.Min(face.Width, face.Height) * codeFraction
	x := (face.Width - side) / 2
	y := (face.Height - side) / 2
	paper := White
	face.Rects = append(face.Rects, Rect{
		X:           x,
		Y:           y,
		Width:       side,
		Height:      side,
		Radius:      1,
		StrokeColor: cfg.Ink,
		StrokeWidth: codeFrameLine,
		FillColor:   &paper,
	})

	payload, fallback := FrontPayload(t, cfg.Placeholders)
	m, err := encodeWithFallback(opts.encoder(), payload, fallback, cfg.ErrorCorrection, opts.logger().WithField("track", t.ID))
	if err != nil {
		return err
	}

	available := side - 2*codeFrameLine
	face.Codes = append(face.Codes, CodeBox{
		X:          x + codeFrameLine,
		Y:          y + codeFrameLine,
		Side:       available,
		ModuleSize: available / float64(m.Size()+2*cfg.QuietZone),
		QuietZone:  cfg.QuietZone,
		Modules:    m.Size(),
		Color:      cfg.Ink,
		Runs:       moduleRuns(m),
	})
	face.Payload = m.Payload
	face.ErrorCorrection = m.Level.String()
	return nil
}

// encodeWithFallback 在容量不足时逐级降低纠错级别重试，直到 L。
func encodeWithFallback(enc *qrcode.Encoder, payload, fallback string, level qrcode.Level, logger *log.Entry) (*qrcode.Matrix, error) {
	for {
		m, err := enc.Encode(payload, fallback, level)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, qrcode.ErrCapacityExceeded) {
			return nil, err
		}
		lower, ok := level.Lower()
		if !ok {
			return nil, err
		}
		logger.WithFields(log.Fields{"from": level.String(), "to": lower.String()}).Warn("二维码容量不足，降低纠错级别重试")
		level = lower
	}
}

type moduleMatrix interface {
	Size() int
	IsDark(row, col int) bool
}

// moduleRuns 把每行连续的深色模块合并为一段。
func moduleRuns(m moduleMatrix) []ModuleRun {
	var runs []ModuleRun
	n := m.Size()
	for row := 0; row < n; row++ {
		start := -1
		for col := 0; col <= n; col++ {
			dark := col < n && m.IsDark(row, col)
			switch {
			case dark && start < 0:
				start = col
			case !dark && start >= 0:
				runs = append(runs, ModuleRun{Row: row, Col: start, Len: col - start})
				start = -1
			}
		}
	}
	return runs
}

func renderBack(face *CardFace, t track.Track, cfg Config, opts BuildOptions) error {
	ts := opts.Typesetter
	if ts == nil {
		return fmt.Errorf("layout: 缺少排版后端 Typesetter")
	}
	w, h := face.Width, face.Height
	side := math.Min(w, h)

	deco := cfg.Theme.decorate(w, h, cfg.Intensity, cfg.Ink)
	face.Rects = append(face.Rects, deco.Rects...)
	face.Circles = append(face.Circles, deco.Circles...)
	face.Lines = append(face.Lines, deco.Lines...)
	face.Paths = append(face.Paths, deco.Paths...)
	if frame := cfg.Theme.frame(); frame.InnerWidth > 0 {
		face.Rects = append(face.Rects, Rect{
			X:           innerInset,
			Y:           innerInset,
			Width:       w - 2*innerInset,
			Height:      h - 2*innerInset,
			Radius:      2,
			StrokeColor: cfg.Ink,
			StrokeWidth: frame.InnerWidth,
			Opacity:     frame.InnerOpacity,
		})
	}

	maxWidth := w * (1 - 2*contentPad)
	left := (w - maxWidth) / 2
	bandHeight := h * (artistBandEnd - artistBandTop)

	artist, err := fitRole(ts, FontArtist, t.Artist, cfg.Placeholders.Artist, FitRequest{
		Font:       cfg.Fonts.Artist,
		BaseSize:   math.Max(minArtistSize, 0.10*side),
		MaxWidth:   maxWidth,
		MaxHeight:  bandHeight,
		MaxLines:   2,
		LineHeight: artistLineHeight,
	})
	if err != nil {
		return err
	}
	title, err := fitRole(ts, FontTitle, t.Title, cfg.Placeholders.Title, FitRequest{
		Font:       cfg.Fonts.Title,
		BaseSize:   math.Max(minTitleSize, 0.09*side),
		MaxWidth:   maxWidth,
		MaxHeight:  bandHeight,
		MaxLines:   2,
		LineHeight: titleLineHeight,
	})
	if err != nil {
		return err
	}

	artistTop := h*artistBandTop + (bandHeight-artist.fit.BlockHeight())/2
	titleTop := h*titleBandTop + (bandHeight-title.fit.BlockHeight())/2

	// 年份在歌手与歌名排好之后再定字号：取两者之间剩余空间内能放下的最大字号
	gap := h * blockGap
	yearFrom := artistTop + artist.fit.BlockHeight() + gap
	yearTo := titleTop - gap
	region := math.Max(yearTo-yearFrom, FitFloor)
	year, err := fitRole(ts, FontYear, t.Year, cfg.Placeholders.Year, FitRequest{
		Font:       cfg.Fonts.Year,
		BaseSize:   math.Min(math.Max(minYearSize, 0.30*side), 0.55*side),
		MaxWidth:   maxWidth,
		MaxHeight:  region,
		MaxLines:   1,
		LineHeight: yearLineHeight,
	})
	if err != nil {
		return err
	}
	yearTop := yearFrom + (yearTo-yearFrom-year.fit.BlockHeight())/2

	face.Texts = append(face.Texts,
		artist.box(left, artistTop, maxWidth, cfg.Ink),
		year.box(left, yearTop, maxWidth, cfg.Ink),
		title.box(left, titleTop, maxWidth, cfg.Ink),
	)
	return nil
}

type fittedRole struct {
	role        string
	content     string
	placeholder bool
	fit         FitResult
}

// fitRole 适配一个文本角色；字段为空时改用占位文本，只影响自身字号。
func fitRole(ts Typesetter, role, value, placeholder string, req FitRequest) (fittedRole, error) {
	fr := fittedRole{role: role, content: value}
	if utf8.RuneCountInString(value) == 0 {
		fr.content = placeholder
		fr.placeholder = true
	}
	req.Text = fr.content
	res, err := Fit(ts, req)
	if err != nil {
		return fr, fmt.Errorf("排版 %s 失败: %w", role, err)
	}
	fr.fit = res
	return fr, nil
}

func (fr fittedRole) box(x, top, width float64, ink Color) TextBox {
	tb := TextBox{
		Role:       fr.role,
		Content:    fr.content,
		X:          x,
		Y:          top,
		Width:      width,
		Height:     fr.fit.BlockHeight(),
		LineHeight: fr.fit.LineHeight,
		Font:       fr.role,
		FontSize:   fr.fit.FontSize,
		Color:      ink,
		Align:      "center",
		Overflow:   fr.fit.Overflow,
	}
	if fr.placeholder {
		tb.Placeholder = true
		tb.Opacity = placeholderOpacity
	}
	lh := fr.fit.LineHeight
	size := fr.fit.FontSize
	for i, line := range fr.fit.Lines {
		lineTop := top + float64(i)*lh
		line.Baseline = lineTop + (lh-size)/2 + baselineRatio*size
		tb.Lines = append(tb.Lines, line)
	}
	return tb
}
