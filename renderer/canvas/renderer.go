package canvasrenderer

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"github.com/tdewolff/canvas/renderers/svg"

	"github.com/SlawomirKedra/qr-song-card/fonts"
	"github.com/SlawomirKedra/qr-song-card/layout"
	"github.com/SlawomirKedra/qr-song-card/renderer"
)

// ErrFontUnavailable 表示导出所需的字体无法加载。预览与测量仍会使用替代字体。
var ErrFontUnavailable = errors.New("canvasrenderer: 字体不可用")

const defaultStrokeWidth = 0.2

// Renderer draws documents and card faces via github.com/tdewolff/canvas.
type Renderer struct {
	baseDir string

	fontMu         sync.Mutex
	fontFamilies   map[string]*fontFamilyEntry
	fallbackFamily *canvas.FontFamily

	logger *log.Entry
}

var (
	_ renderer.Renderer  = (*Renderer)(nil)
	_ renderer.Previewer = (*Renderer)(nil)
	_ layout.Typesetter  = (*Renderer)(nil)
)

type fontFamilyEntry struct {
	family   *canvas.FontFamily
	style    canvas.FontStyle
	fallback bool
}

// Options configures the canvas renderer.
type Options struct {
	BaseDir string     // 相对字体路径的根目录
	Logger  *log.Entry // 为空时使用 module=renderer
}

// NewRenderer creates a canvas-based renderer rooted at baseDir for resolving font paths.
func NewRenderer(baseDir string) *Renderer { return NewRendererWithOptions(Options{BaseDir: baseDir}) }

// NewRendererWithOptions creates a renderer with an optional baseDir and logger.
func NewRendererWithOptions(opts Options) *Renderer {
	r := &Renderer{
		baseDir:      opts.BaseDir,
		fontFamilies: map[string]*fontFamilyEntry{},
		logger:       opts.Logger,
	}
	if r.logger == nil {
		r.logger = log.WithFields(log.Fields{"module": "renderer"})
	}
	return r
}

// Render 把文档渲染为 PDF。每个配置的字体都必须能加载，否则返回 ErrFontUnavailable。
// 只绘制已经排好的几何，不重新测量或折行。
func (r *Renderer) Render(doc *layout.Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("渲染文档为空")
	}
	if len(doc.Pages) == 0 {
		return nil, layout.ErrNoFaces
	}
	if err := r.CheckFonts(doc.Fonts); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer := pdf.New(&buf, doc.Pages[0].Width, doc.Pages[0].Height, nil)
	r.applyMeta(writer, doc.Meta)
	for i, page := range doc.Pages {
		if i > 0 {
			writer.NewPage(page.Width, page.Height)
		}
		c := canvas.New(page.Width, page.Height)
		ctx := canvas.NewContext(c)
		ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点

		if err := r.drawPage(ctx, page, doc.Fonts); err != nil {
			return nil, err
		}
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	r.logger.WithFields(log.Fields{"face": doc.Kind, "pages": len(doc.Pages), "bytes": buf.Len()}).Debug("PDF 渲染完成")
	return buf.Bytes(), nil
}

// RenderFace 把单张卡片面渲染为 SVG，用于屏幕预览；字体加载失败时使用替代字体。
func (r *Renderer) RenderFace(face *layout.CardFace, fontTable map[string]layout.FontResource) ([]byte, error) {
	if face == nil {
		return nil, fmt.Errorf("卡片面为空")
	}
	c := canvas.New(face.Width, face.Height)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV)
	if err := r.drawFace(ctx, face, 0, 0, fontTable); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	writer := svg.New(&buf, face.Width, face.Height, nil)
	c.RenderTo(writer)
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 SVG 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// CheckFonts 严格加载每个字体（不使用替代字体）。
func (r *Renderer) CheckFonts(fontTable map[string]layout.FontResource) error {
	for role, font := range fontTable {
		data, err := r.loadFontBytes(font)
		if err == nil {
			err = canvas.NewFontFamily("check").LoadFont(data, 0, parseFontStyle(font.Style))
		}
		if err != nil {
			return fmt.Errorf("%w: %s (%s): %v", ErrFontUnavailable, role, font.Src, err)
		}
	}
	return nil
}

func (r *Renderer) applyMeta(writer *pdf.PDF, meta layout.DocumentMeta) {
	if writer == nil {
		return
	}
	keywords := strings.Join(meta.Keywords, ", ")
	writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, meta.Creator)
}

// MeasureText 实现 layout.Typesetter。约定：fontSize 入参与返回宽度均为毫米（mm），
// 与字体系统交互使用 pt，并在边界做 mm↔pt 换算。
func (r *Renderer) MeasureText(content string, font layout.FontResource, fontSize float64) (float64, error) {
	face, err := r.fontFace(font, toPt(fontSize), layout.Black, 1)
	if err != nil {
		return 0, err
	}
	r.fontMu.Lock()
	defer r.fontMu.Unlock()
	return face.TextWidth(content), nil
}

func (r *Renderer) drawPage(ctx *canvas.Context, page layout.Page, fontTable map[string]layout.FontResource) error {
	// 裁切线在卡片之下，刻度在最上层
	r.drawLines(ctx, page.Guides, 0, 0)
	for _, pl := range page.Placements {
		if pl.Face == nil {
			continue
		}
		if err := r.drawFace(ctx, pl.Face, pl.X, pl.Y, fontTable); err != nil {
			return fmt.Errorf("绘制第 %d 页卡片 %s 失败: %w", page.Number, pl.Face.TrackID, err)
		}
	}
	r.drawLines(ctx, page.Ticks, 0, 0)
	return nil
}

// drawFace 在 (ox, oy) 处绘制一张卡片面，顺序为矩形、圆、线、路径、二维码、文本。
func (r *Renderer) drawFace(ctx *canvas.Context, face *layout.CardFace, ox, oy float64, fontTable map[string]layout.FontResource) error {
	r.drawRects(ctx, face.Rects, ox, oy)
	r.drawCircles(ctx, face.Circles, ox, oy)
	r.drawLines(ctx, face.Lines, ox, oy)
	r.drawPaths(ctx, face.Paths, ox, oy)
	for _, code := range face.Codes {
		r.drawCode(ctx, code, ox, oy)
	}
	for _, tb := range face.Texts {
		if err := r.drawTextBox(ctx, tb, resolveFontResource(tb.Font, fontTable), ox, oy); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) drawTextBox(ctx *canvas.Context, tb layout.TextBox, fontRes layout.FontResource, ox, oy float64) error {
	// TextBox 的坐标/字号均为 mm；创建字体面需要 pt，这里做一次 mm→pt。
	face, err := r.fontFace(fontRes, toPt(tb.FontSize), tb.Color, layout.EffectiveOpacity(tb.Opacity))
	if err != nil {
		return err
	}

	// 处理水平对齐：left（默认）/center/right。
	var textAlign canvas.TextAlign
	var anchorX float64
	switch strings.ToLower(tb.Align) {
	case "center":
		textAlign = canvas.Center
		anchorX = tb.X + tb.Width/2
	case "right", "end":
		textAlign = canvas.Right
		anchorX = tb.X + tb.Width
	default:
		textAlign = canvas.Left
		anchorX = tb.X
	}

	for _, line := range tb.Lines {
		textLine := canvas.NewTextLine(face, line.Content, textAlign)
		ctx.DrawText(ox+anchorX, oy+line.Baseline, textLine)
	}
	return nil
}

func (r *Renderer) drawCode(ctx *canvas.Context, code layout.CodeBox, ox, oy float64) {
	p := &canvas.Path{}
	for _, run := range code.Runs {
		x, y, w, h := code.ModuleRect(run)
		p.MoveTo(x, y)
		p.LineTo(x+w, y)
		p.LineTo(x+w, y+h)
		p.LineTo(x, y+h)
		p.Close()
	}
	ctx.SetFillColor(colorFromLayout(code.Color, 1))
	ctx.SetStrokeColor(canvas.Transparent)
	ctx.SetStrokeWidth(0)
	ctx.DrawPath(ox, oy, p)
}

// drawLines 绘制直线列表（毫米单位）
func (r *Renderer) drawLines(ctx *canvas.Context, lines []layout.Line, ox, oy float64) {
	for _, ln := range lines {
		w := ln.Width
		if w <= 0 {
			w = defaultStrokeWidth
		}
		ctx.SetFillColor(canvas.Transparent)
		ctx.SetStrokeColor(colorFromLayout(ln.Color, layout.EffectiveOpacity(ln.Opacity)))
		ctx.SetStrokeWidth(w)
		ctx.SetDashes(0, ln.Dash...)
		p := &canvas.Path{}
		p.MoveTo(0, 0)
		p.LineTo(ln.X2-ln.X1, ln.Y2-ln.Y1)
		ctx.DrawPath(ox+ln.X1, oy+ln.Y1, p)
	}
	ctx.SetDashes(0)
}

// drawRects 绘制矩形（可带圆角）
func (r *Renderer) drawRects(ctx *canvas.Context, rects []layout.Rect, ox, oy float64) {
	for _, rc := range rects {
		alpha := layout.EffectiveOpacity(rc.Opacity)
		r.applyFillStroke(ctx, rc.FillColor, rc.StrokeColor, rc.StrokeWidth, alpha)
		ctx.SetDashes(0, rc.Dash...)
		var p *canvas.Path
		if rc.Radius > 0 {
			p = canvas.RoundedRectangle(rc.Width, rc.Height, rc.Radius)
		} else {
			p = canvas.Rectangle(rc.Width, rc.Height)
		}
		ctx.DrawPath(ox+rc.X, oy+rc.Y, p)
	}
	ctx.SetDashes(0)
}

// drawCircles 绘制圆形，canvas.Circle 以原点为圆心
func (r *Renderer) drawCircles(ctx *canvas.Context, circles []layout.Circle, ox, oy float64) {
	for _, c := range circles {
		r.applyFillStroke(ctx, c.FillColor, c.StrokeColor, c.StrokeWidth, layout.EffectiveOpacity(c.Opacity))
		ctx.DrawPath(ox+c.CX, oy+c.CY, canvas.Circle(c.R))
	}
}

// drawPaths 绘制由 M/L/C/Z 段组成的路径
func (r *Renderer) drawPaths(ctx *canvas.Context, paths []layout.Path, ox, oy float64) {
	for _, path := range paths {
		r.applyFillStroke(ctx, path.FillColor, path.StrokeColor, path.StrokeWidth, layout.EffectiveOpacity(path.Opacity))
		p := &canvas.Path{}
		for _, seg := range path.Segments {
			pts := seg.Points
			switch seg.Op {
			case "M":
				if len(pts) >= 2 {
					p.MoveTo(pts[0], pts[1])
				}
			case "L":
				if len(pts) >= 2 {
					p.LineTo(pts[0], pts[1])
				}
			case "C":
				if len(pts) >= 6 {
					p.CubeTo(pts[0], pts[1], pts[2], pts[3], pts[4], pts[5])
				}
			case "Z":
				p.Close()
			}
		}
		ctx.DrawPath(ox, oy, p)
	}
}

func (r *Renderer) applyFillStroke(ctx *canvas.Context, fill *layout.Color, stroke layout.Color, strokeWidth, alpha float64) {
	if fill != nil {
		ctx.SetFillColor(colorFromLayout(*fill, alpha))
	} else {
		ctx.SetFillColor(canvas.Transparent)
	}
	if strokeWidth > 0 {
		ctx.SetStrokeColor(colorFromLayout(stroke, alpha))
		ctx.SetStrokeWidth(strokeWidth)
	} else {
		ctx.SetStrokeColor(canvas.Transparent)
		ctx.SetStrokeWidth(0)
	}
}

func (r *Renderer) fontFace(font layout.FontResource, size float64, col layout.Color, alpha float64) (*canvas.FontFace, error) {
	family, style, err := r.ensureFontFamily(font)
	if err != nil {
		return nil, err
	}
	return family.Face(size, colorFromLayout(col, alpha), style, canvas.FontNormal), nil
}

func (r *Renderer) ensureFontFamily(font layout.FontResource) (*canvas.FontFamily, canvas.FontStyle, error) {
	key := fontCacheKey(font)
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if entry, ok := r.fontFamilies[key]; ok {
		return entry.family, entry.style, nil
	}

	style := parseFontStyle(font.Style)
	familyName := font.Family
	if familyName == "" {
		familyName = font.Name
	}
	if familyName == "" {
		familyName = "Body"
	}
	family := canvas.NewFontFamily(familyName)

	if err := r.loadFontIntoFamily(family, font, style); err != nil {
		fallback, fbStyle, fbErr := r.fallback(font)
		if fbErr != nil {
			return nil, canvas.FontRegular, fmt.Errorf("%w: %s: %v", ErrFontUnavailable, font.Src, err)
		}
		r.logger.WithFields(log.Fields{"font": font.Name, "src": font.Src}).WithError(err).Warn("字体加载失败，使用替代字体")
		r.fontFamilies[key] = &fontFamilyEntry{family: fallback, style: fbStyle, fallback: true}
		return fallback, fbStyle, nil
	}

	entry := &fontFamilyEntry{family: family, style: style}
	r.fontFamilies[key] = entry
	return family, style, nil
}

// UsesFallback reports whether the given font is currently served by the fallback family.
func (r *Renderer) UsesFallback(font layout.FontResource) bool {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()
	entry, ok := r.fontFamilies[fontCacheKey(font)]
	return ok && entry.fallback
}

func (r *Renderer) loadFontIntoFamily(family *canvas.FontFamily, font layout.FontResource, style canvas.FontStyle) error {
	data, err := r.loadFontBytes(font)
	if err != nil {
		return err
	}
	return family.LoadFont(data, 0, style)
}

func (r *Renderer) loadFontBytes(font layout.FontResource) ([]byte, error) {
	if font.Src == "" {
		return nil, fmt.Errorf("字体 %s 缺少 src", font.Name)
	}
	src := font.Src
	if strings.HasPrefix(src, "embed:") {
		return fonts.Load(src)
	}
	path := src
	if r.baseDir == "" && !filepath.IsAbs(path) {
		return nil, fmt.Errorf("未指定资源目录时不允许直接使用相对字体路径：%s（请改用绝对路径或 embed:）", src)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.baseDir, path)
	}
	return os.ReadFile(path)
}

// fallback 返回替代字体：优先使用字体自身声明的 fallback，否则使用内置 Go 字体。
// 调用方需持有 fontMu。
func (r *Renderer) fallback(font layout.FontResource) (*canvas.FontFamily, canvas.FontStyle, error) {
	if font.Fallback != "" {
		if data, err := fonts.Load(font.Fallback); err == nil {
			family := canvas.NewFontFamily(font.Name + "-fallback")
			if err := family.LoadFont(data, 0, canvas.FontRegular); err == nil {
				return family, canvas.FontRegular, nil
			}
		}
	}
	if r.fallbackFamily != nil {
		return r.fallbackFamily, canvas.FontRegular, nil
	}
	data, err := fonts.Load(fonts.Fallback)
	if err != nil {
		return nil, canvas.FontRegular, err
	}
	family := canvas.NewFontFamily("songcards-fallback")
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, canvas.FontRegular, err
	}
	r.fallbackFamily = family
	return family, canvas.FontRegular, nil
}

func resolveFontResource(name string, fontTable map[string]layout.FontResource) layout.FontResource {
	if font, ok := fontTable[name]; ok {
		return font
	}
	if font, ok := fontTable[layout.FontTitle]; ok {
		return font
	}
	return layout.FontResource{Name: name, Src: "embed:" + fonts.Fallback}
}

func parseFontStyle(style string) canvas.FontStyle {
	s := strings.ToLower(style)
	var result canvas.FontStyle
	switch {
	case strings.Contains(s, "black"):
		result = canvas.FontBlack
	case strings.Contains(s, "extrabold"):
		result = canvas.FontExtraBold
	case strings.Contains(s, "semibold"), strings.Contains(s, "demibold"):
		result = canvas.FontSemiBold
	case strings.Contains(s, "bold"):
		result = canvas.FontBold
	case strings.Contains(s, "medium"):
		result = canvas.FontMedium
	case strings.Contains(s, "light"):
		result = canvas.FontLight
	default:
		result = canvas.FontRegular
	}
	if strings.Contains(s, "italic") || strings.Contains(s, "oblique") {
		result |= canvas.FontItalic
	}
	return result
}

func fontCacheKey(font layout.FontResource) string {
	return fmt.Sprintf("%s|%s|%s", font.Name, font.Src, font.Style)
}

func colorFromLayout(c layout.Color, alpha float64) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, alpha)
}

// toPt 将毫米(mm)转换为点(pt)。
func toPt(mm float64) float64 { return layout.Length{Value: mm, Unit: layout.UnitMM}.ToPT() }
