package layout

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/SlawomirKedra/qr-song-card/binding"
	"github.com/SlawomirKedra/qr-song-card/qrcode"
	"github.com/SlawomirKedra/qr-song-card/track"
)

// Config 是布局配置。派生尺寸（卡片宽高、行数）始终由 Geometry 重新计算，不单独保存。
type Config struct {
	PageWidth  float64 // mm
	PageHeight float64 // mm
	Margin     float64 // mm，外边距与卡片间距相同
	Columns    int
	// Aspect 为卡片高宽比，1 表示正方形卡片
	Aspect    float64
	Theme     Theme
	Intensity float64 // 0-100
	Guides    bool
	// MirrorBacks 在背面页中左右镜像列顺序，便于双面打印对齐
	MirrorBacks     bool
	ErrorCorrection qrcode.Level
	QuietZone       int
	Ink             Color
	Fonts           FontSet
	Placeholders    Placeholders
}

// FontSet 为卡片上的各个文本角色指定字体。
type FontSet struct {
	Artist FontResource
	Year   FontResource
	Title  FontResource
}

// Placeholders 是字段为空时显示的占位文本；Payload 为二维码的回退模板。
type Placeholders struct {
	Artist  string
	Year    string
	Title   string
	Payload string
}

// 字体角色名称，同时作为 Document.Fonts 的键。
const (
	FontArtist = "artist"
	FontYear   = "year"
	FontTitle  = "title"
)

// DefaultFonts 使用内置的 Go 字体。
func DefaultFonts() FontSet {
	return FontSet{
		Artist: FontResource{Name: FontArtist, Src: "embed:Go-Bold.ttf", Family: "Go", Style: "bold"},
		Year:   FontResource{Name: FontYear, Src: "embed:Go-Bold.ttf", Family: "Go", Style: "bold"},
		Title:  FontResource{Name: FontTitle, Src: "embed:Go-Medium-Italic.ttf", Family: "Go", Style: "medium italic"},
	}
}

// Map 返回以角色名为键的字体表。
func (f FontSet) Map() map[string]FontResource {
	return map[string]FontResource{
		FontArtist: f.Artist,
		FontYear:   f.Year,
		FontTitle:  f.Title,
	}
}

// DefaultPlaceholders 返回默认占位文本。
func DefaultPlaceholders() Placeholders {
	return Placeholders{
		Artist:  "Artist",
		Year:    "Year",
		Title:   "Song Title",
		Payload: "${title} - ${artist}",
	}
}

// DefaultConfig 是 A4 纵向、4mm 边距、每行 5 张正方形卡片。
func DefaultConfig() Config {
	return Config{
		PageWidth:       210,
		PageHeight:      297,
		Margin:          4,
		Columns:         5,
		Aspect:          1,
		Theme:           ThemeClassic,
		Intensity:       50,
		Guides:          false,
		ErrorCorrection: qrcode.LevelM,
		QuietZone:       2,
		Ink:             Black,
		Fonts:           DefaultFonts(),
		Placeholders:    DefaultPlaceholders(),
	}
}

// ErrInvalidConfig 表示布局配置不合法。
var ErrInvalidConfig = errors.New("layout: 配置不合法")

// Validate 检查配置是否可以排出至少一张卡片。
func (c Config) Validate() error {
	switch {
	case c.PageWidth <= 0 || c.PageHeight <= 0:
		return fmt.Errorf("%w: 页面尺寸必须为正数", ErrInvalidConfig)
	case c.Margin < 0:
		return fmt.Errorf("%w: 边距不能为负数", ErrInvalidConfig)
	case c.Columns < 1:
		return fmt.Errorf("%w: 列数至少为 1", ErrInvalidConfig)
	case c.Aspect <= 0:
		return fmt.Errorf("%w: 高宽比必须为正数", ErrInvalidConfig)
	case c.Intensity < 0 || c.Intensity > 100:
		return fmt.Errorf("%w: 装饰强度必须在 0 到 100 之间", ErrInvalidConfig)
	case c.QuietZone < 2 || c.QuietZone > 3:
		return fmt.Errorf("%w: 静区必须为 2 或 3 个模块", ErrInvalidConfig)
	}
	if _, err := ParseTheme(string(c.Theme)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, missing := binding.Render(c.Placeholders.Payload, track.Track{}.Fields()); len(missing) > 0 {
		return fmt.Errorf("%w: 二维码占位模板引用了未知字段 %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}
	g := c.Geometry()
	if g.CardWidth <= 0 || g.CardHeight <= 0 {
		return fmt.Errorf("%w: 边距过大，%d 列放不下任何卡片", ErrInvalidConfig, c.Columns)
	}
	return nil
}

// Geometry 是由配置推导出的网格尺寸。
type Geometry struct {
	CellWidth  float64
	CellHeight float64
	CardWidth  float64
	CardHeight float64
	Columns    int
	Rows       int
}

// Capacity 返回每页可放置的卡片数。
func (g Geometry) Capacity() int { return g.Columns * g.Rows }

// CardOffset 返回卡片在单元格内居中时的偏移。
func (g Geometry) CardOffset() (dx, dy float64) {
	return (g.CellWidth - g.CardWidth) / 2, (g.CellHeight - g.CardHeight) / 2
}

// CellOrigin 返回 (row, column) 单元格左上角的页面坐标。
func (g Geometry) CellOrigin(margin float64, row, column int) (x, y float64) {
	return margin + float64(column)*(g.CellWidth+margin), margin + float64(row)*(g.CellHeight+margin)
}

// Geometry 计算单元格与卡片尺寸：
// cardWidth = (pageWidth - margin*(columns+1)) / columns，cardHeight = cardWidth*aspect。
// 卡片高于页面可用高度时按比例缩小，并在单元格内居中。
func (c Config) Geometry() Geometry {
	cols := c.Columns
	if cols < 1 {
		cols = 1
	}
	aspect := c.Aspect
	if aspect <= 0 {
		aspect = 1
	}
	cellW := (c.PageWidth - c.Margin*float64(cols+1)) / float64(cols)
	cellH := cellW * aspect
	cardW, cardH := cellW, cellH
	if maxH := c.PageHeight - 2*c.Margin; cellH > maxH && maxH > 0 {
		cellH = maxH
		cardH = maxH
		cardW = cardH / aspect
	}
	rows := 1
	if cellH > 0 {
		rows = int(math.Floor((c.PageHeight - c.Margin) / (cellH + c.Margin)))
		if rows < 1 {
			rows = 1
		}
	}
	return Geometry{
		CellWidth:  cellW,
		CellHeight: cellH,
		CardWidth:  cardW,
		CardHeight: cardH,
		Columns:    cols,
		Rows:       rows,
	}
}

// Fingerprint 唯一标识影响卡片几何的全部配置项，用作缓存键的一部分。
func (c Config) Fingerprint() string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	font := func(r FontResource) string {
		return fmt.Sprintf("%q@%q@%q@%q@%q", r.Name, r.Src, r.Family, r.Style, r.Fallback)
	}
	parts := []string{
		f(c.PageWidth), f(c.PageHeight), f(c.Margin), strconv.Itoa(c.Columns), f(c.Aspect),
		string(c.Theme), f(c.Intensity), c.ErrorCorrection.String(), strconv.Itoa(c.QuietZone),
		c.Ink.Hex(),
		font(c.Fonts.Artist), font(c.Fonts.Year), font(c.Fonts.Title),
		c.Placeholders.Artist, c.Placeholders.Year, c.Placeholders.Title, c.Placeholders.Payload,
	}
	// 字体与占位符是任意文本，逐项加引号以免分隔符碰撞
	for i, p := range parts {
		parts[i] = strconv.Quote(p)
	}
	return strings.Join(parts, "|")
}
