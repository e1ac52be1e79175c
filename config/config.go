// Package config loads user settings from YAML, .env files and SONGCARDS_*
// environment variables, and turns them into a layout.Config.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/SlawomirKedra/qr-song-card/layout"
	"github.com/SlawomirKedra/qr-song-card/qrcode"
)

// EnvPrefix 是环境变量覆盖项的前缀，例如 SONGCARDS_COLUMNS=4。
const EnvPrefix = "SONGCARDS_"

// ErrUnknownSetting 表示覆盖项的键无法识别。
var ErrUnknownSetting = errors.New("config: 未知配置项")

// 纸张尺寸（竖向，mm）
var pageSizes = map[string][2]float64{
	"a3":     {297, 420},
	"a4":     {210, 297},
	"a5":     {148, 210},
	"letter": {215.9, 279.4},
	"legal":  {215.9, 355.6},
}

// Settings 是可保存为 YAML 的用户设置。
type Settings struct {
	Page            string                  `yaml:"page"`
	Orientation     string                  `yaml:"orientation"`
	Margin          string                  `yaml:"margin"`
	Columns         int                     `yaml:"columns"`
	Aspect          float64                 `yaml:"aspect"`
	Theme           string                  `yaml:"theme"`
	Intensity       float64                 `yaml:"intensity"`
	Guides          bool                    `yaml:"guides"`
	MirrorBacks     bool                    `yaml:"mirrorBacks"`
	ErrorCorrection string                  `yaml:"errorCorrection"`
	QuietZone       int                     `yaml:"quietZone"`
	Ink             string                  `yaml:"ink"`
	Workers         int                     `yaml:"workers"`
	CacheSize       int                     `yaml:"cacheSize"`
	LogLevel        string                  `yaml:"logLevel"`
	Fonts           map[string]FontSettings `yaml:"fonts,omitempty"`
	Placeholders    PlaceholderSettings     `yaml:"placeholders"`
}

// FontSettings overrides a single text role's font.
type FontSettings struct {
	Src      string `yaml:"src"`
	Style    string `yaml:"style,omitempty"`
	Family   string `yaml:"family,omitempty"`
	Fallback string `yaml:"fallback,omitempty"`
}

// PlaceholderSettings mirror layout.Placeholders.
type PlaceholderSettings struct {
	Artist  string `yaml:"artist"`
	Year    string `yaml:"year"`
	Title   string `yaml:"title"`
	Payload string `yaml:"payload"`
}

// DefaultSettings 与 layout.DefaultConfig 保持一致。
func DefaultSettings() Settings {
	ph := layout.DefaultPlaceholders()
	return Settings{
		Page:            "a4",
		Orientation:     "portrait",
		Margin:          "4mm",
		Columns:         5,
		Aspect:          1,
		Theme:           string(layout.ThemeClassic),
		Intensity:       50,
		ErrorCorrection: qrcode.LevelM.String(),
		QuietZone:       2,
		Ink:             layout.Black.Hex(),
		Workers:         4,
		CacheSize:       512,
		LogLevel:        "info",
		Placeholders: PlaceholderSettings{
			Artist:  ph.Artist,
			Year:    ph.Year,
			Title:   ph.Title,
			Payload: ph.Payload,
		},
	}
}

// Load 读取 YAML 设置文件；文件不存在时返回默认设置。缺省的字段保留默认值。
func Load(path string) (Settings, error) {
	s := DefaultSettings()
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}
	return s, nil
}

// Save 将设置写为 YAML。
func (s Settings) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建配置目录失败: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}
	return nil
}

// LoadEnv 加载 .env 文件（不存在时忽略），并返回 SONGCARDS_* 环境变量形成的覆盖项。
// 已存在的环境变量不会被 .env 覆盖。
func LoadEnv(files ...string) (map[string]string, error) {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err == nil {
			existing = append(existing, ".env")
		}
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return nil, fmt.Errorf("加载 .env 失败: %w", err)
		}
	}
	return EnvOverrides(os.Environ()), nil
}

// EnvOverrides 从 KEY=VALUE 列表中提取 SONGCARDS_* 项。
// SONGCARDS_MIRROR_BACKS 映射为 "mirror-backs"，SONGCARDS_FONT_TITLE_SRC 映射为 "font.title.src"。
func EnvOverrides(environ []string) map[string]string {
	out := map[string]string{}
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		name := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		if strings.HasPrefix(name, "font_") || strings.HasPrefix(name, "placeholder_") {
			name = strings.ReplaceAll(name, "_", ".")
		} else {
			name = strings.ReplaceAll(name, "_", "-")
		}
		out[name] = value
	}
	return out
}

// ApplyOverrides 依次应用覆盖项（键按字母序，保证结果确定）。
func (s *Settings) ApplyOverrides(overrides map[string]string) error {
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := s.Set(k, overrides[k]); err != nil {
			return err
		}
	}
	return nil
}

// Set 设置单个配置项。键不区分大小写，"_" 与 "-" 等价。
func (s *Settings) Set(key, value string) error {
	k := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), "_", "-")
	v := strings.TrimSpace(value)
	var err error
	switch k {
	case "page":
		s.Page = strings.ToLower(v)
	case "orientation":
		s.Orientation = strings.ToLower(v)
	case "margin":
		s.Margin = v
	case "columns", "cols":
		s.Columns, err = strconv.Atoi(v)
	case "aspect":
		s.Aspect, err = parseAspect(v)
	case "theme":
		s.Theme = v
	case "intensity":
		s.Intensity, err = strconv.ParseFloat(strings.TrimSuffix(v, "%"), 64)
	case "guides":
		s.Guides, err = strconv.ParseBool(v)
	case "mirror-backs", "mirror":
		s.MirrorBacks, err = strconv.ParseBool(v)
	case "ecc", "error-correction", "errorcorrection":
		s.ErrorCorrection = strings.ToUpper(v)
	case "quiet-zone", "quietzone":
		s.QuietZone, err = strconv.Atoi(v)
	case "ink":
		s.Ink = v
	case "workers":
		s.Workers, err = strconv.Atoi(v)
	case "cache-size", "cachesize":
		s.CacheSize, err = strconv.Atoi(v)
	case "log-level", "loglevel":
		s.LogLevel = strings.ToLower(v)
	default:
		return s.setNested(k, v)
	}
	if err != nil {
		return fmt.Errorf("配置项 %s=%q 无效: %w", key, value, err)
	}
	return nil
}

func (s *Settings) setNested(key, value string) error {
	parts := strings.Split(key, ".")
	switch {
	case len(parts) == 3 && parts[0] == "font":
		role := parts[1]
		if role != layout.FontArtist && role != layout.FontTitle && role != layout.FontYear {
			return fmt.Errorf("%w: %s", ErrUnknownSetting, key)
		}
		if s.Fonts == nil {
			s.Fonts = map[string]FontSettings{}
		}
		fs := s.Fonts[role]
		switch parts[2] {
		case "src":
			fs.Src = value
		case "style":
			fs.Style = value
		case "family":
			fs.Family = value
		case "fallback":
			fs.Fallback = value
		default:
			return fmt.Errorf("%w: %s", ErrUnknownSetting, key)
		}
		s.Fonts[role] = fs
	case len(parts) == 2 && parts[0] == "placeholder":
		switch parts[1] {
		case "artist":
			s.Placeholders.Artist = value
		case "title":
			s.Placeholders.Title = value
		case "year":
			s.Placeholders.Year = value
		case "payload":
			s.Placeholders.Payload = value
		default:
			return fmt.Errorf("%w: %s", ErrUnknownSetting, key)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}
	return nil
}

// parseAspect 接受 "1.4"、"52/37" 或 "37x52"（宽x高）。
func parseAspect(v string) (float64, error) {
	if a, b, ok := strings.Cut(v, "/"); ok {
		return ratio(a, b)
	}
	if w, h, ok := strings.Cut(strings.ToLower(v), "x"); ok {
		return ratio(h, w)
	}
	return strconv.ParseFloat(v, 64)
}

func ratio(num, den string) (float64, error) {
	n, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil {
		return 0, err
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(den), 64)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return 0, fmt.Errorf("比例分母为 0")
	}
	return n / d, nil
}

// ToLayoutConfig 转换为布局配置并校验。
func (s Settings) ToLayoutConfig() (layout.Config, error) {
	cfg := layout.DefaultConfig()

	size, ok := pageSizes[strings.ToLower(s.Page)]
	if !ok {
		return cfg, fmt.Errorf("%w: 未知纸张 %q", layout.ErrInvalidConfig, s.Page)
	}
	switch strings.ToLower(s.Orientation) {
	case "", "portrait":
		cfg.PageWidth, cfg.PageHeight = size[0], size[1]
	case "landscape":
		cfg.PageWidth, cfg.PageHeight = size[1], size[0]
	default:
		return cfg, fmt.Errorf("%w: 未知方向 %q", layout.ErrInvalidConfig, s.Orientation)
	}

	var err error
	if s.Margin != "" {
		margin, err := layout.ParseLength(s.Margin)
		if err != nil {
			return cfg, fmt.Errorf("%w: %v", layout.ErrInvalidConfig, err)
		}
		cfg.Margin = margin.ToMM()
	}
	cfg.Columns = s.Columns
	cfg.Aspect = s.Aspect
	if cfg.Theme, err = layout.ParseTheme(s.Theme); err != nil {
		return cfg, fmt.Errorf("%w: %v", layout.ErrInvalidConfig, err)
	}
	cfg.Intensity = s.Intensity
	cfg.Guides = s.Guides
	cfg.MirrorBacks = s.MirrorBacks
	if s.ErrorCorrection != "" {
		if cfg.ErrorCorrection, err = qrcode.ParseLevel(s.ErrorCorrection); err != nil {
			return cfg, fmt.Errorf("%w: %v", layout.ErrInvalidConfig, err)
		}
	}
	cfg.QuietZone = s.QuietZone
	if s.Ink != "" {
		if cfg.Ink, err = layout.ParseColor(s.Ink); err != nil {
			return cfg, fmt.Errorf("%w: %v", layout.ErrInvalidConfig, err)
		}
	}
	cfg.Fonts = s.fontSet()
	cfg.Placeholders = layout.Placeholders{
		Artist:  s.Placeholders.Artist,
		Year:    s.Placeholders.Year,
		Title:   s.Placeholders.Title,
		Payload: s.Placeholders.Payload,
	}
	return cfg, cfg.Validate()
}

func (s Settings) fontSet() layout.FontSet {
	set := layout.DefaultFonts()
	apply := func(role string, font *layout.FontResource) {
		fs, ok := s.Fonts[role]
		if !ok {
			return
		}
		if fs.Src != "" {
			font.Src = fs.Src
			// 自定义字体的样式默认为常规
			font.Style = ""
			font.Family = ""
		}
		if fs.Style != "" {
			font.Style = fs.Style
		}
		if fs.Family != "" {
			font.Family = fs.Family
		}
		if fs.Fallback != "" {
			font.Fallback = fs.Fallback
		}
	}
	apply(layout.FontArtist, &set.Artist)
	apply(layout.FontYear, &set.Year)
	apply(layout.FontTitle, &set.Title)
	return set
}
