// Package deck turns a parsed deck file into tracks, document metadata and
// setting overrides.
package deck

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/SlawomirKedra/qr-song-card/dsl"
	"github.com/SlawomirKedra/qr-song-card/layout"
	"github.com/SlawomirKedra/qr-song-card/track"
)

// ErrUnknownField 表示 deck 中出现了无法识别的字段。
var ErrUnknownField = errors.New("deck: 未知字段")

// trackFields 按顺序应用；同时给出 link 与 url 时 url 生效。
var trackFields = []struct {
	key string
	set func(*track.Track, string)
}{
	{"id", func(t *track.Track, v string) { t.ID = v }},
	{"title", func(t *track.Track, v string) { t.Title = v }},
	{"artist", func(t *track.Track, v string) { t.Artist = v }},
	{"year", func(t *track.Track, v string) { t.Year = v }},
	{"link", func(t *track.Track, v string) { t.URL = v }},
	{"url", func(t *track.Track, v string) { t.URL = v }},
	{"cover", func(t *track.Track, v string) { t.Cover = v }},
}

// Deck is the decoded content of a deck file.
type Deck struct {
	Name   string
	Meta   layout.DocumentMeta
	Tracks []track.Track
	// Settings 是 layout 与 font 段落展开后的覆盖项，键与 config.ApplyOverrides 一致，
	// 例如 "columns"、"font.title.src"。
	Settings map[string]string
}

// LoadFile parses and decodes a deck file.
func LoadFile(path string) (*Deck, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("无法打开 deck 文件 %s: %w", path, err)
	}
	defer file.Close()

	ast, err := dsl.Parse(path, file)
	if err != nil {
		return nil, fmt.Errorf("解析 deck 失败: %w", err)
	}
	return Decode(ast)
}

// Decode converts the AST. Tracks keep their file order; missing ids are generated.
func Decode(f *dsl.File) (*Deck, error) {
	if f == nil {
		return nil, fmt.Errorf("deck 为空")
	}
	d := &Deck{Name: f.Name, Settings: map[string]string{}}
	for _, sec := range f.Sections {
		switch sec.Kind() {
		case "meta":
			if err := decodeMeta(&d.Meta, sec.Meta.Block); err != nil {
				return nil, err
			}
		case "layout":
			for _, a := range sec.Layout.Block.Assignments {
				d.Settings[a.Key] = a.Value.Text()
			}
		case "font":
			role := strings.ToLower(sec.Font.Role)
			for _, a := range sec.Font.Block.Assignments {
				d.Settings["font."+role+"."+a.Key] = a.Value.Text()
			}
		case "track":
			t, err := decodeTrack(sec.Track.Block)
			if err != nil {
				return nil, fmt.Errorf("第 %d 行的 track: %w", sec.Track.Pos.Line, err)
			}
			d.Tracks = append(d.Tracks, t)
		default:
			return nil, fmt.Errorf("%w: 段落 %s", ErrUnknownField, sec.Kind())
		}
	}
	if d.Meta.Title == "" && d.Name != "" {
		d.Meta.Title = d.Name
	}
	return d, nil
}

func decodeMeta(meta *layout.DocumentMeta, b *dsl.Block) error {
	for _, a := range b.Assignments {
		switch a.Key {
		case "title":
			meta.Title = a.Value.Text()
		case "author":
			meta.Author = a.Value.Text()
		case "subject":
			meta.Subject = a.Value.Text()
		case "creator":
			meta.Creator = a.Value.Text()
		case "keywords":
			if a.Value.Array != nil {
				meta.Keywords = append(meta.Keywords, a.Value.Array.Texts()...)
			} else {
				meta.Keywords = append(meta.Keywords, a.Value.Text())
			}
		default:
			return fmt.Errorf("%w: meta.%s (第 %d 行)", ErrUnknownField, a.Key, a.Pos.Line)
		}
	}
	return nil
}

func decodeTrack(b *dsl.Block) (track.Track, error) {
	known := map[string]bool{}
	for _, f := range trackFields {
		known[f.key] = true
	}
	for _, a := range b.Assignments {
		if !known[a.Key] {
			return track.Track{}, fmt.Errorf("%w: %s (第 %d 行)", ErrUnknownField, a.Key, a.Pos.Line)
		}
	}

	var t track.Track
	for _, f := range trackFields {
		if v, ok := b.Get(f.key); ok {
			f.set(&t, v.Text())
		}
	}
	if t.ID == "" {
		t.ID = track.NewID()
	}
	return t.Normalize(), nil
}
