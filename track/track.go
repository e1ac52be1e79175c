// Package track 定义卡片的数据来源：歌曲记录及其内存列表。
package track

import (
	"errors"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// ErrNotFound 表示列表中不存在指定 id 的歌曲。
var ErrNotFound = errors.New("track: 未找到")

// Track 是一首歌。所有字段均可为空，渲染时以占位文本代替。
type Track struct {
	ID     string `json:"id,omitempty" yaml:"id,omitempty"`
	Title  string `json:"title" yaml:"title"`
	Artist string `json:"artist" yaml:"artist"`
	Year   string `json:"year" yaml:"year"`
	URL    string `json:"url" yaml:"url"`
	Cover  string `json:"cover,omitempty" yaml:"cover,omitempty"`
}

// NewID 生成会话内唯一的 id（不持久化）。
func NewID() string { return uuid.NewString() }

var releaseDate = regexp.MustCompile(`^(\d{4})-\d{2}(?:-\d{2})?$`)

// Normalize trims whitespace, applies NFC and reduces ISO release dates to their year.
func (t Track) Normalize() Track {
	clean := func(s string) string { return norm.NFC.String(strings.TrimSpace(s)) }
	t.Title = clean(t.Title)
	t.Artist = clean(t.Artist)
	t.Year = clean(t.Year)
	t.URL = strings.TrimSpace(t.URL)
	t.Cover = strings.TrimSpace(t.Cover)
	if m := releaseDate.FindStringSubmatch(t.Year); m != nil {
		t.Year = m[1]
	}
	return t
}

// Fields 返回用于模板插值的字段表。
func (t Track) Fields() map[string]string {
	return map[string]string{
		"id":     t.ID,
		"title":  t.Title,
		"artist": t.Artist,
		"year":   t.Year,
		"url":    t.URL,
		"cover":  t.Cover,
	}
}

// ContentKey identifies the rendered content of a track; the id is excluded so
// identical rows share cached geometry.
func (t Track) ContentKey() string {
	return strings.Join([]string{t.Title, t.Artist, t.Year, t.URL, t.Cover}, "\x1f")
}

// IsEmpty reports whether every renderable field is empty.
func (t Track) IsEmpty() bool {
	return t.Title == "" && t.Artist == "" && t.Year == "" && t.URL == ""
}

// Sample 是未加载任何歌曲时用于预览的示例卡片。
func Sample() Track {
	return Track{
		ID:     "sample",
		Title:  "Smells Like Teen Spirit",
		Artist: "Nirvana",
		Year:   "1991",
		URL:    "https://open.spotify.com/track/5ghIJDpPoe3CfHMGu71E6T",
	}
}

// List 是会话内的歌曲列表。每次变更都会递增版本号，
// 异步渲染结果据此判断是否已经过期。
type List struct {
	mu      sync.RWMutex
	items   []Track
	version uint64
}

// NewList 以给定歌曲初始化列表，缺少 id 的歌曲会被分配新 id。
func NewList(tracks ...Track) *List {
	l := &List{}
	l.Replace(tracks)
	return l
}

// Replace 替换全部内容（相当于重新加载歌单）。
func (l *List) Replace(tracks []Track) {
	items := make([]Track, 0, len(tracks))
	for _, t := range tracks {
		t = t.Normalize()
		if t.ID == "" {
			t.ID = NewID()
		}
		items = append(items, t)
	}
	l.mu.Lock()
	l.items = items
	l.version++
	l.mu.Unlock()
}

// Add appends a track and returns it with its assigned id.
func (l *List) Add(t Track) Track {
	t = t.Normalize()
	if t.ID == "" {
		t.ID = NewID()
	}
	l.mu.Lock()
	l.items = append(l.items, t)
	l.version++
	l.mu.Unlock()
	return t
}

// Update 在锁内修改指定歌曲，id 不可被修改。
func (l *List) Update(id string, fn func(*Track)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.items {
		if l.items[i].ID != id {
			continue
		}
		t := l.items[i]
		fn(&t)
		t.ID = id
		l.items[i] = t.Normalize()
		l.version++
		return nil
	}
	return ErrNotFound
}

// Remove deletes the track with the given id.
func (l *List) Remove(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.items {
		if l.items[i].ID == id {
			l.items = append(l.items[:i:i], l.items[i+1:]...)
			l.version++
			return nil
		}
	}
	return ErrNotFound
}

// Snapshot 返回当前内容的副本及对应版本号。
func (l *List) Snapshot() ([]Track, uint64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Track, len(l.items))
	copy(out, l.items)
	return out, l.version
}

// Version returns the current mutation counter.
func (l *List) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}

// Len returns the number of tracks.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}
