// Package qrcode 把文本编码为 QR 码模块矩阵，供卡片正面绘制使用。
package qrcode

import (
	"errors"
	"fmt"
	"image/color"
	"strings"

	"github.com/boombuler/barcode/qr"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrCapacityExceeded 表示内容超出当前纠错级别下 QR 码的最大容量。
var ErrCapacityExceeded = errors.New("qrcode: 内容超出可编码容量")

// Level 是纠错级别，数值越大冗余越多、容量越小。
type Level int

const (
	LevelL Level = iota
	LevelM
	LevelQ
	LevelH
)

func (l Level) String() string {
	switch l {
	case LevelL:
		return "L"
	case LevelM:
		return "M"
	case LevelQ:
		return "Q"
	case LevelH:
		return "H"
	default:
		return "?"
	}
}

// Lower returns the next weaker level, false when already at L.
func (l Level) Lower() (Level, bool) {
	if l <= LevelL {
		return LevelL, false
	}
	return l - 1, true
}

// ParseLevel 解析 "L/M/Q/H"（大小写不敏感），空串视为 M。
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "L":
		return LevelL, nil
	case "", "M":
		return LevelM, nil
	case "Q":
		return LevelQ, nil
	case "H":
		return LevelH, nil
	}
	return LevelM, fmt.Errorf("qrcode: 未知纠错级别 %q", s)
}

func (l Level) ecl() qr.ErrorCorrectionLevel {
	switch l {
	case LevelL:
		return qr.L
	case LevelQ:
		return qr.Q
	case LevelH:
		return qr.H
	default:
		return qr.M
	}
}

// Matrix 是编码完成的正方形模块网格。
type Matrix struct {
	Payload string
	Level   Level
	size    int
	dark    []bool
}

// Size 返回每边模块数。
func (m *Matrix) Size() int { return m.size }

// IsDark reports whether the module at (row, col) is dark. Out of range is light.
func (m *Matrix) IsDark(row, col int) bool {
	if row < 0 || col < 0 || row >= m.size || col >= m.size {
		return false
	}
	return m.dark[row*m.size+col]
}

// Encode 对 payload 编码（不带缓存）。payload 为空时改用 fallback。
func Encode(payload, fallback string, level Level) (*Matrix, error) {
	if payload == "" {
		payload = fallback
	}
	code, err := qr.Encode(payload, level.ecl(), qr.Auto)
	if err != nil {
		// Auto 模式下唯一的失败原因是超出版本 40 的容量
		return nil, fmt.Errorf("%w: %d 字节 @ %s", ErrCapacityExceeded, len(payload), level)
	}
	bounds := code.Bounds()
	size := bounds.Dx()
	m := &Matrix{Payload: payload, Level: level, size: size, dark: make([]bool, size*size)}
	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			m.dark[row*size+col] = isDarkColor(code.At(bounds.Min.X+col, bounds.Min.Y+row))
		}
	}
	return m, nil
}

func isDarkColor(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return (r+g+b)/3 < 0x8000
}

type cacheKey struct {
	payload string
	level   Level
}

// Encoder memoizes matrices by payload and level. Safe for concurrent use.
type Encoder struct {
	cache *lru.Cache[cacheKey, *Matrix]
}

// NewEncoder 创建带 LRU 缓存的编码器；size<=0 时使用默认 256。
func NewEncoder(size int) *Encoder {
	if size <= 0 {
		size = 256
	}
	cache, err := lru.New[cacheKey, *Matrix](size)
	if err != nil {
		// size 已保证为正数
		panic(err)
	}
	return &Encoder{cache: cache}
}

// Encode 与包级 Encode 相同，但结果按 (payload, level) 缓存。
func (e *Encoder) Encode(payload, fallback string, level Level) (*Matrix, error) {
	if payload == "" {
		payload = fallback
	}
	key := cacheKey{payload: payload, level: level}
	if m, ok := e.cache.Get(key); ok {
		return m, nil
	}
	m, err := Encode(payload, "", level)
	if err != nil {
		return nil, err
	}
	e.cache.Add(key, m)
	return m, nil
}

// Len returns the number of cached matrices.
func (e *Encoder) Len() int { return e.cache.Len() }
