// Package binding 实现 ${path} 模板插值，用于二维码占位内容与导出文件名。
package binding

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Interpolate 将文本中的 ${path.to.value} 替换为 data 中的值。
// 若 data 为空或路径不存在，则保留原占位符。
func Interpolate(text string, data any) string {
	out, _ := Render(text, data)
	return out
}

// Render 与 Interpolate 相同，但额外返回无法解析的路径（按出现顺序，去重）。
func Render(text string, data any) (string, []string) {
	var missing []string
	seen := map[string]bool{}
	out := exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := exprPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		path := strings.TrimSpace(groups[1])
		if path == "" {
			return match
		}
		if data != nil {
			if val, ok := resolvePath(data, path); ok {
				return fmt.Sprint(val)
			}
		}
		if !seen[path] {
			seen[path] = true
			missing = append(missing, path)
		}
		return match
	})
	return out, missing
}

// segmentPattern 匹配路径中的一段：字段名或 [下标]。
var segmentPattern = regexp.MustCompile(`([^.\[\]]+)|\[(\d+)\]`)

// Fielder 由可以直接参与插值的类型实现，例如 track.Track。
type Fielder interface {
	Fields() map[string]string
}

func resolvePath(data any, path string) (any, bool) {
	current := data
	for _, m := range segmentPattern.FindAllStringSubmatch(path, -1) {
		var ok bool
		if m[2] != "" {
			idx, _ := strconv.Atoi(m[2])
			current, ok = element(current, idx)
		} else {
			current, ok = field(current, m[1])
		}
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func field(current any, key string) (any, bool) {
	switch c := current.(type) {
	case map[string]any:
		val, ok := c[key]
		return val, ok
	case map[string]string:
		val, ok := c[key]
		return val, ok
	case Fielder:
		val, ok := c.Fields()[key]
		return val, ok
	}
	return nil, false
}

func element(current any, idx int) (any, bool) {
	switch c := current.(type) {
	case []any:
		if idx < len(c) {
			return c[idx], true
		}
	case []string:
		if idx < len(c) {
			return c[idx], true
		}
	}
	return nil, false
}
