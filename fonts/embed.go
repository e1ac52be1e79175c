package fonts

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomediumitalic"
	"golang.org/x/image/font/gofont/goregular"
)

// 内置字体：Go 字体家族（随 golang.org/x/image 分发，无需额外资源文件）。
var builtin = map[string][]byte{
	"Go-Regular.ttf":       goregular.TTF,
	"Go-Italic.ttf":        goitalic.TTF,
	"Go-Medium.ttf":        gomedium.TTF,
	"Go-Medium-Italic.ttf": gomediumitalic.TTF,
	"Go-Bold.ttf":          gobold.TTF,
	"Go-Bold-Italic.ttf":   gobolditalic.TTF,
}

// Fallback 是任何字体加载失败时使用的替代字体。
const Fallback = "Go-Regular.ttf"

// Load 返回内置字体的字节数据，path 可写为 "embed:Go-Bold.ttf" 或直接 "Go-Bold.ttf"。
func Load(path string) ([]byte, error) {
	name := strings.TrimPrefix(path, "embed:")
	name = strings.TrimPrefix(name, "gofont/")
	data, ok := builtin[name]
	if !ok {
		return nil, fmt.Errorf("读取内置字体 %s 失败: 不存在", name)
	}
	return data, nil
}

// Names lists the embedded font names in a stable order.
func Names() []string {
	out := make([]string, 0, len(builtin))
	for name := range builtin {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
