package layout

import (
	"fmt"
	"strings"
)

// 字号以毫米表示；步长与下限对应 0.5pt 与 6pt。
const (
	FitStep  = 0.5 * PtToMm
	FitFloor = 6 * PtToMm

	fitEpsilon = 1e-9
)

// FitRequest 描述一次文本适配：在 MaxWidth × MaxHeight 的框内、最多 MaxLines 行，
// 从 BaseSize 开始寻找能放下的最大字号。MaxHeight/MaxLines 为 0 表示不限制。
type FitRequest struct {
	Text       string
	Font       FontResource
	BaseSize   float64
	MaxWidth   float64
	MaxHeight  float64
	MaxLines   int
	LineHeight LineHeightSpec
}

// FitResult 是适配结果。Overflow 表示已降到最小字号但仍超出边界（不是错误）。
type FitResult struct {
	Lines      []TextLine
	FontSize   float64
	LineHeight float64
	Overflow   bool
}

// BlockHeight 返回整块文本的高度。
func (r FitResult) BlockHeight() float64 {
	return r.LineHeight * float64(len(r.Lines))
}

// Fit 按贪心折行逐步缩小字号，直到每行宽度与总高度都满足约束，
// 或字号降到 FitFloor 为止。结果只取决于输入与 Typesetter 的测量。
func Fit(ts Typesetter, req FitRequest) (FitResult, error) {
	if ts == nil {
		return FitResult{}, fmt.Errorf("layout: 缺少排版后端 Typesetter")
	}
	words := strings.Fields(req.Text)
	size := req.BaseSize
	if size <= 0 {
		size = FitFloor
	}
	for {
		res, fits, err := tryFit(ts, req, words, size)
		if err != nil {
			return FitResult{}, err
		}
		if fits {
			return res, nil
		}
		if size <= FitFloor+fitEpsilon {
			res.Overflow = true
			return res, nil
		}
		size -= FitStep
		if size < FitFloor {
			size = FitFloor
		}
	}
}

func tryFit(ts Typesetter, req FitRequest, words []string, size float64) (FitResult, bool, error) {
	lineHeight := req.LineHeight.ResolveMM(size)
	res := FitResult{FontSize: size, LineHeight: lineHeight}
	if len(words) == 0 {
		return res, true, nil
	}
	lines, err := wrapWords(ts, req.Font, words, size, req.MaxWidth)
	if err != nil {
		return res, false, err
	}
	if req.MaxLines > 0 && len(lines) > req.MaxLines {
		lines = collapseLines(lines, req.MaxLines)
	}
	fits := true
	for _, content := range lines {
		w, err := ts.MeasureText(content, req.Font, size)
		if err != nil {
			return res, false, err
		}
		if req.MaxWidth > 0 && w > req.MaxWidth+fitEpsilon {
			fits = false
		}
		res.Lines = append(res.Lines, TextLine{Content: content, Width: w, Height: size})
	}
	if req.MaxHeight > 0 && res.BlockHeight() > req.MaxHeight+fitEpsilon {
		fits = false
	}
	return res, fits, nil
}

// wrapWords 贪心折行：追加下一个词会超出宽度时另起一行。单个超宽的词原样保留。
func wrapWords(ts Typesetter, font FontResource, words []string, size, maxWidth float64) ([]string, error) {
	var lines []string
	cur := ""
	for _, w := range words {
		next := w
		if cur != "" {
			next = cur + " " + w
		}
		width, err := ts.MeasureText(next, font, size)
		if err != nil {
			return nil, err
		}
		if maxWidth <= 0 || width <= maxWidth+fitEpsilon || cur == "" {
			cur = next
			continue
		}
		lines = append(lines, cur)
		cur = w
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines, nil
}

// collapseLines 把多出来的行合并为恰好 n 组；n 为 2 时即在中点（向上取整）处切分。
func collapseLines(lines []string, n int) []string {
	if n <= 0 || len(lines) <= n {
		return lines
	}
	out := make([]string, 0, n)
	start := 0
	for i := 0; i < n; i++ {
		remaining := len(lines) - start
		take := (remaining + (n - i) - 1) / (n - i)
		out = append(out, strings.Join(lines[start:start+take], " "))
		start += take
	}
	return out
}
