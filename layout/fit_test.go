package layout

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

// stubTypesetter 是一个最小实现，仅用于测试，避免引入 renderer 造成循环依赖。
// 每个字符宽度固定为字号的一半。
type stubTypesetter struct {
	onMeasure func()
}

func (s *stubTypesetter) MeasureText(content string, font FontResource, fontSize float64) (float64, error) {
	if s.onMeasure != nil {
		s.onMeasure()
	}
	return 0.5 * fontSize * float64(utf8.RuneCountInString(content)), nil
}

type failingTypesetter struct{}

func (failingTypesetter) MeasureText(string, FontResource, float64) (float64, error) {
	return 0, errors.New("boom")
}

func TestFitKeepsBaseSizeWhenItFits(t *testing.T) {
	res, err := Fit(&stubTypesetter{}, FitRequest{
		Text:       "Smooth Operator",
		BaseSize:   3.348,
		MaxWidth:   29.76,
		MaxHeight:  10,
		MaxLines:   2,
		LineHeight: Factor(1.15),
	})
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if res.FontSize != 3.348 || res.Overflow {
		t.Fatalf("expected base size without overflow, got %+v", res)
	}
	if len(res.Lines) != 1 || res.Lines[0].Content != "Smooth Operator" {
		t.Fatalf("unexpected lines: %+v", res.Lines)
	}
	if math.Abs(res.LineHeight-3.348*1.15) > 1e-9 {
		t.Fatalf("line height = %g", res.LineHeight)
	}
}

func TestFitShrinksUntilWidthFits(t *testing.T) {
	res, err := Fit(&stubTypesetter{}, FitRequest{
		Text:       "aaaaaaaaaa",
		BaseSize:   4,
		MaxWidth:   15,
		MaxLines:   1,
		LineHeight: Factor(1),
	})
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	// 宽度 = 5*size <= 15 → size <= 3
	if res.FontSize > 3+1e-9 || res.FontSize <= 3-FitStep {
		t.Fatalf("font size = %g, want largest step <= 3", res.FontSize)
	}
	if res.Lines[0].Width > 15+1e-9 {
		t.Fatalf("line too wide: %g", res.Lines[0].Width)
	}
}

func TestFitRespectsHeight(t *testing.T) {
	res, err := Fit(&stubTypesetter{}, FitRequest{
		Text:       "1984",
		BaseSize:   11,
		MaxWidth:   100,
		MaxHeight:  8,
		MaxLines:   1,
		LineHeight: Factor(1),
	})
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if res.BlockHeight() > 8+1e-9 || res.FontSize <= 8-FitStep {
		t.Fatalf("unexpected size %g (height %g)", res.FontSize, res.BlockHeight())
	}
}

func TestFitFloorOverflowIsAccepted(t *testing.T) {
	res, err := Fit(&stubTypesetter{}, FitRequest{
		Text:       "Supercalifragilistic",
		BaseSize:   4,
		MaxWidth:   5,
		MaxLines:   2,
		LineHeight: Factor(1.1),
	})
	if err != nil {
		t.Fatalf("overflow must not be an error: %v", err)
	}
	if !res.Overflow {
		t.Fatalf("expected overflow flag")
	}
	if math.Abs(res.FontSize-FitFloor) > 1e-9 {
		t.Fatalf("font size = %g, want floor %g", res.FontSize, FitFloor)
	}
	if len(res.Lines) != 1 || res.Lines[0].Content != "Supercalifragilistic" {
		t.Fatalf("unbreakable word must be emitted as-is: %+v", res.Lines)
	}
}

func TestFitEmptyText(t *testing.T) {
	res, err := Fit(&stubTypesetter{}, FitRequest{Text: "   ", BaseSize: 3, MaxWidth: 10, LineHeight: Factor(1.2)})
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if len(res.Lines) != 0 || res.FontSize != 3 {
		t.Fatalf("unexpected result for empty text: %+v", res)
	}
}

func TestFitPropagatesMeasureError(t *testing.T) {
	if _, err := Fit(failingTypesetter{}, FitRequest{Text: "x", BaseSize: 3, MaxWidth: 10}); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := Fit(nil, FitRequest{Text: "x"}); err == nil {
		t.Fatalf("expected error without typesetter")
	}
}

// TestFitNeverExceedsBox 对一组文本验证：要么满足宽高约束，要么字号等于下限。
func TestFitNeverExceedsBox(t *testing.T) {
	corpus := []string{
		"Sade",
		"Smooth Operator",
		"Earth, Wind & Fire",
		"The Artist Formerly Known As Prince",
		"Rage Against The Machine",
		"Somewhere Over The Rainbow / What A Wonderful World",
		"Llanfairpwllgwyngyllgogerychwyrndrobwllllantysiliogogogoch",
		"Zażółć gęślą jaźń",
		"a b c d e f g h i j k l m n o p q r s t u v w x y z",
	}
	boxes := []struct{ w, h float64 }{{29.76, 10.4}, {38, 13.3}, {15, 6}, {8, 3}}
	ts := &stubTypesetter{}
	for _, text := range corpus {
		for _, box := range boxes {
			res, err := Fit(ts, FitRequest{Text: text, BaseSize: 3.72, MaxWidth: box.w, MaxHeight: box.h, MaxLines: 2, LineHeight: Factor(1.1)})
			if err != nil {
				t.Fatalf("fit %q: %v", text, err)
			}
			if len(res.Lines) > 2 {
				t.Fatalf("%q: %d lines", text, len(res.Lines))
			}
			if math.Abs(res.FontSize-FitFloor) <= 1e-9 {
				continue
			}
			if res.Overflow {
				t.Fatalf("%q in %+v: overflow above floor (size %g)", text, box, res.FontSize)
			}
			for _, ln := range res.Lines {
				if ln.Width > box.w+1e-9 {
					t.Fatalf("%q in %+v: line %q width %g", text, box, ln.Content, ln.Width)
				}
			}
			if res.BlockHeight() > box.h+1e-9 {
				t.Fatalf("%q in %+v: block height %g", text, box, res.BlockHeight())
			}
			if got := strings.Join(strings.Fields(strings.Join(linesContent(res.Lines), " ")), " "); got != strings.Join(strings.Fields(text), " ") {
				t.Fatalf("words lost: %q vs %q", got, text)
			}
		}
	}
}

func linesContent(lines []TextLine) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Content
	}
	return out
}

func TestCollapseLines(t *testing.T) {
	cases := []struct {
		in   []string
		n    int
		want []string
	}{
		{[]string{"a", "b", "c"}, 2, []string{"a b", "c"}},
		{[]string{"a", "b", "c", "d", "e"}, 2, []string{"a b c", "d e"}},
		{[]string{"a", "b", "c", "d", "e"}, 3, []string{"a b", "c d", "e"}},
		{[]string{"a", "b", "c"}, 1, []string{"a b c"}},
		{[]string{"a", "b"}, 2, []string{"a", "b"}},
	}
	for _, tc := range cases {
		if got := collapseLines(tc.in, tc.n); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("collapseLines(%v, %d) = %v, want %v", tc.in, tc.n, got, tc.want)
		}
	}
}
