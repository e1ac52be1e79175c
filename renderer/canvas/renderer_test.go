package canvasrenderer

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/tdewolff/canvas"

	"github.com/SlawomirKedra/qr-song-card/fonts"
	"github.com/SlawomirKedra/qr-song-card/layout"
	"github.com/SlawomirKedra/qr-song-card/track"
)

var goRegular = layout.FontResource{Name: "Body", Src: "embed:Go-Regular.ttf"}

func TestMeasureTextScalesWithContentAndSize(t *testing.T) {
	r := NewRenderer("")
	// 这里的字号/宽度均为 mm
	size := 12 * layout.PtToMm

	short, err := r.MeasureText("Nirvana", goRegular, size)
	if err != nil {
		t.Fatalf("measure: %v", err)
	}
	long, err := r.MeasureText("Nirvana Nirvana", goRegular, size)
	if err != nil {
		t.Fatalf("measure: %v", err)
	}
	if short <= 0 || long <= short {
		t.Fatalf("widths not monotonic: %g, %g", short, long)
	}
	double, err := r.MeasureText("Nirvana", goRegular, 2*size)
	if err != nil {
		t.Fatalf("measure: %v", err)
	}
	if math.Abs(double-2*short) > 0.05*short {
		t.Fatalf("width should scale with size: %g vs %g", double, 2*short)
	}
	// 12pt 的 "Nirvana" 不可能比一张 A4 还宽，用来粗查单位
	if short > 50 {
		t.Fatalf("width %g mm looks like a pt/mm mix-up", short)
	}
}

func TestMeasureTextFallsBackForMissingFont(t *testing.T) {
	r := NewRenderer("")
	missing := layout.FontResource{Name: "Ghost", Src: "embed:Ghost-Regular.ttf"}
	w, err := r.MeasureText("Smooth Operator", missing, 4)
	if err != nil {
		t.Fatalf("preview measurement must not fail: %v", err)
	}
	if w <= 0 {
		t.Fatalf("fallback width = %g", w)
	}
	if !r.UsesFallback(missing) {
		t.Fatalf("missing font should be served by the fallback family")
	}
	if r.UsesFallback(goRegular) {
		t.Fatalf("unused font must not be reported as fallback")
	}
}

func TestCheckFontsIsStrict(t *testing.T) {
	r := NewRenderer("")
	if err := r.CheckFonts(layout.DefaultFonts().Map()); err != nil {
		t.Fatalf("default fonts should load: %v", err)
	}
	err := r.CheckFonts(map[string]layout.FontResource{
		layout.FontTitle: {Name: "Ghost", Src: "embed:Ghost-Regular.ttf"},
	})
	if !errors.Is(err, ErrFontUnavailable) {
		t.Fatalf("expected ErrFontUnavailable, got %v", err)
	}
}

func TestFontPathRelativeToBaseDir(t *testing.T) {
	blob, err := fonts.Load(fonts.Fallback)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "custom.ttf"), blob, 0o644); err != nil {
		t.Fatalf("write font: %v", err)
	}
	r := NewRenderer(dir)
	font := layout.FontResource{Name: "Custom", Src: "custom.ttf"}
	if _, err := r.MeasureText("abc", font, 3); err != nil {
		t.Fatalf("measure: %v", err)
	}
	if r.UsesFallback(font) {
		t.Fatalf("font file under base dir should be used directly")
	}
	if err := NewRenderer("").CheckFonts(map[string]layout.FontResource{
		layout.FontTitle: {Name: "Custom", Src: filepath.Join(dir, "custom.ttf")},
	}); err != nil {
		t.Fatalf("absolute font path should load without base dir: %v", err)
	}
}

func TestFallbackWarningUsesConfiguredLogger(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	r := NewRendererWithOptions(Options{Logger: logger.WithField("module", "preview")})
	missing := layout.FontResource{Name: "Ghost", Src: "embed:Ghost-Regular.ttf"}
	if _, err := r.MeasureText("abc", missing, 3); err != nil {
		t.Fatalf("measure: %v", err)
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Level != log.WarnLevel {
		t.Fatalf("expected a warning on the configured logger, got %+v", entry)
	}
	if entry.Data["module"] != "preview" || entry.Data["font"] != "Ghost" {
		t.Fatalf("unexpected log fields: %v", entry.Data)
	}
}

func TestRelativeFontPathNeedsBaseDir(t *testing.T) {
	r := NewRenderer("")
	if _, err := r.loadFontBytes(layout.FontResource{Name: "x", Src: "fonts/x.ttf"}); err == nil {
		t.Fatalf("expected error without base dir")
	}
}

func TestFitWithRealFont(t *testing.T) {
	r := NewRenderer("")
	res, err := layout.Fit(r, layout.FitRequest{
		Text:     "The Greatest Song Title Ever Written For A Test",
		Font:     goRegular,
		BaseSize: 4,
		MaxWidth: 30,
		MaxLines: 2,
	})
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if len(res.Lines) == 0 || len(res.Lines) > 2 {
		t.Fatalf("lines = %d", len(res.Lines))
	}
	if !res.Overflow {
		for _, ln := range res.Lines {
			if ln.Width > 30+1e-9 {
				t.Fatalf("line %q is %g mm wide", ln.Content, ln.Width)
			}
		}
	}
}

func buildDocument(t *testing.T, r *Renderer, kind layout.FaceKind, n int) *layout.Document {
	t.Helper()
	cfg := layout.DefaultConfig()
	cfg.Guides = true
	tracks := make([]track.Track, n)
	for i := range tracks {
		tracks[i] = track.Sample()
	}
	tracks[0] = track.Track{}
	results, err := layout.Resolve(context.Background(), tracks, []layout.FaceKind{kind}, cfg, layout.BuildOptions{Typesetter: r})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	doc, err := layout.BuildDocument(layout.Faces(results, kind, false), kind, cfg, layout.DocumentMeta{Author: "tester"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return doc
}

func TestRenderProducesPDF(t *testing.T) {
	r := NewRenderer("")
	for _, kind := range []layout.FaceKind{layout.FaceFront, layout.FaceBack} {
		doc := buildDocument(t, r, kind, 30)
		if len(doc.Pages) != 2 {
			t.Fatalf("%s: pages = %d", kind, len(doc.Pages))
		}
		out, err := r.Render(doc)
		if err != nil {
			t.Fatalf("%s: render: %v", kind, err)
		}
		if !bytes.HasPrefix(out, []byte("%PDF")) {
			t.Fatalf("%s: output is not a PDF", kind)
		}
	}
}

func TestRenderRejectsUnavailableFont(t *testing.T) {
	r := NewRenderer("")
	doc := buildDocument(t, r, layout.FaceBack, 2)
	doc.Fonts[layout.FontArtist] = layout.FontResource{Name: "Ghost", Src: "embed:Ghost-Bold.ttf"}
	if _, err := r.Render(doc); !errors.Is(err, ErrFontUnavailable) {
		t.Fatalf("expected ErrFontUnavailable, got %v", err)
	}
}

func TestRenderEmptyDocument(t *testing.T) {
	r := NewRenderer("")
	if _, err := r.Render(&layout.Document{}); !errors.Is(err, layout.ErrNoFaces) {
		t.Fatalf("expected ErrNoFaces, got %v", err)
	}
	if _, err := r.Render(nil); err == nil {
		t.Fatalf("expected error for nil document")
	}
}

func TestRenderFaceSVG(t *testing.T) {
	r := NewRenderer("")
	cfg := layout.DefaultConfig()
	cfg.Theme = layout.ThemeVinyl
	face, err := layout.RenderFace(track.Sample(), layout.FaceBack, cfg, layout.BuildOptions{Typesetter: r})
	if err != nil {
		t.Fatalf("render face: %v", err)
	}
	out, err := r.RenderFace(face, cfg.Fonts.Map())
	if err != nil {
		t.Fatalf("svg: %v", err)
	}
	if !strings.Contains(string(out), "<svg") {
		t.Fatalf("output is not an SVG: %.60s", out)
	}
}

func TestParseFontStyle(t *testing.T) {
	if parseFontStyle("Bold") != canvas.FontBold {
		t.Fatalf("bold not parsed")
	}
	if parseFontStyle("medium italic")&canvas.FontItalic == 0 {
		t.Fatalf("italic bit missing")
	}
}
