package dsl_test

import (
	"strings"
	"testing"

	"github.com/SlawomirKedra/qr-song-card/dsl"
)

const sampleDeck = `
// 派对歌单
deck PartyMix {
  meta {
    title: "Party Mix"
    keywords: [
      "party"
      "2024"
    ]
  }

  layout {
    columns: 4
    margin: 4mm; theme: bw-dotgrid
    ink: #222
    guides: true
  }

  font title {
    src: "embed:Go-Italic.ttf"
  }

  # 第一首
  track { title: "Smooth Operator" artist: "Sade" year: 1984 url: "https://open.spotify.com/track/x" }
  track {
    title: "Smells Like Teen Spirit"
    artist: "Nirvana"
  }
}
`

func TestParseDeck(t *testing.T) {
	f, err := dsl.ParseString(sampleDeck)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if f.Name != "PartyMix" {
		t.Fatalf("expected deck name PartyMix, got %s", f.Name)
	}
	if len(f.Sections) != 5 {
		t.Fatalf("expected 5 sections, got %d", len(f.Sections))
	}
	kinds := make([]string, 0, len(f.Sections))
	for _, s := range f.Sections {
		kinds = append(kinds, s.Kind())
	}
	if got := strings.Join(kinds, ","); got != "meta,layout,font,track,track" {
		t.Fatalf("unexpected section order: %s", got)
	}

	meta := f.Sections[0].Meta
	title, ok := meta.Block.Get("title")
	if !ok || title.Text() != "Party Mix" {
		t.Fatalf("expected title Party Mix, got %+v", title)
	}
	keywords, ok := meta.Block.Get("keywords")
	if !ok || keywords.Array == nil || len(keywords.Array.Values) != 2 {
		t.Fatalf("expected 2 keywords, got %+v", keywords)
	}

	layout := f.Sections[1].Layout.Block
	checks := map[string]string{"columns": "4", "margin": "4mm", "theme": "bw-dotgrid", "ink": "#222", "guides": "true"}
	for key, want := range checks {
		v, ok := layout.Get(key)
		if !ok || v.Text() != want {
			t.Fatalf("layout %s = %q, want %q", key, v.Text(), want)
		}
	}
	if v, _ := layout.Get("ink"); v.Color == nil {
		t.Fatalf("ink should lex as a colour")
	}

	font := f.Sections[2].Font
	if font.Role != "title" {
		t.Fatalf("font role = %s", font.Role)
	}

	first := f.Sections[3].Track.Block
	if len(first.Assignments) != 4 {
		t.Fatalf("single-line track should have 4 fields, got %d", len(first.Assignments))
	}
	if year, _ := first.Get("year"); year.Number == nil || *year.Number != "1984" {
		t.Fatalf("year should be a number, got %+v", year)
	}
	if _, ok := f.Sections[4].Track.Block.Get("url"); ok {
		t.Fatalf("second track has no url")
	}
}

func TestLastAssignmentWins(t *testing.T) {
	f, err := dsl.ParseString(`deck d { layout { columns: 4; columns: 5 } }`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	v, _ := f.Sections[0].Layout.Block.Get("columns")
	if v.Text() != "5" {
		t.Fatalf("columns = %s", v.Text())
	}
}

func TestParseErrors(t *testing.T) {
	bad := []string{
		`doc Cards v1 {}`,
		`deck d { page A4 {} }`,
		`deck d { track { title "missing colon" } }`,
	}
	for _, src := range bad {
		if _, err := dsl.ParseString(src); err == nil {
			t.Fatalf("expected parse error for %q", src)
		}
	}
}
