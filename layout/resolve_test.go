package layout

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/SlawomirKedra/qr-song-card/qrcode"
	"github.com/SlawomirKedra/qr-song-card/track"
)

func manyTracks(n int) []track.Track {
	out := make([]track.Track, n)
	for i := range out {
		out[i] = track.Track{
			ID:     fmt.Sprintf("id-%02d", i),
			Title:  fmt.Sprintf("Song %d", i),
			Artist: "Band",
			Year:   "2001",
			URL:    fmt.Sprintf("https://example.com/track/%d", i),
		}
	}
	return out
}

func TestResolveKeepsSourceOrder(t *testing.T) {
	tracks := manyTracks(20)
	opts := testOptions()
	opts.Workers = 3
	results, err := Resolve(context.Background(), tracks, []FaceKind{FaceFront, FaceBack}, DefaultConfig(), opts)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(results) != len(tracks) {
		t.Fatalf("got %d results", len(results))
	}
	for i, r := range results {
		if r.Track.ID != tracks[i].ID || r.Front.Index != i || r.Back.Index != i || r.Front.TrackID != tracks[i].ID {
			t.Fatalf("slot %d holds %+v", i, r.Track)
		}
		if r.FrontErr != nil || r.BackErr != nil {
			t.Fatalf("slot %d: %v %v", i, r.FrontErr, r.BackErr)
		}
	}
}

func TestResolveUsesFaceCache(t *testing.T) {
	tracks := manyTracks(4)
	dup := tracks[0]
	dup.ID = "dup"
	tracks = append(tracks, dup)

	opts := testOptions()
	opts.Cache = NewFaceCache(64)
	kinds := []FaceKind{FaceFront, FaceBack}
	results, err := Resolve(context.Background(), tracks, kinds, DefaultConfig(), opts)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if opts.Cache.Len() != 4*2 {
		t.Fatalf("cache len = %d, want 8 (identical content shares entries)", opts.Cache.Len())
	}
	if results[4].Front.TrackID != "dup" || results[4].Front.Index != 4 {
		t.Fatalf("cached face must carry its own track id and index: %+v", results[4].Front)
	}
	if results[0].Front.TrackID != tracks[0].ID {
		t.Fatalf("cached face header leaked between tracks")
	}

	if _, err := Resolve(context.Background(), tracks, kinds, DefaultConfig(), opts); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if opts.Cache.Len() != 8 {
		t.Fatalf("second pass should hit cache, len = %d", opts.Cache.Len())
	}

	cfg := DefaultConfig()
	cfg.Columns = 4
	if _, err := Resolve(context.Background(), tracks, kinds, cfg, opts); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if opts.Cache.Len() != 16 {
		t.Fatalf("config change must miss the cache, len = %d", opts.Cache.Len())
	}
}

func TestResolveIsolatesCardFailures(t *testing.T) {
	tracks := manyTracks(3)
	tracks[1].URL = strings.Repeat("a", 3000)
	results, err := Resolve(context.Background(), tracks, []FaceKind{FaceFront, FaceBack}, DefaultConfig(), testOptions())
	if err != nil {
		t.Fatalf("one failing card must not abort: %v", err)
	}
	if !errors.Is(results[1].FrontErr, qrcode.ErrCapacityExceeded) || results[1].Back == nil {
		t.Fatalf("slot 1: front err %v, back %v", results[1].FrontErr, results[1].Back)
	}

	fronts := Faces(results, FaceFront, true)
	if len(fronts) != 2 || fronts[0].Index != 0 || fronts[1].Index != 2 {
		t.Fatalf("fronts = %d", len(fronts))
	}
	if backs := Faces(results, FaceBack, true); len(backs) != 2 {
		t.Fatalf("paired backs should skip the track without a front, got %d", len(backs))
	}
	if backs := Faces(results, FaceBack, false); len(backs) != 3 {
		t.Fatalf("unpaired backs keep every resolved back, got %d", len(backs))
	}
}

func TestResolveRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Columns = 0
	if _, err := Resolve(context.Background(), manyTracks(1), []FaceKind{FaceFront}, cfg, testOptions()); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestResolveHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Resolve(ctx, manyTracks(5), []FaceKind{FaceFront}, DefaultConfig(), testOptions()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestResolveListDiscardsStaleResults(t *testing.T) {
	list := track.NewList(manyTracks(3)...)
	var once sync.Once
	opts := testOptions()
	opts.Typesetter = &stubTypesetter{onMeasure: func() {
		once.Do(func() { list.Add(track.Track{Title: "late"}) })
	}}
	if _, err := ResolveList(context.Background(), list, []FaceKind{FaceBack}, DefaultConfig(), opts); !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}

	results, err := ResolveList(context.Background(), list, []FaceKind{FaceBack}, DefaultConfig(), opts)
	if err != nil {
		t.Fatalf("unchanged list should resolve: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("got %d results", len(results))
	}
}

func TestBuildDocument(t *testing.T) {
	cfg := DefaultConfig()
	results, err := Resolve(context.Background(), manyTracks(40), []FaceKind{FaceFront}, cfg, testOptions())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	doc, err := BuildDocument(Faces(results, FaceFront, false), FaceFront, cfg, DocumentMeta{Author: "tester"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if doc.Filename != "qr-song-cards-front-5col.pdf" {
		t.Fatalf("filename = %q", doc.Filename)
	}
	if len(doc.Pages) != 2 || len(doc.Pages[1].Placements) != 5 {
		t.Fatalf("pages = %d", len(doc.Pages))
	}
	if doc.Meta.Author != "tester" || doc.Meta.Title == "" || !containsString(doc.Meta.Keywords, "front") {
		t.Fatalf("meta = %+v", doc.Meta)
	}
	if _, ok := doc.Fonts[FontYear]; !ok {
		t.Fatalf("document must carry font table")
	}

	if _, err := BuildDocument(nil, FaceBack, cfg, DocumentMeta{}); !errors.Is(err, ErrNoFaces) {
		t.Fatalf("expected ErrNoFaces, got %v", err)
	}
	// 只有正面时请求背面同样没有可用卡片
	if _, err := BuildDocument(Faces(results, FaceFront, false), FaceBack, cfg, DocumentMeta{}); !errors.Is(err, ErrNoFaces) {
		t.Fatalf("expected ErrNoFaces, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "doc.json")
	if err := WriteDebugJSON(doc, path); err != nil {
		t.Fatalf("debug json: %v", err)
	}
	if st, err := os.Stat(path); err != nil || st.Size() == 0 {
		t.Fatalf("debug json not written: %v", err)
	}
}

func containsString(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
