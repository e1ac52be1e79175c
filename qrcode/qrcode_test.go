package qrcode

import (
	"errors"
	"strings"
	"testing"
)

const sadeURL = "https://open.spotify.com/track/4Tyv7X6Y2P2fN0v9omwCWo"

func TestEncodeDeterministic(t *testing.T) {
	a, err := Encode(sadeURL, "", LevelM)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	b, err := Encode(sadeURL, "", LevelM)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if a.Size() != b.Size() {
		t.Fatalf("size mismatch: %d vs %d", a.Size(), b.Size())
	}
	for r := 0; r < a.Size(); r++ {
		for c := 0; c < a.Size(); c++ {
			if a.IsDark(r, c) != b.IsDark(r, c) {
				t.Fatalf("module (%d,%d) differs", r, c)
			}
		}
	}
	if a.Payload != sadeURL {
		t.Fatalf("payload = %q", a.Payload)
	}
}

func TestEncodeFinderPatternCorner(t *testing.T) {
	m, err := Encode("hello", "", LevelM)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if m.Size() < 21 || (m.Size()-21)%4 != 0 {
		t.Fatalf("unexpected QR size %d", m.Size())
	}
	// 左上角定位图形：外圈 7x7 深色边框，内部第二圈浅色
	if !m.IsDark(0, 0) || !m.IsDark(6, 6) || !m.IsDark(0, 6) {
		t.Fatalf("finder pattern outer ring should be dark")
	}
	if m.IsDark(1, 1) || m.IsDark(5, 5) {
		t.Fatalf("finder pattern inner ring should be light")
	}
	if !m.IsDark(3, 3) {
		t.Fatalf("finder pattern center should be dark")
	}
	if m.IsDark(-1, 0) || m.IsDark(0, m.Size()) {
		t.Fatalf("out of range modules must be light")
	}
}

func TestEncodeEmptyUsesFallback(t *testing.T) {
	m, err := Encode("", " - ", LevelM)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if m.Payload != " - " {
		t.Fatalf("payload = %q, want fallback", m.Payload)
	}
}

func TestEncodeCapacityExceeded(t *testing.T) {
	long := strings.Repeat("a", 2500)
	if _, err := Encode(long, "", LevelM); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded at M, got %v", err)
	}
	if _, err := Encode(long, "", LevelL); err != nil {
		t.Fatalf("2500 bytes should fit at L: %v", err)
	}
	if _, err := Encode(strings.Repeat("a", 3000), "", LevelL); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded at L, got %v", err)
	}
}

func TestCapacityErrorOmitsPayload(t *testing.T) {
	long := "https://example.com/" + strings.Repeat("x", 5000)
	_, err := Encode(long, "", LevelL)
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	msg := err.Error()
	if strings.Contains(msg, "xxxxxxxx") || len(msg) > 200 {
		t.Fatalf("error message should not carry the payload, got %d bytes", len(msg))
	}
	if !strings.Contains(msg, "5020") || !strings.Contains(msg, "L") {
		t.Fatalf("error message should name size and level, got %q", msg)
	}
}

func TestEncoderCaches(t *testing.T) {
	enc := NewEncoder(4)
	a, err := enc.Encode(sadeURL, "", LevelM)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	b, err := enc.Encode(sadeURL, "", LevelM)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if a != b {
		t.Fatalf("expected cached matrix pointer")
	}
	if _, err := enc.Encode(sadeURL, "", LevelH); err != nil {
		t.Fatalf("encode H: %v", err)
	}
	if enc.Len() != 2 {
		t.Fatalf("cache len = %d, want 2", enc.Len())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"", LevelM, true},
		{"l", LevelL, true},
		{"Q", LevelQ, true},
		{" h ", LevelH, true},
		{"x", LevelM, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err == nil) != tt.ok {
				t.Fatalf("ParseLevel(%q) err = %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("ParseLevel(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
	if l, ok := LevelL.Lower(); ok || l != LevelL {
		t.Fatalf("L has no lower level")
	}
	if l, ok := LevelH.Lower(); !ok || l != LevelQ {
		t.Fatalf("H lowers to Q")
	}
}
