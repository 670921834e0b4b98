package text

import "testing"

func TestGlyphFallback(t *testing.T) {
	if Glyph('é') != Glyph('?') {
		t.Error("expected non-ASCII rune to use the ? glyph")
	}
	if Glyph(' ') != ([8]byte{}) {
		t.Error("expected blank space glyph")
	}
	if Glyph('A') == ([8]byte{}) {
		t.Error("expected A to have pixels")
	}
}

func TestBounds(t *testing.T) {
	tests := []struct {
		text           string
		scale          int
		wantX1, wantY1 int
	}{
		{"abc", 1, 24, 8},
		{"abc", 2, 48, 16},
		{"ab\nlonger", 1, 48, 16},
		{"", 3, 0, 24},
		{"x", 0, 8, 8},
	}
	for _, tt := range tests {
		x0, y0, x1, y1 := Bounds(0, 0, tt.text, tt.scale)
		if x0 != 0 || y0 != 0 || x1 != tt.wantX1 || y1 != tt.wantY1 {
			t.Errorf("Bounds(%q, %d) = %d,%d,%d,%d; want 0,0,%d,%d",
				tt.text, tt.scale, x0, y0, x1, y1, tt.wantX1, tt.wantY1)
		}
	}
}
