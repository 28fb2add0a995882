package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"go.uber.org/zap"
)

func TestTruncateText(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	tests := []struct {
		name    string
		text    string
		maxSize int
		want    string
	}{
		{"under limit", "hello", 10, "hello"},
		{"at limit", "hello", 5, "hello"},
		{"over limit", "hello world", 5, "hello"},
		{"no limit", "hello", 0, "hello"},
		{"negative limit", "hello", -1, "hello"},
		{"empty", "", 5, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tp.TruncateText(tt.text, tt.maxSize); got != tt.want {
				t.Errorf("TruncateText(%q, %d) = %q, want %q", tt.text, tt.maxSize, got, tt.want)
			}
		})
	}
}

func TestTruncateTextDoesNotSplitRunes(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	// A multi-byte rune straddling the cut point must be dropped whole.
	text := "abécd" // é is two bytes
	got := tp.TruncateText(text, 3)
	if !utf8.ValidString(got) {
		t.Errorf("truncated text is not valid UTF-8: %q", got)
	}
	if got != "ab" {
		t.Errorf("TruncateText = %q, want %q", got, "ab")
	}
}

func TestSanitizeUTF8(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	if got := tp.SanitizeUTF8("clean text"); got != "clean text" {
		t.Errorf("SanitizeUTF8(clean) = %q", got)
	}

	dirty := "ok\xff\xfealso ok"
	got := tp.SanitizeUTF8(dirty)
	if !utf8.ValidString(got) {
		t.Errorf("output not valid UTF-8: %q", got)
	}
	if !strings.Contains(got, "ok") || !strings.Contains(got, "also ok") {
		t.Errorf("valid content lost: %q", got)
	}
}

func TestProcessText(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	got := tp.ProcessText("hello \xffworld and more", 11)
	if !utf8.ValidString(got) {
		t.Errorf("output not valid UTF-8: %q", got)
	}
	if len(got) > 11 {
		t.Errorf("length %d exceeds limit", len(got))
	}
}
