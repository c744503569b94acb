package textutil

import (
	"strings"
	"testing"
)

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"dQw4w9WgXcQ", "dqw4w9wgxcq"},
		{"https://x.com/a/status/1", "https___x_com_a_status_1"},
		{"720p", "720p"},
		{"  ", "unknown"},
		{"???", "unknown"},
	}
	for _, tt := range tests {
		if got := SanitizeToken(tt.input); got != tt.expected {
			t.Errorf("SanitizeToken(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Never Gonna Give You Up (Official Video)", "Never_Gonna_Give_You_Up_Official_Video"},
		{"Café  au lait - part 2", "Cafe_au_lait_-_part_2"},
		{"  spaced\tout  ", "spaced_out"},
		{"日本語", "video"},
		{"", "video"},
	}
	for _, tt := range tests {
		if got := SanitizeTitle(tt.input); got != tt.expected {
			t.Errorf("SanitizeTitle(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestSanitizeTitleTruncates(t *testing.T) {
	got := SanitizeTitle(strings.Repeat("a", 150))
	if len(got) != MaxTitleLength {
		t.Fatalf("expected %d chars, got %d", MaxTitleLength, len(got))
	}
}
