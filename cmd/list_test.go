package cmd

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{"shorter than limit", "sunset", 40, "sunset"},
		{"exactly at limit", strings.Repeat("a", 40), 40, strings.Repeat("a", 40)},
		{"over limit", strings.Repeat("a", 41), 40, strings.Repeat("a", 37) + "..."},
		{"empty", "", 40, ""},
	}

	for _, tc := range cases {
		if got := truncate(tc.input, tc.max); got != tc.expected {
			t.Errorf("%s: expected %q, got %q", tc.name, tc.expected, got)
		}
	}
}

func TestTruncate_CutsOnRunesNotBytes(t *testing.T) {
	// 40 two-byte runes: a byte slice at 37 would split one in half.
	caption := strings.Repeat("č", 41)

	got := truncate(caption, 40)
	if !utf8.ValidString(got) {
		t.Fatalf("truncation produced invalid UTF-8: %q", got)
	}
	expected := strings.Repeat("č", 37) + "..."
	if got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}
