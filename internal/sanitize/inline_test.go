package sanitize

import (
	"strings"
	"testing"
)

func TestInline_ControlCharacters(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		reject string
	}{
		{"null byte", "test\x00evil.ts", "\x00"},
		{"newline injection", "test\nevil.ts", "\n"},
		{"carriage return", "test\revil.ts", "\r"},
		{"tab", "test\tevil.ts", "\t"},
		{"bell", "test\x07evil.ts", "\x07"},
		{"escape", "test\x1bevil.ts", "\x1b"},
		{"DEL", "test\x7fevil.ts", "\x7f"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Inline(tt.input, 0)
			if strings.Contains(result, tt.reject) {
				t.Errorf("Inline should strip %q, got %q", tt.reject, result)
			}
		})
	}
}

func TestInline_Truncation(t *testing.T) {
	long := strings.Repeat("a", 500)
	result := Inline(long, 120)
	if len(result) != 123 {
		t.Errorf("expected 120 chars plus ellipsis, got len=%d", len(result))
	}
	if !strings.HasSuffix(result, "...") {
		t.Error("expected truncated text to end with ...")
	}
}

func TestInline_NoTruncationWhenMaxZero(t *testing.T) {
	long := strings.Repeat("a", 500)
	if got := Inline(long, 0); len(got) != 500 {
		t.Errorf("max=0 should not truncate, got len=%d", len(got))
	}
}

func TestInline_Empty(t *testing.T) {
	if result := Inline("", 120); result != "" {
		t.Errorf("expected empty for empty input, got %q", result)
	}
	if result := Inline("   ", 120); result != "" {
		t.Errorf("expected empty for whitespace input, got %q", result)
	}
}

func TestInline_PreservesNormalCode(t *testing.T) {
	tests := []string{
		"app/api/orders/route.ts",
		"await db.orders.create({ data: body })",
		"file with spaces.ts",
	}
	for _, in := range tests {
		if got := Inline(in, 0); got != in {
			t.Errorf("Inline(%q) = %q, want unchanged", in, got)
		}
	}
}
