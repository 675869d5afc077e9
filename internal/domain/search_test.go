package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestNewSearchQuery(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		source  string
		wantErr error
	}{
		{"valid", "quantum computing", "all", nil},
		{"valid default source", "crispr", "", nil},
		{"too short", "q", "all", ErrInvalidQuery},
		{"empty", "", "all", ErrInvalidQuery},
		{"whitespace only", "     ", "all", ErrInvalidQuery},
		{"too long", strings.Repeat("a", 201), "all", ErrInvalidQuery},
		{"max length ok", strings.Repeat("a", 200), "all", nil},
		{"bad source", "quantum computing", "scholar", ErrInvalidSource},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q, err := NewSearchQuery(tc.text, tc.source)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if err == nil && q.Text != strings.TrimSpace(tc.text) {
				t.Errorf("Text = %q, want trimmed input", q.Text)
			}
		})
	}
}

func TestNewSearchQuery_TrimsBeforeLengthCheck(t *testing.T) {
	// "  a  " trims to one char, which is below the minimum.
	if _, err := NewSearchQuery("  a  ", "all"); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("err = %v, want ErrInvalidQuery", err)
	}
}
