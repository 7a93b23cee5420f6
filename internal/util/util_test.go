package util_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/util"
)

// ─── Dates ────────────────────────────────────────────────────────────────────

func TestParseDate(t *testing.T) {
	d, err := util.ParseDate(" 2024-02-29 ")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if util.FormatDate(d) != "2024-02-29" {
		t.Errorf("FormatDate: expected %q, got %q", "2024-02-29", util.FormatDate(d))
	}
	for _, bad := range []string{"", "2024-2-1", "2023-02-29", "01/02/2024"} {
		if _, err := util.ParseDate(bad); err == nil {
			t.Errorf("ParseDate(%q): expected error", bad)
		}
	}
}

func TestParseRange(t *testing.T) {
	f, to, err := util.ParseRange("2024-01-01", "2024-01-01")
	if err != nil {
		t.Fatalf("ParseRange: %v", err)
	}
	if !f.Equal(to) {
		t.Errorf("single-day range: expected equal bounds, got %s..%s", f, to)
	}
	if _, _, err := util.ParseRange("2024-02-01", "2024-01-01"); err == nil {
		t.Error("reversed range: expected error")
	}
	if _, _, err := util.ParseRange("2024-01-01", "soon"); err == nil {
		t.Error("malformed to: expected error")
	}
}

// ─── FormatValue ──────────────────────────────────────────────────────────────

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{1234, "1234"},
		{-7, "-7"},
		{3.14159, "3.14"},
		{0.5, "0.50"},
		{math.NaN(), "."},
	}
	for _, tt := range tests {
		if got := util.FormatValue(tt.in); got != tt.want {
			t.Errorf("FormatValue(%v): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

// ─── MultiError ───────────────────────────────────────────────────────────────

func TestMultiError(t *testing.T) {
	var m util.MultiError
	if m.Err() != nil {
		t.Error("empty MultiError must yield nil")
	}
	sentinel := errors.New("facebook: not found")
	m.Add(nil)
	m.Add(errors.New("google: timeout"))
	m.Add(sentinel)
	err := m.Err()
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "google: timeout; facebook: not found") {
		t.Errorf("message: got %q", err.Error())
	}
	if !errors.Is(err, sentinel) {
		t.Error("errors.Is: expected to find the collected error")
	}
}
