package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractPrice(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int64
		ok    bool
	}{
		{"formatted", "Rp 1.234.567", 1234567, true},
		{"no prefix", "2.890.000", 2890000, true},
		{"no space", "Rp1.610.000", 1610000, true},
		{"non breaking space", "Rp\u00a01.610.000", 1610000, true},
		{"dash", "-", 0, false},
		{"empty", "", 0, false},
		{"below range", "Rp 50.000", 0, false},
		{"lower bound is exclusive", "Rp 100.000", 0, false},
		{"upper bound is exclusive", "Rp 1.000.000.000", 0, false},
		{"letters", "Rp 1.2a4.567", 0, false},
		{"decimal comma", "Rp 1.234.567,00", 0, false},
		{"only prefix", "Rp ", 0, false},
		{"negative", "-1.234.567", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractPrice(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractPriceRoundTrip(t *testing.T) {
	for _, n := range []int64{100_001, 999_999, 1_000_000, 1_234_567, 45_000_000, 999_999_999} {
		formatted := FormatPrice(n)
		got, ok := ExtractPrice(formatted)
		assert.True(t, ok, formatted)
		assert.Equal(t, n, got, formatted)
	}
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "Rp 1.234.567", FormatPrice(1234567))
	assert.Equal(t, "Rp 100.001", FormatPrice(100001))
	assert.Equal(t, "Rp 999", FormatPrice(999))
}
