package money

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"1", 100},
		{"12.5", 1250},
		{"12.50", 1250},
		{" 0.01 ", 1},
		{"100.000", 10_000},
		{"92233720368547758.07", 9223372036854775807},
		{"1e16", 1_000_000_000_000_000_000},
		{"1250e-2", 1250},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseRejects(t *testing.T) {
	for _, in := range []string{"", "  ", "abc", "0", "0.00", "-5", "-0.01", "0.001", "1e-3", "92233720368547758.08", "NaN",
		"1e17", "1e99999999", "1e-99999999", "0.5e-70", strings.Repeat("1", maxInputLen+1)} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrInvalidAmount, in)
	}
}

func TestParseHugeExponentIsCheap(t *testing.T) {
	start := time.Now()
	for _, in := range []string{"1e2147483647", "9e99999999", "1e-2147483648"} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrInvalidAmount, in)
	}
	assert.Less(t, time.Since(start), time.Second)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "0.00", Format(0))
	assert.Equal(t, "0.07", Format(7))
	assert.Equal(t, "12.50", Format(1250))
	assert.Equal(t, "-3.10", Format(-310))
}
