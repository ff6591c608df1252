package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePriceLocalizedFormats(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"1.234,56", 1234.56},
		{"12,50", 12.50},
		{"12.50", 12.50},
		{"Bs 45", 45},
		{"Bs. 1.200,50", 1200.50},
		{"  7  ", 7},
	}
	for _, tc := range cases {
		got, err := ParsePrice(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		assert.InDelta(t, tc.want, got, 1e-9, "input %q", tc.in)
	}
}

func TestParsePriceRejectsUnusable(t *testing.T) {
	for _, in := range []string{"", "abc", "Bs", "0", "0,00", "-12,50", "--"} {
		_, err := ParsePrice(in)
		assert.Error(t, err, "input %q", in)
	}
}
