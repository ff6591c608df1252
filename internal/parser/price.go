package parser

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParsePrice normalizes a localized price string ("1.234,56", "12,50",
// "Bs 45") into a positive float. Currency symbols and whitespace are
// discarded. When both separators appear, dots are treated as thousands
// grouping and the comma as the decimal separator; a lone comma is a
// decimal separator.
func ParsePrice(raw string) (float64, error) {
	clean := strings.TrimSpace(strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9':
			return r
		case r == '.' || r == ',' || r == '-':
			return r
		default:
			return -1
		}
	}, raw))

	if clean == "" {
		return 0, fmt.Errorf("no numeric content in %q", raw)
	}

	hasComma := strings.Contains(clean, ",")
	hasDot := strings.Contains(clean, ".")
	switch {
	case hasComma && hasDot:
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.Replace(clean, ",", ".", 1)
	case hasComma:
		clean = strings.Replace(clean, ",", ".", 1)
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("unparseable price %q: %w", raw, err)
	}
	if d.Sign() <= 0 {
		return 0, fmt.Errorf("non-positive price %q", raw)
	}
	return d.InexactFloat64(), nil
}
