// Package exchange loads the parallel-market USDT quote series published
// alongside the price data. The series is a correlation reference only; no
// currency conversion is performed anywhere in the pipeline.
package exchange

import (
	"context"
	"errors"
	"strings"

	"bolivia-cpi/internal/parser"
)

// Rate is one day's parallel-market quote in bolivianos per USDT.
type Rate struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Fetcher is the retrieval capability the loader needs.
type Fetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// Load tries each candidate URL until one yields a usable series. The
// dataset has moved between repository layouts before, hence the fallback
// list. A 200 response carrying an HTML error page is rejected.
func Load(ctx context.Context, f Fetcher, urls []string) ([]Rate, error) {
	for _, url := range urls {
		text, err := f.FetchText(ctx, url)
		if err != nil {
			continue
		}
		if len(text) < 20 || strings.HasPrefix(strings.TrimSpace(text), "<") {
			continue
		}
		if rates := Parse(text); len(rates) > 0 {
			return rates, nil
		}
	}
	return nil, errors.New("exchange series unavailable from all candidate sources")
}

// Parse extracts (date, value) pairs from the quote CSV. The first column
// is the date, the second the quote; a header row is detected by its
// non-numeric second column. Rows that fail to parse are skipped.
func Parse(content string) []Rate {
	delimiter := parser.DetectDelimiter(content)

	var rates []Rate
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		cols := parser.SplitLine(line, delimiter)
		if len(cols) < 2 {
			continue
		}
		value, err := parser.ParsePrice(cols[1])
		if err != nil {
			continue
		}
		date := cols[0]
		if !strings.Contains(date, "-") && !strings.Contains(date, "/") {
			continue
		}
		rates = append(rates, Rate{Date: date, Value: value})
	}
	return rates
}
