// Package index computes per-city price index series: daily geometric-mean
// prices per raw category, a weighted basket value per day, and an index
// rebased to 100 at the first valid day.
package index

import (
	"math"
	"sort"

	"bolivia-cpi/internal/parser"
)

// CategoryDay holds the geometric-mean price of every raw category observed
// on one day. Categories with no valid records are absent, not zero.
type CategoryDay struct {
	Date   string
	Prices map[string]float64
}

// GeometricMean returns exp(mean(ln(p))) over the given prices. Retail
// prices are strictly positive and proportionally distributed, so a single
// mispriced item cannot dominate the way it would an arithmetic mean.
func GeometricMean(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	var sumLn float64
	for _, p := range prices {
		sumLn += math.Log(p)
	}
	return math.Exp(sumLn / float64(len(prices)))
}

// AggregateDaily groups records by (date, raw category) and reduces each
// group to its geometric mean. Records without a date or with a
// non-positive price are discarded. Output is ordered by date ascending.
func AggregateDaily(records []parser.Record) []CategoryDay {
	grouped := make(map[string]map[string][]float64)
	for _, r := range records {
		if r.Date == "" || r.Price <= 0 {
			continue
		}
		byCategory, ok := grouped[r.Date]
		if !ok {
			byCategory = make(map[string][]float64)
			grouped[r.Date] = byCategory
		}
		byCategory[r.Category] = append(byCategory[r.Category], r.Price)
	}

	dates := make([]string, 0, len(grouped))
	for date := range grouped {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	days := make([]CategoryDay, 0, len(dates))
	for _, date := range dates {
		prices := make(map[string]float64, len(grouped[date]))
		for category, observed := range grouped[date] {
			prices[category] = GeometricMean(observed)
		}
		days = append(days, CategoryDay{Date: date, Prices: prices})
	}
	return days
}
