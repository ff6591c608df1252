package index

import "bolivia-cpi/internal/parser"

// Point is one day of a city's index series. Valid distinguishes a real
// basket observation from a placeholder kept for date continuity: invalid
// points never serve as the base period, as an inflation basis, or as a
// national contribution.
type Point struct {
	Date      string             `json:"date"`
	Index     float64            `json:"index"`
	Inflation float64            `json:"inflation"`
	Details   map[string]float64 `json:"details"` // official category -> contribution index
	Valid     bool               `json:"valid"`
}

// Builder turns daily category prices into an index series using the
// injected raw-to-official mapping and official basket weights.
type Builder struct {
	mapping map[string]string
	weights map[string]float64
}

func NewBuilder(mapping map[string]string, weights map[string]float64) *Builder {
	return &Builder{mapping: mapping, weights: weights}
}

type basketDay struct {
	date    string
	total   float64
	details map[string]float64
}

// Build produces the ordered index series for one city. The base period is
// the first day whose basket value is positive; that day's index is 100 by
// definition. An empty result signals insufficient data, not an error.
func (b *Builder) Build(records []parser.Record) []Point {
	days := AggregateDaily(records)
	if len(days) == 0 {
		return nil
	}

	baskets := make([]basketDay, 0, len(days))
	for _, day := range days {
		baskets = append(baskets, b.basketValue(day))
	}

	// Base period: first chronological day with a positive basket value.
	baseValue := 0.0
	for _, day := range baskets {
		if day.total > 0 {
			baseValue = day.total
			break
		}
	}
	if baseValue == 0 {
		return nil
	}

	points := make([]Point, 0, len(baskets))
	for _, day := range baskets {
		if day.total == 0 {
			// Keep the date in the series but mark it as carrying no data.
			points = append(points, Point{Date: day.date, Details: map[string]float64{}})
			continue
		}

		details := make(map[string]float64, len(day.details))
		for official, contribution := range day.details {
			details[official] = (contribution / baseValue) * 100
		}
		points = append(points, Point{
			Date:    day.date,
			Index:   (day.total / baseValue) * 100,
			Details: details,
			Valid:   true,
		})
	}

	ApplyInflation(points)
	return points
}

// basketValue sums weight[official] x geometric mean over the raw
// categories with a known official mapping. Unmapped categories contribute
// nothing; that filtering is intentional.
func (b *Builder) basketValue(day CategoryDay) basketDay {
	out := basketDay{date: day.Date, details: make(map[string]float64)}
	for rawCategory, meanPrice := range day.Prices {
		official, ok := b.mapping[rawCategory]
		if !ok {
			continue
		}
		weight, ok := b.weights[official]
		if !ok {
			continue
		}
		contribution := weight * meanPrice
		out.total += contribution
		out.details[official] += contribution
	}
	return out
}

// ApplyInflation fills period-over-period inflation from consecutive index
// values: ((index_i - index_{i-1}) / index_{i-1}) x 100, computed only when
// the preceding index is positive. It is a pure function of the index
// sequence, so reapplying it reproduces the same series.
func ApplyInflation(points []Point) {
	for i := 1; i < len(points); i++ {
		prev := points[i-1].Index
		if prev > 0 {
			points[i].Inflation = ((points[i].Index - prev) / prev) * 100
		} else {
			points[i].Inflation = 0
		}
	}
}
