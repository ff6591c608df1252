// Package national combines per-city index series into the composite CPI
// dataset: a weighted national series with MoM and YoY inflation plus the
// summary scalars consumed by the presentation layer.
package national

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"bolivia-cpi/internal/config"
	"bolivia-cpi/internal/index"
)

// fullWeightThreshold is the tolerance below which partial city coverage is
// rescaled back to a full-weight basis. Weight sums carry float rounding,
// so "all cities present" is anything at or above this value.
const fullWeightThreshold = 0.999

// yoyTolerance bounds how far the year-ago anchor may sit from the exact
// calendar target, accounting for weekends and sampling gaps.
const yoyTolerance = 7 * 24 * time.Hour

// CitySeries pairs a city with its computed index series.
type CitySeries struct {
	CityID string
	Points []index.Point
}

// Point is one day of the national series.
type Point struct {
	Date      string             `json:"date"`
	Index     float64            `json:"index"`
	Inflation float64            `json:"inflation"`
	Cities    map[string]float64 `json:"cities"` // city display name -> index
}

// Dataset is the final artifact of the pipeline, immutable once produced.
type Dataset struct {
	Points           []Point                  `json:"points"`
	CurrentIndex     float64                  `json:"current_index"`
	CurrentInflation float64                  `json:"current_inflation"`
	YoYInflation     float64                  `json:"yoy_inflation"`
	LastUpdated      string                   `json:"last_updated"`
	Categories       map[string]float64       `json:"categories"` // current weighted contribution per official category
	CityTrends       map[string][]index.Point `json:"city_trends"`

	// Audit metadata
	RunID      uuid.UUID `json:"run_id"`
	ComputedAt time.Time `json:"computed_at"`
}

// Aggregate builds the national dataset from the per-city series and the
// fixed city weight table. The date axis is the union of dates on which at
// least one city has a valid index.
func Aggregate(series []CitySeries, cities []config.City) *Dataset {
	byCity := make(map[string]map[string]index.Point, len(series))
	for _, s := range series {
		points := make(map[string]index.Point, len(s.Points))
		for _, p := range s.Points {
			points[p.Date] = p
		}
		byCity[s.CityID] = points
	}

	dates := collectDates(series)

	points := make([]Point, 0, len(dates))
	for _, date := range dates {
		national := 0.0
		usedWeight := 0.0
		breakdown := make(map[string]float64)

		for _, city := range cities {
			p, ok := byCity[city.ID][date]
			if !ok || !p.Valid || p.Index <= 0 {
				continue
			}
			national += p.Index * city.Weight
			breakdown[city.Name] = p.Index
			usedWeight += city.Weight
		}

		// Rescale partial coverage back to a full-weight basis.
		if usedWeight > 0 && usedWeight < fullWeightThreshold {
			national /= usedWeight
		}

		points = append(points, Point{Date: date, Index: national, Cities: breakdown})
	}

	applyInflation(points)

	ds := &Dataset{
		Points:     points,
		Categories: map[string]float64{},
		CityTrends: make(map[string][]index.Point, len(series)),
		RunID:      uuid.New(),
		ComputedAt: time.Now().UTC(),
	}

	for _, s := range series {
		for _, city := range cities {
			if city.ID == s.CityID {
				ds.CityTrends[city.Name] = s.Points
			}
		}
	}

	if len(points) == 0 {
		return ds
	}

	last := points[len(points)-1]
	ds.CurrentIndex = last.Index
	ds.CurrentInflation = last.Inflation
	ds.LastUpdated = last.Date
	ds.YoYInflation = yearOverYear(points)
	ds.Categories = categorySnapshot(byCity, cities, last.Date)

	return ds
}

// collectDates returns the sorted union of dates with a valid city index.
func collectDates(series []CitySeries) []string {
	seen := make(map[string]struct{})
	for _, s := range series {
		for _, p := range s.Points {
			if p.Valid && p.Index > 0 {
				seen[p.Date] = struct{}{}
			}
		}
	}
	dates := make([]string, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// applyInflation mirrors the per-city recurrence on the national series.
func applyInflation(points []Point) {
	for i := 1; i < len(points); i++ {
		prev := points[i-1].Index
		if prev > 0 {
			points[i].Inflation = ((points[i].Index - prev) / prev) * 100
		}
	}
}

// yearOverYear anchors on the national point closest in absolute time to
// one calendar year before the latest point, accepted only within the
// tolerance and with a positive index. Returns 0 when no anchor qualifies.
func yearOverYear(points []Point) float64 {
	last := points[len(points)-1]
	lastDate, err := parseDate(last.Date)
	if err != nil {
		return 0
	}
	target := lastDate.AddDate(-1, 0, 0)

	var anchor *Point
	best := yoyTolerance
	for i := range points {
		t, err := parseDate(points[i].Date)
		if err != nil {
			continue
		}
		diff := t.Sub(target)
		if diff < 0 {
			diff = -diff
		}
		if diff <= best {
			best = diff
			anchor = &points[i]
		}
	}

	if anchor == nil || anchor.Index <= 0 {
		return 0
	}
	return ((last.Index / anchor.Index) - 1) * 100
}

// categorySnapshot re-weights each city's per-category contribution at the
// most recent date by that city's national weight. Unlike the main index,
// partial coverage is not renormalized here; the snapshot reflects only the
// cities reporting that day.
func categorySnapshot(byCity map[string]map[string]index.Point, cities []config.City, date string) map[string]float64 {
	snapshot := make(map[string]float64)
	for _, city := range cities {
		p, ok := byCity[city.ID][date]
		if !ok {
			continue
		}
		for category, value := range p.Details {
			snapshot[category] += value * city.Weight
		}
	}
	return snapshot
}

// dateLayouts covers the formats observed across file names and row-level
// date overrides.
var dateLayouts = []string{"2006-01-02", "2006/01/02", "02/01/2006"}

func parseDate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
