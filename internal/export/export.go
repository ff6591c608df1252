// Package export renders the computed dataset for downstream consumers:
// a CSV of the national series with per-city columns, a plain-text
// methodology document generated from the injected tables, and a terminal
// summary table.
package export

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"bolivia-cpi/internal/config"
	"bolivia-cpi/internal/national"
)

// CSV renders the national series. Missing city values render as empty
// cells, not zeros.
func CSV(ds *national.Dataset, cities []config.City) []byte {
	var b strings.Builder

	header := []string{"Date", "National CPI", "Inflation MoM%"}
	for _, city := range cities {
		header = append(header, city.Name)
	}
	b.WriteString(strings.Join(header, ","))
	b.WriteByte('\n')

	for _, p := range ds.Points {
		row := []string{p.Date, fixed2(p.Index), fixed2(p.Inflation)}
		for _, city := range cities {
			if v, ok := p.Cities[city.Name]; ok {
				row = append(row, fixed2(v))
			} else {
				row = append(row, "")
			}
		}
		b.WriteString(strings.Join(row, ","))
		b.WriteByte('\n')
	}

	return []byte(b.String())
}

// Table writes a short human-readable summary: the scalar figures and the
// trailing points of the national series.
func Table(w io.Writer, ds *national.Dataset, tail int) {
	fmt.Fprintf(w, "National CPI:    %s (base=100)\n", fixed2(ds.CurrentIndex))
	fmt.Fprintf(w, "MoM inflation:   %s%%\n", fixed2(ds.CurrentInflation))
	fmt.Fprintf(w, "YoY inflation:   %s%%\n", fixed2(ds.YoYInflation))
	fmt.Fprintf(w, "Last updated:    %s\n", ds.LastUpdated)
	fmt.Fprintf(w, "Run:             %s\n\n", ds.RunID)

	if len(ds.Categories) > 0 {
		fmt.Fprintln(w, "Category contributions (index points):")
		categories := make([]string, 0, len(ds.Categories))
		for c := range ds.Categories {
			categories = append(categories, c)
		}
		sort.Strings(categories)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, c := range categories {
			fmt.Fprintf(tw, "  %s\t%s\n", c, fixed2(ds.Categories[c]))
		}
		tw.Flush()
		fmt.Fprintln(w)
	}

	points := ds.Points
	if tail > 0 && len(points) > tail {
		points = points[len(points)-tail:]
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Date\tIndex\tMoM%")
	for _, p := range points {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Date, fixed2(p.Index), fixed2(p.Inflation))
	}
	tw.Flush()
}

// Methodology generates the methodology document from the live tables so
// it never drifts from what the pipeline actually computed with.
func Methodology(cfg *config.Config) string {
	var lines []string
	push := func(s string) { lines = append(lines, s) }

	push("BOLIVIA CPI TRACKER - METHODOLOGY & DATA STRUCTURE")
	push("=================================================")
	push("")
	push("1. DATA SOURCE")
	push("--------------")
	push("This tracker uses daily scraping data from Hipermaxi supermarkets in three cities:")
	for _, c := range cfg.Cities {
		push(fmt.Sprintf("- %s (Source: %s)", c.Name, c.Path))
	}
	push(fmt.Sprintf("Repository: https://github.com/%s/%s", cfg.Source.Owner, cfg.Source.Repo))
	push("")

	push("2. CALCULATION PIPELINE")
	push("-----------------------")
	push("Step A: Product Cleaning & Mapping")
	push("Raw product IDs are matched against a static product dictionary.")
	push("Products are assigned to standard supermarket categories, then mapped to Official Government Categories (see Section 5).")
	push("")
	push("Step B: Geometric Mean Aggregation")
	push("For every day and every category, we calculate the Geometric Mean of all available product prices.")
	push("Formula: exp( mean( log(price_i) ) )")
	push("This reduces the impact of outliers and high-variance items.")
	push("")
	push("Step C: Weighted Basket Construction")
	push("Category averages are weighted according to their official importance in the Bolivian consumer basket.")
	push("These weights are rescaled to sum to 100% for the specific subset of goods tracked (Food, Home Goods, etc).")
	push("")
	push("Step D: National Composite Index")
	push("The National CPI is a weighted average of the city indices.")
	push("")

	push("3. CITY WEIGHTS (National Aggregation)")
	push("--------------------------------------")
	for _, c := range cfg.Cities {
		push(fmt.Sprintf("%s: %s%%", c.Name, fixed2(c.Weight*100)))
	}
	push("")

	push("4. CATEGORY WEIGHTS (Rescaled for Basket)")
	push("-----------------------------------------")
	for _, official := range sortedKeys(cfg.CategoryWeights) {
		push(fmt.Sprintf("%s: %s%%", official, decimal.NewFromFloat(cfg.CategoryWeights[official]*100).StringFixed(1)))
	}
	push("")

	push("5. CATEGORY MAPPING (Supermarket -> Official)")
	push("---------------------------------------------")
	push("Raw Category                  | Official Category")
	push("------------------------------|------------------")
	raws := make([]string, 0, len(cfg.CategoryMapping))
	for raw := range cfg.CategoryMapping {
		raws = append(raws, raw)
	}
	sort.Strings(raws)
	for _, raw := range raws {
		push(fmt.Sprintf("%-30s | %s", raw, cfg.CategoryMapping[raw]))
	}

	return strings.Join(lines, "\n")
}

func fixed2(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
