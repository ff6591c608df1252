// Package pipeline orchestrates the CPI computation: product catalog load,
// concurrent per-city and per-file retrieval, parsing, per-city index
// construction and national aggregation. Individual fetch failures degrade
// a city, never abort siblings; the run fails only when every city fails.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"bolivia-cpi/internal/config"
	"bolivia-cpi/internal/exchange"
	"bolivia-cpi/internal/index"
	"bolivia-cpi/internal/national"
	"bolivia-cpi/internal/parser"
	"bolivia-cpi/internal/source"
)

// Source is the retrieval capability the pipeline depends on. Implemented
// by source.Client; tests substitute a fake.
type Source interface {
	ListDailyFiles(ctx context.Context, path string) ([]source.File, error)
	FetchText(ctx context.Context, url string) (string, error)
	FetchFile(ctx context.Context, path string) (string, error)
}

// Request controls one pipeline run.
type Request struct {
	// IncludeExchange attaches the parallel USDT quote series when it can
	// be loaded; its absence is never an error.
	IncludeExchange bool
}

// Result is the pipeline output: the dataset, per-city diagnostics for
// cities that degraded, and the optional exchange series.
type Result struct {
	Dataset  *national.Dataset `json:"dataset"`
	Exchange []exchange.Rate   `json:"exchange,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
}

type Pipeline struct {
	source Source
	cfg    *config.Config
	logger *slog.Logger
}

func New(src Source, cfg *config.Config, logger *slog.Logger) *Pipeline {
	return &Pipeline{source: src, cfg: cfg, logger: logger}
}

type cityOutcome struct {
	city    config.City
	points  []index.Point
	problem string
}

// Run executes one full computation. It is safe to call repeatedly; no
// state accumulates across runs.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	catalog := p.loadCatalog(ctx)

	outcomes := make([]cityOutcome, len(p.cfg.Cities))
	var wg sync.WaitGroup
	for i, city := range p.cfg.Cities {
		wg.Add(1)
		go func(i int, city config.City) {
			defer wg.Done()
			outcomes[i] = p.processCity(ctx, city, catalog)
		}(i, city)
	}
	wg.Wait()

	var series []national.CitySeries
	var problems []string
	for _, outcome := range outcomes {
		if outcome.problem != "" {
			p.logger.Warn("city excluded from aggregation", "city", outcome.city.Name, "reason", outcome.problem)
			problems = append(problems, outcome.problem)
			continue
		}
		series = append(series, national.CitySeries{CityID: outcome.city.ID, Points: outcome.points})
	}

	if len(series) == 0 {
		return nil, fmt.Errorf("failed to process any city data: %s", strings.Join(problems, " "))
	}

	result := &Result{
		Dataset:  national.Aggregate(series, p.cfg.Cities),
		Warnings: problems,
	}

	if req.IncludeExchange {
		rates, err := exchange.Load(ctx, p.source, p.cfg.Source.ExchangeURLs)
		if err != nil {
			p.logger.Warn("exchange series unavailable", "error", err)
			result.Warnings = append(result.Warnings, "exchange series unavailable")
		} else {
			result.Exchange = rates
		}
	}

	return result, nil
}

// processCity runs the per-city leg: list, sample, fetch, parse, build.
// Every failure mode collapses into a descriptive problem string so the
// caller can keep aggregating the remaining cities.
func (p *Pipeline) processCity(ctx context.Context, city config.City, catalog parser.Catalog) cityOutcome {
	outcome := cityOutcome{city: city}

	files, err := p.source.ListDailyFiles(ctx, city.Path)
	if err != nil {
		outcome.problem = fmt.Sprintf("%s: listing failed: %v.", city.Name, err)
		return outcome
	}
	if len(files) == 0 {
		outcome.problem = fmt.Sprintf("No CSV files found for %s at path '%s'.", city.Name, city.Path)
		return outcome
	}

	selected := source.SelectFiles(files, p.cfg.Source.RecentFiles)
	p.logger.Info("processing city", "city", city.Name, "files", len(selected), "available", len(files))

	// Fetch and parse concurrently; the indexed slice preserves date order.
	parsed := make([][]parser.Record, len(selected))
	var wg sync.WaitGroup
	for i, file := range selected {
		wg.Add(1)
		go func(i int, file source.File) {
			defer wg.Done()
			content, err := p.source.FetchText(ctx, file.DownloadURL)
			if err != nil {
				p.logger.Warn("file fetch failed", "city", city.Name, "file", file.Name, "error", err)
				return
			}
			date := strings.TrimSuffix(file.Name, ".csv")
			parsed[i] = parser.ParseRecords(content, date, catalog)
		}(i, file)
	}
	wg.Wait()

	var records []parser.Record
	for _, day := range parsed {
		records = append(records, day...)
	}
	if len(records) == 0 {
		outcome.problem = fmt.Sprintf("%s: Files downloaded but no valid products found. Check CSV format.", city.Name)
		return outcome
	}

	builder := index.NewBuilder(p.cfg.CategoryMapping, p.cfg.CategoryWeights)
	points := builder.Build(records)
	if len(points) == 0 {
		outcome.problem = fmt.Sprintf("%s: Insufficient data to calculate CPI (needs overlapping categories).", city.Name)
		return outcome
	}

	outcome.points = points
	return outcome
}

// loadCatalog tries the candidate catalog paths in order. Failure is
// non-fatal: records fall back to their embedded product/category columns.
func (p *Pipeline) loadCatalog(ctx context.Context) parser.Catalog {
	for _, path := range p.cfg.Source.CatalogPaths {
		content, err := p.source.FetchFile(ctx, path)
		if err != nil {
			continue
		}
		if catalog := parser.ParseCatalog(content); len(catalog) > 0 {
			p.logger.Info("loaded product catalog", "path", path, "items", len(catalog))
			return catalog
		}
	}
	p.logger.Warn("product catalog unavailable, categories will be inferred from raw files")
	return nil
}
