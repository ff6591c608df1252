package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bolivia-cpi/internal/config"
	"bolivia-cpi/internal/source"
)

// fakeSource serves canned listings and file contents.
type fakeSource struct {
	listings map[string][]source.File
	contents map[string]string // download URL or repo path -> content
	listErr  map[string]error
}

func (f *fakeSource) ListDailyFiles(ctx context.Context, path string) ([]source.File, error) {
	if err := f.listErr[path]; err != nil {
		return nil, err
	}
	return f.listings[path], nil
}

func (f *fakeSource) FetchText(ctx context.Context, url string) (string, error) {
	content, ok := f.contents[url]
	if !ok {
		return "", fmt.Errorf("no content at %s", url)
	}
	return content, nil
}

func (f *fakeSource) FetchFile(ctx context.Context, path string) (string, error) {
	return f.FetchText(ctx, path)
}

func testConfig(cities ...config.City) *config.Config {
	return &config.Config{
		Cities:          cities,
		CategoryMapping: map[string]string{"Abarrotes": "Alimentos y Bebidas"},
		CategoryWeights: map[string]float64{"Alimentos y Bebidas": 1.0},
		Source: config.Source{
			CatalogPaths: []string{"data/productos.csv"},
			RecentFiles:  45,
		},
	}
}

func dailyFile(date string) source.File {
	return source.File{Name: date + ".csv", DownloadURL: "dl/" + date}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nopWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestRunSingleCity(t *testing.T) {
	cfg := testConfig(config.City{ID: "a", Name: "A", Path: "data/a", Weight: 1.0})
	src := &fakeSource{
		listings: map[string][]source.File{
			"data/a": {dailyFile("2025-05-01"), dailyFile("2025-05-02")},
		},
		contents: map[string]string{
			"dl/2025-05-01": "producto,categoria,precio\nArroz,Abarrotes,10\nFideo,Abarrotes,20\n",
			"dl/2025-05-02": "producto,categoria,precio\nArroz,Abarrotes,11\nFideo,Abarrotes,22\n",
		},
	}

	result, err := New(src, cfg, discardLogger()).Run(context.Background(), Request{})
	require.NoError(t, err)
	require.Len(t, result.Dataset.Points, 2)

	assert.InDelta(t, 100.0, result.Dataset.Points[0].Index, 1e-9)
	assert.InDelta(t, 110.0, result.Dataset.Points[1].Index, 1e-9)
	assert.InDelta(t, 10.0, result.Dataset.CurrentInflation, 1e-9)
	assert.Empty(t, result.Warnings)
}

func TestRunCatalogResolution(t *testing.T) {
	cfg := testConfig(config.City{ID: "a", Name: "A", Path: "data/a", Weight: 1.0})
	src := &fakeSource{
		listings: map[string][]source.File{
			"data/a": {dailyFile("2025-05-01")},
		},
		contents: map[string]string{
			"data/productos.csv": "id,producto,categoria\n100,Arroz Grano,Abarrotes\n",
			// The daily file has no category column; only the catalog can
			// place the product in the basket.
			"dl/2025-05-01": "fecha,id,precio\n2025-05-01,100,10\n",
		},
	}

	result, err := New(src, cfg, discardLogger()).Run(context.Background(), Request{})
	require.NoError(t, err)
	require.Len(t, result.Dataset.Points, 1)
	assert.InDelta(t, 100.0, result.Dataset.Points[0].Index, 1e-9)
}

func TestRunCityFailuresAreSoft(t *testing.T) {
	cfg := testConfig(
		config.City{ID: "a", Name: "A", Path: "data/a", Weight: 0.5},
		config.City{ID: "b", Name: "B", Path: "data/b", Weight: 0.3},
		config.City{ID: "c", Name: "C", Path: "data/c", Weight: 0.2},
	)
	src := &fakeSource{
		listings: map[string][]source.File{
			"data/a": {dailyFile("2025-05-01")},
			// City B lists nothing.
			"data/b": nil,
			// City C's files parse to zero records.
			"data/c": {dailyFile("2025-05-01")},
		},
		contents: map[string]string{
			"dl/2025-05-01": "producto,categoria,precio\nArroz,Abarrotes,10\n",
		},
		listErr: map[string]error{},
	}
	// City C shares the same download URL content in this fake, so give it
	// its own empty file.
	src.listings["data/c"] = []source.File{{Name: "2025-05-01.csv", DownloadURL: "dl/empty"}}
	src.contents["dl/empty"] = "producto,categoria,precio\n"

	result, err := New(src, cfg, discardLogger()).Run(context.Background(), Request{})
	require.NoError(t, err)

	// City A carried the run; the other two degraded with diagnostics.
	require.Len(t, result.Dataset.Points, 1)
	assert.Len(t, result.Warnings, 2)
}

func TestRunAllCitiesFailing(t *testing.T) {
	cfg := testConfig(
		config.City{ID: "a", Name: "A", Path: "data/a", Weight: 0.5},
		config.City{ID: "b", Name: "B", Path: "data/b", Weight: 0.5},
	)
	src := &fakeSource{
		listings: map[string][]source.File{},
		contents: map[string]string{},
		listErr:  map[string]error{"data/b": errors.New("rate limited")},
	}

	_, err := New(src, cfg, discardLogger()).Run(context.Background(), Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to process any city data")
	assert.Contains(t, err.Error(), "A")
	assert.Contains(t, err.Error(), "rate limited")
}

func TestRunWithExchangeSeries(t *testing.T) {
	cfg := testConfig(config.City{ID: "a", Name: "A", Path: "data/a", Weight: 1.0})
	cfg.Source.ExchangeURLs = []string{"ex/bad", "ex/good"}
	src := &fakeSource{
		listings: map[string][]source.File{
			"data/a": {dailyFile("2025-05-01")},
		},
		contents: map[string]string{
			"dl/2025-05-01": "producto,categoria,precio\nArroz,Abarrotes,10\n",
			"ex/bad":        "<html>not found, definitely not a csv</html>",
			"ex/good":       "fecha,compra\n2025-05-01,13.50\n2025-05-02,13.80\n",
		},
	}

	result, err := New(src, cfg, discardLogger()).Run(context.Background(), Request{IncludeExchange: true})
	require.NoError(t, err)
	require.Len(t, result.Exchange, 2)
	assert.Equal(t, "2025-05-01", result.Exchange[0].Date)
	assert.InDelta(t, 13.50, result.Exchange[0].Value, 1e-9)
}

func TestRunExchangeUnavailableIsSoft(t *testing.T) {
	cfg := testConfig(config.City{ID: "a", Name: "A", Path: "data/a", Weight: 1.0})
	cfg.Source.ExchangeURLs = []string{"ex/missing"}
	src := &fakeSource{
		listings: map[string][]source.File{
			"data/a": {dailyFile("2025-05-01")},
		},
		contents: map[string]string{
			"dl/2025-05-01": "producto,categoria,precio\nArroz,Abarrotes,10\n",
		},
	}

	result, err := New(src, cfg, discardLogger()).Run(context.Background(), Request{IncludeExchange: true})
	require.NoError(t, err)
	assert.Empty(t, result.Exchange)
	assert.Contains(t, result.Warnings, "exchange series unavailable")
}

func TestRunIsRepeatable(t *testing.T) {
	cfg := testConfig(config.City{ID: "a", Name: "A", Path: "data/a", Weight: 1.0})
	src := &fakeSource{
		listings: map[string][]source.File{
			"data/a": {dailyFile("2025-05-01"), dailyFile("2025-05-02")},
		},
		contents: map[string]string{
			"dl/2025-05-01": "producto,categoria,precio\nArroz,Abarrotes,10\n",
			"dl/2025-05-02": "producto,categoria,precio\nArroz,Abarrotes,12\n",
		},
	}

	p := New(src, cfg, discardLogger())
	first, err := p.Run(context.Background(), Request{})
	require.NoError(t, err)
	second, err := p.Run(context.Background(), Request{})
	require.NoError(t, err)

	// No hidden accumulation across runs.
	assert.Equal(t, first.Dataset.Points, second.Dataset.Points)
	assert.Equal(t, first.Dataset.CurrentIndex, second.Dataset.CurrentIndex)
}
