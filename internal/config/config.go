// Package config holds the static tables that drive the CPI pipeline:
// the tracked cities with their national weights, the mapping from raw
// supermarket categories to official CPI categories, the official basket
// weights, and the upstream data source settings.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// City describes one tracked city and its contribution to the national index.
type City struct {
	ID     string  `yaml:"id" json:"id"`
	Name   string  `yaml:"name" json:"name"`
	Path   string  `yaml:"path" json:"path"` // directory of daily files in the source repo
	Weight float64 `yaml:"weight" json:"weight"`
}

// Source describes where raw price data is fetched from.
type Source struct {
	Owner  string `yaml:"owner"`
	Repo   string `yaml:"repo"`
	Branch string `yaml:"branch"`

	// CatalogPaths are candidate locations for the product catalog,
	// tried in order until one loads.
	CatalogPaths []string `yaml:"catalog_paths"`

	// RecentFiles is the size of the daily-resolution window kept at the
	// end of the sampled file set.
	RecentFiles int `yaml:"recent_files"`

	// ExchangeURLs are candidate locations for the parallel USDT quote
	// series, tried in order.
	ExchangeURLs []string `yaml:"exchange_urls"`
}

// Config is the full static configuration injected into the pipeline.
type Config struct {
	Cities          []City             `yaml:"cities"`
	CategoryMapping map[string]string  `yaml:"category_mapping"`
	CategoryWeights map[string]float64 `yaml:"category_weights"`
	Source          Source             `yaml:"source"`
}

// Default returns the built-in tables: Hipermaxi scraping data for the three
// main metropolitan areas, official category weights rescaled to the tracked
// subset of the consumer basket.
func Default() *Config {
	return &Config{
		Cities: []City{
			{ID: "cochabamba", Name: "Cochabamba", Path: "data/hipermaxi/cochabamba", Weight: 0.1943110633},
			{ID: "lapaz", Name: "La Paz", Path: "data/hipermaxi/la_paz", Weight: 0.3909745579},
			{ID: "santacruz", Name: "Santa Cruz", Path: "data/hipermaxi/santa_cruz", Weight: 0.4147143788},
		},
		CategoryMapping: map[string]string{
			"Abarrotes":                  "Alimentos y Bebidas",
			"Bebidas":                    "Alimentos y Bebidas",
			"Carnes":                     "Alimentos y Bebidas",
			"Congelados":                 "Alimentos y Bebidas",
			"Fiambres":                   "Alimentos y Bebidas",
			"Frutas y Verduras":          "Alimentos y Bebidas",
			"Granos y Hortalizas":        "Alimentos y Bebidas",
			"Lácteos y Derivados":        "Alimentos y Bebidas",
			"Panadería":                  "Alimentos y Bebidas",
			"Pastelería y Masas Típicas": "Alimentos y Bebidas",
			"Bazar":                      "Muebles, Bienes y Servicios Domésticos",
			"Bazar Importación":          "Muebles, Bienes y Servicios Domésticos",
			"Cuidado del Hogar":          "Muebles, Bienes y Servicios Domésticos",
			"Cuidado Personal":           "Bienes y Servicios Diversos",
			"Cuidado del Bebé":           "Bienes y Servicios Diversos",
			"Juguetería":                 "Recreación y Cultura",
			"Juguetería Importación":     "Recreación y Cultura",
		},
		// Weights normalized to sum to 100% of the tracked basket.
		CategoryWeights: map[string]float64{
			"Alimentos y Bebidas":                    0.577,
			"Muebles, Bienes y Servicios Domésticos": 0.130,
			"Recreación y Cultura":                   0.132,
			"Bienes y Servicios Diversos":            0.161,
		},
		Source: Source{
			Owner:  "mauforonda",
			Repo:   "precios",
			Branch: "master",
			CatalogPaths: []string{
				"data/hipermaxi/productos.csv",
				"data/productos.csv",
				"productos.csv",
			},
			RecentFiles: 45,
			ExchangeURLs: []string{
				"https://raw.githubusercontent.com/mauforonda/dolares/main/data/buy.csv",
				"https://raw.githubusercontent.com/mauforonda/dolares/master/data/buy.csv",
				"https://raw.githubusercontent.com/mauforonda/dolares/main/buy.csv",
			},
		},
	}
}

// Load reads a YAML file. Sections present in the file replace the
// corresponding defaults wholesale, which allows testing with alternate
// taxonomies; absent sections keep the built-in tables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	def := Default()
	if len(cfg.Cities) == 0 {
		cfg.Cities = def.Cities
	}
	if cfg.CategoryMapping == nil {
		cfg.CategoryMapping = def.CategoryMapping
	}
	if cfg.CategoryWeights == nil {
		cfg.CategoryWeights = def.CategoryWeights
	}
	if cfg.Source.Owner == "" {
		cfg.Source.Owner = def.Source.Owner
	}
	if cfg.Source.Repo == "" {
		cfg.Source.Repo = def.Source.Repo
	}
	if cfg.Source.Branch == "" {
		cfg.Source.Branch = def.Source.Branch
	}
	if len(cfg.Source.CatalogPaths) == 0 {
		cfg.Source.CatalogPaths = def.Source.CatalogPaths
	}
	if cfg.Source.RecentFiles == 0 {
		cfg.Source.RecentFiles = def.Source.RecentFiles
	}
	if len(cfg.Source.ExchangeURLs) == 0 {
		cfg.Source.ExchangeURLs = def.Source.ExchangeURLs
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the structural invariants of the tables.
func (c *Config) Validate() error {
	if len(c.Cities) == 0 {
		return fmt.Errorf("config defines no cities")
	}
	for _, city := range c.Cities {
		if city.ID == "" || city.Path == "" {
			return fmt.Errorf("city %q is missing id or path", city.Name)
		}
		if city.Weight <= 0 {
			return fmt.Errorf("city %q has non-positive weight", city.Name)
		}
	}
	for raw, official := range c.CategoryMapping {
		if _, ok := c.CategoryWeights[official]; !ok {
			return fmt.Errorf("raw category %q maps to %q which has no weight", raw, official)
		}
	}
	for official, w := range c.CategoryWeights {
		if w <= 0 {
			return fmt.Errorf("category %q has non-positive weight", official)
		}
	}
	return nil
}
