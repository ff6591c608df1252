// Bolivia CPI tracker CLI
//
// Usage:
//   cpi compute [--format table|json|csv] [--output file] [--with-exchange]
//   cpi serve [--port 8080] [--refresh 6h]
//   cpi methodology
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"bolivia-cpi/api"
	"bolivia-cpi/internal/config"
	"bolivia-cpi/internal/export"
	"bolivia-cpi/internal/pipeline"
	"bolivia-cpi/internal/source"
	"bolivia-cpi/pkg/platform"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Optional .env for local development; absence is fine.
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "cpi",
		Usage:   "Synthetic Consumer Price Index from daily supermarket price scrapes",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"CPI_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "YAML file overriding the built-in city/category tables",
				EnvVars: []string{"CPI_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "repo-owner",
				Usage:   "Source repository owner",
				EnvVars: []string{"CPI_REPO_OWNER"},
			},
			&cli.StringFlag{
				Name:    "repo-name",
				Usage:   "Source repository name",
				EnvVars: []string{"CPI_REPO_NAME"},
			},
			&cli.StringFlag{
				Name:    "branch",
				Usage:   "Source repository branch",
				EnvVars: []string{"CPI_REPO_BRANCH"},
			},
		},

		Commands: []*cli.Command{
			computeCommand(),
			serveCommand(),
			methodologyCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// COMPUTE COMMAND
// =============================================================================

func computeCommand() *cli.Command {
	return &cli.Command{
		Name:  "compute",
		Usage: "Compute the CPI dataset and print it",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "table",
				Usage:   "Output format (table, json, csv)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to a file instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "with-exchange",
				Usage: "Attach the parallel USDT quote series",
			},
			&cli.IntFlag{
				Name:  "tail",
				Value: 30,
				Usage: "Number of trailing points shown in table output",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 10 * time.Minute,
				Usage: "Overall run timeout",
			},
		},
		Action: runCompute,
	}
}

func runCompute(c *cli.Context) error {
	p, cfg, err := buildPipeline(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
	defer cancel()

	result, err := p.Run(ctx, pipeline.Request{IncludeExchange: c.Bool("with-exchange")})
	if err != nil {
		return err
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warning)
	}

	out := os.Stdout
	if path := c.String("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	switch c.String("format") {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "csv":
		_, err := out.Write(export.CSV(result.Dataset, cfg.Cities))
		return err
	case "table":
		export.Table(out, result.Dataset, c.Int("tail"))
		return nil
	default:
		return fmt.Errorf("unknown format %q", c.String("format"))
	}
}

// =============================================================================
// SERVE COMMAND
// =============================================================================

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the computed dataset over HTTP with periodic refresh",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Value:   platform.GetEnvInt("CPI_PORT", 8080),
				Usage:   "Listen port",
				EnvVars: []string{"CPI_PORT"},
			},
			&cli.DurationFlag{
				Name:    "refresh",
				Value:   6 * time.Hour,
				Usage:   "Dataset refresh interval (0 disables refresh)",
				EnvVars: []string{"CPI_REFRESH_INTERVAL"},
			},
			&cli.BoolFlag{
				Name:  "with-exchange",
				Usage: "Attach the parallel USDT quote series",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	p, _, err := buildPipeline(c)
	if err != nil {
		return err
	}

	serverConfig := api.DefaultConfig()
	serverConfig.Port = c.Int("port")
	serverConfig.RefreshInterval = c.Duration("refresh")
	serverConfig.IncludeExchange = c.Bool("with-exchange")

	logger := platform.InitLogger(c.String("log-level"))
	server := api.NewServer(p, serverConfig, logger)
	return server.Start(context.Background())
}

// =============================================================================
// METHODOLOGY COMMAND
// =============================================================================

func methodologyCommand() *cli.Command {
	return &cli.Command{
		Name:  "methodology",
		Usage: "Print the methodology document for the configured tables",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to a file instead of stdout",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			text := export.Methodology(cfg)
			if path := c.String("output"); path != "" {
				return os.WriteFile(path, []byte(text+"\n"), 0o644)
			}
			fmt.Println(text)
			return nil
		},
	}
}

// =============================================================================
// WIRING
// =============================================================================

func loadConfig(c *cli.Context) (*config.Config, error) {
	var cfg *config.Config
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	if owner := c.String("repo-owner"); owner != "" {
		cfg.Source.Owner = owner
	}
	if repo := c.String("repo-name"); repo != "" {
		cfg.Source.Repo = repo
	}
	if branch := c.String("branch"); branch != "" {
		cfg.Source.Branch = branch
	}
	return cfg, nil
}

func buildPipeline(c *cli.Context) (*pipeline.Pipeline, *config.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}

	logger := platform.InitLogger(c.String("log-level"))
	client := source.NewClient(cfg.Source.Owner, cfg.Source.Repo, cfg.Source.Branch, logger)
	return pipeline.New(client, cfg, logger), cfg, nil
}
