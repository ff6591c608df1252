// Package source retrieves daily price files and the product catalog from
// the upstream GitHub repository. The pipeline core never touches the
// network; everything it consumes arrives through this package.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"bolivia-cpi/pkg/platform"
)

// File is one entry of a repository directory listing. Names follow the
// YYYY-MM-DD.csv convention; the stripped name doubles as the fallback
// record date.
type File struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Type        string `json:"type"`
	DownloadURL string `json:"download_url"`
}

// Client lists and fetches repository content over the GitHub contents API
// and raw endpoints.
type Client struct {
	http   *platform.HTTPClient
	owner  string
	repo   string
	branch string
	logger *slog.Logger
}

func NewClient(owner, repo, branch string, logger *slog.Logger) *Client {
	return &Client{
		http:   platform.NewHTTPClient(2, 30*time.Second),
		owner:  owner,
		repo:   repo,
		branch: branch,
		logger: logger,
	}
}

// ListDailyFiles returns the CSV files under a repository path, sorted by
// name. An empty result means no data is available for that path; only
// transport failures surface as errors.
func (c *Client) ListDailyFiles(ctx context.Context, path string) ([]File, error) {
	url := fmt.Sprintf("https://api.github.com/repos/%s/%s/contents/%s", c.owner, c.repo, path)
	body, status, err := c.http.Get(ctx, url, map[string]string{
		"Accept": "application/vnd.github.v3+json",
	})
	if err != nil {
		return nil, fmt.Errorf("directory listing failed for %s: %w", path, err)
	}
	if status < 200 || status >= 300 {
		c.logger.Warn("directory request failed", "path", path, "status", status)
		return nil, nil
	}

	var entries []File
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("unexpected listing payload for %s: %w", path, err)
	}

	files := entries[:0]
	for _, f := range entries {
		if strings.HasSuffix(f.Name, ".csv") {
			files = append(files, f)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// FetchText fetches raw content by URL.
func (c *Client) FetchText(ctx context.Context, url string) (string, error) {
	return c.http.GetText(ctx, url)
}

// FetchFile fetches raw content by repository path.
func (c *Client) FetchFile(ctx context.Context, path string) (string, error) {
	url := fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/%s", c.owner, c.repo, c.branch, path)
	return c.http.GetText(ctx, url)
}
