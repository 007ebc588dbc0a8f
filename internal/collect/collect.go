// Package collect fetches labeled web pages into a document folder that
// storage.IterDocuments can read.
package collect

import (
	"bufio"
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/happyhackingspace/maxent/internal/storage"
)

// Seed is a single line of a seed file (JSON lines).
type Seed struct {
	URL   string `json:"url"`
	Label string `json:"label"`
}

// ReadSeeds reads a seed file. Blank lines and lines starting with # are
// ignored; invalid lines are logged and skipped.
func ReadSeeds(path string) ([]Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var seeds []Seed
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var s Seed
		if err := json.Unmarshal([]byte(line), &s); err != nil || s.URL == "" {
			slog.Warn("Skipping invalid seed line", "line", line, "error", err)
			continue
		}
		seeds = append(seeds, s)
	}
	return seeds, scanner.Err()
}

// HTTPClient is the interface used for HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewHTTPClient returns a client with the given timeout that follows at
// most five redirects.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}
}

// Collector downloads seed pages into a document folder.
type Collector struct {
	Client    HTTPClient
	UserAgent string
	Delay     time.Duration // between requests
	MaxPages  int           // 0: unlimited
	MaxBytes  int64         // response bodies are truncated to this size
	MinBytes  int           // shorter responses are rejected
}

// NewCollector returns a Collector with default limits.
func NewCollector(client HTTPClient) *Collector {
	return &Collector{
		Client:    client,
		UserAgent: "Mozilla/5.0 (compatible; maxent-collect/1.0)",
		Delay:     time.Second,
		MaxBytes:  5 << 20,
		MinBytes:  100,
	}
}

// Collect fetches every seed not yet in the folder's index, saves it under
// html/ and records its URL and label in index.json. Failed fetches are
// logged and skipped. The index is saved even when ctx is cancelled.
func (c *Collector) Collect(ctx context.Context, store *storage.Storage, seeds []Seed) (int, error) {
	index, err := store.GetIndex()
	if errors.Is(err, fs.ErrNotExist) {
		index, err = make(map[string]storage.IndexEntry), nil
	}
	if err != nil {
		return 0, fmt.Errorf("load index: %w", err)
	}
	known := make(map[string]bool, len(index))
	for _, e := range index {
		known[e.URL] = true
	}

	collected := 0
	for i, seed := range seeds {
		if c.MaxPages > 0 && collected >= c.MaxPages {
			break
		}
		if known[seed.URL] {
			slog.Debug("Already collected", "url", seed.URL)
			continue
		}
		if i > 0 && c.Delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(c.Delay):
			}
		}
		if ctx.Err() != nil {
			break
		}

		body, err := c.fetch(ctx, seed.URL)
		if err != nil {
			slog.Warn("Failed to fetch", "url", seed.URL, "error", err)
			continue
		}
		name, err := saveDocument(store.Folder, seed.URL, body)
		if err != nil {
			return collected, err
		}
		index[name] = storage.IndexEntry{URL: seed.URL, Label: seed.Label}
		known[seed.URL] = true
		collected++
		slog.Info("Collected", "url", seed.URL, "label", seed.Label, "total", collected)
	}

	if err := store.SaveIndex(index); err != nil {
		return collected, fmt.Errorf("save index: %w", err)
	}
	return collected, ctx.Err()
}

func (c *Collector) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var r io.Reader = resp.Body
	if c.MaxBytes > 0 {
		r = io.LimitReader(resp.Body, c.MaxBytes)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(body) < c.MinBytes {
		return nil, fmt.Errorf("response too short (%d bytes)", len(body))
	}
	return body, nil
}

// saveDocument writes body to html/<hash of URL>.html and returns the path
// relative to the folder.
func saveDocument(folder, rawURL string, body []byte) (string, error) {
	hash := fmt.Sprintf("%x", md5.Sum([]byte(rawURL)))
	name := "html/" + hash[:12] + ".html"
	path := filepath.Join(folder, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, body, 0644); err != nil {
		return "", err
	}
	return name, nil
}
