package storage

import (
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/happyhackingspace/maxent/internal/htmlutil"
)

// Storage wraps a document folder. The folder holds index.json, mapping
// document paths to their source URL and label, and an optional config.json
// describing the label set:
//
//	{"labels": {"types": [{"full": "Finance", "short": "fin"}],
//	            "NA_value": "N/A", "skip_value": "skip",
//	            "simplify_map": {"banking": "fin"}}}
type Storage struct {
	Folder string
}

// NewStorage creates a Storage for the given folder.
func NewStorage(folder string) *Storage {
	return &Storage{Folder: folder}
}

type configJSON struct {
	Labels typeConfig `json:"labels"`
}

type typeConfig struct {
	Types       []typeEntry       `json:"types"`
	NAValue     string            `json:"NA_value"`
	SkipValue   string            `json:"skip_value"`
	SimplifyMap map[string]string `json:"simplify_map"`
}

type typeEntry struct {
	Full  string `json:"full"`
	Short string `json:"short"`
}

// IndexEntry is a single entry of index.json.
type IndexEntry struct {
	URL   string `json:"url"`
	Label string `json:"label"`
}

// GetSchema reads config.json. A missing file yields an empty schema.
func (s *Storage) GetSchema() (*LabelSchema, error) {
	var config configJSON
	data, err := os.ReadFile(filepath.Join(s.Folder, "config.json"))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("config.json: %w", err)
		}
	}
	return buildSchema(config.Labels), nil
}

func buildSchema(tc typeConfig) *LabelSchema {
	types := make(map[string]string, len(tc.Types))
	typesInv := make(map[string]string, len(tc.Types))
	for _, t := range tc.Types {
		types[t.Full] = t.Short
		typesInv[t.Short] = t.Full
	}
	return &LabelSchema{
		Types:       types,
		TypesInv:    typesInv,
		NAValue:     tc.NAValue,
		SkipValue:   tc.SkipValue,
		SimplifyMap: tc.SimplifyMap,
	}
}

// GetIndex reads index.json. The error wraps fs.ErrNotExist when the
// folder has no index yet.
func (s *Storage) GetIndex() (map[string]IndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(s.Folder, "index.json"))
	if err != nil {
		return nil, err
	}
	var index map[string]IndexEntry
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("index.json: %w", err)
	}
	return index, nil
}

// SaveIndex writes index.json, creating the folder if needed.
func (s *Storage) SaveIndex(index map[string]IndexEntry) error {
	if err := os.MkdirAll(s.Folder, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(index, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.Folder, "index.json"), data, 0644)
}

// IterOptions controls document iteration.
type IterOptions struct {
	DropDuplicates bool
	DropNA         bool
	DropSkipped    bool
	Simplify       bool
}

// DefaultIterOptions returns the default options for iterating documents.
func DefaultIterOptions() IterOptions {
	return IterOptions{
		DropDuplicates: true,
		DropNA:         true,
		DropSkipped:    true,
		Simplify:       true,
	}
}

// IterDocuments reads the documents listed in index.json, ordered by
// domain and then path so that documents of one site stay together.
// Unreadable files are logged and skipped.
func (s *Storage) IterDocuments(opts IterOptions) ([]Document, error) {
	schema, err := s.GetSchema()
	if err != nil {
		return nil, fmt.Errorf("storage: get schema: %w", err)
	}
	index, err := s.GetIndex()
	if err != nil {
		return nil, fmt.Errorf("storage: get index: %w", err)
	}

	type pathInfo struct {
		path   string
		domain string
		info   IndexEntry
	}
	sorted := make([]pathInfo, 0, len(index))
	for path, info := range index {
		sorted = append(sorted, pathInfo{path, GetDomain(info.URL), info})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].domain != sorted[j].domain {
			return sorted[i].domain < sorted[j].domain
		}
		return sorted[i].path < sorted[j].path
	})

	seen := make(map[[md5.Size]byte]bool)
	var docs []Document
	for _, pi := range sorted {
		label := pi.info.Label
		if opts.Simplify {
			if simplified, ok := schema.SimplifyMap[label]; ok {
				label = simplified
			}
		}
		if opts.DropNA && (label == "" || label == schema.NAValue) {
			continue
		}
		if opts.DropSkipped && schema.SkipValue != "" && label == schema.SkipValue {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.Folder, pi.path))
		if err != nil {
			slog.Warn("Cannot read document", "path", pi.path, "error", err)
			continue
		}
		if opts.DropDuplicates {
			sum := md5.Sum(data)
			if seen[sum] {
				slog.Debug("Duplicate document skipped", "path", pi.path)
				continue
			}
			seen[sum] = true
		}

		doc := Document{
			Path:      pi.path,
			URL:       pi.info.URL,
			Domain:    pi.domain,
			Label:     label,
			LabelFull: schema.Full(label),
		}
		if isHTML(pi.path) {
			page, err := htmlutil.LoadHTMLString(string(data))
			if err != nil {
				slog.Warn("Cannot parse document", "path", pi.path, "error", err)
				continue
			}
			doc.Title = htmlutil.Title(page)
			doc.Text = htmlutil.VisibleText(page.Find("body"))
		} else {
			doc.Text = string(data)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func isHTML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".xhtml":
		return true
	}
	return false
}

// GetDomain extracts the registrable domain name without its public suffix
// from a URL: "https://news.example.co.uk/a" gives "example". It is used to
// keep documents of one site in the same cross-validation fold.
func GetDomain(rawURL string) string {
	host := rawURL
	if idx := strings.Index(host, "://"); idx >= 0 {
		host = host[idx+3:]
	}
	if idx := strings.IndexAny(host, "/?#"); idx >= 0 {
		host = host[:idx]
	}
	if idx := strings.LastIndex(host, "@"); idx >= 0 {
		host = host[idx+1:]
	}
	if idx := strings.Index(host, ":"); idx >= 0 {
		host = host[:idx]
	}
	host = strings.ToLower(host)

	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	if idx := strings.Index(domain, "."); idx >= 0 {
		return domain[:idx]
	}
	return domain
}
