package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/happyhackingspace/maxent"
	"github.com/happyhackingspace/maxent/internal/htmlutil"
	"github.com/happyhackingspace/maxent/internal/vectorizer"
	"github.com/spf13/cobra"
)

// documentResult is the output of classify.
type documentResult struct {
	Source string             `json:"source"`
	Title  string             `json:"title,omitempty"`
	Label  string             `json:"label"`
	Proba  map[string]float64 `json:"proba,omitempty"`
}

func (c *CLI) newClassifyCommand() *cobra.Command {
	var modelPath, vecPath string
	var threshold float64
	var proba bool

	cmd := &cobra.Command{
		Use:   "classify [url-or-file]",
		Short: "Classify an HTML page or text document from a URL, file, or stdin",
		Args:  cobra.MaximumNArgs(1),
		Example: `  # Classify a URL directly
  maxent classify https://example.com/news --model model.txt --vectorizer vec.json

  # Classify a local file
  maxent classify article.html --model model.txt --vectorizer vec.json

  # Pipe content or a URL through stdin
  curl -s https://example.com/news | maxent classify --model model.txt --vectorizer vec.json

  # Show probability scores above 0.1
  maxent classify article.html --model model.txt --vectorizer vec.json --proba --threshold 0.1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var content, source string
			var err error
			if len(args) == 0 {
				if isStdinTerminal() {
					return cmd.Help()
				}
				content, source, err = readFromStdin()
			} else {
				source = args[0]
				content, err = fetchDocument(source)
			}
			if err != nil {
				return err
			}
			slog.Debug("Document fetched", "source", source, "bytes", len(content))

			var modelArgs []string
			if modelPath != "" {
				modelArgs = []string{modelPath}
			}
			cl, err := loadModel(modelArgs)
			if err != nil {
				return err
			}
			dv, err := vectorizer.LoadDocumentVectorizer(vecPath)
			if err != nil {
				return err
			}

			start := time.Now()
			text := documentText(content)
			in := maxent.Instance{Features: dv.Transform(text)}
			result := documentResult{Source: source, Title: text.Title}
			if proba {
				result.Proba, err = cl.ClassifyProba(in, threshold)
				if err != nil {
					return err
				}
			}
			if _, err := cl.Classify(&in); err != nil {
				return err
			}
			result.Label = in.Label
			slog.Debug("Classification completed", "features", len(in.Features), "duration", time.Since(start))

			output, _ := json.MarshalIndent(result, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(output))
			return nil
		},
	}

	cmd.Flags().StringVar(&modelPath, "model", "", "Path to model file (default: maxent.model in the working directory)")
	cmd.Flags().StringVar(&vecPath, "vectorizer", "vectorizer.json", "Vectorizer saved by featurize")
	cmd.Flags().Float64Var(&threshold, "threshold", 0.05, "Minimum probability threshold")
	cmd.Flags().BoolVar(&proba, "proba", false, "Show probabilities")
	return cmd
}

// documentText extracts title and visible text from HTML; anything else is
// taken as plain text.
func documentText(content string) vectorizer.Text {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "<") {
		return vectorizer.Text{Body: content}
	}
	doc, err := htmlutil.LoadHTMLString(content)
	if err != nil {
		return vectorizer.Text{Body: content}
	}
	return vectorizer.Text{Title: htmlutil.Title(doc), Body: htmlutil.VisibleText(doc.Find("body"))}
}

func isStdinTerminal() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func fetchDocument(target string) (string, error) {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		resp, err := http.Get(target)
		if err != nil {
			return "", fmt.Errorf("fetch URL: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("fetch URL: HTTP %d", resp.StatusCode)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("read response: %w", err)
		}
		return string(body), nil
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return string(data), nil
}

func readFromStdin() (string, string, error) {
	slog.Debug("Reading from stdin")
	body, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", "", fmt.Errorf("read stdin: %w", err)
	}
	content := strings.TrimSpace(string(body))
	if content == "" {
		return "", "", fmt.Errorf("stdin is empty")
	}

	if strings.HasPrefix(content, "http://") || strings.HasPrefix(content, "https://") {
		slog.Debug("Stdin contains URL", "url", content)
		doc, err := fetchDocument(content)
		if err != nil {
			return "", "", err
		}
		return doc, content, nil
	}
	return content, "stdin", nil
}
