package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/happyhackingspace/maxent/internal/vectorizer"
	"github.com/happyhackingspace/maxent/model"
)

// Format is an instance file format.
type Format string

const (
	// FormatTSV is one instance per line: label, then tab-separated
	// name:value features. The value is split off at the last colon and
	// defaults to 1 when there is none.
	FormatTSV Format = "tsv"
	// FormatJSONL is one JSON object per line:
	//
	//	{"label": "IT", "features": {"Apple": 0.68, "os": "linux", "mobile": true}}
	//
	// Feature values follow vectorizer.FromDict.
	FormatJSONL Format = "jsonl"
)

const maxLineSize = 16 << 20

// FormatFromPath guesses the format from the file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson", ".json":
		return FormatJSONL
	}
	return FormatTSV
}

// ParseFormat validates a format name. An empty name selects the format
// from the path.
func ParseFormat(name, path string) (Format, error) {
	switch Format(strings.ToLower(name)) {
	case "":
		return FormatFromPath(path), nil
	case FormatTSV:
		return FormatTSV, nil
	case FormatJSONL:
		return FormatJSONL, nil
	}
	return "", fmt.Errorf("storage: unknown format %q", name)
}

type jsonInstance struct {
	Label    string         `json:"label"`
	Features map[string]any `json:"features"`
}

// ReadInstances reads instances in the given format. Malformed lines are
// logged with their line number and skipped; blank lines are ignored.
func ReadInstances(r io.Reader, format Format) ([]model.Instance, error) {
	parse := parseTSV
	if format == FormatJSONL {
		parse = parseJSONL
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	var out []model.Instance
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		in, err := parse(line)
		if err != nil {
			slog.Warn("Skipping malformed line", "line", lineNo, "error", err)
			continue
		}
		out = append(out, in)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("storage: line %d: %w", lineNo+1, err)
	}
	return out, nil
}

func parseTSV(line string) (model.Instance, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 2 {
		return model.Instance{}, fmt.Errorf("expected label and at least one feature")
	}
	in := model.Instance{Label: fields[0], Features: make([]model.NamedValue, 0, len(fields)-1)}
	for _, field := range fields[1:] {
		if field == "" {
			continue
		}
		name, value := field, 1.0
		if i := strings.LastIndexByte(field, ':'); i >= 0 {
			v, err := strconv.ParseFloat(field[i+1:], 64)
			if err != nil {
				return model.Instance{}, fmt.Errorf("feature %q: %w", field, err)
			}
			name, value = field[:i], v
		}
		if name == "" {
			return model.Instance{}, fmt.Errorf("feature %q has no name", field)
		}
		in.AddFeature(name, value)
	}
	return in, nil
}

func parseJSONL(line string) (model.Instance, error) {
	var ji jsonInstance
	if err := json.Unmarshal([]byte(line), &ji); err != nil {
		return model.Instance{}, err
	}
	features, err := vectorizer.FromDict(ji.Features)
	if err != nil {
		return model.Instance{}, err
	}
	return model.Instance{Label: ji.Label, Features: features}, nil
}

// ReadInstanceFile reads an instance file. An empty format is guessed from
// the extension.
func ReadInstanceFile(path string, format Format) ([]model.Instance, error) {
	if format == "" {
		format = FormatFromPath(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	defer f.Close()
	instances, err := ReadInstances(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return instances, nil
}

// WriteInstances writes instances in the given format. In JSON lines
// features sharing a name are summed.
func WriteInstances(w io.Writer, instances []model.Instance, format Format) error {
	bw := bufio.NewWriter(w)
	for i, in := range instances {
		var err error
		if format == FormatJSONL {
			err = writeJSONL(bw, in)
		} else {
			err = writeTSV(bw, in)
		}
		if err != nil {
			return fmt.Errorf("storage: instance %d: %w", i, err)
		}
	}
	return bw.Flush()
}

func writeTSV(w *bufio.Writer, in model.Instance) error {
	if strings.ContainsAny(in.Label, "\t\n") {
		return fmt.Errorf("label %q contains a tab or newline", in.Label)
	}
	w.WriteString(in.Label)
	for _, f := range in.Features {
		if f.Name == "" || strings.ContainsAny(f.Name, "\t\n") {
			return fmt.Errorf("feature name %q cannot be written", f.Name)
		}
		w.WriteByte('\t')
		w.WriteString(f.Name)
		w.WriteByte(':')
		w.WriteString(strconv.FormatFloat(f.Value, 'g', -1, 64))
	}
	return w.WriteByte('\n')
}

func writeJSONL(w *bufio.Writer, in model.Instance) error {
	ji := jsonInstance{Label: in.Label, Features: make(map[string]any, len(in.Features))}
	sums := make(map[string]float64, len(in.Features))
	for _, f := range in.Features {
		sums[f.Name] += f.Value
	}
	for name, v := range sums {
		ji.Features[name] = v
	}
	data, err := json.Marshal(ji)
	if err != nil {
		return err
	}
	w.Write(data)
	return w.WriteByte('\n')
}

// WriteInstanceFile writes instances to path. An empty format is guessed
// from the extension.
func WriteInstanceFile(path string, instances []model.Instance, format Format) error {
	if format == "" {
		format = FormatFromPath(path)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := WriteInstances(f, instances, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
