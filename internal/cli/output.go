package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Formatter renders command results.
type Formatter interface {
	Format(data any) string
}

// NewFormatter returns a Formatter for "table" (default), "json" or "yaml".
func NewFormatter(format string) (Formatter, error) {
	switch strings.ToLower(format) {
	case "", "table":
		return &TableFormatter{}, nil
	case "json":
		return &JSONFormatter{}, nil
	case "yaml":
		return &YAMLFormatter{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (table, json, yaml)", format)
	}
}

// normalize turns appliance JSON documents into plain maps and slices.
func normalize(data any) any {
	var raw []byte
	switch v := data.(type) {
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	default:
		return data
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return string(raw)
	}
	return out
}

// TableFormatter prints lists of objects as aligned columns and single
// objects as key/value lines. Byte counts are humanized.
type TableFormatter struct{}

func (f *TableFormatter) Format(data any) string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)

	switch v := normalize(data).(type) {
	case nil:
	case []any:
		writeRows(w, v)
	case map[string]any:
		// Collection responses wrap the list in a single key.
		if len(v) == 1 {
			for _, inner := range v {
				if list, ok := inner.([]any); ok {
					writeRows(w, list)
					w.Flush()
					return buf.String()
				}
			}
		}
		for _, k := range sortedKeys(v) {
			fmt.Fprintf(w, "%s:\t%s\n", k, cell(k, v[k]))
		}
	default:
		fmt.Fprintln(w, v)
	}

	w.Flush()
	return buf.String()
}

func writeRows(w *tabwriter.Writer, rows []any) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No resources found.")
		return
	}
	seen := map[string]struct{}{}
	for _, r := range rows {
		if m, ok := r.(map[string]any); ok {
			for k := range m {
				seen[k] = struct{}{}
			}
		}
	}
	if len(seen) == 0 {
		for _, r := range rows {
			fmt.Fprintln(w, r)
		}
		return
	}
	cols := sortedKeys(seen)
	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = strings.ToUpper(c)
	}
	fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, r := range rows {
		m, _ := r.(map[string]any)
		vals := make([]string, len(cols))
		for i, c := range cols {
			vals[i] = cell(c, m[c])
		}
		fmt.Fprintln(w, strings.Join(vals, "\t"))
	}
}

func cell(key string, v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if x >= 0 && (strings.Contains(key, "size") || strings.HasSuffix(key, "bytes")) {
			return humanize.IBytes(uint64(x))
		}
		return fmt.Sprintf("%v", x)
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprintf("%v", x)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// JSONFormatter formats data as indented JSON.
type JSONFormatter struct{}

func (f *JSONFormatter) Format(data any) string {
	b, err := json.MarshalIndent(normalize(data), "", "  ")
	if err != nil {
		return fmt.Sprintf("error formatting JSON: %v\n", err)
	}
	return string(b) + "\n"
}

// YAMLFormatter formats data as YAML.
type YAMLFormatter struct{}

func (f *YAMLFormatter) Format(data any) string {
	b, err := yaml.Marshal(normalize(data))
	if err != nil {
		return fmt.Sprintf("error formatting YAML: %v\n", err)
	}
	return string(b)
}
