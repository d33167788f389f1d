// Package dataset converts uploaded dataset files into evaluation test
// cases. Supported formats are CSV, JSON (array of objects) and JSON
// Lines; the format is auto-detected from the filename extension when not
// given explicitly.
package dataset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/verdictlabs/verdict/pkg/eval"
)

const (
	FormatAuto  = "auto"
	FormatCSV   = "csv"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
)

// Options control how a dataset file is interpreted.
type Options struct {
	// Format is one of auto, csv, json, jsonl. Empty means auto.
	Format string
	// ColumnMapping maps test case field names to dataset column names.
	// When empty, column names are used as field names directly.
	ColumnMapping map[string]string
}

// DetectFormat resolves the file format from the filename extension.
func DetectFormat(filename string) (string, error) {
	switch {
	case strings.HasSuffix(filename, ".csv"):
		return FormatCSV, nil
	case strings.HasSuffix(filename, ".jsonl"):
		return FormatJSONL, nil
	case strings.HasSuffix(filename, ".json"):
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("could not determine file format from %q; specify file_format explicitly", filename)
	}
}

// Parse converts file content into test cases.
func Parse(content []byte, filename string, opts Options) ([]eval.TestCase, error) {
	format := opts.Format
	if format == "" || format == FormatAuto {
		detected, err := DetectFormat(filename)
		if err != nil {
			return nil, err
		}
		format = detected
	}

	var rows []map[string]any
	var err error

	switch format {
	case FormatCSV:
		rows, err = parseCSV(content)
	case FormatJSON:
		rows, err = parseJSON(content)
	case FormatJSONL:
		rows, err = parseJSONL(content)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", format)
	}
	if err != nil {
		return nil, err
	}

	cases := make([]eval.TestCase, 0, len(rows))
	for i, row := range rows {
		tc, err := toTestCase(row, opts.ColumnMapping)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		cases = append(cases, tc)
	}
	return cases, nil
}

func parseCSV(content []byte) ([]map[string]any, error) {
	reader := csv.NewReader(strings.NewReader(string(content)))
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("csv file has no header row")
	}

	header := records[0]
	rows := make([]map[string]any, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseJSON(content []byte) ([]map[string]any, error) {
	var rows []map[string]any
	if err := json.Unmarshal(content, &rows); err == nil {
		return rows, nil
	}

	// A single object counts as a one-row dataset.
	var row map[string]any
	if err := json.Unmarshal(content, &row); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return []map[string]any{row}, nil
}

func parseJSONL(content []byte) ([]map[string]any, error) {
	var rows []map[string]any
	for i, line := range strings.Split(strings.TrimSpace(string(content)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var row map[string]any
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			return nil, fmt.Errorf("parse jsonl line %d: %w", i+1, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func toTestCase(row map[string]any, mapping map[string]string) (eval.TestCase, error) {
	mapped := row
	if len(mapping) > 0 {
		mapped = make(map[string]any, len(mapping))
		for field, column := range mapping {
			if v, ok := row[column]; ok {
				mapped[field] = v
			}
		}
	}

	tc := eval.TestCase{
		Input:            asString(mapped["input"]),
		ActualOutput:     asString(mapped["actual_output"]),
		ExpectedOutput:   asString(mapped["expected_output"]),
		Context:          asStringSlice(mapped["context"]),
		RetrievalContext: asStringSlice(mapped["retrieval_context"]),
	}

	if tc.Input == "" {
		return tc, fmt.Errorf("missing input field")
	}
	return tc, nil
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}

func asStringSlice(v any) []string {
	switch s := v.(type) {
	case nil:
		return nil
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			out = append(out, asString(item))
		}
		return out
	case string:
		if s == "" {
			return nil
		}
		return []string{s}
	default:
		return []string{asString(v)}
	}
}
