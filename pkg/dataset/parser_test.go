package dataset

import (
	"strings"
	"testing"
)

func TestParse_CSV(t *testing.T) {
	content := []byte("input,actual_output,expected_output\nWhat is 2+2?,4,4\nCapital of France?,Paris,Paris\n")

	cases, err := Parse(content, "data.csv", Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(cases) != 2 {
		t.Fatalf("expected 2 test cases, got %d", len(cases))
	}
	if cases[0].Input != "What is 2+2?" || cases[0].ActualOutput != "4" {
		t.Errorf("unexpected first case: %+v", cases[0])
	}
	if cases[1].ExpectedOutput != "Paris" {
		t.Errorf("unexpected second case: %+v", cases[1])
	}
}

func TestParse_JSONArray(t *testing.T) {
	content := []byte(`[
		{"input": "q1", "actual_output": "a1", "retrieval_context": ["doc one", "doc two"]},
		{"input": "q2", "actual_output": "a2"}
	]`)

	cases, err := Parse(content, "data.json", Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(cases) != 2 {
		t.Fatalf("expected 2 test cases, got %d", len(cases))
	}
	if len(cases[0].RetrievalContext) != 2 {
		t.Errorf("expected 2 retrieval context entries, got %d", len(cases[0].RetrievalContext))
	}
}

func TestParse_JSONSingleObject(t *testing.T) {
	cases, err := Parse([]byte(`{"input": "q", "actual_output": "a"}`), "one.json", Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(cases) != 1 {
		t.Fatalf("expected 1 test case, got %d", len(cases))
	}
}

func TestParse_JSONL(t *testing.T) {
	content := []byte(`{"input": "q1", "actual_output": "a1"}
{"input": "q2", "actual_output": "a2"}

{"input": "q3", "actual_output": "a3"}`)

	cases, err := Parse(content, "data.jsonl", Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(cases) != 3 {
		t.Fatalf("expected 3 test cases, got %d", len(cases))
	}
}

func TestParse_ColumnMapping(t *testing.T) {
	content := []byte("question,answer,reference\nq1,a1,r1\n")

	cases, err := Parse(content, "data.csv", Options{
		ColumnMapping: map[string]string{
			"input":           "question",
			"actual_output":   "answer",
			"expected_output": "reference",
		},
	})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cases[0].Input != "q1" || cases[0].ActualOutput != "a1" || cases[0].ExpectedOutput != "r1" {
		t.Errorf("mapping not applied: %+v", cases[0])
	}
}

func TestParse_UndetectableFormat(t *testing.T) {
	if _, err := Parse([]byte("whatever"), "data.xlsx", Options{}); err == nil {
		t.Error("expected error for undetectable format")
	}
	_, err := DetectFormat("data.txt")
	if err == nil {
		t.Fatal("expected detection error for .txt")
	}
	if !strings.Contains(err.Error(), "file_format") {
		t.Error("detection error should hint at file_format")
	}
}

func TestParse_ExplicitFormatOverridesExtension(t *testing.T) {
	cases, err := Parse([]byte(`{"input": "q", "actual_output": "a"}`), "upload.bin", Options{Format: FormatJSON})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(cases) != 1 {
		t.Fatalf("expected 1 test case, got %d", len(cases))
	}
}

func TestParse_MissingInput(t *testing.T) {
	if _, err := Parse([]byte(`[{"actual_output": "a"}]`), "data.json", Options{}); err == nil {
		t.Error("expected error for row without input")
	}
}
