package metrics

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := SetOutput(&buf)
	t.Cleanup(func() { SetOutput(prev) })
	return &buf
}

func TestNew_BinaryDimension(t *testing.T) {
	r := New("TestNamespace")
	if r.namespace != "TestNamespace" {
		t.Errorf("expected namespace TestNamespace, got %s", r.namespace)
	}
	if r.dimensions["Binary"] == "" {
		t.Error("expected Binary dimension to be set from the executable name")
	}
}

func TestRecorder_FlushOutput(t *testing.T) {
	buf := captureOutput(t)

	New(Namespace).
		Dimension("Result", "success").
		Metric("EnhanceMs", 1234.5, UnitMilliseconds).
		Count("EnhanceCalls").
		Property("imageId", "abc-123").
		Flush()

	output := buf.String()
	if strings.Count(output, "\n") != 1 {
		t.Fatalf("expected exactly one line, got %q", output)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(output), &doc); err != nil {
		t.Fatalf("failed to parse EMF output as JSON: %v\nOutput: %s", err, output)
	}

	awsMap, ok := doc["_aws"].(map[string]any)
	if !ok {
		t.Fatal("missing _aws directive in EMF output")
	}
	cwMetrics, ok := awsMap["CloudWatchMetrics"].([]any)
	if !ok || len(cwMetrics) != 1 {
		t.Fatalf("expected 1 CloudWatchMetrics entry, got %v", awsMap["CloudWatchMetrics"])
	}
	entry := cwMetrics[0].(map[string]any)
	if entry["Namespace"] != Namespace {
		t.Errorf("Namespace = %v, want %s", entry["Namespace"], Namespace)
	}
	defs := entry["Metrics"].([]any)
	if len(defs) != 2 {
		t.Fatalf("expected 2 metric definitions, got %d", len(defs))
	}
	// Definitions are sorted by name.
	if defs[0].(map[string]any)["Name"] != "EnhanceCalls" {
		t.Errorf("first metric = %v, want EnhanceCalls", defs[0])
	}

	if doc["Result"] != "success" {
		t.Errorf("Result = %v, want success", doc["Result"])
	}
	if doc["EnhanceMs"] != 1234.5 {
		t.Errorf("EnhanceMs = %v, want 1234.5", doc["EnhanceMs"])
	}
	if doc["imageId"] != "abc-123" {
		t.Errorf("imageId = %v, want abc-123", doc["imageId"])
	}
}

func TestRecorder_FlushEmpty(t *testing.T) {
	buf := captureOutput(t)

	New(Namespace).Dimension("Result", "noop").Property("k", "v").Flush()

	if buf.Len() != 0 {
		t.Errorf("expected no output without metrics, got %q", buf.String())
	}
}

func TestRecorder_DimensionsCannotBeShadowedByProperties(t *testing.T) {
	buf := captureOutput(t)

	New(Namespace).
		Dimension("Result", "failure").
		Property("Result", "overwritten").
		Count("Calls").
		Flush()

	var doc map[string]any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	if doc["Result"] != "failure" {
		t.Errorf("Result = %v, want dimension value failure", doc["Result"])
	}
}
