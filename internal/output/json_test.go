package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chronosdb/chronosai/internal/aimodel"
)

func TestWriteStatus_ToFile(t *testing.T) {
	status := aimodel.Status{
		Initialized:     true,
		MetricsRecorded: 42,
	}

	tmpDir := t.TempDir()
	outPath := filepath.Join(tmpDir, "status.json")

	if err := WriteStatus(status, outPath); err != nil {
		t.Fatalf("WriteStatus: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), `"metrics_recorded": 42`) {
		t.Errorf("output missing metrics_recorded: %s", data)
	}
}

func TestWriteStatus_Stdout(t *testing.T) {
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := WriteStatus(aimodel.Status{}, "-")

	w.Close()
	os.Stdout = oldStdout

	if err != nil {
		t.Fatalf("WriteStatus to stdout: %v", err)
	}

	buf := make([]byte, 4096)
	n, _ := r.Read(buf)
	if n == 0 {
		t.Error("no output to stdout")
	}
}

func TestWriteAnomalies_NilBecomesEmptyArray(t *testing.T) {
	tmpDir := t.TempDir()
	outPath := filepath.Join(tmpDir, "anomalies.json")

	if err := WriteAnomalies(nil, outPath); err != nil {
		t.Fatalf("WriteAnomalies: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("output = %q, want []", data)
	}
}
