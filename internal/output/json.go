// Package output serializes AI-layer reports for the CLI and MCP
// surfaces. Adapted from the donor's internal/output/json.go: same
// encoder configuration, same stdout-by-default convention, pointed
// at aimodel.Status and aimodel.AnomalyReport instead of a system
// diagnostics report.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/chronosdb/chronosai/internal/aimodel"
)

func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, f.Close, nil
}

func encode(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

// WriteStatus serializes status as indented JSON for SHOW AI STATUS.
// If path is "-" or empty, writes to stdout.
func WriteStatus(status aimodel.Status, path string) error {
	w, closeFn, err := openOutput(path)
	if err != nil {
		return err
	}
	defer closeFn()
	return encode(w, status)
}

// WriteAnomalies serializes a slice of anomaly reports as indented
// JSON for SHOW ANOMALIES. If path is "-" or empty, writes to stdout.
func WriteAnomalies(reports []aimodel.AnomalyReport, path string) error {
	w, closeFn, err := openOutput(path)
	if err != nil {
		return err
	}
	defer closeFn()
	if reports == nil {
		reports = []aimodel.AnomalyReport{}
	}
	return encode(w, reports)
}
