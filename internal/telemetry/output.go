package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
)

// OutputManager appends WindowStats rows to a CSV file under dir:
// gocsv writes the header row first, then headerless rows after.
type OutputManager struct {
	dir           string
	file          *os.File
	headerWritten bool
}

// NewOutputManager opens telemetry.csv under dir. A blank dir disables
// output: every method on a nil *OutputManager is then a no-op, so
// callers can pass it through unconditionally.
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("telemetry: creating output dir: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, "telemetry.csv"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: creating telemetry.csv: %w", err)
	}
	return &OutputManager{dir: dir, file: f}, nil
}

// Write appends one window's stats as a CSV row.
func (om *OutputManager) Write(stats WindowStats) error {
	if om == nil {
		return nil
	}
	records := []WindowStats{stats}
	if !om.headerWritten {
		om.headerWritten = true
		if err := gocsv.Marshal(records, om.file); err != nil {
			return fmt.Errorf("telemetry: writing header row: %w", err)
		}
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, om.file); err != nil {
		return fmt.Errorf("telemetry: writing row: %w", err)
	}
	return nil
}

// Dir returns the output directory, or "" if output is disabled.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes the underlying file.
func (om *OutputManager) Close() error {
	if om == nil || om.file == nil {
		return nil
	}
	return om.file.Close()
}
