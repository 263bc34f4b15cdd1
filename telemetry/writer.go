package telemetry

import (
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"
)

// Writer appends samples to a CSV stream. The header row is written with
// the first sample.
type Writer struct {
	w             io.Writer
	closer        io.Closer
	headerWritten bool
	rows          int
}

// NewWriter writes CSV to w. Close does not close w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Create writes CSV to a new file at path.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return &Writer{w: f, closer: f}, nil
}

// Write appends one sample.
func (w *Writer) Write(s Sample) error {
	records := []Sample{s}
	if !w.headerWritten {
		if err := gocsv.Marshal(records, w.w); err != nil {
			return fmt.Errorf("writing telemetry: %w", err)
		}
		w.headerWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, w.w); err != nil {
			return fmt.Errorf("writing telemetry: %w", err)
		}
	}
	w.rows++
	return nil
}

// Rows returns the number of samples written.
func (w *Writer) Rows() int { return w.rows }

// Close closes the underlying file when the writer owns one.
func (w *Writer) Close() error {
	if w.closer == nil {
		return nil
	}
	err := w.closer.Close()
	w.closer = nil
	return err
}
