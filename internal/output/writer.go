package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nephila016/emailvalidate/internal/verifier"
)

// Writer interface for different output formats
type Writer interface {
	Write(result *verifier.Result) error
	Flush() error
	Close() error
}

// Format represents output format type
type Format string

const (
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatJSONL Format = "jsonl"
	FormatTXT   Format = "txt"
)

// DetectFormat detects output format from filename
func DetectFormat(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".json":
		return FormatJSON
	case ".csv":
		return FormatCSV
	case ".jsonl", ".ndjson":
		return FormatJSONL
	default:
		return FormatTXT
	}
}

// Record is the flat, per-address row written by every format
type Record struct {
	Email               string    `json:"email"`
	Valid               bool      `json:"valid"`
	Outcome             string    `json:"outcome"`
	Message             string    `json:"message"`
	Category            string    `json:"category,omitempty"`
	Domain              string    `json:"domain,omitempty"`
	IsFreeEmail         bool      `json:"isFreeEmail"`
	IsDisposableEmail   bool      `json:"isDisposableEmail"`
	IsRoleBasedEmail    bool      `json:"isRoleBasedEmail"`
	TestEmailAddress    string    `json:"test_email_address,omitempty"`
	SimulatedValidation bool      `json:"simulated_validation"`
	LookupDegraded      bool      `json:"lookup_degraded,omitempty"`
	Error               string    `json:"error,omitempty"`
	LatencyMs           int64     `json:"latency_ms"`
	CheckedAt           time.Time `json:"checked_at"`
}

// NewRecord flattens a pipeline result
func NewRecord(r *verifier.Result) Record {
	rec := Record{
		Email:               r.Email,
		Valid:               r.Valid(),
		Outcome:             string(r.Outcome),
		Message:             r.Response.Message,
		Category:            r.Category(),
		TestEmailAddress:    r.TestEmailAddress(),
		SimulatedValidation: r.SimulatedValidation(),
		LookupDegraded:      r.LookupDegraded,
		Error:               r.ErrorString(),
		LatencyMs:           r.LatencyMs,
		CheckedAt:           r.CheckedAt,
	}
	if c := r.Classification; c != nil {
		rec.Domain = c.Domain
		rec.IsFreeEmail = c.IsFreeEmail
		rec.IsDisposableEmail = c.IsDisposableEmail
		rec.IsRoleBasedEmail = c.IsRoleBasedEmail
	}
	return rec
}

// NewWriter creates a writer for the given format and file
func NewWriter(filename string, format Format) (Writer, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return NewFormatWriter(file, format), nil
}

// NewFormatWriter wraps an open destination. Close closes it.
func NewFormatWriter(dst io.WriteCloser, format Format) Writer {
	switch format {
	case FormatJSON:
		return NewJSONWriter(dst)
	case FormatCSV:
		return NewCSVWriter(dst)
	case FormatJSONL:
		return NewJSONLWriter(dst)
	default:
		return NewTXTWriter(dst)
	}
}

// JSONWriter collects records and writes them as one JSON array on Close
type JSONWriter struct {
	dst     io.WriteCloser
	records []Record
	mu      sync.Mutex
}

func NewJSONWriter(dst io.WriteCloser) *JSONWriter {
	return &JSONWriter{
		dst:     dst,
		records: make([]Record, 0),
	}
}

func (w *JSONWriter) Write(result *verifier.Result) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.records = append(w.records, NewRecord(result))
	return nil
}

// Flush is a no-op; the array is only complete once Close runs.
func (w *JSONWriter) Flush() error {
	return nil
}

func (w *JSONWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	encoder := json.NewEncoder(w.dst)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(w.records); err != nil {
		w.dst.Close()
		return err
	}
	return w.dst.Close()
}

// JSONLWriter writes results as JSON Lines (one JSON per line)
type JSONLWriter struct {
	dst     io.WriteCloser
	encoder *json.Encoder
	mu      sync.Mutex
}

func NewJSONLWriter(dst io.WriteCloser) *JSONLWriter {
	return &JSONLWriter{
		dst:     dst,
		encoder: json.NewEncoder(dst),
	}
}

func (w *JSONLWriter) Write(result *verifier.Result) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.encoder.Encode(NewRecord(result))
}

func (w *JSONLWriter) Flush() error {
	return syncFile(w.dst)
}

func (w *JSONLWriter) Close() error {
	return w.dst.Close()
}

var csvHeader = []string{
	"email",
	"valid",
	"outcome",
	"message",
	"category",
	"domain",
	"free",
	"disposable",
	"role",
	"test_email_address",
	"simulated_validation",
	"error",
	"latency_ms",
	"checked_at",
}

// CSVWriter writes results as CSV
type CSVWriter struct {
	dst    io.WriteCloser
	writer *csv.Writer
	mu     sync.Mutex
	header bool
}

func NewCSVWriter(dst io.WriteCloser) *CSVWriter {
	return &CSVWriter{
		dst:    dst,
		writer: csv.NewWriter(dst),
	}
}

func (w *CSVWriter) Write(result *verifier.Result) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.header {
		if err := w.writer.Write(csvHeader); err != nil {
			return err
		}
		w.header = true
	}

	rec := NewRecord(result)
	return w.writer.Write([]string{
		rec.Email,
		strconv.FormatBool(rec.Valid),
		rec.Outcome,
		rec.Message,
		rec.Category,
		rec.Domain,
		strconv.FormatBool(rec.IsFreeEmail),
		strconv.FormatBool(rec.IsDisposableEmail),
		strconv.FormatBool(rec.IsRoleBasedEmail),
		rec.TestEmailAddress,
		strconv.FormatBool(rec.SimulatedValidation),
		rec.Error,
		strconv.FormatInt(rec.LatencyMs, 10),
		rec.CheckedAt.Format(time.RFC3339),
	})
}

func (w *CSVWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writer.Flush()
	return w.writer.Error()
}

func (w *CSVWriter) Close() error {
	err := w.Flush()
	if cerr := w.dst.Close(); err == nil {
		err = cerr
	}
	return err
}

// TXTWriter writes accepted emails as plain text (one per line)
type TXTWriter struct {
	dst io.WriteCloser
	mu  sync.Mutex
}

func NewTXTWriter(dst io.WriteCloser) *TXTWriter {
	return &TXTWriter{dst: dst}
}

func (w *TXTWriter) Write(result *verifier.Result) error {
	if !result.Valid() {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	_, err := fmt.Fprintf(w.dst, "%s\n", result.Email)
	return err
}

func (w *TXTWriter) Flush() error {
	return syncFile(w.dst)
}

func (w *TXTWriter) Close() error {
	return w.dst.Close()
}

// MultiWriter writes to multiple outputs
type MultiWriter struct {
	writers []Writer
}

func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

func (w *MultiWriter) Write(result *verifier.Result) error {
	for _, writer := range w.writers {
		if err := writer.Write(result); err != nil {
			return err
		}
	}
	return nil
}

func (w *MultiWriter) Flush() error {
	for _, writer := range w.writers {
		if err := writer.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (w *MultiWriter) Close() error {
	for _, writer := range w.writers {
		if err := writer.Close(); err != nil {
			return err
		}
	}
	return nil
}

// WriteResultsToFile writes all results to a file
func WriteResultsToFile(filename string, results []*verifier.Result) error {
	writer, err := NewWriter(filename, DetectFormat(filename))
	if err != nil {
		return err
	}

	for _, result := range results {
		if err := writer.Write(result); err != nil {
			writer.Close()
			return err
		}
	}

	return writer.Close()
}

func syncFile(dst io.Writer) error {
	if f, ok := dst.(*os.File); ok {
		return f.Sync()
	}
	return nil
}
