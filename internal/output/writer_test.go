package output

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nephila016/emailvalidate/internal/verifier"
)

type nopCloser struct {
	*bytes.Buffer
	closed bool
}

func (n *nopCloser) Close() error {
	n.closed = true
	return nil
}

func results(t *testing.T) []*verifier.Result {
	t.Helper()
	p := verifier.New(verifier.Config{})
	return []*verifier.Result{
		p.Validate(context.Background(), "jane@gmail.com"),
		p.Validate(context.Background(), "test@acme.io"),
		p.Validate(context.Background(), "broken"),
	}
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, DetectFormat("out.JSON"))
	assert.Equal(t, FormatCSV, DetectFormat("out.csv"))
	assert.Equal(t, FormatJSONL, DetectFormat("out.ndjson"))
	assert.Equal(t, FormatTXT, DetectFormat("out"))
}

func TestCSVWriter(t *testing.T) {
	buf := &nopCloser{Buffer: &bytes.Buffer{}}
	w := NewCSVWriter(buf)
	for _, r := range results(t) {
		require.NoError(t, w.Write(r))
	}
	require.NoError(t, w.Close())
	assert.True(t, buf.closed)

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, csvHeader, rows[0])

	assert.Equal(t, "jane@gmail.com", rows[1][0])
	assert.Equal(t, "true", rows[1][1])
	assert.Equal(t, "VALID", rows[1][2])
	assert.Equal(t, "Free Email", rows[1][4])
	assert.Equal(t, "gmail.com", rows[1][5])

	assert.Equal(t, "BLACKLISTED", rows[2][2])
	assert.Equal(t, "email contains blacklisted keywords", rows[2][11])

	assert.Equal(t, "INVALID_FORMAT", rows[3][2])
	assert.Equal(t, "", rows[3][4])
}

func TestJSONWriter(t *testing.T) {
	buf := &nopCloser{Buffer: &bytes.Buffer{}}
	w := NewJSONWriter(buf)
	for _, r := range results(t) {
		require.NoError(t, w.Write(r))
	}
	require.NoError(t, w.Close())

	var records []Record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &records))
	require.Len(t, records, 3)
	assert.True(t, records[0].Valid)
	assert.Equal(t, "Free Email", records[0].Category)
	assert.Equal(t, "Email contains blacklisted keywords.", records[1].Message)
}

func TestJSONLWriter(t *testing.T) {
	buf := &nopCloser{Buffer: &bytes.Buffer{}}
	w := NewJSONLWriter(buf)
	for _, r := range results(t) {
		require.NoError(t, w.Write(r))
	}
	require.NoError(t, w.Flush())
	require.NoError(t, w.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &rec))
	assert.Equal(t, "INVALID_FORMAT", rec.Outcome)
}

func TestTXTWriterOnlyAccepted(t *testing.T) {
	buf := &nopCloser{Buffer: &bytes.Buffer{}}
	w := NewTXTWriter(buf)
	for _, r := range results(t) {
		require.NoError(t, w.Write(r))
	}
	require.NoError(t, w.Close())
	assert.Equal(t, "jane@gmail.com\n", buf.String())
}

func TestWriteResultsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.jsonl")
	require.NoError(t, WriteResultsToFile(path, results(t)))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(b), "\n"))
}

func TestMultiWriter(t *testing.T) {
	a := &nopCloser{Buffer: &bytes.Buffer{}}
	b := &nopCloser{Buffer: &bytes.Buffer{}}
	w := NewMultiWriter(NewTXTWriter(a), NewJSONLWriter(b))

	for _, r := range results(t) {
		require.NoError(t, w.Write(r))
	}
	require.NoError(t, w.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
	assert.Equal(t, 1, strings.Count(a.String(), "\n"))
	assert.Equal(t, 3, strings.Count(b.String(), "\n"))
}
