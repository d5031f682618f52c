// Package extract reads linear text out of the supported document formats.
//
// Formats with a two-dimensional layout (PDF) yield spatial words with
// bounding boxes so the caller can rebuild reading order; linear formats
// (DOCX, HTML, CSV, JSON, TXT) yield plain text directly. ALTO and record
// XML are not handled here: they go through the structural round-trip
// pipeline instead.
package extract

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/K4TEL/atrium-translator/doctree"
)

// Word is one extracted fragment with its position.
type Word struct {
	Text string
	Box  doctree.Box
	Page int
}

// Document is the result of reading one file.
type Document struct {
	// Text is the linear text for formats without layout.
	Text string
	// Words carries spatial fragments for layout-bearing formats; when set,
	// Text is empty and the caller derives it after reordering.
	Words []Word
	// Pages is the page count, 1 for unpaged formats.
	Pages int
}

// Reader extracts a Document from a file on disk.
type Reader interface {
	Read(path string) (*Document, error)
}

// ForFile picks a reader by file extension.
func ForFile(path string) (Reader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return PDFReader{}, nil
	case ".docx":
		return DOCXReader{}, nil
	case ".html", ".htm":
		return HTMLReader{}, nil
	case ".csv":
		return CSVReader{}, nil
	case ".json":
		return JSONReader{}, nil
	case ".txt":
		return TextReader{}, nil
	default:
		return nil, fmt.Errorf("extract: unsupported file type %q", filepath.Ext(path))
	}
}

// ---------------------------------------------------------------------------
// Plain text
// ---------------------------------------------------------------------------

// TextReader reads a file verbatim.
type TextReader struct{}

func (TextReader) Read(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("extract: reading %s: %w", path, err)
	}
	return &Document{Text: string(data), Pages: 1}, nil
}

// ---------------------------------------------------------------------------
// CSV
// ---------------------------------------------------------------------------

// CSVReader extracts the text-bearing column: the first header whose name
// contains "text", case-insensitive. Rows with an empty cell are skipped.
type CSVReader struct{}

func (CSVReader) Read(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("extract: opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("extract: parsing csv %s: %w", path, err)
	}
	if len(records) == 0 {
		return &Document{Pages: 1}, nil
	}

	col := -1
	for i, h := range records[0] {
		if strings.Contains(strings.ToLower(h), "text") {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("extract: %s has no text-bearing column", path)
	}

	var lines []string
	for _, row := range records[1:] {
		if col < len(row) && strings.TrimSpace(row[col]) != "" {
			lines = append(lines, row[col])
		}
	}
	return &Document{Text: strings.Join(lines, "\n"), Pages: 1}, nil
}

// ---------------------------------------------------------------------------
// JSON
// ---------------------------------------------------------------------------

// JSONReader collects string values under keys containing "text",
// recursively through objects and arrays, in document order.
type JSONReader struct{}

func (JSONReader) Read(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("extract: reading %s: %w", path, err)
	}
	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("extract: parsing json %s: %w", path, err)
	}
	texts := collectTextValues(root)
	return &Document{Text: strings.Join(texts, "\n"), Pages: 1}, nil
}

func collectTextValues(v any) []string {
	var out []string
	switch val := v.(type) {
	case map[string]any:
		// Object key order is lost on decode; iterate sorted so repeated
		// runs extract in the same order.
		for _, k := range sortedKeys(val) {
			child := val[k]
			if s, ok := child.(string); ok && strings.Contains(strings.ToLower(k), "text") {
				out = append(out, s)
				continue
			}
			out = append(out, collectTextValues(child)...)
		}
	case []any:
		for _, item := range val {
			out = append(out, collectTextValues(item)...)
		}
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
