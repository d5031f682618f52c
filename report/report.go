// Package report collects per-unit translation outcomes and writes the QA
// CSV log. Partial success is the normal case: failed units are recorded
// next to translated ones and summarized at the end of a run instead of
// aborting it.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
)

// Status classifies one unit's outcome.
type Status string

const (
	StatusTranslated Status = "translated"
	StatusSkipped    Status = "skipped"
	StatusFailed     Status = "failed"
)

// Record is one unit's outcome.
type Record struct {
	Document   string
	Page       int
	Location   string
	Source     string
	Translated string
	Status     Status
	// Err holds the failure cause for StatusFailed records.
	Err error
}

// Report accumulates records for one document or batch. Safe for concurrent
// Add calls from parallel unit workers.
type Report struct {
	mu      sync.Mutex
	records []Record
}

func New() *Report {
	return &Report{}
}

// Add appends one outcome.
func (r *Report) Add(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

// Records returns a copy of everything recorded so far.
func (r *Report) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// Summary is the aggregate view of a run.
type Summary struct {
	Total      int
	Translated int
	Skipped    int
	Failed     int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d units: %d translated, %d skipped, %d failed",
		s.Total, s.Translated, s.Skipped, s.Failed)
}

// AllFailed reports whether the run produced no usable output at all; a
// document only counts as failed outright in that case.
func (s Summary) AllFailed() bool {
	return s.Total > 0 && s.Failed == s.Total
}

func (r *Report) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	var s Summary
	s.Total = len(r.records)
	for _, rec := range r.records {
		switch rec.Status {
		case StatusTranslated:
			s.Translated++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}

// ---------------------------------------------------------------------------
// QA CSV
// ---------------------------------------------------------------------------

// csvHeader matches the QA log layout: one row per translated unit.
var csvHeader = []string{"document", "page", "location", "source", "translated"}

// WriteCSV writes the QA log for all translated units, in record order.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("report: writing csv header: %w", err)
	}
	for _, rec := range r.Records() {
		if rec.Status != StatusTranslated {
			continue
		}
		row := []string{rec.Document, strconv.Itoa(rec.Page), rec.Location, rec.Source, rec.Translated}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("report: writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the QA log to path.
func (r *Report) WriteCSVFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: creating %s: %w", path, err)
	}
	if err := r.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Failures returns the failed records for logging.
func (r *Report) Failures() []Record {
	var out []Record
	for _, rec := range r.Records() {
		if rec.Status == StatusFailed {
			out = append(out, rec)
		}
	}
	return out
}
