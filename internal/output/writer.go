// Package output writes admitted records incrementally, one record per
// call, so a run interrupted mid-way keeps everything admitted so far.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"placewatch/internal/core/domain"
)

// Writer persists one admitted record at a time.
type Writer interface {
	Write(p *domain.Place) error
	Close() error
}

// CSVWriter appends records to a CSV file with the fixed column order.
type CSVWriter struct {
	file *os.File
	w    *csv.Writer
}

// NewCSVWriter creates the file and writes the header row.
func NewCSVWriter(path string) (*CSVWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create csv file: %w", err)
	}

	w := csv.NewWriter(file)
	if err := w.Write(domain.FieldOrder); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: file, w: w}, nil
}

// Write appends one record and flushes, keeping the file usable even if
// the run is abandoned.
func (c *CSVWriter) Write(p *domain.Place) error {
	record := []string{
		p.Name,
		p.Address,
		formatFloat(p.Latitude),
		formatFloat(p.Longitude),
		p.Phone,
		p.EmailColumn(),
		p.Website,
		p.Category,
		formatFloat(p.Rating),
		p.Hours,
		p.PriceLevel,
		p.BusinessStatus,
		p.ScrapedAt.Format(time.RFC3339),
	}
	if err := c.w.Write(record); err != nil {
		return fmt.Errorf("failed to write csv record: %w", err)
	}
	c.w.Flush()
	return c.w.Error()
}

// Close flushes and closes the file.
func (c *CSVWriter) Close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		_ = c.file.Close()
		return err
	}
	return c.file.Close()
}

// jsonRecord mirrors the output schema with the email set joined into a
// single column.
type jsonRecord struct {
	Name           string  `json:"name"`
	Address        string  `json:"address"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	Phone          string  `json:"phone"`
	Email          string  `json:"email"`
	Website        string  `json:"website"`
	Category       string  `json:"category"`
	Rating         float64 `json:"rating"`
	Hours          string  `json:"hours"`
	PriceLevel     string  `json:"price_level"`
	BusinessStatus string  `json:"business_status"`
	ScrapedAt      string  `json:"scraped_at"`
}

// JSONLWriter appends records as one JSON object per line.
type JSONLWriter struct {
	file *os.File
	enc  *json.Encoder
}

// NewJSONLWriter creates the output file.
func NewJSONLWriter(path string) (*JSONLWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create jsonl file: %w", err)
	}
	return &JSONLWriter{file: file, enc: json.NewEncoder(file)}, nil
}

// Write appends one record as a JSON line.
func (j *JSONLWriter) Write(p *domain.Place) error {
	rec := jsonRecord{
		Name:           p.Name,
		Address:        p.Address,
		Latitude:       p.Latitude,
		Longitude:      p.Longitude,
		Phone:          p.Phone,
		Email:          p.EmailColumn(),
		Website:        p.Website,
		Category:       p.Category,
		Rating:         p.Rating,
		Hours:          p.Hours,
		PriceLevel:     p.PriceLevel,
		BusinessStatus: p.BusinessStatus,
		ScrapedAt:      p.ScrapedAt.Format(time.RFC3339),
	}
	if err := j.enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to write jsonl record: %w", err)
	}
	return nil
}

// Close closes the file.
func (j *JSONLWriter) Close() error {
	return j.file.Close()
}

// Multi fans one record out to several writers.
type Multi struct {
	writers []Writer
}

// Combine builds a writer over all non-nil writers.
func Combine(writers ...Writer) *Multi {
	m := &Multi{}
	for _, w := range writers {
		if w != nil {
			m.writers = append(m.writers, w)
		}
	}
	return m
}

// Write forwards the record to every writer, stopping at the first error.
func (m *Multi) Write(p *domain.Place) error {
	for _, w := range m.writers {
		if err := w.Write(p); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every writer, returning the first error seen.
func (m *Multi) Close() error {
	var firstErr error
	for _, w := range m.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Len returns the number of active writers.
func (m *Multi) Len() int {
	return len(m.writers)
}

func formatFloat(f float64) string {
	if f == 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
