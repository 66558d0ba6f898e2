// Package output renders extraction results as JSON, CSV, or
// human-readable text.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/nhle/eodex/internal/model"
)

// Format selects the output rendering.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatText Format = "text"
)

// ParseFormat validates a format name from a flag or config value.
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case FormatJSON, FormatCSV, FormatText:
		return Format(name), nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want json, csv, or text)", name)
	}
}

// Write renders results in the given format to w.
func Write(w io.Writer, results []model.Extraction, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, results)
	case FormatCSV:
		return writeCSV(w, results)
	case FormatText:
		return writeText(w, results)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// WriteFile renders results to the file at path, or to fallback (usually
// stdout) when path is empty.
func WriteFile(path string, fallback io.Writer, results []model.Extraction, format Format) error {
	if path == "" {
		return Write(fallback, results, format)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file %s: %w", path, err)
	}

	if err := Write(f, results, format); err != nil {
		f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing output file %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, results []model.Extraction) error {
	if results == nil {
		results = []model.Extraction{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}

func writeCSV(w io.Writer, results []model.Extraction) error {
	cw := csv.NewWriter(w)

	header := []string{"Date", "Subject", "Task Description", "Time Spent", "Email ID"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	// One row per task; an email with N tasks produces N rows sharing
	// date, subject, and email ID.
	for _, r := range results {
		date := r.Date.Format(time.RFC3339)
		for _, task := range r.Section.Tasks {
			row := []string{date, r.Subject, task.Description, task.TimeSpent, r.EmailID}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("writing CSV row: %w", err)
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing CSV output: %w", err)
	}
	return nil
}

func writeText(w io.Writer, results []model.Extraction) error {
	for i, r := range results {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}

		fmt.Fprintf(w, "Date: %s\n", r.Date.Format(time.RFC3339))
		fmt.Fprintf(w, "Subject: %s\n", r.Subject)
		fmt.Fprintf(w, "EOD Section: %s\n", r.Section.SectionHeader)

		for _, task := range r.Section.Tasks {
			if task.TimeSpent != "" {
				fmt.Fprintf(w, "  • %s - %s\n", task.Description, task.TimeSpent)
			} else {
				fmt.Fprintf(w, "  • %s\n", task.Description)
			}
		}
	}
	return nil
}
