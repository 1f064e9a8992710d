// Package report writes an audit run as JSON, CSV and Markdown.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"ciphercourt/internal/model"
)

// Format names an output format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// Formats is every supported format in generation order.
var Formats = []Format{FormatJSON, FormatCSV, FormatMarkdown}

// ParseFormat accepts the format names plus "md".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

// Generate writes the run in each format under outDir and returns the path per format.
func Generate(outDir string, run *model.RunReport, formats []Format) (map[Format]string, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, err
	}

	paths := make(map[Format]string, len(formats))
	for _, f := range formats {
		var (
			name   string
			render func(io.Writer, *model.RunReport) error
		)
		switch f {
		case FormatJSON:
			name, render = "audit_summary.json", WriteJSON
		case FormatCSV:
			name, render = fmt.Sprintf("audit_report_%s.csv", run.AuditTimestamp.Format("20060102_150405")), WriteCSV
		case FormatMarkdown:
			name, render = "audit_report.md", WriteMarkdown
		default:
			return paths, fmt.Errorf("unknown report format %q", f)
		}

		path := filepath.Join(outDir, name)
		if err := writeFile(path, run, render); err != nil {
			return paths, fmt.Errorf("write %s report: %w", f, err)
		}
		paths[f] = path
	}
	return paths, nil
}

func writeFile(path string, run *model.RunReport, render func(io.Writer, *model.RunReport) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f, run); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteJSON writes the run report verbatim.
func WriteJSON(w io.Writer, run *model.RunReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(run)
}

var csvHeader = []string{
	"Source", "Overall Status", "Availability Status", "Data Quality Status",
	"Timestamps Status", "Leakage Check Status", "Issues",
}

// WriteCSV writes one row per source in audit order.
func WriteCSV(w io.Writer, run *model.RunReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range run.Ordered() {
		issues := "None"
		if all := r.Issues(); len(all) > 0 {
			issues = strings.Join(all, "; ")
		}
		row := []string{
			r.Source,
			r.OverallStatus.String(),
			r.Availability.Status.String(),
			r.DataQuality.Status.String(),
			r.Timestamps.Status.String(),
			r.LeakageCheck.Status.String(),
			issues,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

var emoji = map[model.Status]string{
	model.StatusPass:         "✅",
	model.StatusFail:         "❌",
	model.StatusWarning:      "⚠️",
	model.StatusNotAvailable: "❓",
}

var checkTitles = map[model.CheckType]string{
	model.CheckAvailability: "Availability",
	model.CheckDataQuality:  "Data Quality",
	model.CheckTimestamps:   "Timestamps",
	model.CheckLeakage:      "Leakage Detection",
}

// WriteMarkdown writes a human-readable report.
func WriteMarkdown(w io.Writer, run *model.RunReport) error {
	_, err := io.WriteString(w, generateMarkdown(run))
	return err
}

func generateMarkdown(run *model.RunReport) string {
	var sb strings.Builder

	sb.WriteString("# CipherCourt Audit Report\n\n")
	fmt.Fprintf(&sb, "**Audit Timestamp:** %s\n", run.AuditTimestamp.Format("2006-01-02T15:04:05Z07:00"))
	if !run.ReferenceTime.IsZero() && !run.ReferenceTime.Equal(run.AuditTimestamp) {
		fmt.Fprintf(&sb, "**Reference Time:** %s\n", run.ReferenceTime.Format("2006-01-02T15:04:05Z07:00"))
	}
	fmt.Fprintf(&sb, "**Framework:** %s\n", run.Framework)
	fmt.Fprintf(&sb, "**Run ID:** `%s`\n", run.RunID)
	fmt.Fprintf(&sb, "**Audit Duration:** %.2f seconds\n", run.DurationSeconds)
	if digest, err := Digest(run); err == nil {
		fmt.Fprintf(&sb, "**Report Digest:** `%s`\n", digest)
	}
	sb.WriteString("\n")

	s := run.Summary
	sb.WriteString("## Summary\n\n")
	fmt.Fprintf(&sb, "- **Total Connectors:** %d\n", s.TotalConnectors)
	fmt.Fprintf(&sb, "- **Passed:** %d\n", s.Passed)
	fmt.Fprintf(&sb, "- **Failed:** %d\n", s.Failed)
	fmt.Fprintf(&sb, "- **Warnings:** %d\n", s.Warnings)
	fmt.Fprintf(&sb, "- **Not Available:** %d\n\n", s.NotAvailable)

	if len(s.CriticalIssues) > 0 {
		sb.WriteString("### ⚠️ Critical Issues\n\n")
		for _, issue := range s.CriticalIssues {
			fmt.Fprintf(&sb, "- %s\n", issue)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Detailed Results\n\n")
	for _, r := range run.Ordered() {
		fmt.Fprintf(&sb, "### %s\n\n", r.Source)
		fmt.Fprintf(&sb, "**Overall Status:** %s %s\n\n", emoji[r.OverallStatus], r.OverallStatus.Label())
		for _, t := range model.CheckTypes {
			c := r.Check(t)
			fmt.Fprintf(&sb, "#### %s\n\n", checkTitles[t])
			fmt.Fprintf(&sb, "**Status:** %s %s\n", emoji[c.Status], c.Status.Label())
			if len(c.Issues) > 0 {
				sb.WriteString("\n**Issues:**\n")
				for _, issue := range c.Issues {
					fmt.Fprintf(&sb, "- %s\n", issue)
				}
			}
			sb.WriteString("\n")
		}
		sb.WriteString("---\n\n")
	}

	return sb.String()
}
