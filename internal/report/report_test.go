package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ciphercourt/internal/model"
)

func sampleRun() *model.RunReport {
	start := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

	leak := model.NewCheckResult()
	leak.Escalate(model.StatusFail, "CRITICAL LEAKAGE DETECTED: 1 records have available_at >= match_start_time (look-ahead bias)")
	quality := model.NewCheckResult()
	quality.Escalate(model.StatusWarning, "Found 2 incomplete records")

	odds := &model.SourceReport{
		Source: "pre_match_odds", AuditTimestamp: start,
		Availability: model.NewCheckResult(), DataQuality: quality,
		Timestamps: model.NewCheckResult(), LeakageCheck: leak,
		OverallStatus: model.StatusFail,
	}
	venue := &model.SourceReport{
		Source: "venue_metadata", AuditTimestamp: start,
		Availability: model.NewCheckResult(), DataQuality: model.NewCheckResult(),
		Timestamps: model.NewCheckResult(), LeakageCheck: model.NewCheckResult(),
		OverallStatus: model.StatusPass,
	}

	return &model.RunReport{
		Framework:         model.FrameworkName,
		RunID:             "run-1",
		AuditTimestamp:    start,
		FinishedAt:        start.Add(1500 * time.Millisecond),
		ConnectorsAudited: []string{"pre_match_odds", "venue_metadata"},
		Results:           map[string]*model.SourceReport{"pre_match_odds": odds, "venue_metadata": venue},
		Summary: model.RunSummary{
			TotalConnectors: 2, Passed: 1, Failed: 1,
			CriticalIssues: []string{"pre_match_odds: Found 2 incomplete records"},
			AllIssues:      []string{"pre_match_odds.data_quality: Found 2 incomplete records"},
		},
		DurationSeconds: 1.5,
	}
}

func TestGenerate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	paths, err := Generate(dir, sampleRun(), Formats)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	want := map[Format]string{
		FormatJSON:     filepath.Join(dir, "audit_summary.json"),
		FormatCSV:      filepath.Join(dir, "audit_report_20240309_140507.csv"),
		FormatMarkdown: filepath.Join(dir, "audit_report.md"),
	}
	for f, path := range want {
		if paths[f] != path {
			t.Errorf("%s: expected %s, got %s", f, path, paths[f])
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s: %v", f, err)
		}
	}
}

func TestGenerate_OnlyRequestedFormats(t *testing.T) {
	dir := t.TempDir()
	paths, err := Generate(dir, sampleRun(), []Format{FormatJSON})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(paths) != 1 {
		t.Errorf("expected 1 report, got %v", paths)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected 1 file, got %d", len(entries))
	}

	if _, err := Generate(dir, sampleRun(), []Format{"pdf"}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleRun()); err != nil {
		t.Fatal(err)
	}

	var doc map[string]any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if doc["audit_framework"] != "CipherCourt" {
		t.Errorf("unexpected framework %v", doc["audit_framework"])
	}
	results := doc["results"].(map[string]any)
	odds := results["pre_match_odds"].(map[string]any)
	if odds["overall_status"] != "fail" {
		t.Errorf("expected lowercase status, got %v", odds["overall_status"])
	}
	leak := odds["leakage_check"].(map[string]any)
	if leak["status"] != "fail" {
		t.Errorf("unexpected leakage status %v", leak["status"])
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleRun()); err != nil {
		t.Fatal(err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != "Source,Overall Status,Availability Status,Data Quality Status,Timestamps Status,Leakage Check Status,Issues" {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[1][0] != "pre_match_odds" || rows[1][1] != "fail" || rows[1][3] != "warning" {
		t.Errorf("unexpected row %v", rows[1])
	}
	wantIssues := "Found 2 incomplete records; CRITICAL LEAKAGE DETECTED: 1 records have available_at >= match_start_time (look-ahead bias)"
	if rows[1][6] != wantIssues {
		t.Errorf("unexpected issues %q", rows[1][6])
	}
	if rows[2][6] != "None" {
		t.Errorf("expected None, got %q", rows[2][6])
	}
}

func TestWriteMarkdown(t *testing.T) {
	md := generateMarkdown(sampleRun())

	for _, want := range []string{
		"# CipherCourt Audit Report",
		"**Audit Duration:** 1.50 seconds",
		"- **Failed:** 1",
		"### ⚠️ Critical Issues",
		"- pre_match_odds: Found 2 incomplete records",
		"### pre_match_odds",
		"**Overall Status:** ❌ FAIL",
		"#### Leakage Detection",
		"**Status:** ⚠️ WARNING",
		"**Overall Status:** ✅ PASS",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
	if strings.Index(md, "### pre_match_odds") > strings.Index(md, "### venue_metadata") {
		t.Error("sources out of audit order")
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"json": FormatJSON, "CSV": FormatCSV, "md": FormatMarkdown, "markdown": FormatMarkdown} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Error("expected error")
	}
}
