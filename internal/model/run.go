package model

import "time"

// FrameworkName is reported in every run.
const FrameworkName = "CipherCourt"

// RunSummary aggregates the overall status of every audited source.
type RunSummary struct {
	TotalConnectors int      `json:"total_connectors"`
	Passed          int      `json:"passed"`
	Failed          int      `json:"failed"`
	Warnings        int      `json:"warnings"`
	NotAvailable    int      `json:"not_available"`
	CriticalIssues  []string `json:"critical_issues"`
	AllIssues       []string `json:"all_issues"`
}

// RunReport is the top-level result of an audit run.
type RunReport struct {
	Framework         string                   `json:"audit_framework"`
	RunID             string                   `json:"run_id"`
	AuditTimestamp    time.Time                `json:"audit_timestamp"`
	FinishedAt        time.Time                `json:"finished_at"`
	ReferenceTime     time.Time                `json:"reference_time"`
	ConnectorsAudited []string                 `json:"connectors_audited"`
	Results           map[string]*SourceReport `json:"results"`
	Summary           RunSummary               `json:"summary"`
	DurationSeconds   float64                  `json:"total_audit_duration_seconds"`
}

// Ordered returns the source reports in the order they were audited.
func (r *RunReport) Ordered() []*SourceReport {
	out := make([]*SourceReport, 0, len(r.ConnectorsAudited))
	for _, name := range r.ConnectorsAudited {
		if rep, ok := r.Results[name]; ok {
			out = append(out, rep)
		}
	}
	return out
}

// Failed reports whether any audited source has an overall FAIL.
func (r *RunReport) Failed() bool {
	for _, rep := range r.Results {
		if rep.OverallStatus == StatusFail {
			return true
		}
	}
	return false
}
