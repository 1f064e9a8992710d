// Package aggregate rolls check statuses up into source and run-level verdicts.
package aggregate

import (
	"fmt"

	"ciphercourt/internal/model"
)

// Overall combines check statuses into a source status under the precedence
// FAIL > WARNING > NOT_AVAILABLE > PASS. No statuses yields PASS.
func Overall(statuses ...model.Status) model.Status {
	var fail, warning, notAvailable bool
	for _, s := range statuses {
		switch s {
		case model.StatusFail:
			fail = true
		case model.StatusWarning:
			warning = true
		case model.StatusNotAvailable:
			notAvailable = true
		case model.StatusPass:
		default:
			// Unknown values cannot be trusted to pass.
			fail = true
		}
	}

	switch {
	case fail:
		return model.StatusFail
	case warning:
		return model.StatusWarning
	case notAvailable:
		return model.StatusNotAvailable
	default:
		return model.StatusPass
	}
}

// Rollup sets the report's overall status from its four checks.
func Rollup(r *model.SourceReport) {
	r.OverallStatus = Overall(
		r.Availability.Status,
		r.DataQuality.Status,
		r.Timestamps.Status,
		r.LeakageCheck.Status,
	)
}

// Summarize tallies sources into independent status buckets and collects issues in source,
// check and issue order. Only issues actually reported by a check are collected.
func Summarize(reports []*model.SourceReport) model.RunSummary {
	summary := model.RunSummary{
		TotalConnectors: len(reports),
		CriticalIssues:  []string{},
		AllIssues:       []string{},
	}

	for _, r := range reports {
		switch r.OverallStatus {
		case model.StatusPass:
			summary.Passed++
		case model.StatusFail:
			summary.Failed++
		case model.StatusWarning:
			summary.Warnings++
		case model.StatusNotAvailable:
			summary.NotAvailable++
		}

		for _, t := range model.CheckTypes {
			for _, issue := range r.Check(t).Issues {
				if r.OverallStatus == model.StatusFail {
					summary.CriticalIssues = append(summary.CriticalIssues, fmt.Sprintf("%s: %s", r.Source, issue))
				}
				summary.AllIssues = append(summary.AllIssues, fmt.Sprintf("%s.%s: %s", r.Source, t, issue))
			}
		}
	}

	return summary
}
