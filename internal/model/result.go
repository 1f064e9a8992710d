package model

import "time"

// CheckType names one of the four per-source checks.
type CheckType string

const (
	CheckAvailability CheckType = "availability"
	CheckDataQuality  CheckType = "data_quality"
	CheckTimestamps   CheckType = "timestamps"
	CheckLeakage      CheckType = "leakage_check"
)

// CheckTypes is the fixed order in which checks run and issues are reported.
var CheckTypes = []CheckType{CheckAvailability, CheckDataQuality, CheckTimestamps, CheckLeakage}

// CheckResult is the output of a single check against one source.
// Status is PASS exactly when Issues is empty.
type CheckResult struct {
	Status  Status         `json:"status"`
	Issues  []string       `json:"issues"`
	Details map[string]any `json:"details"`
}

// NewCheckResult returns a passing result with empty issues and details.
func NewCheckResult() CheckResult {
	return CheckResult{
		Status:  StatusPass,
		Issues:  []string{},
		Details: map[string]any{},
	}
}

// Escalate records an issue and raises the status to at least s.
// A status is never lowered.
func (r *CheckResult) Escalate(s Status, issue string) {
	r.Status = r.Status.Worse(s)
	r.Issues = append(r.Issues, issue)
}

// SourceReport is the full audit of one source.
type SourceReport struct {
	Source          string      `json:"source"`
	AuditTimestamp  time.Time   `json:"audit_timestamp"`
	Availability    CheckResult `json:"availability"`
	DataQuality     CheckResult `json:"data_quality"`
	Timestamps      CheckResult `json:"timestamps"`
	LeakageCheck    CheckResult `json:"leakage_check"`
	OverallStatus   Status      `json:"overall_status"`
	DurationSeconds float64     `json:"audit_duration_seconds"`
}

// Check returns the result for the given check type.
func (r *SourceReport) Check(t CheckType) CheckResult {
	switch t {
	case CheckAvailability:
		return r.Availability
	case CheckDataQuality:
		return r.DataQuality
	case CheckTimestamps:
		return r.Timestamps
	case CheckLeakage:
		return r.LeakageCheck
	}
	return CheckResult{}
}

// Issues returns every issue of the source in check-type order.
func (r *SourceReport) Issues() []string {
	var issues []string
	for _, t := range CheckTypes {
		issues = append(issues, r.Check(t).Issues...)
	}
	return issues
}
