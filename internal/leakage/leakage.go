// Package leakage detects records whose information became known at or after the event
// it describes.
package leakage

import (
	"time"

	"ciphercourt/internal/record"
)

// Rule compares one observation timestamp against a reference time.
type Rule struct {
	// Name labels the violation category, e.g. "post_match_odds".
	Name      string
	Observed  string
	Reference string
}

// Violation is a record that leaked under a rule.
type Violation struct {
	RecordID       string    `json:"record_id"`
	ObservedField  string    `json:"observed_field"`
	ObservedAt     time.Time `json:"observed_at"`
	ReferenceField string    `json:"reference_field"`
	ReferenceAt    time.Time `json:"reference_at"`
	DelaySeconds   float64   `json:"delay_seconds"`
}

// Category groups the violations of one rule.
type Category struct {
	Rule       Rule
	Checked    int
	Violations []Violation
}

// Result holds one category per rule, in rule order.
type Result struct {
	Categories []Category
}

// Total is the number of violations across all categories.
func (r Result) Total() int {
	n := 0
	for _, c := range r.Categories {
		n += len(c.Violations)
	}
	return n
}

// Leaked reports whether observed is not strictly before reference.
func Leaked(observed, reference time.Time) bool {
	return !observed.Before(reference)
}

// Detect evaluates every rule against every record. Records missing either timestamp, or
// carrying a malformed one, are skipped.
func Detect(records []record.Record, rules []Rule) Result {
	res := Result{Categories: make([]Category, 0, len(rules))}
	for _, rule := range rules {
		cat := Category{Rule: rule, Violations: []Violation{}}
		for _, rec := range records {
			obs, ok := rec.Time(rule.Observed)
			if !ok {
				continue
			}
			ref, ok := rec.Time(rule.Reference)
			if !ok {
				continue
			}
			cat.Checked++
			if Leaked(obs, ref) {
				cat.Violations = append(cat.Violations, Violation{
					RecordID:       rec.ID(),
					ObservedField:  rule.Observed,
					ObservedAt:     obs,
					ReferenceField: rule.Reference,
					ReferenceAt:    ref,
					DelaySeconds:   obs.Sub(ref).Seconds(),
				})
			}
		}
		res.Categories = append(res.Categories, cat)
	}
	return res
}
