// Package checks implements the four independent per-source checks: availability, data
// quality, timestamp validity and leakage.
package checks

import (
	"time"

	"ciphercourt/internal/leakage"
	"ciphercourt/internal/record"
)

// Profile is the pluggable schema and threshold set a source is audited against.
type Profile struct {
	Schema record.Schema
	// KeyFields identify duplicates. Defaults to the schema's ID field.
	KeyFields []string

	Enums  []EnumRule
	Ranges []RangeRule
	Exprs  []*ExprRule

	Ordering  []OrderingRule
	Staleness []StalenessRule
	Expiry    []ExpiryRule

	Leakage     []leakage.Rule
	FutureDates []string
	Proximity   []leakage.ProximityRule
	Movements   []MovementRule
}

// EnumRule restricts a field to a fixed set of categories. Empty values are not checked.
type EnumRule struct {
	Field           string
	Allowed         []string
	CaseInsensitive bool
}

// RangeRule bounds a numeric field. A nil bound is open.
type RangeRule struct {
	Field string
	Min   *float64
	Max   *float64
}

// OrderingRule requires Earlier to not postdate Later within a record.
type OrderingRule struct {
	Name    string
	Earlier string
	Later   string
}

// StalenessRule warns when Field is older than MaxAge at audit time.
type StalenessRule struct {
	Field  string
	MaxAge time.Duration
}

// ExpiryRule fails records whose Field is already past and warns when it falls within Warn.
type ExpiryRule struct {
	Field string
	Warn  time.Duration
}

// MovementRule flags relative changes of Field above MaxChange between consecutive
// records of the same group, ordered by the OrderBy timestamp.
type MovementRule struct {
	Name      string
	GroupBy   []string
	OrderBy   string
	Field     string
	MaxChange float64
}

func (p Profile) keyFields() []string {
	if len(p.KeyFields) > 0 {
		return p.KeyFields
	}
	if p.Schema.IDField != "" {
		return []string{p.Schema.IDField}
	}
	return nil
}

// Float returns a pointer to v, for RangeRule bounds.
func Float(v float64) *float64 { return &v }

const maxExamples = 5

func examples[T any](all []T) []T {
	if len(all) > maxExamples {
		return all[:maxExamples]
	}
	if all == nil {
		return []T{}
	}
	return all
}
