package connector

import (
	"time"

	"ciphercourt/internal/checks"
)

// Overrides adjusts a built-in profile from configuration. Zero values leave the profile
// untouched.
type Overrides struct {
	RequiredFields []string
	KeyFields      []string
	// Enums and Ranges replace the rule for the same field, or are appended. A replaced
	// enum keeps its case-insensitivity.
	Enums  []checks.EnumRule
	Ranges []checks.RangeRule
	Rules  []Rule
	Thresholds
}

// Rule is an additional CEL quality rule.
type Rule struct {
	Name    string
	Expr    string
	Message string
}

// Thresholds override every heuristic of the matching type. Nil leaves the default.
type Thresholds struct {
	ProximityMinutes  *float64
	StalenessDays     *float64
	ExpiryWarningDays *float64
	MovementThreshold *float64
}

// Apply returns p with o applied. Only CEL compilation can fail.
func (o Overrides) Apply(p checks.Profile) (checks.Profile, error) {
	if len(o.RequiredFields) > 0 {
		p.Schema.Required = append([]string(nil), o.RequiredFields...)
	}
	if len(o.KeyFields) > 0 {
		p.KeyFields = append([]string(nil), o.KeyFields...)
	}

	p.Enums = append([]checks.EnumRule(nil), p.Enums...)
	for _, e := range o.Enums {
		for _, existing := range p.Enums {
			if existing.Field == e.Field {
				e.CaseInsensitive = e.CaseInsensitive || existing.CaseInsensitive
			}
		}
		p.Enums = upsert(p.Enums, e, func(r checks.EnumRule) string { return r.Field })
	}
	p.Ranges = append([]checks.RangeRule(nil), p.Ranges...)
	for _, r := range o.Ranges {
		p.Ranges = upsert(p.Ranges, r, func(r checks.RangeRule) string { return r.Field })
	}

	if len(o.Rules) > 0 {
		p.Exprs = append([]*checks.ExprRule(nil), p.Exprs...)
		for _, r := range o.Rules {
			compiled, err := checks.CompileExpr(r.Name, r.Expr, r.Message)
			if err != nil {
				return checks.Profile{}, err
			}
			p.Exprs = append(p.Exprs, compiled)
		}
	}

	if v := o.ProximityMinutes; v != nil {
		p.Proximity = append(p.Proximity[:0:0], p.Proximity...)
		for i := range p.Proximity {
			p.Proximity[i].Margin = minutes(*v)
		}
	}
	if v := o.StalenessDays; v != nil {
		p.Staleness = append(p.Staleness[:0:0], p.Staleness...)
		for i := range p.Staleness {
			p.Staleness[i].MaxAge = days(*v)
		}
	}
	if v := o.ExpiryWarningDays; v != nil {
		p.Expiry = append(p.Expiry[:0:0], p.Expiry...)
		for i := range p.Expiry {
			p.Expiry[i].Warn = days(*v)
		}
	}
	if v := o.MovementThreshold; v != nil {
		p.Movements = append(p.Movements[:0:0], p.Movements...)
		for i := range p.Movements {
			p.Movements[i].MaxChange = *v
		}
	}
	return p, nil
}

func upsert[T any](rules []T, r T, field func(T) string) []T {
	for i := range rules {
		if field(rules[i]) == field(r) {
			rules[i] = r
			return rules
		}
	}
	return append(rules, r)
}

func minutes(v float64) time.Duration { return time.Duration(v * float64(time.Minute)) }

func days(v float64) time.Duration { return time.Duration(v * float64(day)) }
