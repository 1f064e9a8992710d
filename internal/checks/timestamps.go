package checks

import (
	"fmt"
	"time"

	"ciphercourt/internal/model"
	"ciphercourt/internal/record"
)

// Timestamps validates timestamp formats, intra-record ordering, staleness and expiry as of
// now.
func Timestamps(records []record.Record, p Profile, now time.Time) model.CheckResult {
	if len(records) == 0 {
		return noData()
	}
	result := model.NewCheckResult()

	var invalid []string
	for _, rec := range records {
		for _, e := range rec.ErrorsOf(record.KindTimestamp) {
			invalid = append(invalid, fmt.Sprintf("%s: invalid %s", rec.ID(), e.Field))
		}
	}
	result.Details["timestamp_format"] = map[string]any{
		"fields":        p.Schema.TimestampFields,
		"invalid_count": len(invalid),
		"examples":      examples(invalid),
	}
	if len(invalid) > 0 {
		result.Escalate(model.StatusFail, fmt.Sprintf("Found %d invalid timestamps", len(invalid)))
	}

	checkOrdering(&result, records, p.Ordering)
	checkStaleness(&result, records, p.Staleness, now)
	checkExpiry(&result, records, p.Expiry, now)
	return result
}

func checkOrdering(result *model.CheckResult, records []record.Record, rules []OrderingRule) {
	if len(rules) == 0 {
		return
	}
	details := map[string]any{}
	for _, rule := range rules {
		var bad []string
		for _, rec := range records {
			earlier, ok := rec.Time(rule.Earlier)
			if !ok {
				continue
			}
			later, ok := rec.Time(rule.Later)
			if !ok {
				continue
			}
			if earlier.After(later) {
				bad = append(bad, rec.ID())
			}
		}
		details[rule.Name] = map[string]any{
			"earlier":         rule.Earlier,
			"later":           rule.Later,
			"violation_count": len(bad),
			"examples":        examples(bad),
		}
		if len(bad) > 0 {
			result.Escalate(model.StatusWarning,
				fmt.Sprintf("Found %d records where %s is after %s", len(bad), rule.Earlier, rule.Later))
		}
	}
	result.Details["ordering"] = details
}

func checkStaleness(result *model.CheckResult, records []record.Record, rules []StalenessRule, now time.Time) {
	if len(rules) == 0 {
		return
	}
	details := map[string]any{}
	for _, rule := range rules {
		cutoff := now.Add(-rule.MaxAge)
		var stale []string
		for _, rec := range records {
			t, ok := rec.Time(rule.Field)
			if ok && t.Before(cutoff) {
				stale = append(stale, rec.ID())
			}
		}
		details[rule.Field] = map[string]any{
			"max_age_days": rule.MaxAge.Hours() / 24,
			"stale_count":  len(stale),
			"examples":     examples(stale),
		}
		if len(stale) > 0 {
			result.Escalate(model.StatusWarning,
				fmt.Sprintf("Found %d records with stale %s (older than %s)", len(stale), rule.Field, formatDays(rule.MaxAge)))
		}
	}
	result.Details["staleness"] = details
}

func checkExpiry(result *model.CheckResult, records []record.Record, rules []ExpiryRule, now time.Time) {
	if len(rules) == 0 {
		return
	}
	details := map[string]any{}
	for _, rule := range rules {
		var expired, expiring []string
		for _, rec := range records {
			t, ok := rec.Time(rule.Field)
			if !ok {
				continue
			}
			switch {
			case !t.After(now):
				expired = append(expired, rec.ID())
			case rule.Warn > 0 && t.Before(now.Add(rule.Warn)):
				expiring = append(expiring, rec.ID())
			}
		}
		details[rule.Field] = map[string]any{
			"expired_count":  len(expired),
			"expiring_count": len(expiring),
			"expired":        examples(expired),
			"expiring":       examples(expiring),
		}
		if len(expired) > 0 {
			result.Escalate(model.StatusFail,
				fmt.Sprintf("CRITICAL: Found %d records with expired %s", len(expired), rule.Field))
		}
		if len(expiring) > 0 {
			result.Escalate(model.StatusWarning,
				fmt.Sprintf("Found %d records with %s within %s", len(expiring), rule.Field, formatDays(rule.Warn)))
		}
	}
	result.Details["expiry"] = details
}

func formatDays(d time.Duration) string {
	days := d.Hours() / 24
	if days == 1 {
		return "1 day"
	}
	return formatFloat(days) + " days"
}
