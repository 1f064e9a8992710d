package checks

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"ciphercourt/internal/leakage"
	"ciphercourt/internal/model"
	"ciphercourt/internal/record"
)

// Leakage runs the temporal leakage rules and the secondary heuristics. Any violation or
// future-dated reference is FAIL; near misses and movement spikes only warn.
func Leakage(records []record.Record, p Profile, now time.Time) model.CheckResult {
	if len(records) == 0 {
		return noData()
	}
	result := model.NewCheckResult()

	detected := leakage.Detect(records, p.Leakage)
	categories := map[string]any{}
	for _, cat := range detected.Categories {
		categories[cat.Rule.Name] = map[string]any{
			"observed_field":  cat.Rule.Observed,
			"reference_field": cat.Rule.Reference,
			"checked":         cat.Checked,
			"count":           len(cat.Violations),
			"violations":      cat.Violations,
		}
		if len(cat.Violations) > 0 {
			result.Escalate(model.StatusFail, fmt.Sprintf(
				"CRITICAL LEAKAGE DETECTED: %d records have %s >= %s (look-ahead bias)",
				len(cat.Violations), cat.Rule.Observed, cat.Rule.Reference))
		}
	}
	result.Details["categories"] = categories
	result.Details["violations_total"] = detected.Total()

	future := map[string]any{}
	for _, field := range p.FutureDates {
		ids := leakage.FutureDates(records, field, now)
		future[field] = map[string]any{
			"count":    len(ids),
			"examples": examples(ids),
		}
		if len(ids) > 0 {
			result.Escalate(model.StatusFail,
				fmt.Sprintf("CRITICAL: Found %d future-dated records (%s after audit time)", len(ids), field))
		}
	}

	if len(p.FutureDates) > 0 {
		result.Details["future_dates"] = future
	}

	proximity := map[string]any{}
	for _, rule := range p.Proximity {
		misses := leakage.NearMisses(records, rule)
		proximity[rule.Name] = map[string]any{
			"margin_minutes": rule.Margin.Minutes(),
			"count":          len(misses),
			"examples":       examples(misses),
		}
		if len(misses) > 0 {
			result.Escalate(model.StatusWarning, fmt.Sprintf(
				"Found %d records with %s within %s of %s",
				len(misses), rule.Observed, formatMinutes(rule.Margin), rule.Reference))
		}
	}

	if len(p.Proximity) > 0 {
		result.Details["near_misses"] = proximity
	}

	moves := map[string]any{}
	for _, rule := range p.Movements {
		spikes := movements(records, rule)
		moves[rule.Name] = map[string]any{
			"threshold": rule.MaxChange,
			"count":     len(spikes),
			"examples":  examples(spikes),
		}
		if len(spikes) > 0 {
			result.Escalate(model.StatusWarning, fmt.Sprintf(
				"Found %d suspicious %s movements above %s%%",
				len(spikes), rule.Field, formatFloat(rule.MaxChange*100)))
		}
	}
	if len(p.Movements) > 0 {
		result.Details["movements"] = moves
	}
	return result
}

// Movement is a relative change between consecutive observations of one group.
type Movement struct {
	Group    string  `json:"group"`
	RecordID string  `json:"record_id"`
	From     float64 `json:"from"`
	To       float64 `json:"to"`
	Change   float64 `json:"change"`
}

func movements(records []record.Record, rule MovementRule) []Movement {
	type point struct {
		id  string
		at  time.Time
		val float64
	}
	groups := map[string][]point{}
	var order []string
	for _, rec := range records {
		v, ok := rec.Number(rule.Field)
		if !ok {
			continue
		}
		at, ok := rec.Time(rule.OrderBy)
		if !ok {
			continue
		}
		parts := make([]string, len(rule.GroupBy))
		for j, f := range rule.GroupBy {
			parts[j], _ = rec.Value(f)
		}
		key := strings.Join(parts, "|")
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], point{id: rec.ID(), at: at, val: v})
	}

	out := []Movement{}
	for _, key := range order {
		pts := groups[key]
		sort.SliceStable(pts, func(i, j int) bool { return pts[i].at.Before(pts[j].at) })
		for i := 1; i < len(pts); i++ {
			prev, cur := pts[i-1], pts[i]
			if prev.val == 0 {
				continue
			}
			change := math.Abs(cur.val-prev.val) / math.Abs(prev.val)
			if change > rule.MaxChange {
				out = append(out, Movement{Group: key, RecordID: cur.id, From: prev.val, To: cur.val, Change: change})
			}
		}
	}
	return out
}

func formatMinutes(d time.Duration) string {
	return formatFloat(d.Minutes()) + " minutes"
}
