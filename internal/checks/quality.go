package checks

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"ciphercourt/internal/model"
	"ciphercourt/internal/record"
)

// Quality audits schema conformance, completeness, duplicates and domain values.
func Quality(records []record.Record, p Profile) model.CheckResult {
	if len(records) == 0 {
		return noData()
	}
	result := model.NewCheckResult()

	// The first record stands in for the source schema.
	absent := records[0].Absent()
	result.Details["required_fields"] = map[string]any{
		"expected": p.Schema.Required,
		"missing":  orEmpty(absent),
		"status":   passOrFail(len(absent) == 0),
	}
	if len(absent) > 0 {
		result.Escalate(model.StatusFail, fmt.Sprintf("Missing required fields: %s", strings.Join(absent, ", ")))
		return result
	}

	checkCompleteness(&result, records)
	checkDuplicates(&result, records, p.keyFields())
	checkNumericFormat(&result, records)
	checkEnums(&result, records, p.Enums)
	checkRanges(&result, records, p.Ranges)
	checkExprs(&result, records, p.Exprs)
	return result
}

func checkCompleteness(result *model.CheckResult, records []record.Record) {
	incomplete := 0
	for _, rec := range records {
		if !rec.Complete() {
			incomplete++
		}
	}
	total := len(records)
	result.Details["completeness"] = map[string]any{
		"total_records":     total,
		"complete_records":  total - incomplete,
		"incomplete_count":  incomplete,
		"completeness_rate": float64(total-incomplete) / float64(total),
	}
	if incomplete > 0 {
		result.Escalate(model.StatusWarning, fmt.Sprintf("Found %d incomplete records", incomplete))
	}
}

func checkDuplicates(result *model.CheckResult, records []record.Record, keyFields []string) {
	if len(keyFields) == 0 {
		return
	}
	seen := make(map[string]struct{}, len(records))
	var dupes []string
	for _, rec := range records {
		parts := make([]string, len(keyFields))
		for i, f := range keyFields {
			parts[i], _ = rec.Value(f)
		}
		key := strings.Join(parts, "|")
		if _, ok := seen[key]; ok {
			dupes = append(dupes, key)
			continue
		}
		seen[key] = struct{}{}
	}
	result.Details["duplicates"] = map[string]any{
		"key_fields":      keyFields,
		"total_records":   len(records),
		"unique_records":  len(seen),
		"duplicate_count": len(dupes),
		"examples":        examples(dupes),
	}
	if len(dupes) > 0 {
		result.Escalate(model.StatusWarning, fmt.Sprintf("Found %d duplicate %s values", len(dupes), strings.Join(keyFields, "+")))
	}
}

func checkNumericFormat(result *model.CheckResult, records []record.Record) {
	var invalid []string
	for _, rec := range records {
		for _, e := range rec.ErrorsOf(record.KindNumeric) {
			invalid = append(invalid, fmt.Sprintf("%s: invalid %s format", rec.ID(), e.Field))
		}
	}
	result.Details["numeric_format"] = map[string]any{
		"invalid_count": len(invalid),
		"examples":      examples(invalid),
	}
	if len(invalid) > 0 {
		result.Escalate(model.StatusWarning, fmt.Sprintf("Found %d malformed numeric values", len(invalid)))
	}
}

func checkEnums(result *model.CheckResult, records []record.Record, rules []EnumRule) {
	if len(rules) == 0 {
		return
	}
	details := map[string]any{}
	for _, rule := range rules {
		allowed := make(map[string]struct{}, len(rule.Allowed))
		for _, a := range rule.Allowed {
			allowed[foldIf(a, rule.CaseInsensitive)] = struct{}{}
		}
		invalidSet := map[string]struct{}{}
		count := 0
		for _, rec := range records {
			v, _ := rec.Value(rule.Field)
			if v == "" {
				continue
			}
			if _, ok := allowed[foldIf(v, rule.CaseInsensitive)]; !ok {
				count++
				invalidSet[v] = struct{}{}
			}
		}
		invalid := sortedKeys(invalidSet)
		details[rule.Field] = map[string]any{
			"allowed":        rule.Allowed,
			"invalid_count":  count,
			"invalid_values": invalid,
		}
		if count > 0 {
			result.Escalate(model.StatusWarning, fmt.Sprintf("Found invalid %s values: %s", rule.Field, strings.Join(invalid, ", ")))
		}
	}
	result.Details["domain_values"] = details
}

func checkRanges(result *model.CheckResult, records []record.Record, rules []RangeRule) {
	if len(rules) == 0 {
		return
	}
	details := map[string]any{}
	for _, rule := range rules {
		var invalid []string
		for _, rec := range records {
			n, ok := rec.Number(rule.Field)
			if !ok {
				continue
			}
			if rule.Min != nil && n < *rule.Min {
				invalid = append(invalid, fmt.Sprintf("%s: %s < %s", rec.ID(), rule.Field, formatFloat(*rule.Min)))
			} else if rule.Max != nil && n > *rule.Max {
				invalid = append(invalid, fmt.Sprintf("%s: %s > %s", rec.ID(), rule.Field, formatFloat(*rule.Max)))
			}
		}
		d := map[string]any{
			"invalid_count": len(invalid),
			"examples":      examples(invalid),
		}
		if rule.Min != nil {
			d["min"] = *rule.Min
		}
		if rule.Max != nil {
			d["max"] = *rule.Max
		}
		details[rule.Field] = d
		if len(invalid) > 0 {
			result.Escalate(model.StatusWarning, fmt.Sprintf("Found %d invalid %s values", len(invalid), rule.Field))
		}
	}
	result.Details["ranges"] = details
}

func checkExprs(result *model.CheckResult, records []record.Record, rules []*ExprRule) {
	if len(rules) == 0 {
		return
	}
	details := map[string]any{}
	for _, rule := range rules {
		var failed, evalErrors []string
		for _, rec := range records {
			ok, err := rule.Eval(rec)
			if err != nil {
				evalErrors = append(evalErrors, fmt.Sprintf("%s: %v", rec.ID(), err))
				continue
			}
			if !ok {
				failed = append(failed, rec.ID())
			}
		}
		details[rule.Name] = map[string]any{
			"expr":         rule.Expr,
			"failed_count": len(failed),
			"error_count":  len(evalErrors),
			"examples":     examples(failed),
			"errors":       examples(evalErrors),
		}
		if n := len(failed) + len(evalErrors); n > 0 {
			msg := rule.Message
			if msg == "" {
				msg = fmt.Sprintf("rule %s not satisfied", rule.Name)
			}
			result.Escalate(model.StatusWarning, fmt.Sprintf("Found %d records where %s", n, msg))
		}
	}
	result.Details["rules"] = details
}

func passOrFail(ok bool) string {
	if ok {
		return model.StatusPass.String()
	}
	return model.StatusFail.String()
}

func foldIf(s string, fold bool) string {
	if fold {
		return strings.ToLower(s)
	}
	return s
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
