package checks

import (
	"ciphercourt/internal/loader"
	"ciphercourt/internal/model"
	"ciphercourt/internal/record"
)

// Availability reports whether the source could be read and returned records. Absence of
// data is NOT_AVAILABLE, never FAIL.
func Availability(ds loader.Dataset, records []record.Record) model.CheckResult {
	result := model.NewCheckResult()
	if ds.Location != "" {
		result.Details["location"] = ds.Location
	}

	if !ds.Reachable {
		reason := ds.Reason
		if reason == "" {
			reason = "Source unreachable"
		}
		result.Escalate(model.StatusNotAvailable, reason)
		return result
	}

	result.Details["records_loaded"] = len(records)
	result.Details["size_bytes"] = ds.SizeBytes
	if len(records) == 0 {
		result.Escalate(model.StatusNotAvailable, "No records loaded")
		return result
	}

	ids := make(map[string]struct{}, len(records))
	for _, rec := range records {
		ids[rec.ID()] = struct{}{}
	}
	result.Details["unique_ids"] = len(ids)
	return result
}

func noData() model.CheckResult {
	result := model.NewCheckResult()
	result.Escalate(model.StatusNotAvailable, "No data loaded")
	return result
}
