package leakage

import (
	"time"

	"ciphercourt/internal/record"
)

// ProximityRule flags observations that precede the reference by less than Margin.
// These are not leaks.
type ProximityRule struct {
	Name      string
	Observed  string
	Reference string
	Margin    time.Duration
}

// NearMiss is an observation that was clean but close to its reference time.
type NearMiss struct {
	RecordID    string  `json:"record_id"`
	LeadSeconds float64 `json:"lead_seconds"`
}

// NearMisses returns records with 0 < reference-observed < margin.
func NearMisses(records []record.Record, rule ProximityRule) []NearMiss {
	out := []NearMiss{}
	if rule.Margin <= 0 {
		return out
	}
	for _, rec := range records {
		obs, ok := rec.Time(rule.Observed)
		if !ok {
			continue
		}
		ref, ok := rec.Time(rule.Reference)
		if !ok {
			continue
		}
		lead := ref.Sub(obs)
		if lead > 0 && lead < rule.Margin {
			out = append(out, NearMiss{RecordID: rec.ID(), LeadSeconds: lead.Seconds()})
		}
	}
	return out
}

// FutureDates returns the IDs of records whose field lies after now.
func FutureDates(records []record.Record, field string, now time.Time) []string {
	out := []string{}
	for _, rec := range records {
		t, ok := rec.Time(field)
		if !ok {
			continue
		}
		if t.After(now) {
			out = append(out, rec.ID())
		}
	}
	return out
}
