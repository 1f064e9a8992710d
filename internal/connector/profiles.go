package connector

import (
	"fmt"
	"sort"
	"time"

	"ciphercourt/internal/checks"
	"ciphercourt/internal/leakage"
	"ciphercourt/internal/record"
)

// Kind names a built-in source profile.
type Kind string

const (
	KindMatchResults  Kind = "match_results"
	KindMatchStats    Kind = "match_stats"
	KindPreMatchOdds  Kind = "pre_match_odds"
	KindVenueMetadata Kind = "venue_metadata"
	KindLicenseStatus Kind = "license_status"
)

const day = 24 * time.Hour

type builtin struct {
	description string
	profile     func() (checks.Profile, error)
}

var builtins = map[Kind]builtin{
	KindMatchResults: {
		description: "Match results: circuit validity, duplicates, availability ordering, future-dated matches",
		profile:     matchResults,
	},
	KindMatchStats: {
		description: "Match statistics: stat ranges and consistency, stats published before match completion",
		profile:     matchStats,
	},
	KindPreMatchOdds: {
		description: "Pre-match odds: odds validity, post-start odds and snapshots, near-start and suspicious movements",
		profile:     preMatchOdds,
	},
	KindVenueMetadata: {
		description: "Venue metadata: surface types, staleness, changes published after tournament start",
		profile:     venueMetadata,
	},
	KindLicenseStatus: {
		description: "License status: license completeness, expiry and attribution",
		profile:     licenseStatus,
	},
}

// Kinds returns the built-in kinds in name order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(builtins))
	for k := range builtins {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Describe returns a one-line description of a kind.
func Describe(k Kind) string {
	return builtins[k].description
}

// Profile returns a fresh copy of the built-in profile for kind.
func Profile(k Kind) (checks.Profile, error) {
	b, ok := builtins[k]
	if !ok {
		return checks.Profile{}, fmt.Errorf("unknown source kind %q", k)
	}
	return b.profile()
}

func matchResults() (checks.Profile, error) {
	return checks.Profile{
		Schema: record.Schema{
			Required: []string{
				"match_id", "date", "tournament", "circuit",
				"player1", "player2", "score", "winner",
				"match_start_time", "available_at",
			},
			IDField:         "match_id",
			TimestampFields: []string{"match_start_time", "available_at"},
		},
		Enums: []checks.EnumRule{
			{Field: "circuit", Allowed: []string{"ATP", "Challenger", "ITF"}},
		},
		Ordering: []checks.OrderingRule{
			{Name: "availability_order", Earlier: "available_at", Later: "match_start_time"},
		},
		FutureDates: []string{"match_start_time"},
	}, nil
}

func matchStats() (checks.Profile, error) {
	consistency, err := checks.CompileExpr("break_points_consistency",
		`!has(row.break_points_saved) || !has(row.break_points_faced) || row.break_points_saved == "" || row.break_points_faced == "" || double(row.break_points_saved) <= double(row.break_points_faced)`,
		"break_points_saved exceeds break_points_faced")
	if err != nil {
		return checks.Profile{}, err
	}
	stats := []string{
		"aces", "double_faults", "first_serve_pct",
		"first_serve_points_won", "second_serve_points_won",
		"break_points_faced", "break_points_saved",
		"service_games", "return_games",
	}
	ranges := make([]checks.RangeRule, 0, len(stats))
	for _, s := range stats {
		r := checks.RangeRule{Field: s, Min: checks.Float(0)}
		if s == "first_serve_pct" {
			r.Max = checks.Float(100)
		}
		ranges = append(ranges, r)
	}
	return checks.Profile{
		Schema: record.Schema{
			Required:        append([]string{"match_id", "player", "match_start_time", "match_end_time", "available_at"}, stats...),
			IDField:         "match_id",
			TimestampFields: []string{"match_start_time", "match_end_time", "available_at"},
			NumericFields:   stats,
		},
		KeyFields: []string{"match_id", "player"},
		Ranges:    ranges,
		Exprs:     []*checks.ExprRule{consistency},
		Ordering: []checks.OrderingRule{
			{Name: "match_alignment", Earlier: "match_start_time", Later: "match_end_time"},
		},
		// Stats are premature when the match had not ended by the time they were published.
		Leakage: []leakage.Rule{
			{Name: "premature_stats", Observed: "match_end_time", Reference: "available_at"},
		},
		FutureDates: []string{"match_end_time"},
	}, nil
}

func preMatchOdds() (checks.Profile, error) {
	return checks.Profile{
		Schema: record.Schema{
			Required: []string{
				"match_id", "snapshot_timestamp", "player1_odds", "player2_odds",
				"bookmaker", "available_at", "match_start_time",
			},
			IDField:         "match_id",
			TimestampFields: []string{"snapshot_timestamp", "available_at", "match_start_time"},
			NumericFields:   []string{"player1_odds", "player2_odds"},
		},
		KeyFields: []string{"match_id", "bookmaker", "snapshot_timestamp"},
		Ranges: []checks.RangeRule{
			{Field: "player1_odds", Min: checks.Float(1.0)},
			{Field: "player2_odds", Min: checks.Float(1.0)},
		},
		Ordering: []checks.OrderingRule{
			{Name: "snapshot_chronology", Earlier: "snapshot_timestamp", Later: "available_at"},
		},
		Leakage: []leakage.Rule{
			{Name: "post_match_odds", Observed: "available_at", Reference: "match_start_time"},
			{Name: "late_snapshots", Observed: "snapshot_timestamp", Reference: "match_start_time"},
		},
		Proximity: []leakage.ProximityRule{
			{Name: "near_start_snapshots", Observed: "snapshot_timestamp", Reference: "match_start_time", Margin: 5 * time.Minute},
		},
		Movements: []checks.MovementRule{
			{Name: "player1_movements", GroupBy: []string{"match_id", "bookmaker"}, OrderBy: "snapshot_timestamp", Field: "player1_odds", MaxChange: 0.20},
			{Name: "player2_movements", GroupBy: []string{"match_id", "bookmaker"}, OrderBy: "snapshot_timestamp", Field: "player2_odds", MaxChange: 0.20},
		},
	}, nil
}

func venueMetadata() (checks.Profile, error) {
	return checks.Profile{
		Schema: record.Schema{
			Required: []string{
				"venue_name", "city", "country", "surface",
				"court_speed", "altitude", "tournament_level",
			},
			IDField:         "venue_name",
			TimestampFields: []string{"last_updated", "available_at", "tournament_start"},
			NumericFields:   []string{"court_speed", "altitude"},
		},
		Enums: []checks.EnumRule{
			{Field: "surface", Allowed: []string{"hard", "clay", "grass", "carpet"}, CaseInsensitive: true},
		},
		Ranges: []checks.RangeRule{
			{Field: "court_speed", Min: checks.Float(0)},
		},
		Staleness: []checks.StalenessRule{
			{Field: "last_updated", MaxAge: 365 * day},
		},
		Leakage: []leakage.Rule{
			{Name: "retroactive_changes", Observed: "available_at", Reference: "tournament_start"},
		},
	}, nil
}

func licenseStatus() (checks.Profile, error) {
	attribution, err := checks.CompileExpr("attribution",
		`!has(row.attribution_required) || !(row.attribution_required in ["true", "True", "TRUE", "yes"]) || (has(row.attribution_text) && row.attribution_text != "")`,
		"required attribution is missing")
	if err != nil {
		return checks.Profile{}, err
	}
	return checks.Profile{
		Schema: record.Schema{
			Required:        []string{"source", "license_type", "license_holder", "expiration_date", "terms_url"},
			IDField:         "source",
			TimestampFields: []string{"expiration_date"},
		},
		Exprs: []*checks.ExprRule{attribution},
		Expiry: []checks.ExpiryRule{
			{Field: "expiration_date", Warn: 30 * day},
		},
	}, nil
}
