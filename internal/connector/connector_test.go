package connector

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ciphercourt/internal/checks"
	"ciphercourt/internal/loader"
	"ciphercourt/internal/model"
	"ciphercourt/internal/report"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

const oddsCSV = `match_id,snapshot_timestamp,player1_odds,player2_odds,bookmaker,available_at,match_start_time
M1,2024-01-01T09:00:00Z,1.80,2.10,pinnacle,2024-01-01T09:01:00Z,2024-01-01T12:00:00Z
M2,2024-01-01T12:30:00Z,1.50,2.60,pinnacle,2024-01-01T12:31:00Z,2024-01-01T12:00:00Z
`

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newConnector(t *testing.T, kind Kind, csv string) *Connector {
	t.Helper()
	p, err := Profile(kind)
	require.NoError(t, err)
	c, err := New(context.Background(), string(kind), p, loader.CSV{Path: writeCSV(t, csv)})
	require.NoError(t, err)
	return c
}

func TestKinds(t *testing.T) {
	kinds := Kinds()
	assert.Equal(t, []Kind{KindLicenseStatus, KindMatchResults, KindMatchStats, KindPreMatchOdds, KindVenueMetadata}, kinds)
	for _, k := range kinds {
		_, err := Profile(k)
		assert.NoError(t, err, k)
		assert.NotEmpty(t, Describe(k))
	}

	_, err := Profile("weather")
	assert.Error(t, err)
}

func TestPreMatchOdds(t *testing.T) {
	c := newConnector(t, KindPreMatchOdds, oddsCSV)

	assert.Equal(t, "pre_match_odds", c.Name())
	assert.Equal(t, model.StatusPass, c.CheckAvailability().Status)
	assert.Equal(t, model.StatusPass, c.AuditDataQuality().Status)

	res := c.DetectLeakage(now)
	assert.Equal(t, model.StatusFail, res.Status)
	assert.Equal(t, []string{
		"CRITICAL LEAKAGE DETECTED: 1 records have available_at >= match_start_time (look-ahead bias)",
		"CRITICAL LEAKAGE DETECTED: 1 records have snapshot_timestamp >= match_start_time (look-ahead bias)",
	}, res.Issues)
	assert.Equal(t, 2, res.Details["violations_total"])
}

func TestPreMatchOdds_NonFiniteOddsAreMalformed(t *testing.T) {
	c := newConnector(t, KindPreMatchOdds, `match_id,snapshot_timestamp,player1_odds,player2_odds,bookmaker,available_at,match_start_time
M1,2024-01-01T09:00:00Z,NaN,2.10,pinnacle,2024-01-01T09:01:00Z,2024-01-01T12:00:00Z
M3,2024-01-01T08:00:00Z,1.50,2.60,pinnacle,2024-01-01T08:01:00Z,2024-01-01T12:00:00Z
M3,2024-01-01T09:00:00Z,Inf,2.60,pinnacle,2024-01-01T09:01:00Z,2024-01-01T12:00:00Z
`)

	q := c.AuditDataQuality()
	assert.Equal(t, model.StatusWarning, q.Status)
	assert.Contains(t, q.Issues, "Found 2 malformed numeric values")

	leak := c.DetectLeakage(now)
	assert.Equal(t, model.StatusPass, leak.Status)
	assert.Empty(t, leak.Issues)

	src := &model.SourceReport{
		Source:         c.Name(),
		AuditTimestamp: now,
		Availability:   c.CheckAvailability(),
		DataQuality:    q,
		Timestamps:     c.CheckTimestamps(now),
		LeakageCheck:   leak,
		OverallStatus:  model.StatusWarning,
	}
	run := &model.RunReport{
		Framework:         model.FrameworkName,
		RunID:             "run-1",
		AuditTimestamp:    now,
		FinishedAt:        now,
		ConnectorsAudited: []string{c.Name()},
		Results:           map[string]*model.SourceReport{c.Name(): src},
	}
	var buf bytes.Buffer
	require.NoError(t, report.WriteJSON(&buf, run))
}

func TestMatchResults_FutureDatedAndOrdering(t *testing.T) {
	c := newConnector(t, KindMatchResults, `match_id,date,tournament,circuit,player1,player2,score,winner,match_start_time,available_at
A1,2024-01-01,Open,ATP,P1,P2,6-4 6-4,P1,2024-01-01T12:00:00Z,2024-01-01T15:00:00Z
A2,2024-09-01,Open,WTA,P3,P4,6-1 6-1,P3,2024-09-01T12:00:00Z,2024-09-01T15:00:00Z
`)

	q := c.AuditDataQuality()
	assert.Equal(t, model.StatusWarning, q.Status)
	assert.Equal(t, []string{"Found invalid circuit values: WTA"}, q.Issues)

	ts := c.CheckTimestamps(now)
	assert.Equal(t, model.StatusWarning, ts.Status)
	assert.Len(t, ts.Issues, 1)

	l := c.DetectLeakage(now)
	assert.Equal(t, model.StatusFail, l.Status)
	assert.Equal(t, []string{"CRITICAL: Found 1 future-dated records (match_start_time after audit time)"}, l.Issues)
}

func TestLicenseStatus(t *testing.T) {
	c := newConnector(t, KindLicenseStatus, `source,license_type,license_holder,expiration_date,terms_url,attribution_required,attribution_text
feedA,Commercial,Acme,2025-01-01,https://a.example/terms,true,Data by Acme
feedB,Commercial,Acme,2024-06-15,https://b.example/terms,true,
`)

	q := c.AuditDataQuality()
	assert.Equal(t, model.StatusWarning, q.Status)
	assert.Equal(t, []string{"Found 1 records where required attribution is missing"}, q.Issues)

	ts := c.CheckTimestamps(now)
	assert.Equal(t, model.StatusWarning, ts.Status)
	assert.Equal(t, []string{"Found 1 records with expiration_date within 30 days"}, ts.Issues)
}

func TestUnreachableSourceIsNotAvailable(t *testing.T) {
	p, err := Profile(KindVenueMetadata)
	require.NoError(t, err)
	c, err := New(context.Background(), "venue", p, loader.CSV{Path: filepath.Join(t.TempDir(), "missing.csv")})
	require.NoError(t, err)

	for _, res := range []model.CheckResult{
		c.CheckAvailability(), c.AuditDataQuality(), c.CheckTimestamps(now), c.DetectLeakage(now),
	} {
		assert.Equal(t, model.StatusNotAvailable, res.Status)
		assert.NotEmpty(t, res.Issues)
	}
}

func TestNew_LoaderError(t *testing.T) {
	p, err := Profile(KindVenueMetadata)
	require.NoError(t, err)
	_, err = New(context.Background(), "venue", p, loader.SQLite{Path: "x.db", Table: "bad name"})
	assert.Error(t, err)
}

func TestOverrides_Apply(t *testing.T) {
	base, err := Profile(KindPreMatchOdds)
	require.NoError(t, err)

	minutes := 30.0
	threshold := 0.5
	p, err := Overrides{
		RequiredFields: []string{"match_id"},
		Ranges:         []checks.RangeRule{{Field: "player1_odds", Min: checks.Float(1.01)}},
		Enums:          []checks.EnumRule{{Field: "bookmaker", Allowed: []string{"pinnacle"}}},
		Rules:          []Rule{{Name: "has_bookmaker", Expr: `row.bookmaker != ""`}},
		Thresholds:     Thresholds{ProximityMinutes: &minutes, MovementThreshold: &threshold},
	}.Apply(base)
	require.NoError(t, err)

	assert.Equal(t, []string{"match_id"}, p.Schema.Required)
	assert.Len(t, p.Ranges, 2)
	assert.Equal(t, 1.01, *p.Ranges[0].Min)
	assert.Len(t, p.Enums, 1)
	assert.Len(t, p.Exprs, 1)
	assert.Equal(t, 30*time.Minute, p.Proximity[0].Margin)
	assert.Equal(t, 0.5, p.Movements[1].MaxChange)

	fresh, err := Profile(KindPreMatchOdds)
	require.NoError(t, err)
	assert.Equal(t, 0.20, fresh.Movements[1].MaxChange)
	assert.Equal(t, 5*time.Minute, fresh.Proximity[0].Margin)

	_, err = Overrides{Rules: []Rule{{Name: "broken", Expr: "row.x =="}}}.Apply(base)
	assert.Error(t, err)
}
