package config

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ciphercourt/internal/connector"
	"ciphercourt/internal/loader"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Len(t, cfg.Sources, 5)
	for _, s := range cfg.Sources {
		_, err := s.Profile()
		assert.NoError(t, err, s.Name)
	}
	assert.Equal(t, []string{"json", "csv", "markdown"}, cfg.Reports.Formats)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, Save(Default(), path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_MergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
version: "1.2.0"
sources:
  - name: pre_match_odds
    kind: pre_match_odds
    loader:
      type: csv
      path: data/odds.csv
    thresholds:
      movement_threshold: 0.3
  - name: atp_odds
    kind: pre_match_odds
    loader:
      type: sqlite
      path: data/odds.db
      table: odds
reports:
  formats: [json]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "1.2.0", cfg.Version)
	require.Len(t, cfg.Sources, 6)
	assert.Equal(t, "data/odds.csv", cfg.Sources[2].Loader.Path)
	assert.Equal(t, 0.3, *cfg.Sources[2].Thresholds.MovementThreshold)
	assert.Equal(t, "atp_odds", cfg.Sources[5].Name)
	assert.Equal(t, []string{"json"}, cfg.Reports.Formats)
	assert.Equal(t, ".", cfg.Reports.OutputDir)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"not yaml", "version: [1"},
		{"missing version", "sources: []"},
		{"unsupported version", `version: "2.0.0"`},
		{"bad version", `version: "one"`},
		{"unknown kind", "version: \"1.0.0\"\nsources:\n  - name: w\n    kind: weather\n"},
		{"unknown key", "version: \"1.0.0\"\nextra: true\n"},
		{"unknown format", "version: \"1.0.0\"\nreports:\n  formats: [pdf]\n"},
		{"duplicate source", "version: \"1.0.0\"\nsources:\n  - {name: a, kind: match_stats}\n  - {name: a, kind: match_stats}\n"},
		{"inverted range", "version: \"1.0.0\"\nsources:\n  - name: a\n    kind: match_stats\n    ranges:\n      aces: {min: 5, max: 1}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			var cfgErr *ConfigurationError
			assert.True(t, errors.As(err, &cfgErr))
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestMerge(t *testing.T) {
	base := Default()
	merged := Merge(base, Config{Audit: AuditConfig{Workers: 4}, Reports: ReportsConfig{OutputDir: "out"}})

	assert.Equal(t, 4, merged.Audit.Workers)
	assert.Equal(t, "out", merged.Reports.OutputDir)
	assert.Equal(t, base.Reports.Formats, merged.Reports.Formats)
	assert.Equal(t, base.Version, merged.Version)
	assert.Len(t, merged.Sources, 5)
}

func TestSourceConfig_Overrides(t *testing.T) {
	maxAces := 50.0
	s := SourceConfig{
		Name: "stats",
		Kind: "match_stats",
		Enums: map[string][]string{
			"surface": {"clay"},
			"court":   {"centre"},
		},
		Ranges: map[string]RangeConfig{"aces": {Max: &maxAces}},
		Rules:  []RuleConfig{{Name: "player_set", Expr: `row.player != ""`}},
	}

	o := s.Overrides()
	require.Len(t, o.Enums, 2)
	assert.Equal(t, "court", o.Enums[0].Field)

	p, err := s.Profile()
	require.NoError(t, err)
	assert.Len(t, p.Exprs, 2)

	_, err = SourceConfig{Name: "x", Kind: "weather"}.Profile()
	assert.Error(t, err)
}

func TestSourceConfig_Loader(t *testing.T) {
	discovered := map[string]loader.DataFile{
		"venue_metadata": {Name: "venue_metadata", Path: "/data/venue_metadata.sqlite", Type: "sqlite"},
		"odds_feed":      {Name: "odds_feed", Path: "/data/odds_feed.csv", Type: "csv"},
	}

	l, err := SourceConfig{Name: "venue_metadata", Kind: "venue_metadata", Loader: LoaderConfig{Type: "csv"}}.Loader(discovered)
	require.NoError(t, err)
	assert.Equal(t, loader.SQLite{Path: "/data/venue_metadata.sqlite", Table: "venue_metadata"}, l)

	l, err = SourceConfig{Name: "odds_feed", Kind: "pre_match_odds"}.Loader(discovered)
	require.NoError(t, err)
	assert.Equal(t, loader.CSV{Path: "/data/odds_feed.csv"}, l)

	l, err = SourceConfig{Name: "x", Kind: "license_status", Loader: LoaderConfig{Path: "l.db", Table: "licenses"}}.Loader(nil)
	require.NoError(t, err)
	assert.Equal(t, loader.SQLite{Path: "l.db", Table: "licenses"}, l)

	_, err = SourceConfig{Name: "x", Kind: "license_status", Loader: LoaderConfig{Type: "parquet"}}.Loader(nil)
	assert.Error(t, err)
}

func TestConnectors_FromDataDir(t *testing.T) {
	dir := t.TempDir()
	csv := "match_id,snapshot_timestamp,player1_odds,player2_odds,bookmaker,available_at,match_start_time\n" +
		"M1,2024-01-01T09:00:00Z,1.8,2.1,pinnacle,2024-01-01T09:01:00Z,2024-01-01T12:00:00Z\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pre_match_odds.csv"), []byte(csv), 0o644))

	conns, err := Default().Connectors(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, conns, 5)

	byName := map[string]*connector.Connector{}
	for _, c := range conns {
		byName[c.Name()] = c
	}
	assert.Len(t, byName["pre_match_odds"].Records(), 1)
	assert.Empty(t, byName["venue_metadata"].Records())
}

func TestEnv(t *testing.T) {
	t.Setenv(EnvConfig, "/etc/ciphercourt.yaml")
	t.Setenv(EnvOutputDir, "/tmp/reports")
	t.Setenv(EnvLogLevel, "debug")

	env := FromEnv()
	assert.Equal(t, "/etc/ciphercourt.yaml", env.ConfigPath)
	assert.Equal(t, "/tmp/reports", env.Apply(Default()).Reports.OutputDir)
	assert.Equal(t, slog.LevelDebug, env.Level(slog.LevelInfo))
	assert.Equal(t, slog.LevelWarn, Env{}.Level(slog.LevelWarn))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CIPHERCOURT_OUTPUT_DIR=from-dotenv\n"), 0o644))
	t.Chdir(dir)
	t.Setenv(EnvOutputDir, "")
	require.NoError(t, os.Unsetenv(EnvOutputDir))

	require.NoError(t, LoadDotEnv())
	assert.Equal(t, "from-dotenv", FromEnv().OutputDir)
}
