package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"ciphercourt/internal/checks"
	"ciphercourt/internal/connector"
	"ciphercourt/internal/loader"
)

// Overrides converts the source's profile adjustments. Map-valued settings are applied in
// field name order.
func (s SourceConfig) Overrides() connector.Overrides {
	o := connector.Overrides{
		RequiredFields: s.RequiredFields,
		KeyFields:      s.KeyFields,
		Thresholds: connector.Thresholds{
			ProximityMinutes:  s.Thresholds.ProximityMinutes,
			StalenessDays:     s.Thresholds.StalenessDays,
			ExpiryWarningDays: s.Thresholds.ExpiryWarningDays,
			MovementThreshold: s.Thresholds.MovementThreshold,
		},
	}
	for _, field := range sortedKeys(s.Enums) {
		o.Enums = append(o.Enums, checks.EnumRule{Field: field, Allowed: s.Enums[field]})
	}
	for _, field := range sortedKeys(s.Ranges) {
		r := s.Ranges[field]
		o.Ranges = append(o.Ranges, checks.RangeRule{Field: field, Min: r.Min, Max: r.Max})
	}
	for _, r := range s.Rules {
		o.Rules = append(o.Rules, connector.Rule{Name: r.Name, Expr: r.Expr, Message: r.Message})
	}
	return o
}

// Profile returns the built-in profile of the source's kind with its overrides applied.
func (s SourceConfig) Profile() (checks.Profile, error) {
	base, err := connector.Profile(connector.Kind(s.Kind))
	if err != nil {
		return checks.Profile{}, fmt.Errorf("source %s: %w", s.Name, err)
	}
	p, err := s.Overrides().Apply(base)
	if err != nil {
		return checks.Profile{}, fmt.Errorf("source %s: %w", s.Name, err)
	}
	return p, nil
}

// Loader returns the loader for the source. When no path is configured, a discovered data
// file named after the source, or else after its kind, is used.
func (s SourceConfig) Loader(discovered map[string]loader.DataFile) (loader.Loader, error) {
	typ, path := s.Loader.Type, s.Loader.Path
	if path == "" {
		f, ok := discovered[s.Name]
		if !ok {
			f, ok = discovered[s.Kind]
		}
		if ok {
			typ, path = f.Type, f.Path
		}
	}
	if typ == "" {
		typ = loaderTypeFor(path)
	}

	switch typ {
	case "csv":
		return loader.CSV{Path: path}, nil
	case "sqlite":
		table := s.Loader.Table
		if table == "" {
			table = s.Kind
		}
		return loader.SQLite{Path: path, Table: table}, nil
	default:
		return nil, fmt.Errorf("source %s: unknown loader type %q", s.Name, typ)
	}
}

// Connectors builds every configured source in order. dataDir may be empty.
func (c Config) Connectors(ctx context.Context, dataDir string) ([]*connector.Connector, error) {
	var discovered map[string]loader.DataFile
	if dataDir != "" {
		files, err := loader.Discover(dataDir)
		if err != nil {
			return nil, &ConfigurationError{Path: dataDir, Err: err}
		}
		discovered = loader.Index(files)
	}

	out := make([]*connector.Connector, 0, len(c.Sources))
	for _, s := range c.Sources {
		p, err := s.Profile()
		if err != nil {
			return nil, err
		}
		l, err := s.Loader(discovered)
		if err != nil {
			return nil, err
		}
		conn, err := connector.New(ctx, s.Name, p, l)
		if err != nil {
			return nil, err
		}
		out = append(out, conn)
	}
	return out, nil
}

func loaderTypeFor(path string) string {
	switch filepath.Ext(path) {
	case ".db", ".sqlite", ".sqlite3":
		return "sqlite"
	default:
		return "csv"
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
