// Package connector binds a source name, its check profile and its loaded data into one
// auditable source.
package connector

import (
	"context"
	"fmt"
	"time"

	"ciphercourt/internal/checks"
	"ciphercourt/internal/loader"
	"ciphercourt/internal/model"
	"ciphercourt/internal/record"
)

// Connector is one data source. Its data is loaded and normalized once, at construction,
// so every check sees the same records.
type Connector struct {
	name    string
	profile checks.Profile
	dataset loader.Dataset
	records []record.Record
}

// New loads the source through l. An unreachable source is not an error; only loader
// failures such as an invalid table name or a cancelled context are.
func New(ctx context.Context, name string, profile checks.Profile, l loader.Loader) (*Connector, error) {
	if l == nil {
		l = loader.None{}
	}
	ds, err := l.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load source %s: %w", name, err)
	}
	return &Connector{
		name:    name,
		profile: profile,
		dataset: ds,
		records: record.NormalizeAll(ds.Rows, profile.Schema),
	}, nil
}

func (c *Connector) Name() string { return c.name }

// Records returns the normalized records.
func (c *Connector) Records() []record.Record { return c.records }

func (c *Connector) CheckAvailability() model.CheckResult {
	return checks.Availability(c.dataset, c.records)
}

func (c *Connector) AuditDataQuality() model.CheckResult {
	return checks.Quality(c.records, c.profile)
}

func (c *Connector) CheckTimestamps(now time.Time) model.CheckResult {
	return checks.Timestamps(c.records, c.profile, now)
}

func (c *Connector) DetectLeakage(now time.Time) model.CheckResult {
	return checks.Leakage(c.records, c.profile, now)
}
