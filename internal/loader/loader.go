// Package loader reads raw rows for a source from local storage.
package loader

import (
	"context"

	"ciphercourt/internal/record"
)

// Dataset is what a loader hands to a connector. When the source cannot be reached,
// Reachable is false, Rows is empty and Reason explains why.
type Dataset struct {
	Rows      []record.Row
	Columns   []string
	Reachable bool
	Reason    string
	Location  string
	SizeBytes int64
}

// Unreachable builds a dataset for a source that could not be read.
func Unreachable(location, reason string) Dataset {
	return Dataset{Location: location, Reason: reason, Rows: []record.Row{}}
}

// Loader supplies the rows of one source.
type Loader interface {
	Load(ctx context.Context) (Dataset, error)
}

// Static is a Loader over rows already in memory.
type Static struct {
	Location string
	Columns  []string
	Rows     []record.Row
}

func (s Static) Load(_ context.Context) (Dataset, error) {
	rows := make([]record.Row, len(s.Rows))
	copy(rows, s.Rows)
	return Dataset{
		Rows:      rows,
		Columns:   s.Columns,
		Reachable: true,
		Location:  s.Location,
	}, nil
}

// None is a Loader for a source with no configured location.
type None struct{}

func (None) Load(_ context.Context) (Dataset, error) {
	return Unreachable("", "No data path configured"), nil
}
