package loader

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"time"

	_ "modernc.org/sqlite"

	"ciphercourt/internal/record"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLite loads every row of one table from a local SQLite database.
type SQLite struct {
	Path  string
	Table string
}

// Load reads the table. A missing database file yields an unreachable dataset. An invalid
// table name is a configuration error.
func (s SQLite) Load(ctx context.Context) (Dataset, error) {
	if !tableName.MatchString(s.Table) {
		return Dataset{}, fmt.Errorf("invalid sqlite table name %q", s.Table)
	}
	if s.Path == "" {
		return None{}.Load(ctx)
	}
	location := s.Path + "#" + s.Table

	info, err := os.Stat(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Unreachable(location, fmt.Sprintf("SQLite database not found: %s", s.Path)), nil
		}
		return Unreachable(location, fmt.Sprintf("SQLite database not readable: %v", err)), nil
	}

	db, err := sql.Open("sqlite", s.Path)
	if err != nil {
		return Unreachable(location, fmt.Sprintf("open sqlite: %v", err)), nil
	}
	defer db.Close()

	columns, rows, err := queryRows(ctx, db, s.Table)
	if err != nil {
		if ctx.Err() != nil {
			return Dataset{}, ctx.Err()
		}
		return Unreachable(location, fmt.Sprintf("query %s: %v", s.Table, err)), nil
	}

	return Dataset{
		Rows:      rows,
		Columns:   columns,
		Reachable: true,
		Location:  location,
		SizeBytes: info.Size(),
	}, nil
}

func queryRows(ctx context.Context, db *sql.DB, table string) ([]string, []record.Row, error) {
	// The table name is validated against tableName before it reaches here.
	rs, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM "%s" ORDER BY rowid`, table))
	if err != nil {
		return nil, nil, err
	}
	defer rs.Close()

	columns, err := rs.Columns()
	if err != nil {
		return nil, nil, err
	}

	rows := []record.Row{}
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rs.Next() {
		if err := rs.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make(record.Row, len(columns))
		for i, col := range columns {
			row[col] = stringify(values[i])
		}
		rows = append(rows, row)
	}
	return columns, rows, rs.Err()
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(t)
	case string:
		return t
	case time.Time:
		// DATETIME columns come back parsed.
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(t)
	}
}
