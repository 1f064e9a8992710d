package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"ciphercourt/internal/record"
)

// CSV loads rows from a CSV file with a header line.
type CSV struct {
	Path string
}

// Load reads the file. A missing or malformed file yields an unreachable dataset rather than
// an error; only a cancelled context is returned as an error.
func (c CSV) Load(ctx context.Context) (Dataset, error) {
	if err := ctx.Err(); err != nil {
		return Dataset{}, err
	}
	if c.Path == "" {
		return None{}.Load(ctx)
	}

	info, err := os.Stat(c.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Unreachable(c.Path, fmt.Sprintf("CSV file not found: %s", c.Path)), nil
		}
		return Unreachable(c.Path, fmt.Sprintf("CSV file not readable: %v", err)), nil
	}
	if info.IsDir() {
		return Unreachable(c.Path, fmt.Sprintf("CSV path is a directory: %s", c.Path)), nil
	}

	f, err := os.Open(c.Path)
	if err != nil {
		return Unreachable(c.Path, fmt.Sprintf("CSV file not readable: %v", err)), nil
	}
	defer f.Close()

	columns, rows, err := ReadCSV(f)
	if err != nil {
		return Unreachable(c.Path, fmt.Sprintf("CSV file malformed: %v", err)), nil
	}

	return Dataset{
		Rows:      rows,
		Columns:   columns,
		Reachable: true,
		Location:  c.Path,
		SizeBytes: info.Size(),
	}, nil
}

// ReadCSV parses a header line and the rows below it. Short rows are padded with empty
// values so every row carries every header column.
func ReadCSV(r io.Reader) ([]string, []record.Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return []string{}, []record.Row{}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		// Strip a UTF-8 BOM left by spreadsheet exports.
		header[0] = trimBOM(header[0])
	}

	rows := []record.Row{}
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row %d: %w", len(rows)+2, err)
		}
		row := make(record.Row, len(header))
		for i, col := range header {
			if i < len(fields) {
				row[col] = fields[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

func trimBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}
