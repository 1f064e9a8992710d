// Package record turns raw tabular rows into typed, immutable records.
package record

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Row is one raw observation as loaded from a source.
type Row map[string]string

// Schema describes how rows of a source are normalized.
type Schema struct {
	// Required lists the fields every record must carry, in report order.
	Required []string
	// IDField identifies a record in issues and violations.
	IDField         string
	TimestampFields []string
	NumericFields   []string
}

// FieldKind tells which parser rejected a field.
type FieldKind string

const (
	KindTimestamp FieldKind = "timestamp"
	KindNumeric   FieldKind = "numeric"
)

// FieldError is a present, non-empty value that could not be parsed.
type FieldError struct {
	Field string
	Value string
	Kind  FieldKind
	Err   error
}

func (e FieldError) Error() string {
	return fmt.Sprintf("invalid %s %s %q: %v", e.Kind, e.Field, e.Value, e.Err)
}

func (e FieldError) Unwrap() error { return e.Err }

// Record is a normalized row. It is never mutated after Normalize returns.
type Record struct {
	index   int
	id      string
	fields  map[string]string
	times   map[string]time.Time
	numbers map[string]float64
	absent  []string
	missing []string
	errs    []FieldError
}

// Normalize parses row against schema. Absent or empty fields are tracked separately from
// format errors; it never fails outright.
func Normalize(index int, row Row, schema Schema) (Record, []FieldError) {
	rec := Record{
		index:   index,
		fields:  make(map[string]string, len(row)),
		times:   make(map[string]time.Time),
		numbers: make(map[string]float64),
	}
	for k, v := range row {
		rec.fields[k] = norm.NFC.String(strings.TrimSpace(v))
	}

	for _, f := range schema.Required {
		v, ok := rec.fields[f]
		if !ok {
			rec.absent = append(rec.absent, f)
		}
		if v == "" {
			rec.missing = append(rec.missing, f)
		}
	}

	for _, f := range schema.TimestampFields {
		v := rec.fields[f]
		if v == "" {
			continue
		}
		t, err := ParseTimestamp(v)
		if err != nil {
			rec.errs = append(rec.errs, FieldError{Field: f, Value: v, Kind: KindTimestamp, Err: err})
			continue
		}
		rec.times[f] = t
	}

	for _, f := range schema.NumericFields {
		v := rec.fields[f]
		if v == "" {
			continue
		}
		n, err := parseNumber(v)
		if err != nil {
			rec.errs = append(rec.errs, FieldError{Field: f, Value: v, Kind: KindNumeric, Err: err})
			continue
		}
		rec.numbers[f] = n
	}

	if schema.IDField != "" {
		rec.id = rec.fields[schema.IDField]
	}
	if rec.id == "" {
		rec.id = fmt.Sprintf("row %d", index+1)
	}

	errs := make([]FieldError, len(rec.errs))
	copy(errs, rec.errs)
	return rec, errs
}

var errNotFinite = errors.New("not a finite number")

// parseNumber accepts finite decimal values only. NaN and infinities are rejected.
func parseNumber(v string) (float64, error) {
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, errNotFinite
	}
	return n, nil
}

// NormalizeAll normalizes rows in order.
func NormalizeAll(rows []Row, schema Schema) []Record {
	out := make([]Record, 0, len(rows))
	for i, row := range rows {
		rec, _ := Normalize(i, row, schema)
		out = append(out, rec)
	}
	return out
}

// Index is the zero-based position of the record in its source.
func (r Record) Index() int { return r.index }

// ID is the value of the schema's ID field, or "row N" when it is empty.
func (r Record) ID() string { return r.id }

// Value returns a field and whether the source carried it at all.
func (r Record) Value(field string) (string, bool) {
	v, ok := r.fields[field]
	return v, ok
}

// Has reports whether the field is present and non-empty.
func (r Record) Has(field string) bool {
	return r.fields[field] != ""
}

// Time returns a successfully parsed timestamp field.
func (r Record) Time(field string) (time.Time, bool) {
	t, ok := r.times[field]
	return t, ok
}

// Number returns a successfully parsed numeric field.
func (r Record) Number(field string) (float64, bool) {
	n, ok := r.numbers[field]
	return n, ok
}

// Fields returns a copy of the normalized field map.
func (r Record) Fields() map[string]string {
	out := make(map[string]string, len(r.fields))
	for k, v := range r.fields {
		out[k] = v
	}
	return out
}

// Absent lists required fields the source did not carry at all.
func (r Record) Absent() []string { return append([]string(nil), r.absent...) }

// Missing lists required fields that are absent or empty.
func (r Record) Missing() []string { return append([]string(nil), r.missing...) }

// Complete reports whether every required field has a value.
func (r Record) Complete() bool { return len(r.missing) == 0 }

// Errors returns the format errors found while normalizing.
func (r Record) Errors() []FieldError { return append([]FieldError(nil), r.errs...) }

// ErrorsOf returns format errors of one kind.
func (r Record) ErrorsOf(kind FieldKind) []FieldError {
	var out []FieldError
	for _, e := range r.errs {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
