package leakage

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"ciphercourt/internal/record"
)

// Property: a record leaks exactly when available_at is not strictly before the reference,
// and the reported delay equals the offset.
func TestLeakBoundaryProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	reference := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	properties.Property("leak iff offset >= 0", prop.ForAll(
		func(offset int64) bool {
			observed := reference.Add(time.Duration(offset) * time.Second)
			rec, _ := record.Normalize(0, record.Row{
				"match_id":         "M",
				"available_at":     observed.Format(time.RFC3339),
				"match_start_time": reference.Format(time.RFC3339),
			}, oddsSchema)

			res := Detect([]record.Record{rec}, []Rule{availability})
			if offset < 0 {
				return res.Total() == 0
			}
			return res.Total() == 1 && res.Categories[0].Violations[0].DelaySeconds == float64(offset)
		},
		gen.Int64Range(-86400, 86400),
	))

	properties.TestingRun(t)
}
