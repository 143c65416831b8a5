//go:build property

package forms

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/conduitcms/composer/internal/types"
)

// TestFormProperties validates value normalization and debounce collapse
// under generated inputs.
func TestFormProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(4242)
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	// Property: a normalized value is a fixed point of Normalize.
	properties.Property("number normalization is idempotent", prop.ForAll(
		func(raw float64) bool {
			def := types.FieldDefinition{Name: "count", Type: types.FieldNumber}
			once, err := Normalize(def, raw)
			if err != nil {
				return false
			}
			twice, err := Normalize(def, once)
			return err == nil && once == twice
		},
		gen.Float64(),
	))

	properties.Property("canonical dates survive normalization unchanged", prop.ForAll(
		func(seconds int64) bool {
			def := types.FieldDefinition{Name: "published", Type: types.FieldDate}
			canonical := time.Unix(seconds%4102444800, 0).UTC().Format(DateFormat)
			once, err := Normalize(def, canonical)
			if err != nil {
				return false
			}
			twice, err := Normalize(def, once)
			return err == nil && once == canonical && twice == canonical
		},
		gen.Int64Range(0, 1<<40),
	))

	// Property: any burst of edits collapses into exactly one propagation
	// carrying the final value.
	properties.Property("edit burst flushes exactly one propagation with the final value", prop.ForAll(
		func(edits []string) bool {
			if len(edits) == 0 {
				return true
			}

			rec := &propagationRecorder{}
			form := NewForm("el-1", types.FieldSchema{
				{Name: "headline", Type: types.FieldText},
			}, nil, rec.fn, WithDebounce(time.Hour))
			defer form.Close()

			for _, v := range edits {
				if err := form.SetValue("headline", v); err != nil {
					return false
				}
			}
			form.Flush()
			if rec.count() != 1 || rec.last().props["headline"] != edits[len(edits)-1] {
				return false
			}

			// A clean form has nothing left to flush.
			form.Flush()
			return rec.count() == 1
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
