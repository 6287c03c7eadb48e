package runtimekey

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property-based tests for RuntimeKey derivation.

func TestRuntimeKeyProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	// Property: KeyOf is deterministic across repeated calls on the same spec.
	properties.Property("KeyOf is deterministic", prop.ForAll(
		func(providerID, modelID string, seed int) bool {
			d, err := New()
			if err != nil {
				return false
			}
			defer d.Close()

			spec := Spec{
				Task:        TaskEmbed,
				ProviderID:  providerID,
				ModelID:     modelID,
				OptionsJSON: []byte(fmt.Sprintf(`{"seed":%d}`, seed)),
			}

			return d.KeyOf(spec) == d.KeyOf(spec)
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.IntRange(0, 1000),
	))

	// Property: two specs that agree on every tuple field produce equal keys,
	// regardless of the textual order of their options object keys.
	properties.Property("equal tuples with reordered option keys yield equal RuntimeKeys", prop.ForAll(
		func(providerID, modelID string, a, b int) bool {
			d, err := New()
			if err != nil {
				return false
			}
			defer d.Close()

			s1 := Spec{
				Task:        TaskGenerate,
				ProviderID:  providerID,
				ModelID:     modelID,
				OptionsJSON: []byte(fmt.Sprintf(`{"a":%d,"b":%d}`, a, b)),
			}
			s2 := Spec{
				Task:        TaskGenerate,
				ProviderID:  providerID,
				ModelID:     modelID,
				OptionsJSON: []byte(fmt.Sprintf(`{"b":%d,"a":%d}`, b, a)),
			}

			return d.KeyOf(s1) == d.KeyOf(s2)
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.IntRange(0, 1000),
		gen.IntRange(0, 1000),
	))

	// Property: changing the model ID alone always changes the key.
	properties.Property("distinct model IDs never collide", prop.ForAll(
		func(providerID, modelA, modelB string) bool {
			if modelA == modelB {
				return true
			}
			d, err := New()
			if err != nil {
				return false
			}
			defer d.Close()

			s1 := Spec{Task: TaskRerank, ProviderID: providerID, ModelID: modelA}
			s2 := Spec{Task: TaskRerank, ProviderID: providerID, ModelID: modelB}

			return d.KeyOf(s1) != d.KeyOf(s2)
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
