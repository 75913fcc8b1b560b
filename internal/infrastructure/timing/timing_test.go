package timing

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"wabridge/internal/platform/clock"
)

// Feature: typing/read simulator, Property 7: humanDelay(b, v) outputs lie
// in [b(1-v), b(1+v)]; typingDuration lies in [min, max].
func TestHumanDelayBounds_Property7(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("humanDelay stays within base*(1±variance)", prop.ForAll(
		func(baseMs int, variance float64, seed float64) bool {
			base := time.Duration(baseMs) * time.Millisecond
			rng := clock.NewFakeRNG(seed)
			d := HumanDelay(rng, base, variance)
			low := time.Duration(float64(base) * (1 - variance))
			high := time.Duration(float64(base) * (1 + variance))
			return d >= low && d <= high
		},
		gen.IntRange(1, 10000),
		gen.Float64Range(0, 1),
		gen.Float64Range(0, 1),
	))

	properties.Property("typingDuration stays within [min, max]", prop.ForAll(
		func(text string, seed float64) bool {
			rng := clock.NewFakeRNG(seed)
			d := TypingDuration(rng, text, 0, 0)
			return d >= typingMin && d <= typingMax
		},
		gen.AnyString(),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}

func TestReadDelayClampedForEmptyText(t *testing.T) {
	rng := clock.NewFakeRNG(0.5)
	d := ReadDelay(rng, "")
	if d < readMin || d > readMax {
		t.Fatalf("expected read delay within bounds, got %v", d)
	}
}
