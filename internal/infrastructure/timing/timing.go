// Package timing computes the typing and read-receipt delays that shape
// human-likeness in the send pipeline (§4.5). Every function here is pure
// over (clock, rng, text); no function sleeps directly.
package timing

import (
	"strings"
	"time"

	"wabridge/internal/platform/clock"
)

const (
	typingMin = 1000 * time.Millisecond
	typingMax = 6000 * time.Millisecond

	thinkingBase    = 500 * time.Millisecond
	thinkingPerRune = 2 * time.Millisecond
	thinkingMin     = 250 * time.Millisecond
	thinkingMax     = 4000 * time.Millisecond

	readPerWord = 300 * time.Millisecond
	readMin     = 500 * time.Millisecond
	readMax     = 15000 * time.Millisecond
)

func clampDuration(d, min, max time.Duration) time.Duration {
	if d < min {
		return min
	}
	if d > max {
		return max
	}
	return d
}

// TypingDuration samples a per-character rate k from U(35ms, 65ms) and
// returns length*k clamped to [min, max].
func TypingDuration(rng clock.RNG, text string, min, max time.Duration) time.Duration {
	if min == 0 {
		min = typingMin
	}
	if max == 0 {
		max = typingMax
	}
	k := 35*time.Millisecond + time.Duration(rng.Float64()*float64(30*time.Millisecond))
	d := time.Duration(len([]rune(text))) * k
	return clampDuration(d, min, max)
}

// ThinkingPause approximates the hesitation before typing starts:
// 500ms + 2ms/char, jittered ±100%, clamped to [250ms, 4000ms].
func ThinkingPause(rng clock.RNG, text string) time.Duration {
	base := thinkingBase + time.Duration(len([]rune(text)))*thinkingPerRune
	d := clock.Jitter(rng, base, 1.0)
	return clampDuration(d, thinkingMin, thinkingMax)
}

// ReadDelay approximates the time to read an inbound message:
// 300ms/word, jittered ±40%, clamped to [500ms, 15000ms].
func ReadDelay(rng clock.RNG, text string) time.Duration {
	words := len(strings.Fields(text))
	if words == 0 {
		words = 1
	}
	base := time.Duration(words) * readPerWord
	d := clock.Jitter(rng, base, 0.4)
	return clampDuration(d, readMin, readMax)
}

// HumanDelay returns a duration uniformly distributed in
// [base*(1-variance), base*(1+variance)].
func HumanDelay(rng clock.RNG, base time.Duration, variance float64) time.Duration {
	return clock.Jitter(rng, base, variance)
}
