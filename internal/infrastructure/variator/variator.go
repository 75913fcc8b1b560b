// Package variator implements the message variator described in §4.4: a
// per-recipient ring of recent outbound text, used to avoid sending
// byte-identical messages back to back.
package variator

import (
	"strings"
	"sync"

	"wabridge/internal/platform/clock"
)

const ringSize = 8

var emojiCatalog = []string{" 🙂", " 👍", " 🙏", ""}

var greetingSwaps = [][2]string{
	{"Hi", "Hello"},
	{"Hello", "Hey"},
	{"Hey", "Hi"},
}

var punctuationCatalog = []string{".", "!", ""}

// Variator produces lexically varied surface forms when a draft would
// repeat recently sent content to the same recipient.
type Variator struct {
	mu   sync.Mutex
	rng  clock.RNG
	ring map[string][]string
}

// New returns a Variator using rng for variant selection.
func New(rng clock.RNG) *Variator {
	return &Variator{rng: rng, ring: map[string][]string{}}
}

// Result is the outcome of Vary.
type Result struct {
	Text           string
	Varied         bool
	NoVariantFound bool
}

// Vary returns text unchanged if it hasn't recently been sent to jid,
// recording it into the ring either way. If text repeats a ring entry
// (case-insensitive exact match), it attempts to produce a variant that
// differs from both the input and every current ring entry; if no such
// variant exists it reports NoVariantFound so the caller can record a
// SUSPICIOUS_LATENCY event.
func (v *Variator) Vary(jid, text string) Result {
	v.mu.Lock()
	defer v.mu.Unlock()

	entries := v.ring[jid]
	if !containsFold(entries, text) {
		v.push(jid, text)
		return Result{Text: text}
	}

	variant, ok := v.findVariant(text, entries)
	if !ok {
		v.push(jid, text)
		return Result{Text: text, NoVariantFound: true}
	}

	v.push(jid, variant)
	return Result{Text: variant, Varied: true}
}

func (v *Variator) push(jid, text string) {
	entries := v.ring[jid]
	entries = append(entries, text)
	if len(entries) > ringSize {
		entries = entries[len(entries)-ringSize:]
	}
	v.ring[jid] = entries
}

// findVariant tries, in order, an emoji adjustment, a greeting swap, and a
// punctuation change, returning the first candidate absent from entries.
func (v *Variator) findVariant(text string, entries []string) (string, bool) {
	candidates := make([]string, 0, len(emojiCatalog)+len(greetingSwaps)+len(punctuationCatalog))
	for _, emoji := range emojiCatalog {
		candidates = append(candidates, strings.TrimRight(text, " ")+emoji)
	}
	for _, swap := range greetingSwaps {
		if strings.HasPrefix(text, swap[0]) {
			candidates = append(candidates, swap[1]+strings.TrimPrefix(text, swap[0]))
		}
	}
	base := strings.TrimRight(text, ".!")
	for _, punct := range punctuationCatalog {
		candidates = append(candidates, base+punct)
	}

	start := v.rng.Intn(len(candidates))
	for i := range candidates {
		c := candidates[(start+i)%len(candidates)]
		if c == text {
			continue
		}
		if !containsFold(entries, c) {
			return c, true
		}
	}
	return "", false
}

func containsFold(entries []string, text string) bool {
	for _, e := range entries {
		if strings.EqualFold(e, text) {
			return true
		}
	}
	return false
}
