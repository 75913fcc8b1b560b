package entity

import "time"

// ActivityCounters is the symmetric sent/received tally the activity
// tracker exposes, plus the response-time samples behind the response-ratio
// signal consumed by the ban warning system.
type ActivityCounters struct {
	Sent              int64     `json:"sent"`
	Received          int64     `json:"received"`
	ResponseSamples   []float64 `json:"response_samples"` // seconds, capped ring
	LastSentAt        time.Time `json:"last_sent_at"`
	LastReceivedAt    time.Time `json:"last_received_at"`
}

// responseSampleCap bounds the response-time ring so the persisted file
// doesn't grow unbounded across a long-lived session.
const responseSampleCap = 200

// RecordSent increments the sent counter.
func (a *ActivityCounters) RecordSent(now time.Time) {
	a.Sent++
	a.LastSentAt = now
}

// RecordReceived increments the received counter.
func (a *ActivityCounters) RecordReceived(now time.Time) {
	a.Received++
	a.LastReceivedAt = now
}

// AddResponseSample records how long a reply took to arrive after a sent
// message, keeping only the most recent responseSampleCap samples.
func (a *ActivityCounters) AddResponseSample(seconds float64) {
	a.ResponseSamples = append(a.ResponseSamples, seconds)
	if len(a.ResponseSamples) > responseSampleCap {
		a.ResponseSamples = a.ResponseSamples[len(a.ResponseSamples)-responseSampleCap:]
	}
}

// ResponseRatio is received/sent, the signal surfaced in status() to show
// how conversational (vs. one-way broadcast) the traffic pattern looks.
func (a *ActivityCounters) ResponseRatio() float64 {
	if a.Sent == 0 {
		return 0
	}
	return float64(a.Received) / float64(a.Sent)
}
