package valueobject

// ConnectionState is the underlying wire session's lifecycle state, driven
// by events from the protocol library.
type ConnectionState string

const (
	StateDisconnected   ConnectionState = "DISCONNECTED"
	StateConnecting     ConnectionState = "CONNECTING"
	StateAwaitingPaired ConnectionState = "AWAITING_PAIRING"
	StateOpen           ConnectionState = "OPEN"
	StateClosedRetrying ConnectionState = "CLOSED_RETRYING"
	StateClosedFatal    ConnectionState = "CLOSED_FATAL"
)

// IsUsable reports whether the send pipeline may admit sends in this state.
func (s ConnectionState) IsUsable() bool {
	return s == StateOpen
}
