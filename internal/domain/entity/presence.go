package entity

// PresenceState is the protocol-level online/offline/composing/paused
// beacon the core broadcasts, either globally (presence cycler) or
// scoped to a single jid around a send (§4.6 steps 7-11).
type PresenceState string

const (
	PresenceComposing PresenceState = "composing"
	PresencePaused    PresenceState = "paused"
	PresenceOnline    PresenceState = "online"
	PresenceOffline   PresenceState = "offline"
)
