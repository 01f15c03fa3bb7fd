package events

const (
	// KindModeChanged identifies a session mode transition.
	KindModeChanged Kind = "session.mode_changed"
	// KindLiveModeChanged identifies toggling of live conversation mode.
	KindLiveModeChanged Kind = "session.live_mode_changed"
)

// ModeChanged marks a transition of the session mode.
type ModeChanged struct {
	Base
	From string
	To   string
}

// NewModeChanged creates a mode changed event.
func NewModeChanged(from, to string) ModeChanged {
	return ModeChanged{Base: newBase(KindModeChanged), From: from, To: to}
}

// LiveModeChanged marks live conversation mode being enabled or disabled.
type LiveModeChanged struct {
	Base
	Enabled bool
}

// NewLiveModeChanged creates a live mode changed event.
func NewLiveModeChanged(enabled bool) LiveModeChanged {
	return LiveModeChanged{Base: newBase(KindLiveModeChanged), Enabled: enabled}
}
