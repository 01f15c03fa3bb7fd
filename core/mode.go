package coordination

// Mode is the session mode of the coordinator. Exactly one mode is active at
// any instant; every transition goes through the legality table below so the
// modes cannot silently desynchronize.
type Mode string

const (
	// ModeIdle means no capture and no playback is active.
	ModeIdle Mode = "idle"
	// ModeListening means the capture session is active and the pending
	// utterance is being updated.
	ModeListening Mode = "listening"
	// ModeSending means a finalized utterance is in flight to the chat
	// endpoint. At most one send is outstanding.
	ModeSending Mode = "sending"
	// ModeSpeaking means a reply is being synthesized and played back.
	ModeSpeaking Mode = "speaking"
)

func (m Mode) String() string { return string(m) }

var legalTransitions = map[Mode][]Mode{
	ModeIdle:      {ModeListening, ModeSending},
	ModeListening: {ModeSending, ModeIdle},
	ModeSending:   {ModeSpeaking, ModeListening, ModeIdle},
	ModeSpeaking:  {ModeListening, ModeIdle},
}

// canTransitionTo reports whether moving from m to next is legal. The abort
// transition to ModeIdle is allowed from every mode.
func (m Mode) canTransitionTo(next Mode) bool {
	if m == next {
		return false
	}
	if next == ModeIdle {
		return true
	}
	for _, allowed := range legalTransitions[m] {
		if allowed == next {
			return true
		}
	}
	return false
}
