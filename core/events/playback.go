package events

const (
	// KindAssistantPlaybackStarted identifies playback start for the current reply.
	KindAssistantPlaybackStarted Kind = "assistant_playback.started"
	// KindAssistantPlaybackEnded identifies the playback completion milestone.
	KindAssistantPlaybackEnded Kind = "assistant_playback.ended"
)

// AssistantPlaybackStarted marks the start of assistant speech playback.
type AssistantPlaybackStarted struct {
	Base
	Text string
}

// NewAssistantPlaybackStarted creates a playback started event.
func NewAssistantPlaybackStarted(text string) AssistantPlaybackStarted {
	return AssistantPlaybackStarted{Base: newBase(KindAssistantPlaybackStarted), Text: text}
}

// AssistantPlaybackEnded marks the end of assistant speech playback. It is
// emitted exactly once per started playback, including on cancellation.
type AssistantPlaybackEnded struct {
	Base
	Text string
	// Cancelled reports whether playback ended because it was cut off
	// rather than finishing naturally.
	Cancelled bool
}

// NewAssistantPlaybackEnded creates a playback ended event.
func NewAssistantPlaybackEnded(text string, cancelled bool) AssistantPlaybackEnded {
	return AssistantPlaybackEnded{Base: newBase(KindAssistantPlaybackEnded), Text: text, Cancelled: cancelled}
}
