package events

const (
	// KindUserSpeechStarted identifies start of user speech activity.
	KindUserSpeechStarted Kind = "user_input.speech_started"
	// KindUserSpeechEnded identifies end of user speech activity.
	KindUserSpeechEnded Kind = "user_input.speech_ended"
	// KindUserTranscriptUpdated identifies mutable interim transcript updates.
	KindUserTranscriptUpdated Kind = "user_input.transcript_updated"
	// KindUserUtteranceFinalized identifies the utterance frozen for submission.
	KindUserUtteranceFinalized Kind = "user_input.utterance_finalized"
)

// UserSpeechStarted marks when user speech activity starts.
type UserSpeechStarted struct{ Base }

// NewUserSpeechStarted creates a user speech started event.
func NewUserSpeechStarted() UserSpeechStarted {
	return UserSpeechStarted{Base: newBase(KindUserSpeechStarted)}
}

// UserSpeechEnded marks when user speech activity ends.
type UserSpeechEnded struct{ Base }

// NewUserSpeechEnded creates a user speech ended event.
func NewUserSpeechEnded() UserSpeechEnded {
	return UserSpeechEnded{Base: newBase(KindUserSpeechEnded)}
}

// UserTranscriptUpdated carries the best current hypothesis for the pending
// utterance. Updates are last-write-wins.
type UserTranscriptUpdated struct {
	Base
	Transcript string
}

// NewUserTranscriptUpdated creates an interim transcript update event.
func NewUserTranscriptUpdated(transcript string) UserTranscriptUpdated {
	return UserTranscriptUpdated{Base: newBase(KindUserTranscriptUpdated), Transcript: transcript}
}

// UserUtteranceFinalized carries the utterance text frozen for submission.
type UserUtteranceFinalized struct {
	Base
	Text string
}

// NewUserUtteranceFinalized creates an utterance finalized event.
func NewUserUtteranceFinalized(text string) UserUtteranceFinalized {
	return UserUtteranceFinalized{Base: newBase(KindUserUtteranceFinalized), Text: text}
}
