package coordination

import "github.com/casavoz/casavoz-core/core/events"

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

func newCallbackEventEmitter(opts RunOptions) eventEmitter {
	return func(event events.Event) {
		switch typedEvent := event.(type) {
		case events.UserSpeechStarted:
			if opts.onSpeakingStateChanged != nil {
				opts.onSpeakingStateChanged(true)
			}
		case events.UserSpeechEnded:
			if opts.onSpeakingStateChanged != nil {
				opts.onSpeakingStateChanged(false)
			}
		case events.UserTranscriptUpdated:
			if opts.onInterimTranscript != nil {
				opts.onInterimTranscript(typedEvent.Transcript)
			}
		case events.UserUtteranceFinalized:
			if opts.onMessage != nil {
				opts.onMessage(Message{Role: RoleUser, Text: typedEvent.Text, CreatedAt: typedEvent.Timestamp()})
			}
		case events.AssistantReplyReceived:
			if opts.onMessage != nil {
				opts.onMessage(Message{Role: RoleAssistant, Text: typedEvent.Text, CreatedAt: typedEvent.Timestamp()})
			}
		case events.AssistantReplyFailed:
			if opts.onError != nil {
				opts.onError(typedEvent.Err)
			}
		case events.AssistantPlaybackStarted:
			if opts.onPlaybackStarted != nil {
				opts.onPlaybackStarted(typedEvent.Text)
			}
		case events.AssistantPlaybackEnded:
			if opts.onPlaybackEnded != nil {
				opts.onPlaybackEnded(typedEvent.Text, typedEvent.Cancelled)
			}
		case events.ModeChanged:
			if opts.onModeChanged != nil {
				opts.onModeChanged(Mode(typedEvent.From), Mode(typedEvent.To))
			}
		case events.LiveModeChanged:
			if opts.onLiveModeChanged != nil {
				opts.onLiveModeChanged(typedEvent.Enabled)
			}
		}
	}
}
