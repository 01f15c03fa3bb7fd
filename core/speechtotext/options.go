package speechtotext

import "github.com/casavoz/casavoz-core/core/audio"

type TranscriptionOptions struct {
	// InterimTranscriptionCallback receives the best current hypothesis for
	// the in-progress utterance on every recognizer update.
	InterimTranscriptionCallback func(transcript string)
	// TranscriptionCallback receives the finalized transcript once the
	// recognizer considers the utterance complete.
	TranscriptionCallback func(transcript string)

	SpeechStartedCallback func()
	SpeechEndedCallback   func()

	// SessionEndedCallback is called when the underlying recognition session
	// stops for any reason other than an explicit Stop.
	SessionEndedCallback func()
	// ErrorCallback is called for recognizer faults that do not end the
	// session.
	ErrorCallback func(err error)

	// Language is the BCP-47 tag shared by capture and playback.
	Language string

	EncodingInfo audio.EncodingInfo
}

type TranscriptionOption func(*TranscriptionOptions)

func WithInterimTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.InterimTranscriptionCallback = callback
	}
}

func WithTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.TranscriptionCallback = callback
	}
}

func WithSpeechStartedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SpeechStartedCallback = callback
	}
}

func WithSpeechEndedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SpeechEndedCallback = callback
	}
}

func WithSessionEndedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SessionEndedCallback = callback
	}
}

func WithErrorCallback(callback func(err error)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.ErrorCallback = callback
	}
}

func WithLanguage(language string) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		if language != "" {
			o.Language = language
		}
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.EncodingInfo = encodingInfo
	}
}
