package texttospeech

import "github.com/casavoz/casavoz-core/core/audio"

type SpeechOptions struct {
	// SpeechAudioCallback is called for every synthesized audio chunk.
	SpeechAudioCallback func(audio []byte)
	// SpeechStartedCallback is called once, when the first audio chunk for
	// the utterance is produced.
	SpeechStartedCallback func()
	// SpeechEndedCallback is called exactly once per speak, whether the
	// speech finished naturally, was cancelled, or failed.
	SpeechEndedCallback func(cancelled bool)
	// ErrorCallback is called when the TTS client encounters an error. An
	// error still results in the ended callback firing.
	ErrorCallback func(error)

	// Language is the BCP-47 tag shared by capture and playback.
	Language string

	EncodingInfo audio.EncodingInfo
}

type SpeechOption func(*SpeechOptions)

func WithSpeechAudioCallback(callback func([]byte)) SpeechOption {
	return func(o *SpeechOptions) { o.SpeechAudioCallback = callback }
}

func WithSpeechStartedCallback(callback func()) SpeechOption {
	return func(o *SpeechOptions) { o.SpeechStartedCallback = callback }
}

func WithSpeechEndedCallback(callback func(cancelled bool)) SpeechOption {
	return func(o *SpeechOptions) { o.SpeechEndedCallback = callback }
}

func WithErrorCallback(callback func(error)) SpeechOption {
	return func(o *SpeechOptions) { o.ErrorCallback = callback }
}

func WithLanguage(language string) SpeechOption {
	return func(o *SpeechOptions) {
		if language != "" {
			o.Language = language
		}
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) SpeechOption {
	return func(o *SpeechOptions) {
		if encodingInfo.IsZero() {
			return
		}

		o.EncodingInfo = encodingInfo
	}
}

// Speech is one in-flight synthesis of a single utterance.
type Speech interface {
	// Cancel immediately stops further speech generation. The ended
	// callback for the utterance still fires exactly once.
	//
	// Repeated calls to Cancel are ignored.
	Cancel() error
}
