package coordination

import (
	"context"

	"github.com/casavoz/casavoz-core/core/audio"
	"github.com/casavoz/casavoz-core/core/speechtotext"
	"github.com/casavoz/casavoz-core/core/texttospeech"
)

type CoordinatorOption func(*Coordinator)

// SpeechToText is a continuous recognition session with interim results.
type SpeechToText interface {
	Transcribe(ctx context.Context, opts ...speechtotext.TranscriptionOption) error
	SendAudio(audio []byte) error
	// Stop ends the session without the closure being reported as an
	// unexpected session end.
	Stop(ctx context.Context) error
}

func WithSpeechToTextClient(client SpeechToText) CoordinatorOption {
	return func(c *Coordinator) {
		c.speechToText.set(client)
	}
}

// SpeechSynthesizer turns reply text into audible speech.
type SpeechSynthesizer interface {
	Speak(ctx context.Context, text string, opts ...texttospeech.SpeechOption) (texttospeech.Speech, error)
}

func WithSpeechSynthesizer(client SpeechSynthesizer) CoordinatorOption {
	return func(c *Coordinator) {
		c.speechPlayer.set(client)
	}
}

// ChatClient submits one finalized utterance to the remote chat endpoint.
type ChatClient interface {
	Submit(ctx context.Context, message string, language string) (string, error)
}

func WithChatClient(client ChatClient) CoordinatorOption {
	return func(c *Coordinator) {
		c.chat.set(client)
	}
}

type audioInputBase interface {
	EncodingInfo() audio.EncodingInfo
	Stream(ctx context.Context, onAudio func(audio []byte)) error
	Close()
}

type AudioInput interface {
	audioInputBase
}

// AudioInputFine is implemented by input clients that support explicit
// capture start/stop, letting the coordinator release the device between
// listening sessions.
type AudioInputFine interface {
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
}

func WithAudioInput(client AudioInput) CoordinatorOption {
	return func(c *Coordinator) { c.audioInput.Set(client) }
}

type audioOutputBase interface {
	SendAudio(audio []byte) error
	ClearBuffer()
}

type AudioOutput interface {
	audioOutputBase
}

// AudioOutputFine is implemented by output clients that can report when
// their buffered audio has actually been played out, letting the
// coordinator distinguish "synthesis finished" from "speech finished".
type AudioOutputFine interface {
	AwaitDrain(ctx context.Context) error
}

func WithAudioOutput(client AudioOutput) CoordinatorOption {
	return func(c *Coordinator) { c.audioOutput.Set(client) }
}

// WithLanguage sets the BCP-47 tag shared by capture and playback.
func WithLanguage(language string) CoordinatorOption {
	return func(c *Coordinator) {
		if language != "" {
			c.language = language
		}
	}
}

// WithSilenceOptions tunes end-of-utterance detection for live mode.
func WithSilenceOptions(options SilenceOptions) CoordinatorOption {
	return func(c *Coordinator) { c.silenceOptions = options.withDefaults() }
}

type RunOptions struct {
	onMessage              func(message Message)
	onInterimTranscript    func(transcript string)
	onModeChanged          func(from, to Mode)
	onLiveModeChanged      func(enabled bool)
	onSpeakingStateChanged func(isSpeaking bool)
	onPlaybackStarted      func(text string)
	onPlaybackEnded        func(text string, cancelled bool)
	onInputAudio           func(audio []byte)
	onError                func(err error)
}

type RunOption func(*RunOptions)

// WithMessageCallback registers a callback for every message appended to the
// transcript: finalized user utterances and arrived assistant replies.
func WithMessageCallback(callback func(message Message)) RunOption {
	return func(o *RunOptions) {
		o.onMessage = callback
	}
}

// WithInterimTranscriptCallback registers a callback for updates to the
// pending utterance while listening. Updates are last-write-wins.
func WithInterimTranscriptCallback(callback func(transcript string)) RunOption {
	return func(o *RunOptions) {
		o.onInterimTranscript = callback
	}
}

func WithModeChangedCallback(callback func(from, to Mode)) RunOption {
	return func(o *RunOptions) {
		o.onModeChanged = callback
	}
}

func WithLiveModeChangedCallback(callback func(enabled bool)) RunOption {
	return func(o *RunOptions) {
		o.onLiveModeChanged = callback
	}
}

// WithSpeakingStateChangedCallback registers a callback for user
// speech-activity updates produced by the capture session.
func WithSpeakingStateChangedCallback(callback func(isSpeaking bool)) RunOption {
	return func(o *RunOptions) {
		o.onSpeakingStateChanged = callback
	}
}

func WithPlaybackStartedCallback(callback func(text string)) RunOption {
	return func(o *RunOptions) {
		o.onPlaybackStarted = callback
	}
}

// WithPlaybackEndedCallback registers a callback for playback completion.
// It fires exactly once per started playback, including on cancellation.
func WithPlaybackEndedCallback(callback func(text string, cancelled bool)) RunOption {
	return func(o *RunOptions) {
		o.onPlaybackEnded = callback
	}
}

// WithInputAudioCallback registers a callback for raw input audio chunks.
//
// The provided slice is passed through as-is (no defensive copy). The
// callback runs inline on the input-audio path and should not block.
func WithInputAudioCallback(callback func(audio []byte)) RunOption {
	return func(o *RunOptions) {
		o.onInputAudio = callback
	}
}

// WithErrorCallback registers a callback for non-fatal faults: failed chat
// submissions, capture session errors and playback errors. The coordinator
// always recovers to a defined mode.
func WithErrorCallback(callback func(err error)) RunOption {
	return func(o *RunOptions) {
		o.onError = callback
	}
}
