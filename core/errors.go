package coordination

import "errors"

var (
	// ErrMicrophoneUnavailable marks a denied or failed microphone
	// acquisition. Live-mode activation aborts and the session stays idle.
	ErrMicrophoneUnavailable = errors.New("microphone unavailable")
	// ErrCaptureSession marks a recognizer fault. The session auto-restarts
	// in live mode and stops in manual mode.
	ErrCaptureSession = errors.New("capture session fault")
	// ErrPlayback marks a speech synthesis fault. Playback is treated as
	// having ended.
	ErrPlayback = errors.New("speech playback failed")
	// ErrLanguageChangeWhileActive is returned by SetLanguage outside of
	// ModeIdle. The capture session is bound to its language for its
	// lifetime.
	ErrLanguageChangeWhileActive = errors.New("language can only be changed while idle")
	// ErrClosed is returned for operations on a closed coordinator.
	ErrClosed = errors.New("coordinator is closed")
)
