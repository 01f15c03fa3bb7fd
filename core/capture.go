package coordination

import (
	"context"
	"fmt"

	"github.com/casavoz/casavoz-core/core/audio"
	"github.com/casavoz/casavoz-core/core/speechtotext"
)

// speechToTextCallbacks is the contract the coordinator expects from an
// active capture session.
type speechToTextCallbacks struct {
	onInterimTranscription func(transcript string)
	onTranscription        func(transcript string)
	onSpeechStarted        func()
	onSpeechEnded          func()
	// onSessionEnded fires when the session stopped without an explicit
	// Stop. The restart policy is owned by the coordinator, not the adapter.
	onSessionEnded func()
	onError        func(err error)
}

// speechToText is the STT facade used to handle optional client wiring.
type speechToText struct {
	client SpeechToText
}

func newSpeechToText(client SpeechToText) *speechToText {
	return &speechToText{client: client}
}

func (s *speechToText) set(client SpeechToText) {
	if s != nil {
		s.client = client
	}
}

func (s *speechToText) isConfigured() bool {
	return s != nil && s.client != nil
}

func (s *speechToText) start(ctx context.Context, callbacks speechToTextCallbacks, language string, encodingInfo audio.EncodingInfo) error {
	if !s.isConfigured() {
		return nil
	}

	sttOptions := []speechtotext.TranscriptionOption{
		speechtotext.WithInterimTranscriptionCallback(callbacks.onInterimTranscription),
		speechtotext.WithTranscriptionCallback(callbacks.onTranscription),
		speechtotext.WithSpeechStartedCallback(callbacks.onSpeechStarted),
		speechtotext.WithSpeechEndedCallback(callbacks.onSpeechEnded),
		speechtotext.WithSessionEndedCallback(callbacks.onSessionEnded),
		speechtotext.WithErrorCallback(callbacks.onError),
		speechtotext.WithLanguage(language),
		speechtotext.WithEncodingInfo(encodingInfo),
	}

	if err := s.client.Transcribe(ctx, sttOptions...); err != nil {
		return fmt.Errorf("failed to start transcribing: %w", err)
	}

	return nil
}

func (s *speechToText) SendAudio(audio []byte) error {
	if !s.isConfigured() {
		return nil
	}

	return s.client.SendAudio(audio)
}

func (s *speechToText) stop(ctx context.Context) error {
	if !s.isConfigured() {
		return nil
	}

	return s.client.Stop(ctx)
}

func (s *speechToText) Close(ctx context.Context) error {
	if !s.isConfigured() {
		return nil
	}

	switch c := s.client.(type) {
	case interface{ Close(context.Context) error }:
		if err := c.Close(ctx); err != nil {
			return fmt.Errorf("failed to close speech-to-text client: %w", err)
		}
	case interface{ Close(context.Context) }:
		c.Close(ctx)
	case interface{ Close() error }:
		if err := c.Close(); err != nil {
			return fmt.Errorf("failed to close speech-to-text client: %w", err)
		}
	case interface{ Close() }:
		c.Close()
	}

	return nil
}
