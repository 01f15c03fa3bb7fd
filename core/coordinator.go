// Package coordination provides the turn-taking core of a voice
// conversation session: it owns the session mode, routes microphone audio to
// speech recognition, detects end-of-utterance silence, submits finalized
// utterances to the chat endpoint and plays the spoken reply, with the
// guarantee that listening, sending and speaking never overlap.
package coordination

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

const defaultLanguageTag = "en-US"

// Coordinator ties the audio, speech and chat clients together into one
// conversation session. Construct it with New, start it with Run, then drive
// it through EnableLive/DisableLive or the manual listening and send
// operations. All methods are safe for concurrent use.
type Coordinator struct {
	speechToText *speechToText
	speechPlayer *speechPlayer
	chat         *chatDispatch
	audioInput   *audioInput
	audioOutput  *audioOutput
	silence      *silenceDetector
	transcript   *transcript

	language       string
	silenceOptions SilenceOptions

	runtime   *sessionRuntime
	closeOnce sync.Once
}

func New(opts ...CoordinatorOption) *Coordinator {
	runtime := newSessionRuntime()

	c := &Coordinator{
		speechToText: newSpeechToText(nil),
		chat:         newChatDispatch(nil),
		audioOutput:  newAudioOutput(nil),
		transcript:   newTranscript(),
		language:     defaultLanguageTag,
		runtime:      runtime,
	}
	c.speechPlayer = newSpeechPlayer(nil, c.audioOutput)
	c.audioInput = newAudioInput(nil, func(frame []byte) {
		if callback := runtime.runOptions.onInputAudio; callback != nil {
			callback(frame)
		}
		if runtime.liveEnabled.Load() || runtime.modeSnapshot() == ModeListening {
			if err := c.speechToText.SendAudio(frame); err != nil {
				logger.Warn("failed to forward captured audio", "error", err)
			}
		}
		c.silence.Observe(frame, c.audioInput.EncodingInfo())
	})

	for _, opt := range opts {
		opt(c)
	}

	c.silence = newSilenceDetector(c.silenceOptions,
		func() bool {
			return runtime.liveEnabled.Load() &&
				runtime.pendingNonEmpty.Load() &&
				runtime.modeSnapshot() == ModeListening
		},
		func() { runtime.enqueue(cmdEndOfUtterance{}) },
	)

	runtime.speechToText = c.speechToText
	runtime.speechPlayer = c.speechPlayer
	runtime.audioInput = c.audioInput
	runtime.chat = c.chat
	runtime.silence = c.silence
	runtime.transcript = c.transcript
	runtime.language = c.language

	return c
}

// Run starts the session loop and registers the observer callbacks. It
// returns immediately; the session keeps running until ctx is cancelled or
// Close is called.
func (c *Coordinator) Run(ctx context.Context, opts ...RunOption) error {
	if c.runtime.isClosed() {
		return ErrClosed
	}

	runOptions := RunOptions{}
	for _, opt := range opts {
		opt(&runOptions)
	}

	c.runtime.configure(ctx, runOptions)
	if !c.runtime.start() {
		return fmt.Errorf("coordinator is already running")
	}

	go func() {
		<-ctx.Done()
		if err := c.Close(); err != nil {
			logger.Warn("failed to close coordinator", "error", err)
		}
	}()

	return nil
}

// EnableLive acquires the microphone, starts a capture session and moves the
// session to listening. If the microphone cannot be acquired the session
// stays idle and the acquisition error is returned. Enabling an already live
// session is a no-op.
func (c *Coordinator) EnableLive() error {
	resp := make(chan error, 1)
	if err := c.dispatch(cmdEnableLive{resp: resp}); err != nil {
		return err
	}
	return c.await(resp)
}

// DisableLive aborts the live conversation from any mode: in-flight speech
// is cancelled, capture stops, the microphone is released and the session
// goes idle. Disabling a session that is not live is a no-op.
func (c *Coordinator) DisableLive() error {
	return c.dispatch(cmdDisableLive{})
}

// StartListening starts a manual capture session. Unlike live mode, no
// silence detection runs; the captured utterance is submitted only by an
// explicit Send.
func (c *Coordinator) StartListening() error {
	resp := make(chan error, 1)
	if err := c.dispatch(cmdStartListening{resp: resp}); err != nil {
		return err
	}
	return c.await(resp)
}

// StopListening ends a manual capture session and discards the pending
// utterance.
func (c *Coordinator) StopListening() error {
	return c.dispatch(cmdStopListening{})
}

// Send submits text as one finalized user utterance. Whitespace-only text is
// ignored. A send while a previous one is still being answered or spoken is
// dropped, never queued.
func (c *Coordinator) Send(text string) error {
	return c.dispatch(cmdSendText{text: text})
}

// SetLanguage changes the session language. The change is rejected with
// ErrLanguageChangeWhileActive unless the session is idle, so capture and
// playback never run with mismatched languages.
func (c *Coordinator) SetLanguage(language string) error {
	if language == "" {
		return fmt.Errorf("language must not be empty")
	}

	if !c.runtime.isStarted() {
		if c.runtime.isClosed() {
			return ErrClosed
		}
		c.runtime.language = language
		return nil
	}

	resp := make(chan error, 1)
	if err := c.dispatch(cmdSetLanguage{language: language, resp: resp}); err != nil {
		return err
	}
	return c.await(resp)
}

// Mode returns the current session mode.
func (c *Coordinator) Mode() Mode {
	return c.runtime.modeSnapshot()
}

// IsLive reports whether the live conversation toggle is on.
func (c *Coordinator) IsLive() bool {
	return c.runtime.liveEnabled.Load()
}

// Transcript returns a snapshot of the conversation history in order of
// finalization.
func (c *Coordinator) Transcript() []Message {
	return c.transcript.Snapshot()
}

// Close shuts the session down: playback is cancelled, capture stops and the
// session loop exits. Close is idempotent.
func (c *Coordinator) Close() error {
	var errs error
	c.closeOnce.Do(func() {
		c.runtime.closed.Store(true)

		c.silence.Stop()
		c.speechPlayer.CancelAll()
		if err := c.speechToText.Close(context.Background()); err != nil {
			errs = errors.Join(errs, err)
		}
		if err := c.audioInput.Close(); err != nil {
			errs = errors.Join(errs, err)
		}

		close(c.runtime.closeCh)
	})
	return errs
}

func (c *Coordinator) dispatch(cmd command) error {
	if c.runtime.isClosed() {
		return ErrClosed
	}
	if !c.runtime.isStarted() {
		return fmt.Errorf("coordinator is not running")
	}

	c.runtime.enqueue(cmd)
	return nil
}

func (c *Coordinator) await(resp chan error) error {
	select {
	case err := <-resp:
		return err
	case <-c.runtime.closeCh:
		return ErrClosed
	}
}
