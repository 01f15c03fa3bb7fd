package coordination

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/casavoz/casavoz-core/core/audio"
)

// audioInput normalizes microphone capture behavior across backends. Clients
// with fine capture controls are started and stopped per listening session;
// stream-only clients run for the lifetime of the coordinator.
type audioInput struct {
	base audioInputBase
	// fineCaptureControl is set when the input client supports explicit
	// capture controls.
	fineCaptureControl AudioInputFine

	connected   atomic.Bool
	isCapturing atomic.Bool

	// onInputAudio is called for every captured frame.
	onInputAudio func(audio []byte)
}

func newAudioInput(client audioInputBase, onInputAudio func(audio []byte)) *audioInput {
	if onInputAudio == nil {
		onInputAudio = func(audio []byte) {}
	}

	audioInput := audioInput{onInputAudio: onInputAudio}
	audioInput.Set(client)
	return &audioInput
}

func (a *audioInput) Set(client audioInputBase) {
	if a == nil {
		return
	}

	a.base = client
	a.fineCaptureControl = nil
	a.connected.Store(false)
	a.isCapturing.Store(false)

	if client == nil {
		return
	}

	a.connected.Store(true)
	if fine, ok := client.(AudioInputFine); ok {
		a.fineCaptureControl = fine
	}
}

func (a *audioInput) IsConfigured() bool            { return a != nil && a.connected.Load() }
func (a *audioInput) SupportsCaptureControls() bool { return a != nil && a.fineCaptureControl != nil }
func (a *audioInput) IsCapturing() bool             { return a != nil && a.isCapturing.Load() }

// Capture acquires the microphone stream. With fine capture controls the
// acquisition result is reported synchronously, so a denied device surfaces
// before any mode transition happens.
func (a *audioInput) Capture(ctx context.Context) error {
	if a == nil || !a.IsConfigured() {
		return fmt.Errorf("%w: no audio input configured", ErrMicrophoneUnavailable)
	}

	if !a.isCapturing.CompareAndSwap(false, true) {
		return nil
	}

	if a.SupportsCaptureControls() {
		if err := a.fineCaptureControl.StartCapture(ctx, a.onInputAudio); err != nil {
			a.isCapturing.Store(false)
			return fmt.Errorf("%w: %w", ErrMicrophoneUnavailable, err)
		}
		return nil
	}

	go func() {
		if err := a.base.Stream(ctx, a.onInputAudio); err != nil {
			a.isCapturing.Store(false)
			log.Printf("Failed to start audio input: %v", err)
		}
	}()
	return nil
}

// StopCapture releases the microphone stream.
func (a *audioInput) StopCapture() error {
	if a == nil || !a.isCapturing.Load() {
		return nil
	}

	if a.SupportsCaptureControls() {
		if err := a.fineCaptureControl.StopCapture(); err != nil {
			return err
		}
	}
	a.isCapturing.Store(false)
	return nil
}

func (a *audioInput) Close() error {
	var errs error
	if a.base != nil && a.IsConfigured() {
		if a.fineCaptureControl != nil {
			if err := a.fineCaptureControl.StopCapture(); err != nil {
				errs = errors.Join(errs, err)
			}
		}

		a.base.Close()
	}
	a.isCapturing.Store(false)

	return errs
}

func (a *audioInput) EncodingInfo() audio.EncodingInfo {
	if a == nil || a.base == nil {
		return audio.GetDefaultEncodingInfo()
	}

	return a.base.EncodingInfo()
}
