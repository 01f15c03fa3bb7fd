package miniaudio

import (
	"context"
	"fmt"
	"sync"

	"github.com/casavoz/casavoz-core/core/audio"
	"github.com/gen2brain/malgo"
)

type playbackClient struct {
	audioContext *malgo.AllocatedContext
	device       *malgo.Device
	config       malgo.DeviceConfig

	leftoverAudio []byte
	// drainWaiters are released once the device callback has consumed the
	// last buffered byte.
	drainWaiters []chan struct{}

	mu      sync.Mutex
	audioMu sync.Mutex
}

func (c *playbackClient) Init(audioContext *malgo.AllocatedContext) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sampleRate := uint32(audio.DefaultSampleRate)
	channels := 1
	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	c.config = malgo.DefaultDeviceConfig(malgo.Playback)
	c.config.SampleRate = sampleRate
	c.config.Playback.Format = format
	c.config.Playback.Channels = uint32(channels)
	c.config.Alsa.NoMMap = 1
	c.config.PeriodSizeInFrames = sampleRate / 10 // ~100ms of audio
	c.config.Periods = 4

	c.audioContext = audioContext

	var err error
	if c.device, err = malgo.InitDevice(
		c.audioContext.Context,
		c.config,
		malgo.DeviceCallbacks{Data: c.processAudio(bytesPerFrame)},
	); err != nil {
		return err
	}

	return nil
}

func (c *playbackClient) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}

	if err := c.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	return nil
}

func (c *playbackClient) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}

	if err := c.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop playback device: %w", err)
	}

	c.ClearBuffer()
	return nil
}

func (c *playbackClient) SendAudio(audio []byte) error {
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	} else if !c.device.IsStarted() {
		return fmt.Errorf("device not started")
	}

	c.audioMu.Lock()
	defer c.audioMu.Unlock()
	c.leftoverAudio = append(c.leftoverAudio, audio...)
	return nil
}

func (c *playbackClient) ClearBuffer() {
	c.audioMu.Lock()
	defer c.audioMu.Unlock()
	c.leftoverAudio = nil
	c.releaseDrainWaitersLocked()
}

// AwaitDrain blocks until all buffered audio has been fed to the output
// device, or ctx is cancelled.
func (c *playbackClient) AwaitDrain(ctx context.Context) error {
	c.audioMu.Lock()
	if len(c.leftoverAudio) == 0 {
		c.audioMu.Unlock()
		return nil
	}
	waiter := make(chan struct{})
	c.drainWaiters = append(c.drainWaiters, waiter)
	c.audioMu.Unlock()

	select {
	case <-waiter:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *playbackClient) releaseDrainWaitersLocked() {
	for _, waiter := range c.drainWaiters {
		close(waiter)
	}
	c.drainWaiters = nil
}

// processAudio feeds buffered speech into the output device, padding with
// silence when the buffer runs dry.
func (c *playbackClient) processAudio(bytesPerFrame int) func(pOutput, _ []byte, frameCount uint32) {
	return func(pOutput, _ []byte, frameCount uint32) {
		n := int(frameCount) * bytesPerFrame
		if len(pOutput) < n {
			n = len(pOutput)
		}

		c.audioMu.Lock()
		defer c.audioMu.Unlock()

		copied := copy(pOutput[:n], c.leftoverAudio)
		c.leftoverAudio = c.leftoverAudio[copied:]
		if len(c.leftoverAudio) == 0 {
			c.releaseDrainWaitersLocked()
		}
		for i := copied; i < n; i++ {
			pOutput[i] = 0
		}
	}
}

func (c *playbackClient) Uninit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}

	c.ClearBuffer()
	return nil
}
