package miniaudio

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/casavoz/casavoz-core/core/audio"
	"github.com/gen2brain/malgo"
)

const (
	captureChannels     = 1
	capturePeriodFrames = 480
	capturePeriods      = 3
)

// captureClient drives the microphone through a malgo capture device. The
// device stays initialized for the lifetime of the client; Start and Stop
// only toggle frame delivery.
type captureClient struct {
	mu     sync.Mutex
	device *malgo.Device

	// deliver is read on the audio thread, so it is swapped atomically
	// instead of being guarded by mu.
	deliver atomic.Pointer[func(frame []byte)]
}

func captureDeviceConfig() malgo.DeviceConfig {
	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.SampleRate = uint32(audio.DefaultSampleRate)
	config.Capture.Format = malgo.FormatS16
	config.Capture.Channels = captureChannels
	config.Alsa.NoMMap = 1
	config.PerformanceProfile = malgo.LowLatency
	config.PeriodSizeInFrames = capturePeriodFrames
	config.Periods = capturePeriods
	return config
}

func (c *captureClient) Init(audioContext *malgo.AllocatedContext) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	config := captureDeviceConfig()
	frameBytes := malgo.SampleSizeInBytes(config.Capture.Format) * captureChannels

	device, err := malgo.InitDevice(audioContext.Context, config, malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			want := int(frameCount) * frameBytes
			if want == 0 || len(input) < want {
				return
			}
			if deliver := c.deliver.Load(); deliver != nil {
				(*deliver)(input[:want])
			}
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}

	c.device = device
	return nil
}

func (c *captureClient) Start(onAudio func(audio []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("capture device is not initialized")
	}
	if c.device.IsStarted() {
		return nil
	}

	c.deliver.Store(&onAudio)
	if err := c.device.Start(); err != nil {
		c.deliver.Store(nil)
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	return nil
}

func (c *captureClient) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("capture device is not initialized")
	}
	if !c.device.IsStarted() {
		return nil
	}

	if err := c.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop capture device: %w", err)
	}
	c.deliver.Store(nil)
	return nil
}

func (c *captureClient) Uninit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}
	c.deliver.Store(nil)
	return nil
}
