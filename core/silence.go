package coordination

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/casavoz/casavoz-core/core/audio"
)

const (
	defaultSampleInterval = 100 * time.Millisecond
	defaultQuietThreshold = 0.015
	defaultQuietDuration  = 1500 * time.Millisecond
)

// SilenceOptions tunes end-of-utterance detection.
type SilenceOptions struct {
	// SampleInterval is the cadence at which microphone energy is checked.
	SampleInterval time.Duration
	// QuietThreshold is the normalized RMS level below which a sample counts
	// as quiet.
	QuietThreshold float64
	// QuietDuration is how long the energy must stay continuously below the
	// threshold before end-of-utterance is declared.
	QuietDuration time.Duration
}

func (o SilenceOptions) withDefaults() SilenceOptions {
	if o.SampleInterval <= 0 {
		o.SampleInterval = defaultSampleInterval
	}
	if o.QuietThreshold <= 0 {
		o.QuietThreshold = defaultQuietThreshold
	}
	if o.QuietDuration <= 0 {
		o.QuietDuration = defaultQuietDuration
	}
	return o
}

// silenceDetector samples microphone energy at a fixed cadence and raises
// one end-of-utterance signal after a sustained quiet period. It re-arms
// only after energy rises to or above the threshold again, so a single pause
// cannot produce duplicate signals.
type silenceDetector struct {
	options SilenceOptions

	// peakLevel holds the loudest normalized RMS observed since the last
	// sample tick, as math.Float64bits.
	peakLevel atomic.Uint64

	// onEndOfUtterance is raised once per qualifying quiet period.
	onEndOfUtterance func()
	// gate reports whether an end-of-utterance signal may fire right now
	// (pending utterance non-empty, session not speaking).
	gate func() bool

	running atomic.Bool
	cancel  context.CancelFunc
}

func newSilenceDetector(options SilenceOptions, gate func() bool, onEndOfUtterance func()) *silenceDetector {
	if gate == nil {
		gate = func() bool { return true }
	}
	if onEndOfUtterance == nil {
		onEndOfUtterance = func() {}
	}

	return &silenceDetector{
		options:          options.withDefaults(),
		gate:             gate,
		onEndOfUtterance: onEndOfUtterance,
	}
}

// Observe feeds one captured PCM frame into the detector. Safe to call from
// the audio capture thread.
func (d *silenceDetector) Observe(frame []byte, encoding audio.EncodingInfo) {
	if d == nil || !d.running.Load() {
		return
	}

	level := audio.RMS(frame, encoding)
	for {
		current := d.peakLevel.Load()
		if level <= math.Float64frombits(current) {
			return
		}
		if d.peakLevel.CompareAndSwap(current, math.Float64bits(level)) {
			return
		}
	}
}

func (d *silenceDetector) Start(ctx context.Context) {
	if d == nil || !d.running.CompareAndSwap(false, true) {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.peakLevel.Store(0)

	go d.sample(ctx)
}

func (d *silenceDetector) Stop() {
	if d == nil || !d.running.CompareAndSwap(true, false) {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

func (d *silenceDetector) sample(ctx context.Context) {
	ticker := time.NewTicker(d.options.SampleInterval)
	defer ticker.Stop()

	var quietFor time.Duration
	triggered := false

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			level := math.Float64frombits(d.peakLevel.Swap(0))

			if level >= d.options.QuietThreshold {
				// Any loud sample discards accumulated quiet time and
				// re-arms the detector.
				quietFor = 0
				triggered = false
				continue
			}

			if triggered {
				continue
			}

			quietFor += d.options.SampleInterval
			if quietFor >= d.options.QuietDuration && d.gate() {
				triggered = true
				d.onEndOfUtterance()
			}
		}
	}
}
