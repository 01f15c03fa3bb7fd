package coordination

import (
	"context"
	"fmt"
	"sync"

	"github.com/casavoz/casavoz-core/core/audio"
	"github.com/casavoz/casavoz-core/core/texttospeech"
)

type playbackCallbacks struct {
	onStarted func()
	// onEnded fires exactly once per Speak, with cancelled reporting whether
	// playback was cut off rather than finishing naturally.
	onEnded func(cancelled bool)
}

// speechPlayer guarantees at most one active synthesized utterance. Speaking
// a new utterance cancels the current one first, and the cancelled
// utterance's ended callback fires before the new speech starts.
type speechPlayer struct {
	synthesizer SpeechSynthesizer
	output      *audioOutput

	mu      sync.Mutex
	current *activePlayback
}

// activePlayback is one utterance from synthesis through audible playout.
// Its ended callback fires exactly once, through finish.
type activePlayback struct {
	speech      texttospeech.Speech
	cancelDrain context.CancelFunc

	ended   sync.Once
	onEnded func(cancelled bool)
}

func (a *activePlayback) finish(cancelled bool) {
	a.ended.Do(func() { a.onEnded(cancelled) })
}

func newSpeechPlayer(synthesizer SpeechSynthesizer, output *audioOutput) *speechPlayer {
	return &speechPlayer{synthesizer: synthesizer, output: output}
}

func (p *speechPlayer) set(synthesizer SpeechSynthesizer) {
	if p != nil {
		p.synthesizer = synthesizer
	}
}

func (p *speechPlayer) isConfigured() bool {
	return p != nil && p.synthesizer != nil
}

func (p *speechPlayer) Speak(ctx context.Context, text string, language string, encodingInfo audio.EncodingInfo, callbacks playbackCallbacks) error {
	if !p.isConfigured() {
		return fmt.Errorf("no speech synthesizer configured")
	}

	if callbacks.onStarted == nil {
		callbacks.onStarted = func() {}
	}
	if callbacks.onEnded == nil {
		callbacks.onEnded = func(bool) {}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// The previous utterance's ended callback fires inside the cancel,
	// before the new speech is started.
	p.cancelCurrentLocked()

	drainCtx, cancelDrain := context.WithCancel(ctx)
	playback := &activePlayback{cancelDrain: cancelDrain, onEnded: callbacks.onEnded}

	// The synthesizer reports its natural end when the last chunk has been
	// buffered, not when it has been played. Hold the ended signal until
	// the output reports the buffer audibly drained.
	synthesisEnded := func(cancelled bool) {
		if cancelled {
			playback.finish(true)
			return
		}
		go func() {
			defer cancelDrain()
			if err := p.output.AwaitDrain(drainCtx); err != nil {
				playback.finish(true)
				return
			}
			playback.finish(false)
		}()
	}

	speech, err := p.synthesizer.Speak(ctx, text,
		texttospeech.WithSpeechAudioCallback(p.output.SendAudio),
		texttospeech.WithSpeechStartedCallback(callbacks.onStarted),
		texttospeech.WithSpeechEndedCallback(synthesisEnded),
		texttospeech.WithLanguage(language),
		texttospeech.WithEncodingInfo(encodingInfo),
	)
	if err != nil {
		cancelDrain()
		return fmt.Errorf("%w: %w", ErrPlayback, err)
	}

	playback.speech = speech
	p.current = playback
	return nil
}

// CancelAll stops the active utterance, if any, and drops any buffered
// output audio. The cancelled utterance's ended callback still fires.
func (p *speechPlayer) CancelAll() {
	if p == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelCurrentLocked()
}

func (p *speechPlayer) cancelCurrentLocked() {
	if p.current == nil {
		return
	}

	if err := p.current.speech.Cancel(); err != nil {
		logger.Warn("failed to cancel active speech", "error", err)
	}
	p.current.cancelDrain()
	p.current.finish(true)
	p.current = nil
	p.output.ClearBuffer()
}

// audioOutput is the output facade used to normalize speaker delivery.
type audioOutput struct {
	mu   sync.RWMutex
	base audioOutputBase
}

func newAudioOutput(client audioOutputBase) *audioOutput {
	return &audioOutput{base: client}
}

func (a *audioOutput) Set(client audioOutputBase) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.base = client
}

func (a *audioOutput) SendAudio(audio []byte) {
	if a == nil {
		return
	}
	a.mu.RLock()
	base := a.base
	a.mu.RUnlock()

	if base == nil {
		return
	}
	if err := base.SendAudio(audio); err != nil {
		logger.Warn("failed to deliver playback audio", "error", err)
	}
}

// AwaitDrain blocks until the output client reports its buffered audio
// played out. Clients without drain reporting are treated as drained.
func (a *audioOutput) AwaitDrain(ctx context.Context) error {
	if a == nil {
		return nil
	}
	a.mu.RLock()
	base := a.base
	a.mu.RUnlock()

	if drainer, ok := base.(AudioOutputFine); ok {
		return drainer.AwaitDrain(ctx)
	}
	return nil
}

func (a *audioOutput) ClearBuffer() {
	if a == nil {
		return
	}
	a.mu.RLock()
	base := a.base
	a.mu.RUnlock()

	if base != nil {
		base.ClearBuffer()
	}
}
