package coordination

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/casavoz/casavoz-core/core/audio"
	"github.com/casavoz/casavoz-core/core/events"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// command is a unit of work for the session loop. All session state is owned
// by the loop goroutine, so handlers run to completion without locking.
type command interface{}

type cmdEnableLive struct{ resp chan error }
type cmdDisableLive struct{}
type cmdStartListening struct{ resp chan error }
type cmdStopListening struct{}
type cmdSendText struct{ text string }
type cmdSetLanguage struct {
	language string
	resp     chan error
}
type cmdTranscriptUpdated struct{ transcript string }
type cmdTranscriptFinal struct{ transcript string }
type cmdSpeechActivity struct{ started bool }
type cmdEndOfUtterance struct{}
type cmdCaptureSessionEnded struct{}
type cmdCaptureError struct{ err error }
type cmdChatResult struct {
	turnID uuid.UUID
	reply  string
	err    error
}
type cmdPlaybackStarted struct {
	turnID uuid.UUID
	text   string
}
type cmdPlaybackEnded struct {
	turnID    uuid.UUID
	text      string
	cancelled bool
}

// sessionRuntime owns the session mode, the pending utterance and the
// active turn identifier. Mutations happen only on the loop goroutine;
// observers read through the atomic mirrors.
type sessionRuntime struct {
	baseContext context.Context

	speechToText *speechToText
	speechPlayer *speechPlayer
	audioInput   *audioInput
	chat         *chatDispatch
	silence      *silenceDetector
	transcript   *transcript

	emit       eventEmitter
	runOptions RunOptions

	// queue is the unbounded command backlog. Callbacks that run on the
	// loop goroutine itself enqueue here too, so an append must never
	// block the loop.
	queueMu     sync.Mutex
	queue       []command
	queueSignal chan struct{}

	closeCh chan struct{}
	done    chan struct{}

	startOnce sync.Once

	started atomic.Bool
	closed  atomic.Bool

	// Loop-owned session state.
	mode         Mode
	pending      string
	live         bool
	language     string
	activeTurnID uuid.UUID

	// Atomic mirrors of loop-owned state for observers and the silence
	// detector gate.
	currentMode     atomic.Value // Mode
	liveEnabled     atomic.Bool
	pendingNonEmpty atomic.Bool
}

func newSessionRuntime() *sessionRuntime {
	runtime := &sessionRuntime{
		baseContext: context.Background(),
		emit:        noopEventEmitter,
		queueSignal: make(chan struct{}, 1),
		closeCh:     make(chan struct{}),
		done:        make(chan struct{}),
		mode:        ModeIdle,
		language:    defaultLanguageTag,
	}
	runtime.currentMode.Store(ModeIdle)
	return runtime
}

func (r *sessionRuntime) configure(ctx context.Context, runOptions RunOptions) {
	r.baseContext = ctx
	r.runOptions = runOptions
	r.emit = newCallbackEventEmitter(runOptions)
}

func (r *sessionRuntime) start() (started bool) {
	r.startOnce.Do(func() {
		if r.isClosed() {
			return
		}
		started = true
		r.started.Store(true)
		go r.loop()
	})
	return started
}

func (r *sessionRuntime) loop() {
	defer close(r.done)

	for {
		select {
		case <-r.closeCh:
			return
		case <-r.queueSignal:
		}

		for {
			r.queueMu.Lock()
			if len(r.queue) == 0 {
				r.queue = nil
				r.queueMu.Unlock()
				break
			}
			cmd := r.queue[0]
			r.queue = r.queue[1:]
			r.queueMu.Unlock()

			select {
			case <-r.closeCh:
				return
			default:
			}
			r.process(cmd)
		}
	}
}

func (r *sessionRuntime) isClosed() bool  { return r.closed.Load() }
func (r *sessionRuntime) isStarted() bool { return r.started.Load() }

func (r *sessionRuntime) modeSnapshot() Mode {
	return r.currentMode.Load().(Mode)
}

func (r *sessionRuntime) enqueue(cmd command) {
	if r.isClosed() {
		return
	}

	r.queueMu.Lock()
	r.queue = append(r.queue, cmd)
	r.queueMu.Unlock()

	select {
	case r.queueSignal <- struct{}{}:
	default:
	}
}

func (r *sessionRuntime) process(cmd command) {
	switch cmd := cmd.(type) {
	case cmdEnableLive:
		cmd.resp <- r.handleEnableLive()
	case cmdDisableLive:
		r.handleDisableLive()
	case cmdStartListening:
		cmd.resp <- r.handleStartListening()
	case cmdStopListening:
		r.handleStopListening()
	case cmdSendText:
		r.handleSendText(cmd.text)
	case cmdSetLanguage:
		cmd.resp <- r.handleSetLanguage(cmd.language)
	case cmdTranscriptUpdated:
		r.handleTranscriptUpdated(cmd.transcript)
	case cmdTranscriptFinal:
		r.handleTranscriptUpdated(cmd.transcript)
	case cmdSpeechActivity:
		r.handleSpeechActivity(cmd.started)
	case cmdEndOfUtterance:
		r.handleEndOfUtterance()
	case cmdCaptureSessionEnded:
		r.handleCaptureSessionEnded()
	case cmdCaptureError:
		r.handleCaptureError(cmd.err)
	case cmdChatResult:
		r.handleChatResult(cmd)
	case cmdPlaybackStarted:
		r.handlePlaybackStarted(cmd)
	case cmdPlaybackEnded:
		r.handlePlaybackEnded(cmd)
	}
}

// transitionTo moves the session into next if the transition is legal.
// Entering ModeListening or ModeIdle always starts with an empty pending
// utterance.
func (r *sessionRuntime) transitionTo(next Mode) bool {
	if !r.mode.canTransitionTo(next) {
		log.Printf("Warning: rejected illegal mode transition %s -> %s", r.mode, next)
		return false
	}

	from := r.mode
	r.mode = next
	r.currentMode.Store(next)
	if next == ModeListening || next == ModeIdle {
		r.setPending("")
	}

	r.emit(events.NewModeChanged(from.String(), next.String()))
	return true
}

func (r *sessionRuntime) setPending(text string) {
	r.pending = text
	r.pendingNonEmpty.Store(strings.TrimSpace(text) != "")
}

func (r *sessionRuntime) reportError(err error) {
	if err == nil {
		return
	}

	span := trace.SpanFromContext(r.baseContext)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if r.runOptions.onError != nil {
		r.runOptions.onError(err)
	}
}

func (r *sessionRuntime) startCaptureSession() error {
	return r.speechToText.start(r.baseContext, speechToTextCallbacks{
		onInterimTranscription: func(transcript string) { r.enqueue(cmdTranscriptUpdated{transcript}) },
		onTranscription:        func(transcript string) { r.enqueue(cmdTranscriptFinal{transcript}) },
		onSpeechStarted:        func() { r.enqueue(cmdSpeechActivity{started: true}) },
		onSpeechEnded:          func() { r.enqueue(cmdSpeechActivity{started: false}) },
		onSessionEnded:         func() { r.enqueue(cmdCaptureSessionEnded{}) },
		onError:                func(err error) { r.enqueue(cmdCaptureError{err}) },
	}, r.language, r.audioInput.EncodingInfo())
}

func (r *sessionRuntime) handleEnableLive() error {
	if r.live {
		return nil
	}
	if r.mode != ModeIdle {
		return fmt.Errorf("cannot enable live conversation while %s", r.mode)
	}

	if err := r.audioInput.Capture(r.baseContext); err != nil {
		r.reportError(err)
		return err
	}

	if err := r.startCaptureSession(); err != nil {
		_ = r.audioInput.StopCapture()
		r.reportError(err)
		return err
	}

	r.live = true
	r.liveEnabled.Store(true)
	r.emit(events.NewLiveModeChanged(true))
	r.transitionTo(ModeListening)
	r.silence.Start(r.baseContext)
	return nil
}

// handleDisableLive is the unconditional abort transition: it cancels any
// in-flight speech, stops capture, releases the microphone and forces the
// session idle, regardless of the active mode.
func (r *sessionRuntime) handleDisableLive() {
	if !r.live {
		return
	}

	r.live = false
	r.liveEnabled.Store(false)
	r.silence.Stop()

	// Invalidate the active turn so a late chat reply is discarded instead
	// of being applied to a session that has since moved on.
	r.activeTurnID = uuid.Nil

	r.speechPlayer.CancelAll()
	if err := r.speechToText.stop(r.baseContext); err != nil {
		log.Printf("Failed to stop capture session: %v", err)
	}
	if err := r.audioInput.StopCapture(); err != nil {
		log.Printf("Failed to release microphone: %v", err)
	}

	r.emit(events.NewLiveModeChanged(false))
	if r.mode != ModeIdle {
		r.transitionTo(ModeIdle)
	}
}

func (r *sessionRuntime) handleStartListening() error {
	if r.live {
		return fmt.Errorf("live conversation already listening")
	}
	if r.mode != ModeIdle {
		return fmt.Errorf("cannot start listening while %s", r.mode)
	}

	if err := r.audioInput.Capture(r.baseContext); err != nil {
		r.reportError(err)
		return err
	}

	if err := r.startCaptureSession(); err != nil {
		_ = r.audioInput.StopCapture()
		r.reportError(err)
		return err
	}

	r.transitionTo(ModeListening)
	return nil
}

func (r *sessionRuntime) handleStopListening() {
	if r.live || r.mode != ModeListening {
		return
	}

	if err := r.speechToText.stop(r.baseContext); err != nil {
		log.Printf("Failed to stop capture session: %v", err)
	}
	if err := r.audioInput.StopCapture(); err != nil {
		log.Printf("Failed to release microphone: %v", err)
	}
	r.transitionTo(ModeIdle)
}

func (r *sessionRuntime) handleSendText(text string) {
	// One outstanding request at a time; later sends are dropped, never
	// queued. A send is also rejected while a reply is being spoken.
	if r.mode == ModeSending || r.mode == ModeSpeaking {
		log.Printf("Warning: dropped send while %s", r.mode)
		return
	}

	trimmed := strings.TrimSpace(text)

	// An explicit send with no typed text consumes the captured pending
	// utterance instead, so a spoken utterance is submitted the same way a
	// typed one is.
	if trimmed == "" && r.mode == ModeListening {
		trimmed = strings.TrimSpace(r.pending)
	}
	if trimmed == "" {
		return
	}

	if r.mode == ModeListening && !r.live {
		if err := r.speechToText.stop(r.baseContext); err != nil {
			log.Printf("Failed to stop capture session: %v", err)
		}
		if err := r.audioInput.StopCapture(); err != nil {
			log.Printf("Failed to release microphone: %v", err)
		}
	}

	r.beginSend(trimmed)
}

func (r *sessionRuntime) handleEndOfUtterance() {
	if !r.live || r.mode != ModeListening {
		return
	}

	trimmed := strings.TrimSpace(r.pending)
	if trimmed == "" {
		return
	}

	r.beginSend(trimmed)
}

func (r *sessionRuntime) beginSend(text string) {
	if !r.transitionTo(ModeSending) {
		return
	}

	turnID := uuid.New()
	r.activeTurnID = turnID
	r.setPending("")

	finalized := events.NewUserUtteranceFinalized(text)
	r.transcript.Append(Message{Role: RoleUser, Text: text, CreatedAt: finalized.Timestamp()})
	r.emit(finalized)

	language := r.language
	go func() {
		ctx, span := tracer.Start(r.baseContext, "chat turn")
		defer span.End()

		reply, err := r.chat.Submit(ctx, text, language)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		r.enqueue(cmdChatResult{turnID: turnID, reply: reply, err: err})
	}()
}

func (r *sessionRuntime) handleChatResult(cmd cmdChatResult) {
	// A reply from a superseded turn must not be applied to the session.
	if cmd.turnID != r.activeTurnID || r.mode != ModeSending {
		return
	}

	if cmd.err != nil {
		r.emit(events.NewAssistantReplyFailed(cmd.err))
		r.recoverToListeningOrIdle()
		return
	}

	received := events.NewAssistantReplyReceived(cmd.reply)
	r.transcript.Append(Message{Role: RoleAssistant, Text: cmd.reply, CreatedAt: received.Timestamp()})
	r.emit(received)

	if strings.TrimSpace(cmd.reply) == "" || !r.speechPlayer.isConfigured() {
		r.recoverToListeningOrIdle()
		return
	}

	r.transitionTo(ModeSpeaking)

	turnID := cmd.turnID
	text := cmd.reply
	err := r.speechPlayer.Speak(r.baseContext, text, r.language, audio.GetDefaultEncodingInfo(), playbackCallbacks{
		onStarted: func() { r.enqueue(cmdPlaybackStarted{turnID: turnID, text: text}) },
		onEnded:   func(cancelled bool) { r.enqueue(cmdPlaybackEnded{turnID: turnID, text: text, cancelled: cancelled}) },
	})
	if err != nil {
		// A synthesis fault is treated as playback that already ended.
		r.reportError(fmt.Errorf("%w: %w", ErrPlayback, err))
		r.emit(events.NewAssistantPlaybackEnded(text, false))
		r.recoverToListeningOrIdle()
	}
}

func (r *sessionRuntime) handlePlaybackStarted(cmd cmdPlaybackStarted) {
	if cmd.turnID != r.activeTurnID {
		return
	}
	r.emit(events.NewAssistantPlaybackStarted(cmd.text))
}

func (r *sessionRuntime) handlePlaybackEnded(cmd cmdPlaybackEnded) {
	r.emit(events.NewAssistantPlaybackEnded(cmd.text, cmd.cancelled))

	if cmd.turnID != r.activeTurnID || r.mode != ModeSpeaking {
		return
	}

	r.recoverToListeningOrIdle()
}

// recoverToListeningOrIdle is the shared recovery transition after a send
// or playback finishes, fails or is abandoned.
func (r *sessionRuntime) recoverToListeningOrIdle() {
	if r.live {
		r.transitionTo(ModeListening)
		return
	}
	r.transitionTo(ModeIdle)
}

func (r *sessionRuntime) handleTranscriptUpdated(transcript string) {
	// Capture output is only applied while listening; re-entrant recognizer
	// events during a send are ignored rather than triggering another send.
	if r.mode != ModeListening {
		return
	}

	r.setPending(transcript)
	r.emit(events.NewUserTranscriptUpdated(transcript))
}

func (r *sessionRuntime) handleSpeechActivity(started bool) {
	if started {
		r.emit(events.NewUserSpeechStarted())
		return
	}
	r.emit(events.NewUserSpeechEnded())
}

func (r *sessionRuntime) handleCaptureSessionEnded() {
	if r.isClosed() {
		return
	}

	if r.live {
		// Continuous listening is a product requirement; sessions that died
		// from a timeout or network hiccup are restarted.
		if err := r.startCaptureSession(); err != nil {
			r.reportError(fmt.Errorf("%w: restart failed: %w", ErrCaptureSession, err))
			r.handleDisableLive()
		}
		return
	}

	if r.mode == ModeListening {
		if err := r.audioInput.StopCapture(); err != nil {
			log.Printf("Failed to release microphone: %v", err)
		}
		r.transitionTo(ModeIdle)
	}
}

func (r *sessionRuntime) handleCaptureError(err error) {
	r.reportError(fmt.Errorf("%w: %w", ErrCaptureSession, err))

	if !r.live && r.mode == ModeListening {
		if stopErr := r.speechToText.stop(r.baseContext); stopErr != nil {
			log.Printf("Failed to stop capture session: %v", stopErr)
		}
		if stopErr := r.audioInput.StopCapture(); stopErr != nil {
			log.Printf("Failed to release microphone: %v", stopErr)
		}
		r.transitionTo(ModeIdle)
	}
}

func (r *sessionRuntime) handleSetLanguage(language string) error {
	if r.mode != ModeIdle {
		return ErrLanguageChangeWhileActive
	}

	r.language = language
	return nil
}
