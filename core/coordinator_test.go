package coordination

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/casavoz/casavoz-core/core/audio"
	"github.com/casavoz/casavoz-core/core/speechtotext"
	"github.com/casavoz/casavoz-core/core/texttospeech"
)

// fastSilence keeps end-of-utterance detection fast enough for tests while
// preserving the real sampling behavior.
var fastSilence = SilenceOptions{
	SampleInterval: 5 * time.Millisecond,
	QuietThreshold: 0.015,
	QuietDuration:  15 * time.Millisecond,
}

type scriptedSpeechToText struct {
	mu   sync.Mutex
	opts speechtotext.TranscriptionOptions

	sessions atomic.Int32
	stops    atomic.Int32
}

func (s *scriptedSpeechToText) Transcribe(_ context.Context, opts ...speechtotext.TranscriptionOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.opts = speechtotext.TranscriptionOptions{}
	for _, opt := range opts {
		opt(&s.opts)
	}
	s.sessions.Add(1)
	return nil
}

func (s *scriptedSpeechToText) SendAudio([]byte) error { return nil }

func (s *scriptedSpeechToText) Stop(context.Context) error {
	s.stops.Add(1)
	return nil
}

func (s *scriptedSpeechToText) emitInterim(transcript string) {
	s.mu.Lock()
	callback := s.opts.InterimTranscriptionCallback
	s.mu.Unlock()
	if callback != nil {
		callback(transcript)
	}
}

func (s *scriptedSpeechToText) emitSessionEnded() {
	s.mu.Lock()
	callback := s.opts.SessionEndedCallback
	s.mu.Unlock()
	if callback != nil {
		callback()
	}
}

type scriptedAudioInput struct {
	captureErr error

	captures atomic.Int32
	stops    atomic.Int32
}

func (s *scriptedAudioInput) EncodingInfo() audio.EncodingInfo { return audio.GetDefaultEncodingInfo() }

func (s *scriptedAudioInput) Stream(ctx context.Context, _ func([]byte)) error {
	<-ctx.Done()
	return nil
}

func (s *scriptedAudioInput) Close() {}

func (s *scriptedAudioInput) StartCapture(context.Context, func([]byte)) error {
	if s.captureErr != nil {
		return s.captureErr
	}
	s.captures.Add(1)
	return nil
}

func (s *scriptedAudioInput) StopCapture() error {
	s.stops.Add(1)
	return nil
}

type scriptedSpeech struct {
	cancelled atomic.Bool
	onCancel  func()
}

func (s *scriptedSpeech) Cancel() error {
	if s.cancelled.CompareAndSwap(false, true) && s.onCancel != nil {
		s.onCancel()
	}
	return nil
}

type scriptedSynthesizer struct {
	// hold leaves each speech playing until it is cancelled instead of
	// completing it immediately.
	hold bool
	err  error

	speaks atomic.Int32
}

func (s *scriptedSynthesizer) Speak(_ context.Context, text string, opts ...texttospeech.SpeechOption) (texttospeech.Speech, error) {
	if s.err != nil {
		return nil, s.err
	}

	options := texttospeech.SpeechOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	s.speaks.Add(1)

	if options.SpeechStartedCallback != nil {
		options.SpeechStartedCallback()
	}

	endedOnce := sync.Once{}
	finish := func(cancelled bool) {
		endedOnce.Do(func() {
			if options.SpeechEndedCallback != nil {
				options.SpeechEndedCallback(cancelled)
			}
		})
	}

	if !s.hold {
		finish(false)
	}
	return &scriptedSpeech{onCancel: func() { finish(true) }}, nil
}

type scriptedChatClient struct {
	reply string
	err   error

	// requests receives every submitted utterance; release, when non-nil,
	// blocks the reply until the test allows it through.
	requests chan string
	release  chan struct{}
}

func (s *scriptedChatClient) Submit(_ context.Context, message string, _ string) (string, error) {
	if s.requests != nil {
		s.requests <- message
	}
	if s.release != nil {
		<-s.release
	}
	return s.reply, s.err
}

type sessionObserver struct {
	modes     chan Mode
	messages  chan Message
	interims  chan string
	playbacks chan bool
	errors    chan error
}

func newSessionObserver() *sessionObserver {
	return &sessionObserver{
		modes:     make(chan Mode, 32),
		messages:  make(chan Message, 32),
		interims:  make(chan string, 32),
		playbacks: make(chan bool, 32),
		errors:    make(chan error, 32),
	}
}

func (o *sessionObserver) runOptions() []RunOption {
	return []RunOption{
		WithModeChangedCallback(func(_, to Mode) { o.modes <- to }),
		WithMessageCallback(func(message Message) { o.messages <- message }),
		WithInterimTranscriptCallback(func(transcript string) { o.interims <- transcript }),
		WithPlaybackEndedCallback(func(_ string, cancelled bool) { o.playbacks <- cancelled }),
		WithErrorCallback(func(err error) { o.errors <- err }),
	}
}

func (o *sessionObserver) waitForInterim(t *testing.T, want string) {
	t.Helper()
	for {
		select {
		case interim := <-o.interims:
			if interim == want {
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for interim transcript %q", want)
		}
	}
}

func (o *sessionObserver) waitForMode(t *testing.T, want Mode) {
	t.Helper()
	for {
		select {
		case mode := <-o.modes:
			if mode == want {
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for mode %s", want)
		}
	}
}

func (o *sessionObserver) waitForMessage(t *testing.T, role Role) Message {
	t.Helper()
	select {
	case message := <-o.messages:
		if message.Role != role {
			t.Fatalf("expected a %s message, got %s: %q", role, message.Role, message.Text)
		}
		return message
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a %s message", role)
		return Message{}
	}
}

func TestEnableLiveStartsListening(t *testing.T) {
	stt := &scriptedSpeechToText{}
	mic := &scriptedAudioInput{}

	c := New(
		WithSpeechToTextClient(stt),
		WithAudioInput(mic),
		WithChatClient(&scriptedChatClient{}),
		WithSilenceOptions(fastSilence),
	)
	defer c.Close()

	observer := newSessionObserver()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := c.Run(ctx, observer.runOptions()...); err != nil {
		t.Fatalf("expected run to succeed, got %v", err)
	}

	if err := c.EnableLive(); err != nil {
		t.Fatalf("expected live mode to start, got %v", err)
	}

	observer.waitForMode(t, ModeListening)
	if !c.IsLive() {
		t.Fatalf("expected session to be live")
	}
	if got := stt.sessions.Load(); got != 1 {
		t.Fatalf("expected one capture session, got %d", got)
	}
	if got := mic.captures.Load(); got != 1 {
		t.Fatalf("expected one microphone acquisition, got %d", got)
	}
}

func TestEnableLiveDeniedMicrophoneStaysIdle(t *testing.T) {
	stt := &scriptedSpeechToText{}
	mic := &scriptedAudioInput{captureErr: errors.New("device denied")}

	c := New(
		WithSpeechToTextClient(stt),
		WithAudioInput(mic),
		WithSilenceOptions(fastSilence),
	)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Run(ctx); err != nil {
		t.Fatalf("expected run to succeed, got %v", err)
	}

	err := c.EnableLive()
	if err == nil {
		t.Fatalf("expected live mode activation to fail")
	}
	if !errors.Is(err, ErrMicrophoneUnavailable) {
		t.Fatalf("expected microphone unavailable error, got %v", err)
	}

	if got := c.Mode(); got != ModeIdle {
		t.Fatalf("expected session to stay idle, got %s", got)
	}
	if c.IsLive() {
		t.Fatalf("expected session not to be live")
	}
	if got := stt.sessions.Load(); got != 0 {
		t.Fatalf("expected no capture session, got %d", got)
	}
}

func TestLiveTurnRoundTrip(t *testing.T) {
	stt := &scriptedSpeechToText{}
	chat := &scriptedChatClient{reply: "We have two listings in that area."}
	synth := &scriptedSynthesizer{}

	c := New(
		WithSpeechToTextClient(stt),
		WithAudioInput(&scriptedAudioInput{}),
		WithChatClient(chat),
		WithSpeechSynthesizer(synth),
		WithAudioOutput(&scriptedAudioOutput{}),
		WithSilenceOptions(fastSilence),
	)
	defer c.Close()

	observer := newSessionObserver()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Run(ctx, observer.runOptions()...); err != nil {
		t.Fatalf("expected run to succeed, got %v", err)
	}

	if err := c.EnableLive(); err != nil {
		t.Fatalf("expected live mode to start, got %v", err)
	}
	observer.waitForMode(t, ModeListening)

	stt.emitInterim("looking for a two bedroom")

	userMessage := observer.waitForMessage(t, RoleUser)
	if userMessage.Text != "looking for a two bedroom" {
		t.Fatalf("expected finalized utterance %q, got %q", "looking for a two bedroom", userMessage.Text)
	}

	assistantMessage := observer.waitForMessage(t, RoleAssistant)
	if assistantMessage.Text != chat.reply {
		t.Fatalf("expected assistant reply %q, got %q", chat.reply, assistantMessage.Text)
	}

	select {
	case cancelled := <-observer.playbacks:
		if cancelled {
			t.Fatalf("expected playback to finish naturally")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for playback to end")
	}

	observer.waitForMode(t, ModeListening)

	transcript := c.Transcript()
	if len(transcript) != 2 {
		t.Fatalf("expected 2 transcript messages, got %d", len(transcript))
	}
	if transcript[0].Role != RoleUser || transcript[1].Role != RoleAssistant {
		t.Fatalf("expected user then assistant messages, got %s then %s", transcript[0].Role, transcript[1].Role)
	}
	if got := synth.speaks.Load(); got != 1 {
		t.Fatalf("expected one spoken reply, got %d", got)
	}
}

func TestSendWhileAnswerInFlightIsDropped(t *testing.T) {
	chat := &scriptedChatClient{
		reply:    "answer to the first question",
		requests: make(chan string, 2),
		release:  make(chan struct{}),
	}

	c := New(WithChatClient(chat), WithSilenceOptions(fastSilence))
	defer c.Close()

	observer := newSessionObserver()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Run(ctx, observer.runOptions()...); err != nil {
		t.Fatalf("expected run to succeed, got %v", err)
	}

	if err := c.Send("first question"); err != nil {
		t.Fatalf("expected send to be accepted, got %v", err)
	}

	select {
	case got := <-chat.requests:
		if got != "first question" {
			t.Fatalf("expected submitted utterance %q, got %q", "first question", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for chat submission")
	}

	observer.waitForMessage(t, RoleUser)

	if err := c.Send("second question"); err != nil {
		t.Fatalf("expected overlapping send to be dropped silently, got %v", err)
	}

	close(chat.release)
	observer.waitForMessage(t, RoleAssistant)
	observer.waitForMode(t, ModeIdle)

	select {
	case got := <-chat.requests:
		t.Fatalf("expected only one chat submission, got a second: %q", got)
	default:
	}

	transcript := c.Transcript()
	if len(transcript) != 2 {
		t.Fatalf("expected the dropped send to leave no trace, got %d messages", len(transcript))
	}
}

func TestStaleReplyDiscardedAfterDisableLive(t *testing.T) {
	stt := &scriptedSpeechToText{}
	chat := &scriptedChatClient{
		reply:    "late reply",
		requests: make(chan string, 1),
		release:  make(chan struct{}),
	}

	c := New(
		WithSpeechToTextClient(stt),
		WithAudioInput(&scriptedAudioInput{}),
		WithChatClient(chat),
		WithSpeechSynthesizer(&scriptedSynthesizer{}),
		WithSilenceOptions(fastSilence),
	)
	defer c.Close()

	observer := newSessionObserver()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Run(ctx, observer.runOptions()...); err != nil {
		t.Fatalf("expected run to succeed, got %v", err)
	}

	if err := c.EnableLive(); err != nil {
		t.Fatalf("expected live mode to start, got %v", err)
	}
	observer.waitForMode(t, ModeListening)

	stt.emitInterim("anything available downtown")

	select {
	case <-chat.requests:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for chat submission")
	}
	observer.waitForMessage(t, RoleUser)

	if err := c.DisableLive(); err != nil {
		t.Fatalf("expected live mode to stop, got %v", err)
	}
	observer.waitForMode(t, ModeIdle)

	close(chat.release)
	time.Sleep(50 * time.Millisecond)

	select {
	case message := <-observer.messages:
		t.Fatalf("expected the late reply to be discarded, got %s message %q", message.Role, message.Text)
	default:
	}

	transcript := c.Transcript()
	if len(transcript) != 1 {
		t.Fatalf("expected only the user utterance in the transcript, got %d messages", len(transcript))
	}
	if got := c.Mode(); got != ModeIdle {
		t.Fatalf("expected session to stay idle, got %s", got)
	}
}

func TestDisableLiveWhileSpeakingCancelsPlayback(t *testing.T) {
	stt := &scriptedSpeechToText{}
	mic := &scriptedAudioInput{}
	synth := &scriptedSynthesizer{hold: true}

	c := New(
		WithSpeechToTextClient(stt),
		WithAudioInput(mic),
		WithChatClient(&scriptedChatClient{reply: "a long spoken answer"}),
		WithSpeechSynthesizer(synth),
		WithAudioOutput(&scriptedAudioOutput{}),
		WithSilenceOptions(fastSilence),
	)
	defer c.Close()

	observer := newSessionObserver()
	playbackStarted := make(chan struct{}, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runOptions := append(observer.runOptions(), WithPlaybackStartedCallback(func(string) {
		select {
		case playbackStarted <- struct{}{}:
		default:
		}
	}))
	if err := c.Run(ctx, runOptions...); err != nil {
		t.Fatalf("expected run to succeed, got %v", err)
	}

	if err := c.EnableLive(); err != nil {
		t.Fatalf("expected live mode to start, got %v", err)
	}
	observer.waitForMode(t, ModeListening)

	stt.emitInterim("tell me about the neighborhood")

	select {
	case <-playbackStarted:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for playback to start")
	}

	if err := c.DisableLive(); err != nil {
		t.Fatalf("expected live mode to stop, got %v", err)
	}

	select {
	case cancelled := <-observer.playbacks:
		if !cancelled {
			t.Fatalf("expected playback to end as cancelled")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for cancelled playback end")
	}

	observer.waitForMode(t, ModeIdle)
	if c.IsLive() {
		t.Fatalf("expected session not to be live")
	}
	if got := mic.stops.Load(); got == 0 {
		t.Fatalf("expected the microphone to be released")
	}
}

func TestChatFailureRecoversToListening(t *testing.T) {
	stt := &scriptedSpeechToText{}
	chatErr := errors.New("upstream unavailable")

	c := New(
		WithSpeechToTextClient(stt),
		WithAudioInput(&scriptedAudioInput{}),
		WithChatClient(&scriptedChatClient{err: chatErr}),
		WithSilenceOptions(fastSilence),
	)
	defer c.Close()

	observer := newSessionObserver()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Run(ctx, observer.runOptions()...); err != nil {
		t.Fatalf("expected run to succeed, got %v", err)
	}

	if err := c.EnableLive(); err != nil {
		t.Fatalf("expected live mode to start, got %v", err)
	}
	observer.waitForMode(t, ModeListening)

	stt.emitInterim("does it have parking")
	observer.waitForMessage(t, RoleUser)

	select {
	case err := <-observer.errors:
		if !errors.Is(err, chatErr) {
			t.Fatalf("expected chat error %v, got %v", chatErr, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for chat error")
	}

	observer.waitForMode(t, ModeListening)
	if !c.IsLive() {
		t.Fatalf("expected the session to remain live after a failed turn")
	}

	transcript := c.Transcript()
	if len(transcript) != 1 {
		t.Fatalf("expected no assistant message after a failed turn, got %d messages", len(transcript))
	}
}

func TestSetLanguageRejectedWhileActive(t *testing.T) {
	c := New(
		WithSpeechToTextClient(&scriptedSpeechToText{}),
		WithAudioInput(&scriptedAudioInput{}),
		WithSilenceOptions(fastSilence),
	)
	defer c.Close()

	observer := newSessionObserver()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Run(ctx, observer.runOptions()...); err != nil {
		t.Fatalf("expected run to succeed, got %v", err)
	}

	if err := c.SetLanguage("es-ES"); err != nil {
		t.Fatalf("expected language change while idle to succeed, got %v", err)
	}

	if err := c.EnableLive(); err != nil {
		t.Fatalf("expected live mode to start, got %v", err)
	}
	observer.waitForMode(t, ModeListening)

	if err := c.SetLanguage("en-US"); !errors.Is(err, ErrLanguageChangeWhileActive) {
		t.Fatalf("expected language change to be rejected while listening, got %v", err)
	}

	if err := c.DisableLive(); err != nil {
		t.Fatalf("expected live mode to stop, got %v", err)
	}
	observer.waitForMode(t, ModeIdle)

	if err := c.SetLanguage("en-US"); err != nil {
		t.Fatalf("expected language change after going idle to succeed, got %v", err)
	}
}

func TestWhitespaceSendIsIgnored(t *testing.T) {
	chat := &scriptedChatClient{requests: make(chan string, 1)}

	c := New(WithChatClient(chat), WithSilenceOptions(fastSilence))
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Run(ctx); err != nil {
		t.Fatalf("expected run to succeed, got %v", err)
	}

	if err := c.Send("   \n\t"); err != nil {
		t.Fatalf("expected whitespace send to be accepted and ignored, got %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	select {
	case got := <-chat.requests:
		t.Fatalf("expected no chat submission for whitespace input, got %q", got)
	default:
	}
	if got := c.Mode(); got != ModeIdle {
		t.Fatalf("expected session to stay idle, got %s", got)
	}
	if got := len(c.Transcript()); got != 0 {
		t.Fatalf("expected empty transcript, got %d messages", got)
	}
}

func TestCaptureSessionRestartsWhileLive(t *testing.T) {
	stt := &scriptedSpeechToText{}

	c := New(
		WithSpeechToTextClient(stt),
		WithAudioInput(&scriptedAudioInput{}),
		WithSilenceOptions(fastSilence),
	)
	defer c.Close()

	observer := newSessionObserver()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Run(ctx, observer.runOptions()...); err != nil {
		t.Fatalf("expected run to succeed, got %v", err)
	}

	if err := c.EnableLive(); err != nil {
		t.Fatalf("expected live mode to start, got %v", err)
	}
	observer.waitForMode(t, ModeListening)

	stt.emitSessionEnded()

	deadline := time.After(2 * time.Second)
	for stt.sessions.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for capture session restart, got %d sessions", stt.sessions.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	if got := c.Mode(); got != ModeListening {
		t.Fatalf("expected the session to keep listening, got %s", got)
	}
}

func TestManualListeningSendReleasesCapture(t *testing.T) {
	stt := &scriptedSpeechToText{}
	mic := &scriptedAudioInput{}

	c := New(
		WithSpeechToTextClient(stt),
		WithAudioInput(mic),
		WithChatClient(&scriptedChatClient{reply: "manual mode reply"}),
		WithSilenceOptions(fastSilence),
	)
	defer c.Close()

	observer := newSessionObserver()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Run(ctx, observer.runOptions()...); err != nil {
		t.Fatalf("expected run to succeed, got %v", err)
	}

	if err := c.StartListening(); err != nil {
		t.Fatalf("expected manual listening to start, got %v", err)
	}
	observer.waitForMode(t, ModeListening)

	stt.emitInterim("schedule a viewing")
	if err := c.Send("schedule a viewing"); err != nil {
		t.Fatalf("expected manual send to be accepted, got %v", err)
	}

	observer.waitForMessage(t, RoleUser)
	observer.waitForMessage(t, RoleAssistant)
	observer.waitForMode(t, ModeIdle)

	if got := stt.stops.Load(); got == 0 {
		t.Fatalf("expected the capture session to be stopped before sending")
	}
	if got := mic.stops.Load(); got == 0 {
		t.Fatalf("expected the microphone to be released before sending")
	}
}

func TestManualSendSubmitsPendingUtterance(t *testing.T) {
	stt := &scriptedSpeechToText{}
	chat := &scriptedChatClient{reply: "we have a few matches", requests: make(chan string, 1)}

	c := New(
		WithSpeechToTextClient(stt),
		WithAudioInput(&scriptedAudioInput{}),
		WithChatClient(chat),
		WithSilenceOptions(fastSilence),
	)
	defer c.Close()

	observer := newSessionObserver()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Run(ctx, observer.runOptions()...); err != nil {
		t.Fatalf("expected run to succeed, got %v", err)
	}

	if err := c.StartListening(); err != nil {
		t.Fatalf("expected manual listening to start, got %v", err)
	}
	observer.waitForMode(t, ModeListening)

	stt.emitInterim("show me two bedroom condos")
	observer.waitForInterim(t, "show me two bedroom condos")

	// An explicit send with nothing typed submits the spoken utterance.
	if err := c.Send(""); err != nil {
		t.Fatalf("expected empty explicit send to be accepted, got %v", err)
	}

	userMessage := observer.waitForMessage(t, RoleUser)
	if userMessage.Text != "show me two bedroom condos" {
		t.Fatalf("expected the pending utterance to be submitted, got %q", userMessage.Text)
	}

	select {
	case got := <-chat.requests:
		if got != "show me two bedroom condos" {
			t.Fatalf("expected chat submission %q, got %q", "show me two bedroom condos", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for chat submission")
	}
}

func TestInterimUpdatesAreLastWriteWins(t *testing.T) {
	stt := &scriptedSpeechToText{}
	chat := &scriptedChatClient{reply: "noted", requests: make(chan string, 1)}

	c := New(
		WithSpeechToTextClient(stt),
		WithAudioInput(&scriptedAudioInput{}),
		WithChatClient(chat),
		WithSilenceOptions(SilenceOptions{
			SampleInterval: 10 * time.Millisecond,
			QuietThreshold: 0.015,
			QuietDuration:  200 * time.Millisecond,
		}),
	)
	defer c.Close()

	observer := newSessionObserver()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Run(ctx, observer.runOptions()...); err != nil {
		t.Fatalf("expected run to succeed, got %v", err)
	}

	if err := c.EnableLive(); err != nil {
		t.Fatalf("expected live mode to start, got %v", err)
	}
	observer.waitForMode(t, ModeListening)

	// Each recognizer update replaces the previous hypothesis; only the
	// last one is finalized.
	stt.emitInterim("show")
	stt.emitInterim("show me two")
	stt.emitInterim("show me two bedroom condos")
	observer.waitForInterim(t, "show me two bedroom condos")

	userMessage := observer.waitForMessage(t, RoleUser)
	if userMessage.Text != "show me two bedroom condos" {
		t.Fatalf("expected the last interim to win, got %q", userMessage.Text)
	}

	select {
	case got := <-chat.requests:
		if got != "show me two bedroom condos" {
			t.Fatalf("expected chat submission %q, got %q", "show me two bedroom condos", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for chat submission")
	}
}

func TestListeningResumesOnlyAfterOutputDrains(t *testing.T) {
	stt := &scriptedSpeechToText{}
	output := &drainableAudioOutput{drained: make(chan struct{})}

	c := New(
		WithSpeechToTextClient(stt),
		WithAudioInput(&scriptedAudioInput{}),
		WithChatClient(&scriptedChatClient{reply: "the kitchen was renovated last year"}),
		WithSpeechSynthesizer(&scriptedSynthesizer{}),
		WithAudioOutput(output),
		WithSilenceOptions(fastSilence),
	)
	defer c.Close()

	observer := newSessionObserver()
	playbackStarted := make(chan struct{}, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runOptions := append(observer.runOptions(), WithPlaybackStartedCallback(func(string) {
		select {
		case playbackStarted <- struct{}{}:
		default:
		}
	}))
	if err := c.Run(ctx, runOptions...); err != nil {
		t.Fatalf("expected run to succeed, got %v", err)
	}

	if err := c.EnableLive(); err != nil {
		t.Fatalf("expected live mode to start, got %v", err)
	}
	observer.waitForMode(t, ModeListening)

	stt.emitInterim("tell me about the kitchen")

	select {
	case <-playbackStarted:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for playback to start")
	}

	// Synthesis has finished, but the speaker buffer has not drained yet;
	// the session must still be speaking.
	time.Sleep(50 * time.Millisecond)
	if got := c.Mode(); got != ModeSpeaking {
		t.Fatalf("expected session to keep speaking until audio drains, got %s", got)
	}

	close(output.drained)

	select {
	case cancelled := <-observer.playbacks:
		if cancelled {
			t.Fatalf("expected playback to finish naturally")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for playback to end")
	}
	observer.waitForMode(t, ModeListening)
}

func TestLoopOriginatedSendsDoNotStallTheLoop(t *testing.T) {
	chat := &scriptedChatClient{reply: "done"}

	c := New(WithChatClient(chat), WithSilenceOptions(fastSilence))
	defer c.Close()

	observer := newSessionObserver()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A callback running on the session loop issues a burst of commands
	// back into the loop; none of them may block it.
	runOptions := append(observer.runOptions(), WithMessageCallback(func(message Message) {
		observer.messages <- message
		if message.Role == RoleUser {
			for i := 0; i < 64; i++ {
				_ = c.Send("dropped while busy")
			}
		}
	}))
	if err := c.Run(ctx, runOptions...); err != nil {
		t.Fatalf("expected run to succeed, got %v", err)
	}

	if err := c.Send("a question"); err != nil {
		t.Fatalf("expected send to be accepted, got %v", err)
	}

	observer.waitForMessage(t, RoleUser)
	observer.waitForMessage(t, RoleAssistant)
	observer.waitForMode(t, ModeIdle)

	transcript := c.Transcript()
	if len(transcript) != 2 {
		t.Fatalf("expected the burst to be dropped, got %d transcript messages", len(transcript))
	}
}

func TestTranscriptSnapshotIsIsolated(t *testing.T) {
	c := New(WithChatClient(&scriptedChatClient{reply: "original reply"}), WithSilenceOptions(fastSilence))
	defer c.Close()

	observer := newSessionObserver()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Run(ctx, observer.runOptions()...); err != nil {
		t.Fatalf("expected run to succeed, got %v", err)
	}

	if err := c.Send("a question"); err != nil {
		t.Fatalf("expected send to be accepted, got %v", err)
	}
	observer.waitForMessage(t, RoleUser)
	observer.waitForMessage(t, RoleAssistant)

	snapshot := c.Transcript()
	if len(snapshot) != 2 {
		t.Fatalf("expected 2 transcript messages, got %d", len(snapshot))
	}

	snapshot[0].Text = "tampered"

	fresh := c.Transcript()
	if fresh[0].Text != "a question" {
		t.Fatalf("expected transcript to be unaffected by snapshot mutation, got %q", fresh[0].Text)
	}
}

func TestOperationsAfterCloseReturnErrClosed(t *testing.T) {
	c := New(WithSilenceOptions(fastSilence))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Run(ctx); err != nil {
		t.Fatalf("expected run to succeed, got %v", err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("expected close to succeed, got %v", err)
	}

	if err := c.EnableLive(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed from EnableLive, got %v", err)
	}
	if err := c.Send("hello"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed from Send, got %v", err)
	}
}
