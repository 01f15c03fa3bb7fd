package deepgram

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// TranscriptionClient is a continuous speech-to-text session backed by the
// Deepgram realtime listen API. A single client supports one active session
// at a time; Transcribe opens a new session after the previous one ended.
type TranscriptionClient struct {
	conn   *websocket.Conn
	connMu sync.Mutex

	// lastMsgTs tracks the last time real audio was written, so the silence
	// generator knows when to pad the stream.
	lastMsgTs time.Time

	// accumulatedTranscript collects finalized segments of the in-progress
	// utterance between speech-final boundaries.
	accumulatedTranscript string
	// unendedSegment is set while a speech segment has started but not yet
	// been closed by a speech-final or utterance-end message.
	unendedSegment bool

	// explicitStop marks that the session was stopped through Stop, so the
	// read loop does not report the closure as an unexpected session end.
	explicitStop atomic.Bool
}

func NewTranscriptionClient() *TranscriptionClient {
	return &TranscriptionClient{}
}
