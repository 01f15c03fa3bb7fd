package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/casavoz/casavoz-core/core/audio"
	"github.com/casavoz/casavoz-core/core/texttospeech"
	"github.com/gorilla/websocket"
)

// speechRequest is a single utterance synthesized over one websocket
// connection. The connection is closed once the utterance finishes or is
// cancelled.
type speechRequest struct {
	ws *websocket.Conn
	mu sync.Mutex

	options texttospeech.SpeechOptions

	started   sync.Once
	ended     sync.Once
	cancelled atomic.Bool
}

// Speak synthesizes a single utterance. The returned handle cancels further
// generation; the ended callback fires exactly once either way.
func (c *TextToSpeechClient) Speak(ctx context.Context, text string, opts ...texttospeech.SpeechOption) (texttospeech.Speech, error) {
	req := &speechRequest{
		options: texttospeech.SpeechOptions{
			SpeechAudioCallback:   func([]byte) {},
			SpeechStartedCallback: func() {},
			SpeechEndedCallback:   func(bool) {},
			ErrorCallback:         func(error) {},
			EncodingInfo:          audio.GetDefaultEncodingInfo(),
		},
	}

	for _, opt := range opts {
		opt(&req.options)
	}

	var err error
	if req.ws, err = connectSpeakWebsocket(c.voiceForLanguage(req.options.Language), req.options.EncodingInfo); err != nil {
		return nil, fmt.Errorf("failed to open websocket: %w", err)
	}

	if err := req.sendText(text); err != nil {
		req.ws.Close()
		return nil, err
	}

	go req.processIncomingMessages(ctx)

	return req, nil
}

func connectSpeakWebsocket(voice deepgramVoice, encodingInfo audio.EncodingInfo) (*websocket.Conn, error) {
	apiKey, ok := os.LookupEnv("DEEPGRAM_API_KEY")
	if !ok {
		return nil, fmt.Errorf("deepgram api key not found")
	}

	urlValues := url.Values{}
	urlValues.Set("encoding", encodingInfo.Format.Name())
	urlValues.Set("sample_rate", strconv.Itoa(encodingInfo.SampleRate))
	urlValues.Set("model", string(voice))
	urlValues.Set("container", "none")

	conn, _, err := websocket.DefaultDialer.Dial(
		(&url.URL{
			Scheme: "wss",
			Host:   "api.deepgram.com", Path: "/v1/speak",
			RawQuery: urlValues.Encode(),
		}).String(),
		http.Header{"Authorization": {"token " + apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, nil
}

func (r *speechRequest) sendText(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ws.WriteJSON(struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}{Type: "Speak", Text: text}); err != nil {
		return fmt.Errorf("failed to send text to deepgram: %w", err)
	}

	if err := r.ws.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: "Flush"}); err != nil {
		return fmt.Errorf("failed to flush deepgram stream: %w", err)
	}

	return nil
}

func (r *speechRequest) Cancel() error {
	if !r.cancelled.CompareAndSwap(false, true) {
		return nil
	}

	r.mu.Lock()
	clearErr := r.ws.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: "Clear"})
	closeErr := r.ws.Close()
	r.mu.Unlock()

	r.finish(true)

	if clearErr != nil || closeErr != nil {
		return fmt.Errorf("failed to cancel speech cleanly")
	}
	return nil
}

func (r *speechRequest) finish(cancelled bool) {
	r.ended.Do(func() {
		r.options.SpeechEndedCallback(cancelled)
	})
}

func (r *speechRequest) processIncomingMessages(ctx context.Context) {
	defer r.ws.Close()

	for {
		msgType, msg, err := r.ws.ReadMessage()
		if err != nil {
			if !r.cancelled.Load() && err.Error() != "websocket: close 1000 (normal)" {
				log.Printf("Websocket read error: %v", err)
				r.options.ErrorCallback(err)
			}
			// A synthesis fault counts as the end of playback.
			r.finish(r.cancelled.Load())
			return
		}

		if ctx.Err() != nil {
			r.finish(true)
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			if r.cancelled.Load() {
				continue
			}
			r.started.Do(r.options.SpeechStartedCallback)
			r.options.SpeechAudioCallback(msg)
		case websocket.TextMessage:
			var parsedMsg struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(msg, &parsedMsg); err != nil {
				continue
			}

			switch parsedMsg.Type {
			case "Flushed":
				// All audio for the utterance has been delivered.
				r.finish(false)
				return
			case "Warning":
				log.Printf("Deepgram speak warning: %s", string(msg))
			}
		}
	}
}
