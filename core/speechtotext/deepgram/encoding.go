package deepgram

import (
	"fmt"

	"github.com/casavoz/casavoz-core/core/audio"
)

// streamEncoding is the encoding pair forwarded to the listen websocket.
// Deepgram names raw signed 16-bit PCM "linear16" and accepts the companded
// telephony codecs only at their native 8 kHz rate.
type streamEncoding struct {
	SampleRate int
	Codec      string
}

var linear16SampleRates = map[int]struct{}{
	8000:  {},
	16000: {},
	24000: {},
	32000: {},
	48000: {},
}

func convertEncoding(info audio.EncodingInfo) (streamEncoding, error) {
	switch info.Format {
	case audio.EncodingLinear16:
		if _, ok := linear16SampleRates[info.SampleRate]; !ok {
			return streamEncoding{}, fmt.Errorf("unsupported sample rate %d for linear16 audio", info.SampleRate)
		}
		return streamEncoding{SampleRate: info.SampleRate, Codec: info.Format.Name()}, nil
	case audio.EncodingALaw, audio.EncodingMulaw:
		if info.SampleRate != 8000 {
			return streamEncoding{}, fmt.Errorf("%s audio must be sampled at 8000 Hz, got %d", info.Format.Name(), info.SampleRate)
		}
		return streamEncoding{SampleRate: info.SampleRate, Codec: info.Format.Name()}, nil
	default:
		return streamEncoding{}, fmt.Errorf("unsupported audio format %q", info.Format.Name())
	}
}
