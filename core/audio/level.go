package audio

import (
	"encoding/binary"
	"math"
)

// RMS computes the normalized root-mean-square energy of a linear16
// little-endian PCM frame. The result is in [0, 1], where 0 is digital
// silence and 1 is a full-scale signal.
//
// Frames in other encodings are not supported and report zero energy.
func RMS(frame []byte, encoding EncodingInfo) float64 {
	if encoding.Format != EncodingLinear16 {
		return 0
	}

	sampleCount := len(frame) / 2
	if sampleCount == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < sampleCount*2; i += 2 {
		sample := int16(binary.LittleEndian.Uint16(frame[i : i+2]))
		normalized := float64(sample) / math.MaxInt16
		sum += normalized * normalized
	}

	return math.Sqrt(sum / float64(sampleCount))
}
