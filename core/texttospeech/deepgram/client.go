package deepgram

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

type TextToSpeechClient struct {
	voice deepgramVoice
}

func NewTextToSpeechClient(ctx context.Context, voice deepgramVoice) (*TextToSpeechClient, error) {
	client := &TextToSpeechClient{voice: defaultVoice}

	if !slices.Contains(GetAvailableVoices(), voice) {
		return nil, fmt.Errorf("invalid voice")
	}

	client.voice = voice

	return client, nil
}

func (c *TextToSpeechClient) SetVoice(voice deepgramVoice) {
	c.voice = voice
}

// voiceForLanguage picks a voice matching the requested language tag,
// falling back to the configured voice when no match exists.
func (c *TextToSpeechClient) voiceForLanguage(language string) deepgramVoice {
	if language == "" {
		return c.voice
	}

	base := strings.ToLower(strings.SplitN(language, "-", 2)[0])
	if strings.HasSuffix(string(c.voice), "-"+base) {
		return c.voice
	}

	for _, voice := range GetAvailableVoices() {
		if strings.HasSuffix(string(voice), "-"+base) {
			return voice
		}
	}

	return c.voice
}
