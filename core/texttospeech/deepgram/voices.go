package deepgram

type deepgramVoice string

const (
	VoiceThalia    deepgramVoice = "aura-2-thalia-en"
	VoiceAndromeda deepgramVoice = "aura-2-andromeda-en"
	VoiceOrion     deepgramVoice = "aura-2-orion-en"
	VoiceAsteria   deepgramVoice = "aura-asteria-en"
	VoiceCeleste   deepgramVoice = "aura-2-celeste-es"

	defaultVoice = VoiceThalia
)

func GetAvailableVoices() []deepgramVoice {
	return []deepgramVoice{
		VoiceThalia,
		VoiceAndromeda,
		VoiceOrion,
		VoiceAsteria,
		VoiceCeleste,
	}
}
