package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	coordination "github.com/casavoz/casavoz-core/core"
	"github.com/casavoz/casavoz-core/core/audio/miniaudio"
	"github.com/casavoz/casavoz-core/core/chat"
	sttdeepgram "github.com/casavoz/casavoz-core/core/speechtotext/deepgram"
	ttsdeepgram "github.com/casavoz/casavoz-core/core/texttospeech/deepgram"
	"github.com/casavoz/casavoz-core/internal/config"
	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	options := []coordination.CoordinatorOption{
		coordination.WithChatClient(chat.NewClient(cfg.ChatBaseURL)),
		coordination.WithLanguage(cfg.Language),
		coordination.WithSilenceOptions(coordination.SilenceOptions{QuietDuration: cfg.QuietDuration}),
	}

	audioClient, err := miniaudio.NewClient()
	if err != nil {
		log.Printf("Warning: audio devices unavailable, running text-only: %v", err)
	} else {
		defer audioClient.Close()
		options = append(options,
			coordination.WithAudioInput(audioClient),
			coordination.WithAudioOutput(audioClient),
		)
	}

	if cfg.DeepgramAPIKey != "" {
		options = append(options, coordination.WithSpeechToTextClient(sttdeepgram.NewTranscriptionClient()))

		synthesizer, err := ttsdeepgram.NewTextToSpeechClient(ctx, ttsdeepgram.VoiceThalia)
		if err != nil {
			log.Printf("Warning: speech synthesis unavailable: %v", err)
		} else {
			options = append(options, coordination.WithSpeechSynthesizer(synthesizer))
		}
	}

	coordinator := coordination.New(options...)
	defer coordinator.Close()

	program := tea.NewProgram(newModel(coordinator), tea.WithAltScreen(), tea.WithContext(ctx))

	err = coordinator.Run(ctx,
		coordination.WithMessageCallback(func(message coordination.Message) {
			program.Send(transcriptMessageMsg{message: message})
		}),
		coordination.WithInterimTranscriptCallback(func(transcript string) {
			program.Send(interimTranscriptMsg{transcript: transcript})
		}),
		coordination.WithModeChangedCallback(func(_, to coordination.Mode) {
			program.Send(modeChangedMsg{mode: to})
		}),
		coordination.WithLiveModeChangedCallback(func(enabled bool) {
			program.Send(liveModeChangedMsg{enabled: enabled})
		}),
		coordination.WithSpeakingStateChangedCallback(func(speaking bool) {
			program.Send(speakingStateMsg{speaking: speaking})
		}),
		coordination.WithErrorCallback(func(err error) {
			program.Send(sessionErrorMsg{err: err})
		}),
	)
	if err != nil {
		log.Fatalf("Failed to start session: %v", err)
	}

	if _, err := program.Run(); err != nil {
		log.Fatalf("Failed to run interface: %v", err)
	}
}
