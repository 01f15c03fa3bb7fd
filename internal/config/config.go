package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	ChatBaseURL    string
	Language       string
	DeepgramAPIKey string
	QuietDuration  time.Duration
}

// Load reads environment variables and returns Config with sane defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file loaded")
	}

	chatBaseURL := os.Getenv("CASAVOZ_CHAT_URL")
	if chatBaseURL == "" {
		chatBaseURL = "http://localhost:8080"
	}

	language := os.Getenv("CASAVOZ_LANGUAGE")
	if language == "" {
		language = "en-US"
	}

	deepgramKey := os.Getenv("DEEPGRAM_API_KEY")
	if deepgramKey == "" {
		log.Println("Warning: DEEPGRAM_API_KEY not set - speech capture and playback will not work")
	}

	quietDuration := 1500 * time.Millisecond
	if raw := os.Getenv("CASAVOZ_QUIET_MS"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			quietDuration = time.Duration(parsed) * time.Millisecond
		} else {
			log.Printf("Warning: ignoring invalid CASAVOZ_QUIET_MS=%q", raw)
		}
	}

	return Config{
		ChatBaseURL:    chatBaseURL,
		Language:       language,
		DeepgramAPIKey: deepgramKey,
		QuietDuration:  quietDuration,
	}
}
