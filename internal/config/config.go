package config

import (
	"os"
	"strconv"
)

// ChatConfig carries the tunable limits of the messaging layer. It is built
// once in main and passed into the handlers, so nothing reads ambient
// globals at request time.
type ChatConfig struct {
	// MaxContentLength bounds message text, in characters
	MaxContentLength int
	// MaxNoteLength bounds the optional note on price offers and meetup requests
	MaxNoteLength int
	// PageSize is the message page size served by listing endpoints
	PageSize int
}

// DefaultChatConfig matches the limits the original mobile clients assume.
func DefaultChatConfig() ChatConfig {
	return ChatConfig{
		MaxContentLength: 2000,
		MaxNoteLength:    500,
		PageSize:         50,
	}
}

// LoadChatConfig reads overrides from the environment, falling back to the
// defaults for anything unset or unparsable.
func LoadChatConfig() ChatConfig {
	cfg := DefaultChatConfig()

	cfg.MaxContentLength = envInt("CHAT_MAX_CONTENT_LENGTH", cfg.MaxContentLength)
	cfg.MaxNoteLength = envInt("CHAT_MAX_NOTE_LENGTH", cfg.MaxNoteLength)
	cfg.PageSize = envInt("CHAT_PAGE_SIZE", cfg.PageSize)

	return cfg
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
