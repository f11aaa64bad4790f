package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Server
	Port int

	// Composition surface
	Width  int
	Height int

	// Recorder chunk flush cadence
	FlushInterval time.Duration

	// Session hue base for the gradient palette. -1 picks a random hue at
	// startup; a fixed value makes renders reproducible.
	HueBase int
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		Port:          envInt("SCENECAST_PORT", 8080),
		Width:         envInt("SCENECAST_WIDTH", 1280),
		Height:        envInt("SCENECAST_HEIGHT", 720),
		FlushInterval: time.Duration(envInt("SCENECAST_FLUSH_MS", 250)) * time.Millisecond,
		HueBase:       envInt("SCENECAST_HUE_BASE", -1),
	}
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
