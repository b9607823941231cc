// Package config handles client configuration
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// TargetSampleRate is the wire sample rate: 16-bit mono PCM at 16 kHz flows
// in both directions. Fixed by the protocol, not configurable.
const TargetSampleRate = 16000

type Config struct {
	ServerURL        string
	SampleRate       int // native capture rate
	FramesPerBuffer  int // samples per render quantum
	VoiceThreshold   float64
	SilenceTimeoutMs int
	PreBufferMs      int
	SpeakingGraceMs  int
	LogLevel         slog.Level
}

func Load() *Config {
	return &Config{
		ServerURL:        getEnv("SAWT_WS_URL", "wss://sawt-api.example.com/ws/chat"),
		SampleRate:       getEnvInt("SAMPLE_RATE", 48000),
		FramesPerBuffer:  getEnvInt("FRAMES_PER_BUFFER", 128),
		VoiceThreshold:   getEnvFloat("VOICE_THRESHOLD", 0.06),
		SilenceTimeoutMs: getEnvInt("SILENCE_TIMEOUT_MS", 1000),
		PreBufferMs:      getEnvInt("PRE_BUFFER_MS", 500),
		SpeakingGraceMs:  getEnvInt("SPEAKING_GRACE_MS", 250),
		LogLevel:         getEnvLevel("LOG_LEVEL", slog.LevelInfo),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvLevel(key string, def slog.Level) slog.Level {
	switch strings.ToLower(os.Getenv(key)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return def
	}
}
