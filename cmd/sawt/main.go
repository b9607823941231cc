// sawt client - duplex voice session: capture, speech detection, transport, playback
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sawt-voice/sawt/internal/audio"
	"github.com/sawt-voice/sawt/internal/config"
	"github.com/sawt-voice/sawt/internal/mic"
	"github.com/sawt-voice/sawt/internal/playback"
	"github.com/sawt-voice/sawt/internal/session"
	"github.com/sawt-voice/sawt/internal/transport"
	"github.com/sawt-voice/sawt/internal/vad"
)

const dialTimeout = 15 * time.Second

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	slog.Info("sawt client starting",
		slog.String("url", cfg.ServerURL),
		slog.Int("sample_rate", cfg.SampleRate),
		slog.Int("frames_per_buffer", cfg.FramesPerBuffer),
		slog.Float64("voice_threshold", cfg.VoiceThreshold),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn := transport.New()
	dialCtx, dialCancel := context.WithTimeout(ctx, dialTimeout)
	err := conn.Connect(dialCtx, cfg.ServerURL)
	dialCancel()
	if err != nil {
		slog.Error("connect failed", "error", err)
		os.Exit(1)
	}

	engine := playback.NewEngine(playback.NewPortAudioSink(cfg.FramesPerBuffer))
	if err := engine.Start(); err != nil {
		slog.Error("playback start failed", "error", err)
		conn.Close()
		os.Exit(1)
	}

	detector := vad.New(vad.Config{
		SampleRate:     cfg.SampleRate,
		FrameSize:      cfg.FramesPerBuffer,
		VoiceThreshold: cfg.VoiceThreshold,
		SilenceTimeout: time.Duration(cfg.SilenceTimeoutMs) * time.Millisecond,
		PreBuffer:      time.Duration(cfg.PreBufferMs) * time.Millisecond,
		SpeakingGrace:  time.Duration(cfg.SpeakingGraceMs) * time.Millisecond,
	})
	micSession := mic.NewSession(audio.NewCapturer(cfg.SampleRate, cfg.FramesPerBuffer), detector, conn)

	ctrl := session.NewController(conn, engine, micSession)

	errCh := make(chan error, 1)
	go func() { errCh <- ctrl.Run(ctx) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		slog.Info("shutting down...")
	case err := <-errCh:
		if err != nil {
			slog.Error("session error", "error", err)
		}
	}

	cancel()
	conn.Close()
	engine.Stop()
	slog.Info("shutdown complete")
}
