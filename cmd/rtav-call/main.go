// Copyright 2026 The RTAV Authors
// SPDX-License-Identifier: Apache-2.0

// rtav-call places one realtime conversation turn against an RTAV-style
// realtime service and streams the response text to stdout.
//
// Usage:
//
//	RTAV_API_KEY=... rtav-call --prompt "Say hello"
//
// The target and session settings come from a YAML call profile (--config
// or RTAV_CONFIG), refined by flags. The API credential comes from
// RTAV_API_KEY only.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/rtav-io/rtav-go/lib/config"
	"github.com/rtav-io/rtav-go/lib/version"
	"github.com/rtav-io/rtav-go/realtime"
	"github.com/rtav-io/rtav-go/signaling"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet("rtav-call", pflag.ContinueOnError)
	configPath := flags.String("config", "", "path to a YAML call profile (default: $RTAV_CONFIG)")
	baseURL := flags.String("base-url", "", "realtime service base URL")
	model := flags.String("model", "", "model identifier")
	instructions := flags.String("instructions", "", "system prompt for the session")
	voice := flags.String("voice", "", "output voice identifier")
	face := flags.String("face", "", "avatar identifier (video-capable services)")
	prompt := flags.String("prompt", "", "user message to submit (required)")
	timeout := flags.Duration("timeout", 0, "completion wait bound (default 60s)")
	insecurePrivate := flags.Bool("insecure-private", false,
		"skip TLS verification for loopback/private targets (self-signed local deployments)")
	verbose := flags.Bool("verbose", false, "enable debug logging")
	showVersion := flags.Bool("version", false, "print version and exit")

	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}
	if *showVersion {
		fmt.Printf("rtav-call %s\n", version.Info())
		return nil
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	profile, err := loadProfile(*configPath)
	if err != nil {
		return err
	}

	// Flags refine the profile.
	if *baseURL != "" {
		profile.BaseURL = *baseURL
	}
	if *model != "" {
		profile.Model = *model
	}
	if *instructions != "" {
		profile.Instructions = *instructions
	}
	if *voice != "" {
		profile.Voice = *voice
	}
	if *face != "" {
		profile.Face = *face
	}
	if *insecurePrivate {
		profile.AllowInsecurePrivate = true
	}

	completionTimeout, err := profile.Timeout()
	if err != nil {
		return err
	}
	if *timeout > 0 {
		completionTimeout = *timeout
	}

	if *prompt == "" {
		return errors.New("--prompt is required")
	}

	// Credential check happens before any network activity.
	apiKey := os.Getenv("RTAV_API_KEY")
	if apiKey == "" {
		return errors.New("RTAV_API_KEY not set in environment")
	}

	clientConfig := signaling.ClientConfig{
		BaseURL: profile.BaseURL,
		APIKey:  apiKey,
		Logger:  logger,
	}
	if profile.AllowInsecurePrivate {
		clientConfig.InsecureHostPolicy = signaling.PrivateHostPolicy
	}
	client, err := signaling.NewClient(clientConfig)
	if err != nil {
		return err
	}

	driver, err := realtime.NewDriver(realtime.DriverConfig{
		Signaling: client,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	// SIGINT/SIGTERM cancel the call; teardown runs the same path as a
	// timeout, so an interrupt is a graceful exit, not a crash.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := driver.Run(ctx, realtime.CallParams{
		Session: realtime.SessionConfig{
			Model:        profile.Model,
			Instructions: profile.Instructions,
			Voice:        profile.Voice,
			Face:         profile.Face,
			Extra:        profile.SessionExtra,
		},
		Prompt:            *prompt,
		CompletionTimeout: completionTimeout,
		Sink:              &realtime.WriterSink{Text: os.Stdout, MediaMarker: "."},
	})
	if result != nil && result.Transcript != "" {
		// Deltas stream without a trailing newline.
		fmt.Println()
	}
	if err != nil {
		if result != nil && result.SessionID != "" {
			logger.Warn("call ended with error", "session_id", result.SessionID)
		}
		return err
	}

	logger.Info("call complete", "session_id", result.SessionID)
	return nil
}

func loadProfile(path string) (config.Profile, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}
