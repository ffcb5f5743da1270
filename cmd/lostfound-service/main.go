// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bureau-foundation/lostfound/lib/clock"
	"github.com/bureau-foundation/lostfound/lib/config"
	"github.com/bureau-foundation/lostfound/lib/exchange"
	"github.com/bureau-foundation/lostfound/lib/messagestore"
	"github.com/bureau-foundation/lostfound/lib/presence"
	"github.com/bureau-foundation/lostfound/lib/process"
	"github.com/bureau-foundation/lostfound/lib/service"
	"github.com/bureau-foundation/lostfound/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		showVersion bool
	)
	flag.StringVar(&configPath, "config", "", "path to lostfound.yaml (default: $LOSTFOUND_CONFIG)")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		version.Print(os.Stdout, "lostfound-service")
		return nil
	}

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	logger, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	realClock := clock.Real()

	store, err := messagestore.Open(messagestore.Config{
		Path:   cfg.Paths.Database,
		Clock:  realClock,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	tracker := presence.New(presence.Config{
		Clock:         realClock,
		TTL:           cfg.Presence.TTL,
		SweepInterval: cfg.Presence.SweepInterval,
		MaxEntries:    cfg.Presence.MaxEntries,
		Logger:        logger,
	})

	lostfound := &LostfoundService{
		engine: exchange.New(exchange.Config{
			Store:    store,
			Presence: tracker,
			Clock:    realClock,
			Logger:   logger,
		}),
		store:        store,
		clock:        realClock,
		logger:       logger,
		pollInterval: cfg.Sync.PollInterval,
	}

	if err := lostfound.seed(ctx, cfg.Seed); err != nil {
		return fmt.Errorf("seeding: %w", err)
	}

	go tracker.Run(ctx)

	socketServer := service.NewSocketServer(cfg.Paths.Socket, logger)
	lostfound.registerActions(socketServer)
	socketDone := make(chan error, 1)
	go func() {
		socketDone <- socketServer.Serve(ctx)
	}()

	var httpDone chan error
	if cfg.HTTP.Address != "" {
		httpServer := service.NewHTTPServer(service.HTTPServerConfig{
			Address:         cfg.HTTP.Address,
			Handler:         service.RequestLog(lostfound.httpHandler(), realClock, logger),
			ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
			Logger:          logger,
		})
		httpDone = make(chan error, 1)
		go func() {
			httpDone <- httpServer.Serve(ctx)
		}()
	}

	logger.Info("lostfound service running",
		"version", version.Info(),
		"environment", cfg.Environment,
		"socket", cfg.Paths.Socket,
		"http", cfg.HTTP.Address,
		"database", cfg.Paths.Database,
	)

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-socketDone:
		socketDone = nil
	case serveErr = <-httpDone:
		httpDone = nil
	}
	stop()
	logger.Info("shutting down")

	if socketDone != nil {
		if err := <-socketDone; err != nil {
			serveErr = errors.Join(serveErr, err)
		}
	}
	if httpDone != nil {
		if err := <-httpDone; err != nil {
			serveErr = errors.Join(serveErr, err)
		}
	}
	return serveErr
}

// LostfoundService adapts the conversation engine to the socket and
// HTTP transports.
type LostfoundService struct {
	engine       *exchange.Engine
	store        *messagestore.Store
	clock        clock.Clock
	logger       *slog.Logger
	pollInterval time.Duration
}

// newLogger returns the service's JSON logger at the configured level.
func newLogger(cfg *config.Config, out io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, fmt.Errorf("configuring logger: %w", err)
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})), nil
}
