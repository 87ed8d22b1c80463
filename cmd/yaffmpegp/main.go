package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/lsiudut/yaffmpegp/lib/slog"
)

func main() {
	logger := slog.GetDefaultLogger()

	cfg, err := newConfigFromFlags(os.Args)
	if err != nil {
		logger.Error(&slog.LogRecord{Msg: "failed to parse flags", Error: err})
		os.Exit(2)
	}

	logger.Info(&slog.LogRecord{Msg: "loaded config", Details: cfg})

	if err := cfg.Validate(); err != nil {
		logger.Error(&slog.LogRecord{Msg: "configuration is invalid", Error: err})
		os.Exit(2)
	}

	server, err := NewServer(logger, cfg)
	if err != nil {
		logger.Error(&slog.LogRecord{Msg: "failed to create server", Error: err})
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code := server.Serve(ctx)
	if code == 0 {
		logger.Info(&slog.LogRecord{Msg: "dispatch terminated normally"})
	} else {
		logger.Error(&slog.LogRecord{Msg: "dispatch terminated abnormally"})
	}
	os.Exit(code)
}
