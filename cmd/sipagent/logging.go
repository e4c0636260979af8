package main

import (
	"log/slog"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/sipagent/core/internal/config"
)

// setupLogging wires two loggers, mirroring example/proxysip/main.go's
// dual-logger split: slog carries the core library's structured
// diagnostic output (level from cfg.Log.Level), logrus carries a
// human-readable per-call event line (INVITE/answer/bye) for operators
// tailing a terminal.
func setupLogging(cfg *config.Config) *logrus.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	callLog := logrus.New()
	callLog.SetOutput(os.Stdout)
	callLog.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	callLog.SetLevel(lvl)
	return callLog
}
