package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/sipagent/core/internal/config"
	"github.com/sipagent/core/metrics"
	"github.com/sipagent/core/sip"
	"github.com/sipagent/core/timer"
	"github.com/sipagent/core/transport"
	"github.com/sipagent/core/ua"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Answer inbound calls until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), configFile)
	},
}

// runServe wires the SIP transport (UDP, or TCP when listen.network is
// "tcp"), UAS, call manager, and metrics listener and drives them from one goroutine, honoring spec.md §5's
// single-threaded mutation requirement: the wheel is only ever polled on
// the same goroutine that dispatches transport.Inbound into the UAS.
func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	callLog := setupLogging(cfg)

	reg := metrics.NewRegistry()
	if cfg.Metrics.Enabled {
		reg.MustRegister(prometheus.DefaultRegisterer)
		go serveMetrics(cfg.Metrics.Listen, cfg.Metrics.Path)
	}

	var tp transport.Transport
	if cfg.Listen.Network == "tcp" {
		tp, err = transport.ListenTCP(cfg.Listen.Address)
	} else {
		tp, err = transport.ListenUDP(cfg.Listen.Address)
	}
	if err != nil {
		return fmt.Errorf("listen %s %s: %w", cfg.Listen.Network, cfg.Listen.Address, err)
	}
	defer tp.Close()

	localContact := sip.Uri{User: cfg.Contact.User, Host: cfg.Contact.Host, Port: cfg.Contact.Port}
	loop := timer.NewLoop()
	uas := ua.NewUAS(loop, tp, localContact)

	cm := newCallManager(cfg, reg, callLog)
	uas.OnInvite = cm.onInvite
	uas.OnBye = cm.onBye
	uas.OnCancel = cm.onCancel

	slog.Info("sipagent listening", "network", cfg.Listen.Network, "address", cfg.Listen.Address, "contact", localContact.String())

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("sipagent shutting down")
			return nil
		case in := <-tp.Messages():
			uas.HandleInbound(in)
		case err := <-tp.Errors():
			slog.Warn("transport error", "error", err)
		case <-ticker.C:
			loop.Wheel().Poll(loop.Now())
		}
	}
}

func serveMetrics(addr, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Warn("metrics listener stopped", "error", err)
	}
}
