package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/webcast/webcastd/internal/config"
	"github.com/webcast/webcastd/internal/control"
	"github.com/webcast/webcastd/internal/display"
	"github.com/webcast/webcastd/internal/logging"
	"github.com/webcast/webcastd/internal/metrics"
	"github.com/webcast/webcastd/internal/orchestrator"
	"github.com/webcast/webcastd/internal/receiver"
	"github.com/spf13/cobra"
)

var version = "0.1.0"
var cfgFile string

var log = logging.L("main")

var rootCmd = &cobra.Command{
	Use:   "webcastd",
	Short: "WebCast session daemon",
	Long:  `webcastd streams an arbitrary web page to a network media receiver by rendering it in a headless display, capturing it to an HLS stream, and commanding a receiver to play it.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the daemon",
	Run: func(cmd *cobra.Command, args []string) {
		serve()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("webcastd v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/webcast/webcast.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initLogging sets up structured logging from config. Call after config.Load().
func initLogging(cfg *config.Config) {
	var output io.Writer = os.Stdout
	logFileFallback := false

	if cfg.LogFile != "" {
		rw, err := logging.NewRotatingWriter(cfg.LogFile, cfg.LogMaxSizeMB, cfg.LogMaxBackups)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v (logging to stdout)\n", cfg.LogFile, err)
			logFileFallback = true
		} else {
			output = logging.TeeWriter(os.Stdout, rw)
		}
	}

	logging.Init(cfg.LogFormat, cfg.LogLevel, output)
	log = logging.L("main")

	if logFileFallback {
		log.Warn("log file fallback active, logging to stdout only", "requestedFile", cfg.LogFile)
	}
}

// buildSender wires the receiver transport from config: mDNS discovery when
// enabled; when the operator has turned it off, a sender with no discoverer
// that only reaches receivers addressed by receiver_host.
func buildSender(cfg *config.Config) receiver.Sender {
	if !cfg.DiscoveryEnabled {
		log.Warn("receiver discovery disabled by config; sessions can still address a receiver_host directly")
		return receiver.NewAvailable(nil)
	}
	return receiver.NewAvailable(receiver.NewDiscoverer())
}

// serve runs the control-plane HTTP server and every live session's
// background orchestration task until a shutdown signal arrives.
func serve() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	initLogging(cfg)

	log.Info("starting webcastd",
		"version", version,
		"hostAddr", cfg.HostAddr,
		"hostPort", cfg.HostPort,
		"sessionsDir", cfg.SessionsDir,
	)

	if err := os.MkdirAll(cfg.SessionsDir, 0755); err != nil {
		log.Error("failed to create sessions directory", "dir", cfg.SessionsDir, "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	sender := buildSender(cfg)

	opts := orchestrator.Options{
		SessionsDir:      cfg.SessionsDir,
		HostnameOverride: cfg.HostnameOverride,
		HostPort:         cfg.HostPort,
		WarmupStaleAfter: time.Duration(cfg.WarmupStaleAfterMS) * time.Millisecond,
		SteadyStaleAfter: time.Duration(cfg.SteadyStaleAfterMS) * time.Millisecond,
	}
	orch := orchestrator.New(
		opts,
		orchestrator.NewRegistry(),
		display.NewAllocator(cfg.DisplayRangeStart, cfg.DisplayRangeEnd),
		receiver.NewBindings(),
		sender,
		orchestrator.DefaultFactories(),
		m,
	)

	srv := control.New(orch, sender, cfg.SessionsDir, m)

	addr := net.JoinHostPort(cfg.HostAddr, fmt.Sprintf("%d", cfg.HostPort))
	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv.Handler(),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("control plane listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		log.Error("control plane failed to bind", "error", err)
		os.Exit(1)
	case <-sigChan:
		log.Info("shutting down webcastd")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("control plane shutdown did not complete cleanly", "error", err)
	}

	for _, session := range orch.Registry().All() {
		if err := orch.Stop(session.ID); err != nil {
			log.Warn("failed to stop session during shutdown", "sessionId", session.ID, "error", err)
		}
	}

	log.Info("webcastd stopped")
}
