package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/adriangligor/octoplex/internal/config"
	"github.com/adriangligor/octoplex/internal/events"
	"github.com/adriangligor/octoplex/internal/httpclient"
	"github.com/adriangligor/octoplex/internal/httplog"
	"github.com/adriangligor/octoplex/internal/logger"
	"github.com/adriangligor/octoplex/internal/mdns"
	"github.com/adriangligor/octoplex/internal/multiplexer"
	"github.com/adriangligor/octoplex/internal/server"
	"github.com/adriangligor/octoplex/internal/stats"
	"github.com/adriangligor/octoplex/internal/version"
)

const (
	defaultConfigFile = ".octoplex.yaml"

	// GitHub repository info for update checks
	githubOwner = "adriangligor"
	githubRepo  = "octoplex"
)

var (
	configFile  = flag.String("c", defaultConfigFile, "Path to configuration file")
	listenAddr  = flag.String("listen", "", "Listen address (overrides config)")
	verbose     = flag.Bool("v", false, "Enable verbose logging")
	logFormat   = flag.String("log-format", "text", "Log format: text or json")
	check       = flag.Bool("check", false, "Validate configuration and exit")
	showVersion = flag.Bool("version", false, "Show version and exit")
	checkUpdate = flag.Bool("update", false, "Check for updates and exit")
	appVersion  = "0.1.0" // Set via ldflags during build
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("octoplex version %s\n", appVersion)
		os.Exit(0)
	}

	if *checkUpdate {
		checkForUpdates()
		os.Exit(0)
	}

	// Initialize structured logger
	logLevel := logger.LevelInfo
	if *verbose {
		logLevel = logger.LevelDebug
	}

	logFmt := logger.FormatText
	if *logFormat == "json" {
		logFmt = logger.FormatJSON
	}

	logger.Init(logLevel, logFmt, os.Stderr)
	log := logger.Logr(logger.New(logLevel, logFmt, os.Stderr))

	// Load configuration; a missing file means all defaults
	cfg, err := config.LoadConfig(*configFile)
	switch {
	case err == config.ErrConfigNotFound:
		cfg = config.DefaultConfig()
		logger.Debug("no configuration file, using defaults", map[string]any{"path": *configFile})
	case err != nil:
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	validator := config.NewValidator()
	if errs := validator.ValidateConfig(cfg); len(errs) > 0 {
		fmt.Fprint(os.Stderr, config.FormatValidationErrors(errs))
		os.Exit(1)
	}

	if *check {
		fmt.Println("Configuration is valid")
		os.Exit(0)
	}

	logger.Info("starting octoplex", map[string]any{"version": appVersion})

	// Outbound HTTP client: one shared pool for all batches
	client := httpclient.New(httpclient.Options{
		DialTimeout:        cfg.GetDialTimeout(),
		TCPKeepalive:       cfg.GetTCPKeepalive(),
		IdleConnTimeout:    cfg.GetIdleConnTimeout(),
		MaxIdleConns:       cfg.GetMaxIdleConns(),
		InsecureSkipVerify: cfg.IsInsecureSkipVerify(),
		HTTP2:              cfg.IsHTTP2Enabled(),
	})

	mux := multiplexer.New(client, multiplexer.Limits{
		MaxRequestDuration: cfg.GetMaxRequestDuration(),
		MaxBatchSize:       cfg.GetMaxBatchSize(),
	}, log.WithName("multiplexer"))

	// Access log
	var accessLog *httplog.Logger
	if cfg.IsAccessLogEnabled() {
		accessLog, err = httplog.NewLogger(cfg.GetAccessLogFile())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening access log: %v\n", err)
			os.Exit(1)
		}
		defer accessLog.Close()
	}

	// Event bus and stats collector
	bus := events.NewBus()
	defer bus.Close()

	var statsDone chan struct{}
	if cfg.IsStatsEnabled() {
		collector := stats.NewCollector()
		collector.Attach(bus)

		statsDone = make(chan struct{})
		go func() {
			ticker := time.NewTicker(cfg.GetStatsInterval())
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					collector.LogSummary(log.WithName("stats"))
				case <-statsDone:
					return
				}
			}
		}()
	}

	addr := cfg.GetListenAddr()
	if *listenAddr != "" {
		addr = *listenAddr
	}

	srv := server.New(mux, server.Options{
		Addr:      addr,
		AccessLog: accessLog,
		Bus:       bus,
	}, log.WithName("server"))

	if err := srv.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting server: %v\n", err)
		os.Exit(1)
	}

	// mDNS advertisement
	publisher := mdns.NewPublisher(cfg.IsMDNSEnabled())
	if cfg.IsMDNSEnabled() {
		if port, ok := listenPort(srv.Addr()); ok {
			if err := publisher.Register(cfg.GetMDNSInstance(), port); err != nil {
				logger.Warn("mDNS registration failed", map[string]any{"error": err.Error()})
			}
		}
	}

	// Config watcher for hot-reload; only meaningful with a real file
	reload := func(newCfg *config.Config) error {
		mux.SetLimits(multiplexer.Limits{
			MaxRequestDuration: newCfg.GetMaxRequestDuration(),
			MaxBatchSize:       newCfg.GetMaxBatchSize(),
		})
		bus.Publish(events.Event{Type: events.EventConfigReloaded})
		logger.Info("configuration reloaded", map[string]any{
			"maxBatchSize": newCfg.GetMaxBatchSize(),
			"maxTimeout":   newCfg.GetMaxRequestDuration().String(),
		})
		return nil
	}

	var watcher *config.Watcher
	if _, statErr := os.Stat(*configFile); statErr == nil {
		watcher, err = config.NewWatcher(*configFile, reload)
		if err != nil {
			logger.Warn("failed to setup config watcher, hot-reload unavailable",
				map[string]any{"error": err.Error()})
		} else {
			watcher.Start()
			defer watcher.Stop()
		}
	}

	// Check for updates in background (non-blocking)
	if *verbose {
		go func() {
			checker := version.NewChecker(githubOwner, githubRepo, appVersion)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if update := checker.CheckForUpdate(ctx); update != nil {
				logger.Info("update available", map[string]any{
					"latest":  update.LatestVersion,
					"current": update.CurrentVersion,
					"url":     update.ReleaseURL,
				})
			}
		}()
	}

	// Wait for signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigChan
		switch sig {
		case syscall.SIGHUP:
			logger.Info("received SIGHUP, reloading configuration", nil)
			newCfg, err := config.LoadConfig(*configFile)
			if err != nil {
				logger.Warn("failed to reload config", map[string]any{"error": err.Error()})
				continue
			}

			if errs := validator.ValidateConfig(newCfg); len(errs) > 0 {
				logger.Warn("reloaded config is invalid",
					map[string]any{"errors": config.FormatValidationErrors(errs)})
				continue
			}

			if err := reload(newCfg); err != nil {
				logger.Warn("failed to apply reloaded config", map[string]any{"error": err.Error()})
			}

		case os.Interrupt, syscall.SIGTERM:
			logger.Info("received shutdown signal, stopping", nil)

			if statsDone != nil {
				close(statsDone)
			}
			publisher.Stop()

			shutdownDone := make(chan struct{})
			go func() {
				if err := srv.Stop(); err != nil {
					logger.Warn("forced server shutdown", map[string]any{"error": err.Error()})
				}
				client.CloseIdleConnections()
				close(shutdownDone)
			}()

			select {
			case <-shutdownDone:
				logger.Info("graceful shutdown complete", nil)
			case <-time.After(10 * time.Second):
				logger.Warn("shutdown timed out, forcing exit", nil)
			case sig := <-sigChan:
				logger.Warn("received second signal, forcing exit", map[string]any{"signal": sig.String()})
			}
			return
		}
	}
}

// listenPort extracts the TCP port from the bound listener address.
func listenPort(addr net.Addr) (int, bool) {
	if addr == nil {
		return 0, false
	}
	_, portStr, err := net.SplitHostPort(addr.String())
	if err != nil {
		return 0, false
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, false
	}
	return port, true
}

// checkForUpdates checks for available updates and prints the result.
func checkForUpdates() {
	fmt.Printf("octoplex version %s\n", appVersion)
	fmt.Println("Checking for updates...")

	checker := version.NewChecker(githubOwner, githubRepo, appVersion)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	update := checker.CheckForUpdate(ctx)
	if update == nil {
		fmt.Println("You are running the latest version.")
		return
	}

	fmt.Printf("\nUpdate available: v%s\n", update.LatestVersion)
	fmt.Printf("Download: %s\n", update.ReleaseURL)
}
