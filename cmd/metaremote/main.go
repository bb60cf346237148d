package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"metaremote/internal/config"
	"metaremote/internal/history"
	"metaremote/internal/inference"
	"metaremote/internal/library"
	"metaremote/internal/logger"
	"metaremote/internal/musicbrainz"
	"metaremote/internal/web"
)

func main() {
	var (
		port       int
		configPath string
		musicDir   string
		verbose    bool
	)

	flag.IntVar(&port, "port", 0, "HTTP server port (overrides config)")
	flag.StringVar(&configPath, "config", "", "Config file path")
	flag.StringVar(&musicDir, "music-dir", "", "Music directory (overrides config)")
	flag.BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	flag.Parse()

	cfg, err := config.LoadConfigFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if port != 0 {
		cfg.Port = port
	}
	if musicDir != "" {
		cfg.MusicDir = config.ExpandHome(musicDir)
	}
	if verbose {
		cfg.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	l := logger.New(cfg.Verbose)
	logDir := config.GetDefaultLogPath()
	if err := os.MkdirAll(logDir, 0755); err == nil {
		logPath := filepath.Join(logDir, fmt.Sprintf("metaremote-%d.log", time.Now().Unix()))
		if err := l.SetFileLog(logPath); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to setup file logging: %v\n", err)
		}
	}
	defer l.Close()

	lib, err := library.New(cfg.MusicDir)
	if err != nil {
		l.Error("Music directory error: %v", err)
		os.Exit(1)
	}
	l.Info("Serving music library at %s", lib.Root())

	mb := musicbrainz.New(
		cfg.MusicBrainzUserAgent,
		time.Duration(cfg.MusicBrainzRateLimit*float64(time.Second)),
		time.Duration(cfg.InferenceCacheTTL)*time.Second,
	)

	thresholds := inference.DefaultThresholds()
	for name, value := range cfg.FieldThresholds {
		if f, ok := inference.ParseField(name); ok {
			thresholds[f] = value
		} else {
			l.Warn("Ignoring threshold for unknown field %q", name)
		}
	}
	engine := inference.New(mb, l, thresholds)

	ledger := history.NewLedger(cfg.MaxHistoryItems)
	server := web.NewServer(lib, engine, ledger, cfg, l)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // streaming responses can be slow
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		l.Info("Starting server on port %d", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("Server error: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	l.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		l.Error("Server shutdown error: %v", err)
	}

	l.Info("Server stopped")
}
