// Package main provides the playback server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/framecue/internal/api/connect"
	"github.com/osa030/framecue/internal/app/monitor"
	"github.com/osa030/framecue/internal/app/notification"
	"github.com/osa030/framecue/internal/app/playback"
	"github.com/osa030/framecue/internal/infra/audioengine"
	"github.com/osa030/framecue/internal/infra/config"
	"github.com/osa030/framecue/internal/infra/logger"
)

var (
	app        = kingpin.New("framecued", "framecue playback server")
	configPath = app.Flag("config", "Path to config file (built-in defaults when empty)").Short('c').String()
	addr       = app.Flag("addr", "Listen address, overrides the config file").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{Output: "stdout", Level: "info"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	closer, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	if closer != nil {
		defer closer.Close()
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		zlog.Info().Msg("No config file given, using defaults")
		return config.Default()
	}
	zlog.Info().Msgf("Loading config from %s", path)
	return config.Load(path)
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	engine, err := audioengine.FromConfig(cfg.Engine)
	if err != nil {
		return errors.Wrap(err, "failed to create audio engine")
	}

	controller := playback.NewController(engine, playback.Config{
		MaxChannels: cfg.Playback.MaxChannels,
	})
	mon := monitor.New(controller, monitor.Config{
		PollInterval: cfg.Monitor.PollInterval(),
		EventBuffer:  cfg.Monitor.EventBuffer,
	})
	notifManager := notification.NewManager()
	go notifManager.Relay(mon.Events())

	var opts []connect.HandlerOption
	if cfg.Auth.Token != "" {
		opts = append(opts, connect.WithInterceptors(apiconnect.NewAuthInterceptor(cfg.Auth.Token)))
	} else {
		zlog.Warn().Msg("Authentication disabled: no auth token configured")
	}

	mux := http.NewServeMux()
	path, handler := apiconnect.NewPlaybackServiceHandler(
		apiconnect.NewPlaybackService(mon, notifManager),
		opts...,
	)
	mux.Handle(path, handler)

	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s output=%s rate=%d", cfg.Server.Addr, cfg.Engine.Output.Type, cfg.Engine.SampleRate)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Give the listener a moment before running hooks
	select {
	case err := <-serverErrCh:
		return errors.Wrap(err, "server error")
	case <-time.After(100 * time.Millisecond):
	}
	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		runErr = errors.Wrap(err, "server error")
	}

	// Stop playback and end watch streams before draining connections
	mon.Close()
	notifManager.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	for _, d := range controller.Diagnostics() {
		zlog.Debug().Msgf("Teardown diagnostic: %v", d)
	}
	zlog.Info().Msg("Server stopped")

	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")
	return runErr
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
