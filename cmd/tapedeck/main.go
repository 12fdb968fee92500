// Package main provides the tapedeck daemon entry point.
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

	apiconnect "github.com/osa030/tapedeck/internal/api/connect"
	"github.com/osa030/tapedeck/internal/app/binder"
	"github.com/osa030/tapedeck/internal/app/notification"
	"github.com/osa030/tapedeck/internal/app/nowplaying"
	"github.com/osa030/tapedeck/internal/app/playback"
	"github.com/osa030/tapedeck/internal/infra/config"
	"github.com/osa030/tapedeck/internal/infra/logger"
	"github.com/osa030/tapedeck/internal/infra/media"
	"github.com/osa030/tapedeck/internal/infra/resolver"
	"github.com/osa030/tapedeck/internal/infra/sqlite"
)

var (
	app        = kingpin.New("tapedeck", "tapedeck headless jukebox daemon")
	configPath = app.Flag("config", "Path to config file").Default("config/tapedeck.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// list-surfaces command
	listSurfacesCmd = app.Command("list-surfaces", "List available now-playing surfaces and exit")

	// list-backends command
	listBackendsCmd = app.Command("list-backends", "List available audio backends and exit")
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the daemon (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	switch command {
	case listSurfacesCmd.FullCommand():
		printSurfaces()
		return
	case listBackendsCmd.FullCommand():
		printBackends()
		return
	}

	// Initialize logger
	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	// Override with command-line flags if specified
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
		loggerConfig.File = *logfile
	}
	closeLog, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer closeLog()

	// Load config
	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	// Run daemon (defer ensures components are closed)
	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Daemon error: %v", err)
		closeLog()
		os.Exit(1)
	}
}

// run executes the main daemon logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Track resolver
	resolverClient, err := resolver.New(resolver.Config{
		BaseURL: cfg.Library.URL,
		Timeout: cfg.ResolveTimeout(),
	})
	if err != nil {
		return errors.Wrap(err, "failed to create resolver")
	}

	// Persistence
	var persister playback.Persister
	if !cfg.Storage.Disabled {
		database, err := sqlite.Bootstrap(cfg.Storage.Path)
		if err != nil {
			return errors.Wrap(err, "failed to open state database")
		}
		defer database.Close()
		persister = sqlite.NewStateStore(database)
		zlog.Info().Msgf("Persisting state to %s", cfg.Storage.Path)
	}

	// Playback store
	store, err := playback.NewStore(ctx, playback.Config{
		DefaultVolume:  cfg.Playback.DefaultVolume,
		ResolveTimeout: cfg.ResolveTimeout(),
	}, resolverClient, persister)
	if err != nil {
		return errors.Wrap(err, "failed to create playback store")
	}
	defer store.Close()

	// Audio output and binder
	output, err := media.New(media.Config{
		Backend:            cfg.Playback.Backend,
		TimeUpdateInterval: cfg.TimeUpdateInterval(),
	})
	if err != nil {
		return errors.Wrapf(err, "failed to open audio backend %s", cfg.Playback.Backend)
	}
	mediaBinder := binder.New(store, output)
	mediaBinder.Start(ctx)
	defer mediaBinder.Close()
	zlog.Info().Msgf("Audio backend: %s", cfg.Playback.Backend)

	// Now-playing surfaces
	surfaces, err := nowplaying.NewSurfacesFromConfig(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to create now-playing surfaces")
	}
	artwork, err := nowplaying.NewArtworkFinderFromConfig(ctx, cfg)
	if err != nil {
		return errors.Wrap(err, "failed to create artwork lookup")
	}
	notifier := nowplaying.New(surfaces, nowplaying.Options{
		SeekStep: cfg.SeekStep(),
		Artwork:  artwork,
	})
	notifier.Attach(store)
	defer notifier.Close()

	// Remote watchers
	notifications := notification.NewManager()
	detach := notifications.Attach(store)
	defer detach()

	// Create HTTP mux and register the control service
	mux := http.NewServeMux()
	path, handler := apiconnect.NewPlayerServiceHandler(
		apiconnect.NewPlayerService(store, notifications),
		connect.WithInterceptors(apiconnect.NewTokenInterceptor(cfg.Control.Token)),
	)
	mux.Handle(path, handler)
	if cfg.Control.Token == "" {
		zlog.Warn().Msg("Control token not set, the control RPC is unauthenticated")
	}

	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to capture server startup errors
	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	// Start server
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
		// Signal that we're about to start listening
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	// Wait for server to start listening
	<-serverStartedCh
	// Give the server a moment to fully initialize
	time.Sleep(100 * time.Millisecond)

	// Execute startup hook if configured (after server is running)
	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	// Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return errors.Wrap(err, "server error")
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// End watch streams first so Shutdown does not wait for them
	notifications.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")

	// Execute shutdown hook if configured
	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return nil
}

// printSurfaces prints available now-playing surfaces.
func printSurfaces() {
	fmt.Println("Available Surfaces:")
	for _, s := range nowplaying.SurfaceTypes() {
		fmt.Printf("  %-10s - %s\n", s.Type, s.Description)
	}
}

// printBackends prints audio backends and whether this build supports them.
func printBackends() {
	fmt.Println("Available Backends:")
	for _, b := range media.Backends() {
		status := "available"
		if !b.Available {
			status = "not built in"
		}
		fmt.Printf("  %-6s - %s [%s]\n", b.Name, b.Description, status)
	}
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
