// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/ronnyzhao/AirCat/internal/api/httpd"
	"github.com/ronnyzhao/AirCat/internal/app/files"
	"github.com/ronnyzhao/AirCat/internal/app/module"
	"github.com/ronnyzhao/AirCat/internal/infra/audio"
	"github.com/ronnyzhao/AirCat/internal/infra/config"
	"github.com/ronnyzhao/AirCat/internal/infra/logger"
)

var (
	app        = kingpin.New("aircat", "AirCat media server")
	configPath = app.Flag("config", "Path to config file").Default("aircat.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// list-modules command
	listModulesCmd = app.Command("list-modules", "List available modules and exit")
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Handle list-modules command
	if command == listModulesCmd.FullCommand() {
		printModules()
		return
	}

	// Initialize logger
	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
		File:   "",
	}
	// Override with command-line flags if specified
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
		loggerConfig.File = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	// Load config
	zlog.Info().Msgf("Loading config from %s", *configPath)
	store, err := config.Open(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	// The config file's log section applies unless flags pinned it
	logCfg := store.Log()
	if !*verbose && logCfg.Level != "" {
		loggerConfig.Level = logCfg.Level
	}
	if *logfile == "" && logCfg.Output != "" {
		loggerConfig.Output = logCfg.Output
		loggerConfig.File = logCfg.File
	}
	if err := logger.Init(loggerConfig); err != nil {
		zlog.Fatal().Msgf("Failed to initialize logger: %v", err)
	}

	// Run server (defer ensures teardown is called)
	if err := run(store); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(store *config.Store) error {

	// Open the shared audio output
	audioCfg := store.Audio()
	out, err := audio.OpenSpeaker(audio.Config{
		SampleRate: audioCfg.SampleRate,
		Buffer:     time.Duration(audioCfg.BufferMs) * time.Millisecond,
	})
	if err != nil {
		return fmt.Errorf("failed to open audio output: %w", err)
	}

	// Register and open modules; failed modules are logged and skipped
	registry := module.NewRegistry()
	for _, m := range newModules(out) {
		if err := registry.Register(m); err != nil {
			return fmt.Errorf("failed to register module: %w", err)
		}
	}
	registry.OpenAll(store)

	// Create HTTP server with h2c (HTTP/2 cleartext) support
	srv := httpd.New(store.General().Addr, registry, store)

	// Channel to capture server startup errors
	serverErrCh := make(chan error, 1)

	// Start server
	go func() {
		if err := srv.Start(); err != nil {
			serverErrCh <- err
		}
	}()

	// Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown: stop request traffic first, then the modules
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	// Collect module config and persist it
	registry.CloseAll(store)
	if err := store.Save(); err != nil {
		zlog.Error().Msgf("Failed to save config: %v", err)
	}

	if err := out.Close(); err != nil {
		zlog.Error().Msgf("Failed to close audio output: %v", err)
	}

	zlog.Info().Msg("Server stopped")
	return nil
}

// newModules constructs every bundled module against the given output.
func newModules(out audio.Output) []module.Module {
	return []module.Module{
		files.New(out),
	}
}

// printModules prints available modules.
func printModules() {
	fmt.Println("Available Modules:")
	for _, m := range newModules(nil) {
		fmt.Printf("  %-10s - %s\n", m.Name(), m.Description())
	}
}
