package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"example.com/mediaserve/internal/config"
	"example.com/mediaserve/internal/handlers/mediaserver"
	"example.com/mediaserve/internal/logger"
	"example.com/mediaserve/internal/router"
	"example.com/mediaserve/internal/server"
)

const usage = "Usage: %s [-config path] <port>\n\nThe directory to serve is read from the %s environment variable.\n\n"

// app is everything main needs to run the server.
type app struct {
	server  *server.Server
	log     *logger.Logger
	startup config.Startup
}

// setup parses the command line, loads the optional configuration file and wires the
// logger, handlers, router and server together.
func setup(progName string, args []string, lookupEnv func(string) (string, bool), output io.Writer) (*app, error) {
	fs := flag.NewFlagSet(progName, flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintf(output, usage, progName, config.MediaDirEnvKey)
		fs.PrintDefaults()
	}
	configFilePath := fs.String("config", "", "Path to an optional configuration file (JSON or TOML)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	startup, err := config.ResolveStartup(fs.Args(), lookupEnv)
	if err != nil {
		fs.Usage()
		return nil, err
	}

	// 1. Load Configuration
	var cfg *config.Config
	if *configFilePath != "" {
		cfg, err = config.LoadConfig(*configFilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration from %s: %w", *configFilePath, err)
		}
	} else {
		cfg = config.Default()
	}

	// 2. Initialize Logger
	appLogger, err := logger.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	// 3. Register handlers
	handlerRegistry := server.NewHandlerRegistry()
	if err := mediaserver.Register(handlerRegistry); err != nil {
		appLogger.CloseLogFiles()
		return nil, fmt.Errorf("failed to register media handlers: %w", err)
	}

	// 4. Initialize Router
	appRouter, err := router.NewRouter(config.DefaultRoutes(), handlerRegistry, startup.MediaDir, appLogger)
	if err != nil {
		appLogger.CloseLogFiles()
		return nil, fmt.Errorf("failed to initialize router: %w", err)
	}

	// 5. Initialize Server
	srv, err := server.NewServer(cfg, appLogger, appRouter, startup.ListenAddress())
	if err != nil {
		appLogger.CloseLogFiles()
		return nil, fmt.Errorf("failed to initialize server: %w", err)
	}

	return &app{server: srv, log: appLogger, startup: startup}, nil
}

func main() {
	a, err := setup(os.Args[0], os.Args[1:], os.LookupEnv, os.Stderr)
	if err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		log.Fatalf("Error: %v", err)
	}

	a.log.Info("Serving media directory", logger.LogFields{
		"media_dir": a.startup.MediaDir,
		"address":   a.startup.ListenAddress(),
	})

	// Start blocks until SIGINT/SIGTERM completes a graceful shutdown.
	runErr := a.server.Start()
	if runErr != nil {
		a.log.Error("Server exited with an error", logger.LogFields{"error": runErr.Error()})
	} else {
		a.log.Info("Server has shut down gracefully", nil)
	}
	if err := a.log.CloseLogFiles(); err != nil {
		log.Printf("Error closing log files during shutdown: %v", err)
	}
	if runErr != nil {
		os.Exit(1)
	}
}
