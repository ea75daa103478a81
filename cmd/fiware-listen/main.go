// Command fiware-listen runs a standalone notification listener against a
// context broker and prints dispatched events on an interactive shell.
//
// It binds either the TCP socket listener or the NATS topic listener,
// registers the subscriptions named in the configuration file, and hands
// every complete notification to a dispatch registry. Events are printed
// as they arrive; the shell offers encode/decode helpers and runtime
// subscription management.
//
// Usage:
//
//	fiware-listen -config listener.yaml
//	fiware-listen -addr :1028
//	fiware-listen -nats-url nats://localhost:4222 -topic notifications
//
// Flags override the corresponding config file fields.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/fabianspitzer/fiwarenet-go/pkg/log"
	"github.com/fabianspitzer/fiwarenet-go/pkg/subscription"
	"github.com/fabianspitzer/fiwarenet-go/pkg/transport"
)

var (
	configPath = flag.String("config", "", "YAML configuration file path")
	addr       = flag.String("addr", "", "TCP listen address, e.g. :1028")
	natsURL    = flag.String("nats-url", "", "NATS server URL")
	natsTopic  = flag.String("topic", "", "NATS topic to subscribe to")
	logFile    = flag.String("log-file", "", "CBOR protocol event log file")
	logLevel   = flag.String("log-level", "info", "Console log level: debug, info, warn, error")
)

func main() {
	flag.Parse()

	cfg, err := buildConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fiware-listen: %v\n", err)
		os.Exit(1)
	}

	logger, closeLog, err := buildLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fiware-listen: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	registry := subscription.NewRegistry(subscription.RegistryConfig{Logger: logger})

	listener, err := buildListener(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fiware-listen: %v\n", err)
		os.Exit(1)
	}

	shell, err := NewShell(listener, registry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fiware-listen: %v\n", err)
		os.Exit(1)
	}

	for _, sub := range cfg.Subscriptions {
		if err := shell.register(sub.ID, sub.Mode == "diff"); err != nil {
			fmt.Fprintf(os.Stderr, "fiware-listen: registering %s: %v\n", sub.ID, err)
			os.Exit(1)
		}
	}

	listener.OnNotification(shell.handleNotification)
	listener.OnError(shell.handleFault)

	if err := listener.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "fiware-listen: %v\n", err)
		os.Exit(1)
	}
	defer listener.Stop()

	shell.Run()
}

// buildConfig merges the config file with command-line overrides.
func buildConfig() (*FileConfig, error) {
	cfg := &FileConfig{}
	if *configPath != "" {
		loaded, err := LoadConfig(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if *addr != "" {
		cfg.Listen.Address = *addr
		cfg.Listen.NATS = NATSConfig{}
	}
	if *natsURL != "" {
		cfg.Listen.NATS.URL = *natsURL
		cfg.Listen.Address = ""
	}
	if *natsTopic != "" {
		cfg.Listen.NATS.Topic = *natsTopic
	}
	if *logFile != "" {
		cfg.Log.File = *logFile
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = *logLevel
	}
	return cfg, cfg.validate()
}

// buildLogger assembles the console logger plus the optional CBOR file
// logger behind a single Logger.
func buildLogger(cfg *FileConfig) (log.Logger, func(), error) {
	level := slog.LevelInfo
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	console := log.NewSlogAdapter(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))

	if cfg.Log.File == "" {
		return console, func() {}, nil
	}

	file, err := log.NewFileLogger(cfg.Log.File)
	if err != nil {
		return nil, nil, fmt.Errorf("opening event log: %w", err)
	}
	return log.NewMultiLogger(console, file), func() { _ = file.Close() }, nil
}

func buildListener(cfg *FileConfig, logger log.Logger) (transport.Listener, error) {
	if cfg.Listen.Address != "" {
		return transport.NewHTTPListener(transport.HTTPListenerConfig{
			Address: cfg.Listen.Address,
			Logger:  logger,
		})
	}
	return transport.NewNATSListener(transport.NATSListenerConfig{
		URL:    cfg.Listen.NATS.URL,
		Topic:  cfg.Listen.NATS.Topic,
		Name:   "fiware-listen",
		Logger: logger,
	})
}
