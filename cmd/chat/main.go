// ABOUTME: Entry point for the terminal chat client
// ABOUTME: Wires config, storage, conversation store, agent gateway and send orchestrator

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/Lyzr-Apps/ultimate-super-space/internal/agent"
	"github.com/Lyzr-Apps/ultimate-super-space/internal/chat"
	"github.com/Lyzr-Apps/ultimate-super-space/internal/config"
	"github.com/Lyzr-Apps/ultimate-super-space/internal/conversation"
	"github.com/Lyzr-Apps/ultimate-super-space/internal/store"
)

// version is set at build time.
var version = "dev"

func main() {
	configPath := flag.String("config", config.Path(), "Path to config file (.yaml or .toml)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := runChat(ctx, *configPath, *debug); err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nGoodbye!")
}

// loadConfig reads the config file, falling back to defaults when it does not exist.
func loadConfig(path string) (*config.Config, bool, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}

func runChat(ctx context.Context, configPath string, debug bool) error {
	cfg, fromFile, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if debug {
		cfg.Logging.Level = "debug"
	}

	logger := setupLogger(cfg.Logging, os.Stderr)
	slog.SetDefault(logger)

	if fromFile {
		logger.Info("config loaded", "path", configPath)
	} else {
		logger.Info("no config file, using defaults", "path", configPath)
	}

	blobs, err := store.Open(cfg.Storage.Backend, cfg.Storage.Path, cfg.Storage.Key)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer blobs.Close()

	convs := conversation.Open(ctx, blobs, logger)
	defer convs.Close()

	client := agent.NewClient(agent.Config{
		Endpoint: cfg.Agent.Endpoint,
		APIKey:   cfg.Agent.APIKey,
		AgentID:  cfg.Agent.AgentID,
		UserID:   cfg.Agent.UserID,
		Timeout:  cfg.Agent.Timeout,
	}, nil, logger)

	orch := chat.New(convs, client, logger)

	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	cyan.Printf("ultimate-super-space %s\n", version)
	gray.Printf("endpoint: %s\n", cfg.Agent.Endpoint)
	gray.Printf("storage:  %s (%s)\n", cfg.Storage.Path, cfg.Storage.Backend)
	fmt.Println("Type a message and press Enter. /help for commands. Ctrl+C to quit.")
	fmt.Println()

	a := newApp(os.Stdin, os.Stdout, convs, orch)
	return a.run(ctx)
}
