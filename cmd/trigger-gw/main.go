package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/zbee/trigger-gw/internal/audit"
	"github.com/zbee/trigger-gw/internal/config"
	"github.com/zbee/trigger-gw/internal/gateway"
	"github.com/zbee/trigger-gw/internal/keystore"
	"github.com/zbee/trigger-gw/internal/log"
	"github.com/zbee/trigger-gw/internal/notify"
)

const version = "0.2.0"

func main() {
	// Dev convenience only; a missing .env is not an error.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "system":
		os.Exit(runSystemNoun(args))
	case "config":
		os.Exit(runConfigNoun(args))

	// --- ROOT ALIASES ---
	case "start":
		os.Exit(runStart(args))
	case "version":
		fmt.Printf("trigger-gw version %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		printUsage()
		os.Exit(0)

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`trigger-gw - Webhook-triggered build authorization gateway

Usage:
  trigger-gw <noun> <action> [flags]

System Commands:
  system start      Start the gateway in foreground

Config Commands:
  config check      Validate the configuration file
  config lock       Authorize current config state (update integrity hashes)

General:
  version           Show version information
  help              Show this help message
`)
}

func runSystemNoun(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: trigger-gw system start [flags]")
		return 1
	}

	switch args[0] {
	case "start":
		return runStart(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown system action: %s\n", args[0])
		return 1
	}
}

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: trigger-gw config <check|lock> [flags]")
		return 1
	}

	switch args[0] {
	case "check":
		return runConfigCheck(args[1:])
	case "lock":
		return runConfigLock(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", args[0])
		return 1
	}
}

func resolveConfigPath(fs *flag.FlagSet, args []string) (string, int) {
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return "", 1
	}

	if *configPath == "" {
		discovered, err := config.DiscoverConfigPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to discover config: %v\n", err)
			return "", 1
		}
		*configPath = discovered
		fmt.Fprintf(os.Stderr, "Using discovered config: %s\n", *configPath)
	}
	return *configPath, 0
}

func runConfigCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath, code := resolveConfigPath(fs, args)
	if code != 0 {
		return code
	}

	if _, err := config.Load(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Config check failed: %v\n", err)
		return 1
	}
	fmt.Println("Config OK")
	return 0
}

func runConfigLock(args []string) int {
	fs := flag.NewFlagSet("lock", flag.ExitOnError)
	configPath, code := resolveConfigPath(fs, args)
	if code != 0 {
		return code
	}

	if err := config.GenerateChecksums(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Config lock failed: %v\n", err)
		return 1
	}
	fmt.Println("Config state authorized")
	return 0
}

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath, code := resolveConfigPath(fs, args)
	if code != 0 {
		return code
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger := log.WithComponent("main")
	logger.Info("trigger-gw starting", "version", version, "config", configPath)

	maxBody, err := cfg.Gateway.MaxBodyBytes()
	if err != nil {
		logger.Error("invalid max body size", "error", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var auditLog *audit.Log
	if cfg.Audit.Path != "" {
		auditLog, err = audit.Open(ctx, cfg.Audit.Path)
		if err != nil {
			logger.Error("failed to open audit log", "path", cfg.Audit.Path, "error", err)
			return 1
		}
		defer auditLog.Close()
		logger.Info("audit log opened", "path", cfg.Audit.Path)
	}

	store := keystore.NewClient(cfg.Store.Owner, cfg.Store.Repo, cfg.Store.Token)
	notifier := notify.NewCommentNotifier(cfg.Notifier.Owner, cfg.Notifier.Repo, cfg.Notifier.Commit, cfg.Notifier.Token)

	server := gateway.New(gateway.Config{
		Listen:          cfg.Gateway.Listen,
		MaxBodySize:     maxBody,
		UpstreamTimeout: cfg.UpstreamTimeout,
		WorkerVersion:   version,
	}, store, notifier, auditLog, log.WithComponent("gateway"))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx)
	}()

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			logger.Error("gateway stopped", "error", err)
			return 1
		}
	}

	logger.Info("trigger-gw stopped")
	return 0
}
