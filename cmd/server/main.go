package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/HyphaGroup/manus-mcp/internal/config"
	"github.com/HyphaGroup/manus-mcp/internal/history"
	"github.com/HyphaGroup/manus-mcp/internal/logger"
	"github.com/HyphaGroup/manus-mcp/internal/manus"
	"github.com/HyphaGroup/manus-mcp/internal/mcp"
	"github.com/HyphaGroup/manus-mcp/internal/probe"
)

// Version is set at build time via -ldflags "-X main.Version=v1.0.0"
var Version = "dev"

// historyRetention bounds how long invocation records are kept.
const historyRetention = 30 * 24 * time.Hour

func main() {
	showVersion := flag.Bool("version", false, "Print version and exit")
	homeFlag := flag.String("home", "", "manus-mcp home directory (default: MANUS_MCP_HOME, console-only when unset)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("manus-mcp %s\n", Version)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *homeFlag != "" {
		cfg.HomeDir = *homeFlag
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Without a home directory the server runs stateless: console logs,
	// no invocation history.
	logDir := ""
	dataDir := ""
	if cfg.HomeDir != "" {
		logDir = filepath.Join(cfg.HomeDir, "logs")
		dataDir = filepath.Join(cfg.HomeDir, "data")
	}

	if err := logger.Init(logDir); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Close() }()

	logger.Println("🤖 manus-mcp - Manus AI task bridge")
	logger.Println("")
	logger.Printf("🔗 Manus API base: %s", cfg.APIBase)
	logger.Printf("👤 Agent profile: %s", cfg.AgentProfile)

	if !cfg.HasAPIKey() {
		logger.Println("⚠️  MANUS_API_KEY not set - Manus API calls will fail with authentication errors")
	}

	var historyStore *history.Store
	if dataDir != "" {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			logger.Fatalf("Failed to create data directory: %v", err)
		}
		historyStore, err = history.NewStore(dataDir)
		if err != nil {
			logger.Printf("⚠️  Failed to open history store: %v", err)
		} else {
			logger.Printf("🗄️  Invocation history: %s", filepath.Join(dataDir, "history.db"))
			if pruned, err := historyStore.Prune(historyRetention); err != nil {
				logger.Printf("⚠️  Failed to prune history: %v", err)
			} else if pruned > 0 {
				logger.Printf("🧹 Pruned %d invocation(s) older than %s", pruned, historyRetention)
			}
		}
	}

	upstreamProbe := probe.New(cfg.APIBase, 0)
	if err := upstreamProbe.Start(); err != nil {
		logger.Fatalf("Failed to start upstream probe: %v", err)
	}

	client := manus.NewClient(cfg.APIBase, cfg.APIKey, cfg.AgentProfile)

	server := mcp.NewServer(cfg, client, &mcp.ServerOptions{
		History: historyStore,
		Probe:   upstreamProbe,
		Version: Version,
	})

	// Setup graceful shutdown
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Serve(cfg.Addr())
	}()

	select {
	case err := <-serverErr:
		logger.Fatalf("Server error: %v", err)
	case sig := <-shutdownChan:
		logger.Printf("⚠️  Received signal %v, shutting down...", sig)

		logger.Println("   Stopping reachability probe...")
		upstreamProbe.Stop()

		if historyStore != nil {
			logger.Println("   Closing history database...")
			_ = historyStore.Close()
		}

		logger.Println("✅ Shutdown complete")
		_ = logger.Close()
		os.Exit(0)
	}
}
