package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cfilipov/cachewise/internal/config"
	"github.com/cfilipov/cachewise/internal/db"
	"github.com/cfilipov/cachewise/internal/dockercli"
	"github.com/cfilipov/cachewise/internal/engine"
	"github.com/cfilipov/cachewise/internal/gate"
	"github.com/cfilipov/cachewise/internal/handlers"
	"github.com/cfilipov/cachewise/internal/models"
	"github.com/cfilipov/cachewise/internal/scanner"
	"github.com/cfilipov/cachewise/internal/ws"
)

// version is set at build time via -ldflags="-X main.version=..."
var version = "0.3.0"

func main() {
	// Quick healthcheck mode — used by Docker HEALTHCHECK from scratch image.
	// Avoids needing wget/curl in the container. The binary starts in ~10ms,
	// hits /healthz, and exits immediately — no server initialization.
	if len(os.Args) > 1 && os.Args[1] == "healthcheck" {
		port := "5002"
		if v := os.Getenv("CACHEWISE_PORT"); v != "" {
			port = v
		}
		resp, err := http.Get("http://127.0.0.1:" + port + "/healthz")
		if err != nil || resp.StatusCode != 200 {
			os.Exit(1)
		}
		os.Exit(0)
	}

	cfg := config.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})))

	slog.Info("starting cachewise",
		"port", cfg.Port,
		"dataDir", cfg.DataDir,
		"dockerBin", cfg.DockerBin,
		"dev", cfg.Dev,
		"logLevel", cfg.LogLevel,
		"noAuth", cfg.NoAuth,
	)

	// Open database
	database, err := db.Open(cfg.DataDir)
	if err != nil {
		slog.Error("database", "err", err)
		os.Exit(1)
	}
	defer database.Close()

	// WebSocket server
	wss := ws.NewServer()

	// HTTP mux
	mux := http.NewServeMux()
	mux.Handle("/ws", wss)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Models
	users := models.NewUserStore(database)
	settings := models.NewSettingStore(database)
	scanners := models.NewScannerStore(database)

	// JWT secret (auto-generated on first run)
	jwtSecret, err := settings.EnsureJWTSecret()
	if err != nil {
		slog.Error("jwt secret", "err", err)
		os.Exit(1)
	}

	// Check if setup is needed
	userCount, err := users.Count()
	if err != nil {
		slog.Error("user count", "err", err)
		os.Exit(1)
	}

	// Dev mode: auto-seed admin user
	if cfg.Dev && userCount == 0 {
		if _, err := users.Create("admin", "testpass123"); err != nil {
			slog.Error("dev seed", "err", err)
		} else {
			slog.Info("dev mode: seeded admin user")
			userCount = 1
		}
	}

	// Inventory engine shelling out to the configured CLI binary.
	eng := engine.NewService(dockercli.New(cfg.DockerBin))

	// Scanner registry: persisted user scanners first, then the definitions
	// file (watched below) layered on top.
	registry := scanner.NewRegistry()
	persisted, err := scanners.GetAll()
	if err != nil {
		slog.Error("load scanners", "err", err)
		os.Exit(1)
	}
	for _, sc := range persisted {
		if err := registry.Register(sc); err != nil {
			slog.Warn("persisted scanner rejected", "id", sc.ID, "err", err)
		}
	}

	// Wire up handlers
	app := &handlers.App{
		Users:     users,
		Settings:  settings,
		Scanners:  scanners,
		Registry:  registry,
		WS:        wss,
		Engine:    eng,
		Gate:      gate.New(settings),
		JWTSecret: jwtSecret,
		NeedSetup: userCount == 0,
		Version:   version,
		NoAuth:    cfg.NoAuth,
		Dev:       cfg.Dev,
	}
	handlers.RegisterAll(app)

	if cfg.NoAuth {
		slog.Warn("authentication disabled (--no-auth)")
	}

	// Start background tasks
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Scanner definitions file watcher (fsnotify) — reloads on change and
	// tells connected dashboards to refresh.
	if cfg.ScannersFile != "" {
		err := scanner.StartWatcher(ctx, cfg.ScannersFile, registry, func() {
			ws.Broadcast(wss, "scannersChanged", true)
		})
		if err != nil {
			slog.Warn("scanner definitions watcher failed to start", "err", err)
		}
	}

	// Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
}
