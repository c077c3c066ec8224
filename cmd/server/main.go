package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/mlaroche/chatnet/pkg/auth"
	"github.com/mlaroche/chatnet/pkg/logging"
	"github.com/mlaroche/chatnet/pkg/server"
	"github.com/mlaroche/chatnet/pkg/store"
	"github.com/mlaroche/chatnet/pkg/version"
)

func main() {
	cfg := server.DefaultConfig()
	if err := cfg.ParseEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid environment config: %v\n", err)
		os.Exit(1)
	}

	flag.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "HTTP bind address for /ws and /api")
	flag.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "HTTP bind address for Prometheus /metrics (empty to disable)")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database file path (empty for in-memory)")
	flag.StringVar(&cfg.JWTSecret, "jwt-secret", cfg.JWTSecret, "HMAC secret for bearer tokens")
	flag.DurationVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL, "Token lifetime for /api/login")
	flag.StringVar(&cfg.RoomsFile, "rooms-file", cfg.RoomsFile, "YAML file defining rooms to create on startup")
	flag.BoolVar(&cfg.Ambient, "ambient", cfg.Ambient, "Enable the ambient room responder")
	flag.BoolVar(&cfg.ExportUsers, "export-users", false, "Export all users as YAML and exit")
	flag.BoolVar(&cfg.ExportRooms, "export-rooms", false, "Export all rooms as YAML and exit")

	logLevel := flag.String("log-level", "info", "Log level: "+logging.LevelNames())
	logFormat := flag.String("log-format", "text", "Log format: text or json")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Full())
		return
	}

	// Configure structured logging
	if err := logging.Setup(logging.Options{
		Level:  *logLevel,
		Format: *logFormat,
		Output: os.Stdout,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging config: %v\n", err)
		os.Exit(1)
	}

	st, err := openStore(cfg.DBPath)
	if err != nil {
		slog.Error("open database", "err", err)
		os.Exit(1)
	}

	// Handle export commands (run and exit)
	if cfg.ExportUsers || cfg.ExportRooms {
		defer func() { _ = st.Close() }()

		if cfg.ExportUsers {
			data, err := server.ExportUsersYAML(st)
			if err != nil {
				slog.Error("export users", "err", err)
				os.Exit(1)
			}
			fmt.Print(string(data))
		}
		if cfg.ExportRooms {
			data, err := server.ExportRoomsYAML(st)
			if err != nil {
				slog.Error("export rooms", "err", err)
				os.Exit(1)
			}
			fmt.Print(string(data))
		}
		return
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "err", err)
		os.Exit(1)
	}

	deps := server.Dependencies{
		Store:  st,
		Tokens: auth.New(cfg.JWTSecret, cfg.TokenTTL),
	}
	if cfg.Ambient {
		deps.Ambient = server.NewCannedResponder()
	}

	srv := server.New(cfg, deps)
	if err := srv.Run(); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}

func openStore(path string) (store.DataStore, error) {
	if path == "" {
		slog.Warn("no database path configured, using in-memory store")
		return store.NewMemory(), nil
	}
	return store.New(path)
}
