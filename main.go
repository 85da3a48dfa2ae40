package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config is the environment-derived runtime configuration. Every setting
// has a development default so a fresh checkout works with just a .env
// holding the client secrets.
type Config struct {
	ChannelsFile      string
	SecretsFile       string
	TokenDir          string
	DBPath            string
	ListenAddr        string
	LogFile           string
	SnapshotTTL       time.Duration
	SnapshotRetention time.Duration
}

func loadConfig() *Config {
	return &Config{
		ChannelsFile:      envOr("CHANNELS_FILE", "./channels.yaml"),
		SecretsFile:       envOr("CLIENT_SECRETS_FILE", "./client_secrets.json"),
		TokenDir:          envOr("TOKEN_DIR", "./tokens"),
		DBPath:            envOr("DB_PATH", "./data/snapshots.sqlite"),
		ListenAddr:        envOr("LISTEN_ADDR", ":8080"),
		LogFile:           envOr("LOG_FILE", "./logs.log"),
		SnapshotTTL:       envDurationOr("SNAPSHOT_TTL", 6*time.Hour),
		SnapshotRetention: envDurationOr("SNAPSHOT_RETENTION", 90*24*time.Hour),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDurationOr(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

var app *App

func main() {
	// .env is a development convenience; deployed instances get real env vars
	if err := godotenv.Load("./.env"); err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "Error loading .env file:", err)
		os.Exit(1)
	}

	cfg := loadConfig()

	logCfg := zap.NewProductionConfig()
	logCfg.OutputPaths = []string{"stderr", cfg.LogFile}
	logger, err := logCfg.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error building logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	registry, err := LoadRegistry(cfg.ChannelsFile)
	if err != nil {
		logger.Fatal("loading channel registry", zap.Error(err))
	}

	store, err := OpenStore(cfg.DBPath)
	if err != nil {
		logger.Fatal("opening snapshot store", zap.Error(err))
	}
	defer store.Close()

	app = &App{
		cfg:      cfg,
		registry: registry,
		store:    store,
		log:      logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error("command failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
