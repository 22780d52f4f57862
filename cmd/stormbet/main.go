package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/danivega/stormbet/config"
	"github.com/danivega/stormbet/internal/adapters/backend"
	"github.com/danivega/stormbet/internal/adapters/ledger"
	"github.com/danivega/stormbet/internal/adapters/notify"
	"github.com/danivega/stormbet/internal/adapters/storage"
	"github.com/danivega/stormbet/internal/adapters/wallet"
	"github.com/danivega/stormbet/internal/domain"
	"github.com/danivega/stormbet/internal/engine"
	"github.com/danivega/stormbet/internal/session"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "refresh positions once and exit")
	settle := flag.String("settle", "", "settle the position with this asset ID, then exit")
	table := flag.Bool("table", false, "print the full positions table")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("stormbet engine starting",
		"config", *configPath,
		"network", cfg.Engine.Network,
		"interval", cfg.RefreshInterval(),
	)

	store, err := storage.NewSQLiteStore(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	deviceID := cfg.Engine.DeviceID
	if deviceID == "" {
		deviceID = uuid.NewString()
	}

	authAPI := backend.NewAuthAPI(cfg.API.Base)
	sessions := session.New(store, authAPI, deviceID)
	client := backend.NewClient(cfg.API.Base, sessions, sessions.Identity)
	relay := backend.NewRelay(client, ledger.NewClient(cfg.API.LedgerRPC))
	bridge := wallet.NewBridge(cfg.Wallet.Endpoint)
	notifier := notify.NewConsole(*table)

	eng := engine.New(sessions, client, client, client, bridge, relay, notifier,
		domain.NetworkTier(cfg.Engine.Network))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := connectWallet(ctx, bridge, store, sessions, eng); err != nil {
		slog.Error("wallet connect failed", "err", err)
		os.Exit(1)
	}

	if err := eng.Refresh(ctx); err != nil {
		slog.Error("initial refresh failed", "err", err)
		os.Exit(1)
	}

	if *settle != "" {
		runSettle(ctx, eng, *settle)
		return
	}
	if *once {
		return
	}

	ticker := time.NewTicker(cfg.RefreshInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("stormbet engine stopped cleanly")
			return
		case <-ticker.C:
			if err := eng.Refresh(ctx); err != nil {
				slog.Warn("refresh failed", "err", err)
			}
		}
	}
}

// connectWallet reuses a stored authorization when present, otherwise asks
// the wallet daemon for a fresh one, then points the session manager and
// the engine at the selected account.
func connectWallet(ctx context.Context, bridge *wallet.Bridge, store *storage.SQLiteStore, sessions *session.Manager, eng *engine.Engine) error {
	auth, err := bridge.Authorize(ctx)
	if err != nil {
		return err
	}
	if err := store.SaveAuthorization(ctx, auth); err != nil {
		slog.Warn("could not persist wallet authorization", "err", err)
	}
	sessions.SetIdentity(auth.Selected())
	eng.SetOwner(auth.Selected())
	return nil
}

func runSettle(ctx context.Context, eng *engine.Engine, assetID string) {
	var key domain.PositionKey
	for _, p := range eng.Positions() {
		if p.AssetID == assetID {
			key = p.Key()
			break
		}
	}
	if key.AssetID == "" {
		slog.Error("no open position with that asset ID", "asset_id", assetID)
		os.Exit(1)
	}

	result, err := eng.SettlePosition(ctx, key)
	if err != nil {
		os.Exit(1)
	}
	slog.Info("settlement finished", "kind", string(result.Kind))
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
