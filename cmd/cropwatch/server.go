package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/cropwatch/cropwatch/internal/api"
	"github.com/cropwatch/cropwatch/internal/chat"
	"github.com/cropwatch/cropwatch/internal/config"
	"github.com/cropwatch/cropwatch/internal/farm"
	"github.com/cropwatch/cropwatch/internal/history"
	"github.com/cropwatch/cropwatch/internal/logging"
	"github.com/cropwatch/cropwatch/internal/metrics"
	"github.com/cropwatch/cropwatch/internal/mock"
	"github.com/cropwatch/cropwatch/internal/settings"
	"github.com/cropwatch/cropwatch/internal/speech"
	"github.com/cropwatch/cropwatch/internal/transport"
	"github.com/cropwatch/cropwatch/internal/websocket"
	"github.com/cropwatch/cropwatch/pkg/reporting"
)

const (
	shutdownTimeout   = 30 * time.Second
	retentionInterval = time.Hour
	sessionSweepEvery = time.Minute
	historyWriteLimit = 5 * time.Second
)

func runServer(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}

	// Baseline logger for early startup messages
	logging.Init(logging.Config{
		Format:    "auto",
		Level:     "info",
		Component: "cropwatch",
	})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Format:    cfg.LogFormat,
		Level:     cfg.LogLevel,
		Component: "cropwatch",
	})
	log.Info().Str("version", Version).Str("data_dir", cfg.DataPath).Msg("Starting CropWatch server")

	if err := os.MkdirAll(cfg.DataPath, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	// Farm data
	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}
	defer provider.Stop()

	// Reading history
	historyStore, err := history.Open(history.DefaultPath(cfg.DataPath))
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer historyStore.Close()
	if err := historyStore.Record(ctx, provider.Snapshot(), time.Now()); err != nil {
		log.Warn().Err(err).Msg("Failed to record initial readings")
	}
	g.Go(func() error {
		historyStore.RunRetention(ctx, cfg.HistoryRetention, retentionInterval)
		return nil
	})

	// Chat sessions
	store, err := newChatStore(ctx, g, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	chatService := chat.NewService(store, provider)

	// Live updates
	hub := websocket.NewHub(func() interface{} { return provider.Snapshot() })
	hub.SetAllowedOrigins(cfg.Origins())
	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})

	provider.Subscribe(func(snap farm.MetricsSnapshot) {
		metrics.RecordSnapshot(snap)
		hub.Broadcast(websocket.TypeSnapshot, snap)

		writeCtx, cancel := context.WithTimeout(context.Background(), historyWriteLimit)
		defer cancel()
		if err := historyStore.Record(writeCtx, snap, time.Now()); err != nil {
			log.Warn().Err(err).Msg("Failed to record readings")
		}
	})
	metrics.RecordSnapshot(provider.Snapshot())

	// Speech follows the persisted settings
	settingsStore, err := settings.Open(cfg.DataPath)
	if err != nil {
		return fmt.Errorf("open settings: %w", err)
	}
	bridge := speech.NewBridge(hub, cfg.Language)
	applySpeechSettings := func(s settings.Settings) {
		bridge.Configure(s.Language, s.SpeechRate, s.SpeechEnabled)
	}
	applySpeechSettings(settingsStore.Get())
	settingsStore.OnChange(applySpeechSettings)

	// Optional NATS responder
	if cfg.NATSURL != "" {
		responder, err := transport.NewNATSResponder(cfg.NATSURL, cfg.NATSSubject, provider)
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		defer responder.Close()
		if err := responder.Start(); err != nil {
			return fmt.Errorf("start NATS responder: %w", err)
		}
	}

	if cfg.MetricsPort > 0 {
		startMetricsServer(ctx, g, fmt.Sprintf("%s:%d", cfg.BackendHost, cfg.MetricsPort))
	}

	handler := api.NewRouter(api.Options{
		Config:   cfg,
		Provider: provider,
		Chat:     chatService,
		History:  historyStore,
		Reports:  reporting.NewEngine(),
		Settings: settingsStore,
		Speech:   bridge,
		Hub:      hub,
		Version:  Version,
		Build:    BuildTime,
	})

	// ReadHeaderTimeout only; a full ReadTimeout would cut websocket connections.
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.BackendHost, cfg.BackendPort),
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	configWatcher, err := config.NewConfigWatcher(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create config watcher, .env changes will require restart")
	} else {
		configWatcher.SetMockReloadCallback(func() {
			log.Info().Msg("mock.env changed, reloading mock data")
			provider.Reload()
		})
		configWatcher.SetEnvReloadCallback(func(updated *config.Config) {
			hub.SetAllowedOrigins(updated.Origins())
			logging.Init(logging.Config{
				Format:    updated.LogFormat,
				Level:     updated.LogLevel,
				Component: "cropwatch",
			})
		})
		if err := configWatcher.Start(); err != nil {
			log.Warn().Err(err).Msg("Failed to start config watcher")
		}
		defer configWatcher.Stop()
	}

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
		return nil
	})

	g.Go(func() error {
		watchReloadSignal(ctx, func() {
			log.Info().Msg("Received SIGHUP, reloading configuration...")
			if configWatcher != nil {
				configWatcher.ReloadConfig()
			}
			loadMockEnv(cfg)
			provider.Reload()
		})
		return nil
	})

	err = g.Wait()
	provider.Stop()
	log.Info().Msg("Server stopped")
	return err
}

func watchReloadSignal(ctx context.Context, reload func()) {
	reloadChan := make(chan os.Signal, 1)
	signal.Notify(reloadChan, syscall.SIGHUP)
	defer signal.Stop(reloadChan)

	for {
		select {
		case <-ctx.Done():
			return
		case <-reloadChan:
			reload()
		}
	}
}

// loadMockEnv exports mock.env into the environment without overriding
// variables that are already set.
func loadMockEnv(cfg *config.Config) {
	path := cfg.MockEnvPath()
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		log.Warn().Err(err).Str("file", path).Msg("Failed to load mock.env")
	}
}

func newProvider(cfg *config.Config) (*mock.Provider, error) {
	profile := mock.DefaultProfile(time.Now())
	if cfg.SampleFile != "" {
		loaded, err := mock.LoadProfile(cfg.SampleFile, time.Now())
		if err != nil {
			return nil, fmt.Errorf("load sample farm: %w", err)
		}
		profile = loaded
		log.Info().Str("file", cfg.SampleFile).Msg("Loaded sample farm profile")
	}

	provider := mock.NewProvider(profile)
	loadMockEnv(cfg)
	provider.Reload()
	return provider, nil
}

func newChatStore(ctx context.Context, g *errgroup.Group, cfg *config.Config) (chat.Store, error) {
	if cfg.RedisURL != "" {
		store, err := chat.NewRedisStore(ctx, cfg.RedisURL, cfg.SessionTTL)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		log.Info().Msg("Chat sessions stored in Redis")
		return store, nil
	}

	store := chat.NewMemoryStore(cfg.SessionTTL)
	g.Go(func() error {
		store.Run(ctx, sessionSweepEvery)
		return nil
	})
	return store, nil
}
